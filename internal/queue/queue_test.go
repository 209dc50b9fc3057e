package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInlineQueueRunsHandler(t *testing.T) {
	q := NewInline(discardLogger())
	var got Task
	q.Handle(TaskTypeIndex, func(_ context.Context, task Task) error {
		got = task
		return nil
	})

	require.NoError(t, q.Enqueue(context.Background(), Task{Type: TaskTypeIndex, Payload: []byte(`{}`)}))
	assert.Equal(t, TaskTypeIndex, got.Type)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", got.ID.String())
}

func TestInlineQueueErrors(t *testing.T) {
	q := NewInline(discardLogger())

	err := q.Enqueue(context.Background(), Task{Type: TaskTypeIndex})
	assert.ErrorContains(t, err, "no handler")

	err = q.Enqueue(context.Background(), Task{})
	assert.ErrorContains(t, err, "task type required")

	boom := errors.New("boom")
	q.Handle(TaskTypeIndex, func(context.Context, Task) error { return boom })
	err = q.Enqueue(context.Background(), Task{Type: TaskTypeIndex})
	assert.ErrorIs(t, err, boom)
}

func TestInlineWorkerBlocksUntilCancelled(t *testing.T) {
	q := NewInline(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- q.Worker(ctx, TaskTypeIndex, func(context.Context, Task) error { return nil })
	}()

	require.Eventually(t, func() bool {
		return q.Enqueue(context.Background(), Task{Type: TaskTypeIndex}) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEnqueueWithRetry(t *testing.T) {
	q := new(MockQueue)
	task := Task{Type: TaskTypeIndex}
	q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Once()
	q.On("Enqueue", mock.Anything, task).Return(nil).Once()

	require.NoError(t, EnqueueWithRetry(context.Background(), q, task, 3, time.Millisecond))
	q.AssertExpectations(t)
}
