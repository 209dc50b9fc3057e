package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// InlineQueue runs handlers in the caller's goroutine. It lets the gateway
// work without a broker: Enqueue returns only after the handler finished.
type InlineQueue struct {
	log      *slog.Logger
	mu       sync.RWMutex
	handlers map[TaskType]Handler
}

func NewInline(log *slog.Logger) *InlineQueue {
	return &InlineQueue{log: log, handlers: make(map[TaskType]Handler)}
}

// Handle registers handler for taskType, replacing any previous one.
func (q *InlineQueue) Handle(taskType TaskType, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = handler
}

func (q *InlineQueue) Enqueue(ctx context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	q.mu.RLock()
	handler, ok := q.handlers[task.Type]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for task type %s", task.Type)
	}
	q.log.Debug("running inline task", "id", task.ID, "type", task.Type)
	if err := handler(ctx, task); err != nil {
		return fmt.Errorf("task %s failed: %w", task.ID, err)
	}
	return nil
}

// Worker registers handler and blocks until ctx is cancelled.
func (q *InlineQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	q.Handle(taskType, handler)
	<-ctx.Done()
	return nil
}

func (q *InlineQueue) Close() error { return nil }
