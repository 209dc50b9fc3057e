package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"agent-cag/internal/retry"
)

// conn is the part of *nats.Conn the queue uses.
type conn interface {
	Publish(subj string, data []byte) error
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// NewNATS constructs a thin NATS-based queue.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return newNATS(log, nc, time.Second)
}

func newNATS(log *slog.Logger, c conn, retryBase time.Duration) *natsQueue {
	return &natsQueue{log: log, nc: c, retryBase: retryBase}
}

type natsQueue struct {
	log       *slog.Logger
	nc        conn
	retryBase time.Duration
	// pending counts delayed republishes still waiting on their timer.
	pending sync.WaitGroup
}

func subject(t TaskType) string { return "tasks." + string(t) }

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subject(task.Type), body)
}

// Worker consumes taskType in a queue group so replicas share the load.
// It blocks until ctx is cancelled, then flushes delayed retries.
func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject(taskType), group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", subject(taskType), "group", group)
	<-ctx.Done()
	err = sub.Unsubscribe()
	q.pending.Wait()
	return err
}

// Close drains the connection after in-flight retries were handed back.
func (q *natsQueue) Close() error {
	q.pending.Wait()
	return q.nc.Drain()
}

// handleMessage never sleeps: NATS runs one subscription's callbacks in
// sequence, so a task that is not due yet is put back with a timer.
func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if wait := time.Until(task.NotBefore); wait > 0 {
		q.publishAfter(ctx, task, wait)
		return
	}

	if err := handler(ctx, task); err != nil {
		q.retryTask(ctx, task, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = defaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts, "original_err", handlerErr)
		return
	}

	delay := retry.ExponentialBackoff(task.Attempts, q.retryBase)
	task.NotBefore = time.Now().Add(delay)
	q.log.Warn("task failed, retrying", "id", task.ID, "type", task.Type, "attempt", task.Attempts, "delay", delay, "err", handlerErr)
	q.publishAfter(ctx, task, delay)
}

// publishAfter republishes task once delay has passed. When ctx ends first
// the task is published at once so another replica can pick it up; it keeps
// its NotBefore.
func (q *natsQueue) publishAfter(ctx context.Context, task Task, delay time.Duration) {
	q.pending.Add(1)
	go func() {
		defer q.pending.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		if err := q.Enqueue(context.WithoutCancel(ctx), task); err != nil {
			q.log.Error("failed to re-enqueue task", "id", task.ID, "type", task.Type, "attempt", task.Attempts, "err", err)
		}
	}()
}
