// Package memory provides a queue implementation for local development and
// tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kinoradar/signal-pipeline/internal/radar"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan radar.Job
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan radar.Job, capacity),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, job radar.Job) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- job:
		return job.ID, nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (radar.Job, error) {
	select {
	case <-ctx.Done():
		return radar.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return radar.Job{}, errors.New("queue closed")
		}
		return job, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
