package tick

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Observer tracks a set of tasks, e.g. "filtering in progress"
type Observer struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*Task
	lastErr error
}

// NewObserver creates an observer with nothing pending
func NewObserver() *Observer {
	return &Observer{pending: make(map[uuid.UUID]*Task)}
}

// Link starts tracking t and returns it
func (o *Observer) Link(t *Task) *Task {
	o.mu.Lock()
	o.pending[t.ID] = t
	o.mu.Unlock()

	t.whenDone(func(t *Task) {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.pending, t.ID)
		o.lastErr = t.Err()
	})
	return t
}

// IsPending reports whether any linked task has not finished
func (o *Observer) IsPending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending) > 0
}

// LastError returns the error of the most recently finished task
func (o *Observer) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Wait blocks until every task pending at the time of the call has finished.
// The loop running the tasks must be flushed by someone else.
func (o *Observer) Wait(ctx context.Context) error {
	o.mu.Lock()
	tasks := make([]*Task, 0, len(o.pending))
	for _, t := range o.pending {
		tasks = append(tasks, t)
	}
	o.mu.Unlock()

	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return o.LastError()
}

// CancelAll cancels every pending task
func (o *Observer) CancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.pending {
		t.Cancel()
	}
}
