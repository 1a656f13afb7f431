package tick

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is a handle to work queued with Loop.Go
type Task struct {
	ID uuid.UUID

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	onDone []func(*Task)

	release func()
}

func newTask(ctx context.Context) *Task {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Task{
		ID:     uuid.New(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (t *Task) run(fn func(ctx context.Context) error) {
	var err error
	if err = t.ctx.Err(); err == nil {
		err = fn(t.ctx)
	}
	t.finish(err)
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	close(t.done)
	hooks := t.onDone
	t.onDone = nil
	t.mu.Unlock()

	t.cancel()
	for _, h := range hooks {
		h(t)
	}
}

// Cancel stops the task. A task cancelled before it starts never runs fn and
// finishes with context.Canceled.
func (t *Task) Cancel() {
	t.cancel()
	if t.release != nil {
		t.release()
	}
}

// Done is closed when the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// IsDone reports whether the task has finished
func (t *Task) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the task's error once finished
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task finishes or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// whenDone registers fn to run after the task finishes, immediately if it already has
func (t *Task) whenDone(fn func(*Task)) {
	t.mu.Lock()
	if !t.IsDone() {
		t.onDone = append(t.onDone, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn(t)
}
