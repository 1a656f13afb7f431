// Package tick provides the single-threaded "next tick" scheduler used by the
// controllers. Work is queued with Defer or Go and runs, in FIFO order, when
// the host calls Flush.
package tick

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type entry struct {
	key string
	fn  func()
}

// Loop is a FIFO queue of deferred work
type Loop struct {
	mu      sync.Mutex
	queue   []entry
	keyed   map[string]bool
	tasks   map[string]*Task
	running bool
	logger  log.Logger
}

// NewLoop creates an empty loop. A nil logger discards output.
func NewLoop(logger log.Logger) *Loop {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Loop{
		keyed:  make(map[string]bool),
		tasks:  make(map[string]*Task),
		logger: logger,
	}
}

// Defer queues fn for the next tick
func (l *Loop) Defer(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, entry{fn: fn})
}

// DeferOnce queues fn unless work with the same key is already queued.
// It reports whether fn was queued.
func (l *Loop) DeferOnce(key string, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.keyed[key] {
		return false
	}
	l.keyed[key] = true
	l.queue = append(l.queue, entry{key: key, fn: fn})
	return true
}

// Go queues fn as a cancellable task. With a non-empty key, a live task with
// that key that has not started yet is returned instead of queueing another.
// Keys are shared by everything queued on the loop, so callers scope them.
func (l *Loop) Go(ctx context.Context, key string, fn func(ctx context.Context) error) *Task {
	l.mu.Lock()
	if key != "" {
		if t, ok := l.tasks[key]; ok && t.ctx.Err() == nil {
			l.mu.Unlock()
			return t
		}
	}

	t := newTask(ctx)
	if key != "" {
		l.tasks[key] = t
		t.release = func() { l.forget(key, t) }
	}
	l.queue = append(l.queue, entry{fn: func() {
		if key != "" {
			l.forget(key, t)
		}
		t.run(fn)
		if err := t.Err(); err != nil {
			level.Debug(l.logger).Log("msg", "task failed", "task", t.ID, "err", err)
		}
	}})
	l.mu.Unlock()
	return t
}

// forget drops the key of t unless a newer task took it over
func (l *Loop) forget(key string, t *Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks[key] == t {
		delete(l.tasks, key)
	}
}

// Pending returns the number of queued entries
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Flush runs queued work, including work queued while flushing, until the
// queue is empty. It returns the number of entries run. A nested Flush from
// inside queued work returns 0 immediately.
func (l *Loop) Flush() int {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return 0
	}
	l.running = true
	l.mu.Unlock()

	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			return n
		}
		e := l.queue[0]
		l.queue[0] = entry{}
		l.queue = l.queue[1:]
		if e.key != "" {
			delete(l.keyed, e.key)
		}
		l.mu.Unlock()

		e.fn()
		n++
	}
}
