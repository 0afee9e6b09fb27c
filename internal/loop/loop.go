// Package loop implements the single core execution context.
//
// Every entity store, group and change tracker is owned by the goroutine
// that runs the loop. Background work hands its results back with Post, so
// core state is only ever touched from tasks executed here.
package loop

import (
	"context"
	"sync/atomic"

	"github.com/OCAP2/bookmarks/internal/queue"
)

const (
	stateIdle int32 = iota
	stateExecuting
	stateWaiting
)

// Loop is a FIFO mailbox of tasks executed one at a time.
type Loop struct {
	mailbox *queue.Queue[func()]
	wake    chan struct{}
	state   atomic.Int32
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		mailbox: queue.New[func()](),
		wake:    make(chan struct{}, 1),
	}
}

// Post schedules fn on the loop. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mailbox.Push(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.mailbox.Len()
}

// Waiting reports whether the loop goroutine is parked waiting for tasks.
// Core state touched while it is waiting is touched from another goroutine.
func (l *Loop) Waiting() bool {
	return l.state.Load() == stateWaiting
}

// Drain runs queued tasks until the mailbox is empty, including tasks
// posted by the tasks themselves. It returns how many ran.
func (l *Loop) Drain() int {
	prev := l.state.Swap(stateExecuting)
	defer l.state.Store(prev)

	n := 0
	for {
		tasks := l.mailbox.TakeAll()
		if len(tasks) == 0 {
			return n
		}
		for _, fn := range tasks {
			fn()
			n++
		}
	}
}

func (l *Loop) wait(ctx context.Context) error {
	prev := l.state.Swap(stateWaiting)
	defer l.state.Store(prev)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.wake:
		return nil
	}
}

// RunOnce waits until at least one task is queued and drains the mailbox.
func (l *Loop) RunOnce(ctx context.Context) error {
	for {
		if l.Drain() > 0 {
			return nil
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}

// RunUntil executes tasks until done reports true or ctx expires.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for {
		l.Drain()
		if done() {
			return nil
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		if err := l.wait(ctx); err != nil {
			return err
		}
	}
}
