// Package eventloop serializes session callbacks onto a single goroutine.
//
// Timer ticks, user input and network completions all mutate session state.
// Every such mutation is posted to a Loop so that no two of them run at the
// same time; ordering between them is then explicit in the caller.
package eventloop

import (
	"context"
	"sync"
	"time"
)

// Loop runs callbacks one at a time on the goroutine that owns it.
type Loop interface {
	// Post schedules fn to run on the loop. It never blocks on fn.
	Post(fn func())
	// AfterFunc posts fn once d has elapsed. A stopped timer never runs fn,
	// even if its wakeup was already queued.
	AfterFunc(d time.Duration, fn func()) Stopper
}

// Stopper cancels a pending AfterFunc. Stop is idempotent.
type Stopper interface {
	Stop()
}

// Func adapts a send function to a Loop. The function must deliver fn to the
// owning goroutine, e.g. by wrapping it in a tea.Msg for tea.Program.Send.
func Func(post func(fn func())) Loop {
	return funcLoop(post)
}

type funcLoop func(fn func())

func (f funcLoop) Post(fn func()) { f(fn) }

func (f funcLoop) AfterFunc(d time.Duration, fn func()) Stopper {
	return afterFunc(f, d, fn)
}

// wallTimer backs AfterFunc with time.AfterFunc. stopped is only read and
// written on the loop goroutine, so the posted closure can check it without
// locking.
type wallTimer struct {
	t       *time.Timer
	stopped bool
}

func (w *wallTimer) Stop() {
	w.stopped = true
	w.t.Stop()
}

func afterFunc(post func(func()), d time.Duration, fn func()) *wallTimer {
	w := &wallTimer{}
	w.t = time.AfterFunc(d, func() {
		post(func() {
			if w.stopped {
				return
			}
			w.stopped = true
			fn()
		})
	})
	return w
}

// Queue is a Loop backed by its own goroutine. Callers Post from any
// goroutine, including callbacks running on the queue; Run executes
// callbacks in order until the context is done or Stop is called.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post appends fn to the queue without blocking. Posts after Stop are
// dropped.
func (q *Queue) Post(fn func()) {
	select {
	case <-q.done:
		return
	default:
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// AfterFunc implements Loop.
func (q *Queue) AfterFunc(d time.Duration, fn func()) Stopper {
	return afterFunc(q.Post, d, fn)
}

// Stop makes Run return after the callback currently executing.
func (q *Queue) Stop() {
	q.once.Do(func() { close(q.done) })
}

// Run drains the queue until ctx is cancelled or Stop is called.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.Stop()
			return ctx.Err()
		case <-q.done:
			return nil
		case <-q.wake:
		}

		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, fn := range batch {
			select {
			case <-ctx.Done():
				q.Stop()
				return ctx.Err()
			case <-q.done:
				return nil
			default:
			}
			fn()
		}
	}
}
