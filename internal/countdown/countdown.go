// Package countdown implements the per-question countdown clock.
package countdown

import (
	"time"

	"github.com/fakeyudi/intervbot/internal/eventloop"
)

// Tick is the countdown granularity.
const Tick = time.Second

// Timer counts whole seconds down to zero on a Loop. At most one tick chain
// is live at a time: Start cancels the previous one before arming a new one.
// Timer is not safe for concurrent use; call it from the loop goroutine.
type Timer struct {
	loop      eventloop.Loop
	onTick    func(remaining int)
	remaining int
	pending   eventloop.Stopper
	onExpire  func()
	gen       uint64
}

// New returns an idle Timer. onTick, if non-nil, is called with the remaining
// seconds whenever the display should change, including on Start.
func New(loop eventloop.Loop, onTick func(remaining int)) *Timer {
	return &Timer{loop: loop, onTick: onTick}
}

// Start cancels any running countdown, sets the remaining time and renders
// it. A positive duration begins ticking; onExpire runs exactly once when the
// count reaches zero. A non-positive duration calls onExpire synchronously
// without arming a clock.
func (t *Timer) Start(seconds int, onExpire func()) {
	t.Cancel()
	if seconds < 0 {
		seconds = 0
	}
	t.remaining = seconds
	t.render()

	if seconds == 0 {
		if onExpire != nil {
			onExpire()
		}
		return
	}

	t.onExpire = onExpire
	t.schedule(t.gen)
}

// Cancel stops the countdown. It is safe to call when no timer is running.
func (t *Timer) Cancel() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.onExpire = nil
}

// Reset cancels the countdown and clears the display to zero.
func (t *Timer) Reset() {
	t.Cancel()
	t.remaining = 0
	t.render()
}

// Remaining returns the seconds left on the current countdown.
func (t *Timer) Remaining() int { return t.remaining }

// Active reports whether a tick is scheduled.
func (t *Timer) Active() bool { return t.pending != nil }

func (t *Timer) schedule(gen uint64) {
	t.pending = t.loop.AfterFunc(Tick, func() { t.tick(gen) })
}

func (t *Timer) tick(gen uint64) {
	if gen != t.gen {
		return
	}
	t.pending = nil
	t.remaining--
	if t.remaining > 0 {
		t.render()
		t.schedule(gen)
		return
	}

	t.remaining = 0
	t.render()
	expire := t.onExpire
	t.onExpire = nil
	t.gen++
	if expire != nil {
		expire()
	}
}

func (t *Timer) render() {
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
}
