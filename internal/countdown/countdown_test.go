package countdown

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/intervbot/internal/eventloop"
	"github.com/fakeyudi/intervbot/internal/question"
)

func TestStartRendersImmediately(t *testing.T) {
	loop := eventloop.NewManual()
	var shown []string
	timer := New(loop, func(r int) { shown = append(shown, question.FormatClock(r)) })

	timer.Start(question.Medium.TimerSeconds(), nil)
	if len(shown) != 1 || shown[0] != "01:30" {
		t.Fatalf("initial render = %v, want [01:30]", shown)
	}
	if !timer.Active() {
		t.Fatal("timer should be active")
	}
}

func TestExpiresExactlyOnce(t *testing.T) {
	loop := eventloop.NewManual()
	timer := New(loop, nil)
	fired := 0
	timer.Start(3, func() { fired++ })

	loop.Advance(2 * time.Second)
	if fired != 0 || timer.Remaining() != 1 {
		t.Fatalf("after 2s: fired=%d remaining=%d", fired, timer.Remaining())
	}
	loop.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("after 3s: fired=%d, want 1", fired)
	}
	loop.Advance(10 * time.Second)
	if fired != 1 {
		t.Fatalf("fired again after expiry: %d", fired)
	}
	if timer.Active() || loop.Pending() != 0 {
		t.Fatalf("timer still armed after expiry")
	}
	if timer.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", timer.Remaining())
	}
}

func TestZeroDurationExpiresSynchronously(t *testing.T) {
	loop := eventloop.NewManual()
	var rendered []int
	timer := New(loop, func(r int) { rendered = append(rendered, r) })
	fired := false
	timer.Start(0, func() { fired = true })
	if !fired {
		t.Fatal("onExpire not called synchronously")
	}
	if loop.Pending() != 0 || timer.Active() {
		t.Fatal("zero duration must not arm a clock")
	}
	if len(rendered) != 1 || rendered[0] != 0 {
		t.Fatalf("rendered = %v", rendered)
	}

	fired = false
	timer.Start(-4, func() { fired = true })
	if !fired || timer.Remaining() != 0 {
		t.Fatal("negative duration should expire immediately with 0 remaining")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	loop := eventloop.NewManual()
	timer := New(loop, nil)
	timer.Cancel()
	timer.Cancel()

	fired := false
	timer.Start(2, func() { fired = true })
	timer.Cancel()
	timer.Cancel()
	loop.Advance(5 * time.Second)
	if fired {
		t.Fatal("cancelled timer fired")
	}
	if timer.Remaining() != 2 {
		t.Fatalf("cancel should freeze remaining, got %d", timer.Remaining())
	}
}

func TestResetClearsDisplay(t *testing.T) {
	loop := eventloop.NewManual()
	last := -1
	timer := New(loop, func(r int) { last = r })
	timer.Start(60, nil)
	timer.Reset()
	if last != 0 || timer.Active() {
		t.Fatalf("after reset: last=%d active=%v", last, timer.Active())
	}
}

// Feature: intervbot, Property 3: Restarting never leaves two live intervals
func TestRestartKeepsSingleInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		loop := eventloop.NewManual()
		timer := New(loop, nil)
		fired := make(map[int]int)

		restarts := rapid.IntRange(1, 8).Draw(t, "restarts")
		var lastDuration, lastID int
		for i := 0; i < restarts; i++ {
			id := i
			lastDuration = rapid.IntRange(1, 120).Draw(t, "duration")
			lastID = id
			timer.Start(lastDuration, func() { fired[id]++ })
			if loop.Pending() != 1 {
				t.Fatalf("after start %d: %d live intervals, want 1", i, loop.Pending())
			}
			elapsed := rapid.IntRange(0, lastDuration-1).Draw(t, "elapsed")
			loop.Advance(time.Duration(elapsed) * time.Second)
			if timer.Remaining() != lastDuration-elapsed {
				t.Fatalf("double decrement: remaining=%d, want %d", timer.Remaining(), lastDuration-elapsed)
			}
			lastDuration -= elapsed
		}

		loop.Advance(time.Duration(lastDuration) * time.Second)
		for id, n := range fired {
			if id != lastID {
				t.Fatalf("superseded timer %d fired %d times", id, n)
			}
		}
		if fired[lastID] != 1 {
			t.Fatalf("final timer fired %d times, want 1", fired[lastID])
		}
		if loop.Pending() != 0 {
			t.Fatalf("%d intervals left after expiry", loop.Pending())
		}
	})
}
