package voice

import (
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestMissingCommandUnsupported(t *testing.T) {
	if _, err := NewSpeaker(nil, zerolog.Nop()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("empty command: %v", err)
	}
	if _, err := NewRecognizer(ParseCommand("definitely-not-a-real-binary-xyz --flag"), zerolog.Nop()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("missing binary: %v", err)
	}
	if _, err := (Unavailable{}).Listen(nil, nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Unavailable: %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	c := ParseCommand("  spd-say   --wait ")
	if len(c) != 2 || c[0] != "spd-say" || c[1] != "--wait" {
		t.Fatalf("ParseCommand = %q", c)
	}
}

func TestRecognizerStreamsLines(t *testing.T) {
	requireSh(t)
	r, err := NewRecognizer(Command{"sh", "-c", "printf 'hello\\n\\n world \\n'"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var lines []string
	done := make(chan error, 1)
	_, err = r.Listen(func(s string) {
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
	}, func(err error) { done <- err })
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("onDone(%v)", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("recognizer never finished")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestCaptureStop(t *testing.T) {
	requireSh(t)
	r, err := NewRecognizer(Command{"sh", "-c", "exec sleep 30"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	c, err := r.Listen(func(string) {}, func(err error) { done <- err })
	if err != nil {
		t.Fatal(err)
	}
	c.Stop()
	c.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stopped capture reported %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not end the process")
	}
}

func TestSpeakerCancel(t *testing.T) {
	requireSh(t)
	s, err := NewSpeaker(Command{"sh", "-c", "exec sleep 30", "speaker"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Speak("What is a goroutine?"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if !s.Speaking() {
		t.Fatal("not speaking after Speak")
	}
	s.Cancel()
	s.Cancel()
	if s.Speaking() {
		t.Fatal("still speaking after Cancel")
	}
}
