// Package voice reads questions aloud and captures spoken answers through
// external programs such as espeak, say, or a speech-to-text command that
// prints one transcript line at a time.
package voice

import (
	"bufio"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/engine"
)

// ErrUnsupported is returned when no usable speech program is configured.
var ErrUnsupported = errors.New("speech not supported")

// Command is a program and its leading arguments.
type Command []string

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(s string) Command {
	return Command(strings.Fields(s))
}

func (c Command) check() error {
	if len(c) == 0 {
		return ErrUnsupported
	}
	if _, err := exec.LookPath(c[0]); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnsupported, c[0])
	}
	return nil
}

// speakCandidates are tried in order when no speak command is configured.
var speakCandidates = []Command{{"espeak"}, {"spd-say", "--wait"}, {"say"}}

// DefaultSpeakCommand returns the first installed speech synthesizer.
func DefaultSpeakCommand() Command {
	for _, c := range speakCandidates {
		if c.check() == nil {
			return c
		}
	}
	return nil
}

// Speaker runs a synthesizer with the text as its last argument. At most one
// utterance plays at a time.
type Speaker struct {
	cmd Command
	log zerolog.Logger

	mu   sync.Mutex
	proc *exec.Cmd
}

// NewSpeaker validates cmd and returns a Speaker for it.
func NewSpeaker(cmd Command, log zerolog.Logger) (*Speaker, error) {
	if err := cmd.check(); err != nil {
		return nil, err
	}
	return &Speaker{cmd: cmd, log: log.With().Str("component", "speaker").Logger()}, nil
}

// Speak starts reading text and returns without waiting for it to finish.
// Any utterance still playing is cut off first.
func (s *Speaker) Speak(text string) error {
	s.Cancel()

	args := append(append([]string(nil), s.cmd[1:]...), text)
	proc := exec.Command(s.cmd[0], args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.cmd[0], err)
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	go func() {
		err := proc.Wait()
		s.mu.Lock()
		if s.proc == proc {
			s.proc = nil
		}
		s.mu.Unlock()
		if err != nil {
			s.log.Debug().Err(err).Msg("speech ended")
		}
	}()
	return nil
}

// Cancel stops the current utterance. It is safe to call at any time.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()
	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
	}
}

// Speaking reports whether an utterance is playing.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Recognizer runs a speech-to-text program and treats every non-empty line
// on its stdout as a final transcript fragment.
type Recognizer struct {
	cmd Command
	log zerolog.Logger
}

// NewRecognizer validates cmd and returns a Recognizer for it.
func NewRecognizer(cmd Command, log zerolog.Logger) (*Recognizer, error) {
	if err := cmd.check(); err != nil {
		return nil, err
	}
	return &Recognizer{cmd: cmd, log: log.With().Str("component", "recognizer").Logger()}, nil
}

// Listen starts the program. onText gets each line; onDone runs once when
// the program exits, with nil if it exited cleanly or was stopped.
func (r *Recognizer) Listen(onText func(string), onDone func(error)) (engine.Capture, error) {
	proc := exec.Command(r.cmd[0], r.cmd[1:]...)
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", r.cmd[0], err)
	}

	c := &Capture{proc: proc}
	go func() {
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !c.stopped.Load() {
				onText(line)
			}
		}
		err := proc.Wait()
		if c.stopped.Load() {
			err = nil
		}
		if err != nil {
			r.log.Debug().Err(err).Msg("recognizer exited")
			err = fmt.Errorf("%s: %w", r.cmd[0], err)
		}
		onDone(err)
	}()
	return c, nil
}

// Capture is a running recognizer process.
type Capture struct {
	proc    *exec.Cmd
	once    sync.Once
	stopped atomic.Bool
}

// Stop kills the recognizer. Further calls do nothing.
func (c *Capture) Stop() {
	c.once.Do(func() {
		c.stopped.Store(true)
		_ = c.proc.Process.Kill()
	})
}

// Unavailable stands in for a missing recognizer so the controller can
// report why listening is disabled.
type Unavailable struct {
	Err error
}

func (u Unavailable) Listen(func(string), func(error)) (engine.Capture, error) {
	if u.Err == nil {
		return nil, ErrUnsupported
	}
	return nil, u.Err
}
