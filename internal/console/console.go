// Package console runs a session on a plain line-oriented terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/eventloop"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/report"
)

// ErrAbandoned is returned when the user leaves before the session finishes.
var ErrAbandoned = errors.New("session abandoned")

// Commands recognised on their own line.
const (
	cmdBack   = ":back"
	cmdListen = ":listen"
	cmdStop   = ":stop"
	cmdSpeak  = ":speak"
)

// Options configures Run.
type Options struct {
	Grader      engine.Grader
	Request     engine.StartRequest
	Journal     engine.Journal
	Speaker     engine.Speaker
	Recognizer  engine.Recognizer
	AutoSpeak   bool
	Participant string
	In          io.Reader
	Out         io.Writer
	Log         zerolog.Logger
}

type runner struct {
	opts  Options
	out   io.Writer
	loop  *eventloop.Queue
	ctrl  *engine.Controller
	queue []line

	results *engine.Results
	err     error
}

type line struct {
	text string
	eof  bool
}

// Run starts a session and blocks until it is finalized, abandoned or ctx
// is done. Input lines are answers; quiz answers are option numbers.
func Run(ctx context.Context, opts Options) (*engine.Results, error) {
	r := &runner{opts: opts, out: opts.Out, loop: eventloop.New()}
	r.ctrl = engine.New(engine.Config{
		Grader:     opts.Grader,
		Loop:       r.loop,
		Journal:    opts.Journal,
		Speaker:    opts.Speaker,
		Recognizer: opts.Recognizer,
		Log:        opts.Log,
		Hooks: engine.Hooks{
			Question:   r.onQuestion,
			Tick:       r.onTick,
			Submitting: r.onSubmitting,
			Warning:    func(msg string) { fmt.Fprintln(r.out, msg) },
			Alert:      r.onAlert,
			Finalized:  r.onFinalized,
			Empty:      r.onEmpty,
		},
	})

	if err := r.ctrl.Start(opts.Request); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "Starting %s (%s)…\n", opts.Request.Role, opts.Request.Difficulty)

	go r.read(opts.In)
	err := r.loop.Run(ctx)
	if err != nil {
		r.ctrl.Dispose()
	}
	r.ctrl.Wait()
	if err != nil {
		return nil, err
	}
	return r.results, r.err
}

func (r *runner) read(in io.Reader) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		text := sc.Text()
		r.loop.Post(func() { r.enqueue(line{text: text}) })
	}
	r.loop.Post(func() { r.enqueue(line{eof: true}) })
}

func (r *runner) enqueue(l line) {
	r.queue = append(r.queue, l)
	r.drain()
}

// drain handles queued lines while the controller accepts answers. Lines
// typed during a submission wait for the next question.
func (r *runner) drain() {
	for len(r.queue) > 0 && r.ctrl.State() == engine.Answering {
		l := r.queue[0]
		r.queue = r.queue[1:]
		if l.eof {
			r.leave()
			return
		}
		r.handle(strings.TrimSpace(l.text))
	}
	if len(r.queue) > 0 && r.queue[0].eof && r.ctrl.State() != engine.Submitting && r.ctrl.State() != engine.Starting {
		r.leave()
	}
}

func (r *runner) handle(text string) {
	switch text {
	case cmdBack:
		r.leave()
		return
	case cmdListen:
		r.ctrl.StartListening()
		return
	case cmdStop:
		r.ctrl.StopListening()
		return
	case cmdSpeak:
		r.ctrl.Speak()
		return
	}

	snap := r.ctrl.Snapshot()
	if q := snap.Question; q != nil && q.IsMultipleChoice() && text != "" {
		if err := r.ctrl.Select(optionIndex(*q, text)); err != nil {
			fmt.Fprintf(r.out, "! %v\n", err)
			return
		}
	} else if text != "" {
		r.ctrl.SetInput(text)
	}
	if err := r.ctrl.Submit(engine.SubmitOptions{}); err != nil && !errors.Is(err, engine.ErrEmptyAnswer) {
		fmt.Fprintf(r.out, "! %v\n", err)
	}
}

// optionIndex maps "2" or an option's exact text to a zero-based index.
// Unknown input maps to -1.
func optionIndex(q question.Question, text string) int {
	if n, err := strconv.Atoi(text); err == nil {
		return n - 1
	}
	for i, opt := range q.Options {
		if strings.EqualFold(opt, text) {
			return i
		}
	}
	return -1
}

func (r *runner) leave() {
	if r.results == nil && r.err == nil {
		r.err = ErrAbandoned
	}
	r.ctrl.Back()
	r.loop.Stop()
}

func (r *runner) onQuestion(snap engine.Snapshot) {
	q := snap.Question
	fmt.Fprintf(r.out, "\nQuestion %d/%d  [%s]\n", snap.Index+1, snap.Total, snap.Clock())
	if snap.Index == 0 && snap.Available > 0 && snap.Available < snap.Requested {
		fmt.Fprintf(r.out, "Showing %d of %d requested\n", snap.Available, snap.Requested)
	}
	for _, seg := range question.SplitCode(q.Text) {
		if seg.Code {
			fmt.Fprintf(r.out, "```%s\n%s\n```\n", seg.Language, seg.Text)
		} else {
			fmt.Fprintln(r.out, seg.Text)
		}
	}
	for i, opt := range q.Options {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprint(r.out, "> ")
	if r.opts.AutoSpeak {
		r.ctrl.Speak()
	}
	r.loop.Post(r.drain)
}

func (r *runner) onTick(remaining int) {
	if remaining == 30 || remaining == 10 {
		fmt.Fprintf(r.out, "\n⏱ %s left\n> ", question.FormatClock(remaining))
	}
}

func (r *runner) onSubmitting(on bool) {
	if on {
		fmt.Fprintln(r.out, "Submitting…")
		return
	}
	// A failed submission returns to Answering without a new question.
	r.loop.Post(r.drain)
}

func (r *runner) onAlert(err error) {
	fmt.Fprintf(r.out, "! %v\n", err)
	if r.ctrl.State() == engine.Idle {
		r.err = err
		r.loop.Stop()
	}
}

func (r *runner) onEmpty() {
	fmt.Fprintln(r.out, "No questions found for the selected role and difficulty.")
	r.err = engine.ErrNoQuestions
	r.loop.Stop()
}

func (r *runner) onFinalized(res engine.Results) {
	r.results = &res
	for _, a := range res.Answers {
		if res.Kind == engine.Quiz {
			continue
		}
		fmt.Fprintf(r.out, "\nQ%d score: %s", a.Index+1, a.Score)
		if a.Feedback != "" {
			fmt.Fprintf(r.out, "  %s", a.Feedback)
		}
	}
	var sb strings.Builder
	report.WriteSummary(&sb, report.New(res, r.opts.Participant, time.Now()))
	fmt.Fprintf(r.out, "\n\n%s", sb.String())
	if note := res.Note(); note != "" {
		fmt.Fprintln(r.out, note)
	}
	r.loop.Stop()
}
