package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/countdown"
	"github.com/fakeyudi/intervbot/internal/eventloop"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/validator"
)

// Config wires a Controller. Grader and Loop are required.
type Config struct {
	Grader     Grader
	Loop       eventloop.Loop
	Hooks      Hooks
	Journal    Journal
	Speaker    Speaker
	Recognizer Recognizer
	Log        zerolog.Logger
	Now        func() time.Time
}

// session is the state of one run. It is replaced wholesale on reset.
type session struct {
	req       StartRequest
	id        string
	questions []question.Question
	requested int
	available int
	index     int
	answers   []AnswerRecord
	input     string
	selected  int
	warning   string
	startedAt time.Time
	results   *Results
}

// Controller drives one session at a time.
type Controller struct {
	grader     Grader
	loop       eventloop.Loop
	hooks      Hooks
	journal    Journal
	speaker    Speaker
	recognizer Recognizer
	log        zerolog.Logger
	now        func() time.Time

	timer *countdown.Timer
	state State
	s     *session

	// epoch increments on every reset; completions carrying an older epoch
	// belong to an abandoned session and are dropped.
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc

	capture     Capture
	captureGen  uint64
	micDisabled bool
	disposed    bool

	background sync.WaitGroup
}

// New returns an idle Controller.
func New(cfg Config) *Controller {
	c := &Controller{
		grader:     cfg.Grader,
		loop:       cfg.Loop,
		hooks:      cfg.Hooks,
		journal:    cfg.Journal,
		speaker:    cfg.Speaker,
		recognizer: cfg.Recognizer,
		log:        cfg.Log.With().Str("component", "engine").Str("kind", string(cfg.Grader.Kind())).Logger(),
		now:        cfg.Now,
		state:      Idle,
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.timer = countdown.New(cfg.Loop, func(remaining int) {
		if c.hooks.Tick != nil {
			c.hooks.Tick(remaining)
		}
	})
	return c
}

// State returns the lifecycle position.
func (c *Controller) State() State { return c.state }

// Kind returns the grader's session kind.
func (c *Controller) Kind() Kind { return c.grader.Kind() }

// Start validates req and asks the Grader to open a session. Questions are
// shown once the Grader answers; failures are reported through Hooks.Alert.
func (c *Controller) Start(req StartRequest) error {
	if c.disposed {
		return errors.New("controller disposed")
	}
	if c.state != Idle {
		return ErrSessionActive
	}
	if err := validator.Struct(req); err != nil {
		return err
	}

	c.s = &session{req: req, selected: -1}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state = Starting
	epoch, ctx := c.epoch, c.ctx

	c.log.Info().Str("role", req.Role).Str("difficulty", string(req.Difficulty)).Int("limit", req.Limit).Msg("starting session")
	go func() {
		started, err := c.grader.Begin(ctx, req)
		c.loop.Post(func() { c.begun(epoch, started, err) })
	}()
	return nil
}

func (c *Controller) begun(epoch uint64, started Started, err error) {
	if epoch != c.epoch {
		if err == nil && started.SessionID != "" {
			c.log.Debug().Str("session_id", started.SessionID).Msg("session opened after abandon, ending it")
			c.endInBackground(started.SessionID)
		}
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("session start failed")
		c.state = Idle
		c.s = nil
		c.cancel()
		c.alert(fmt.Errorf("failed to start session: %w", err))
		return
	}

	c.s.id = started.SessionID
	c.s.questions = started.Questions
	c.s.requested = started.Requested
	c.s.available = started.Available
	if len(c.s.questions) == 0 {
		c.state = Empty
		c.timer.Reset()
		c.log.Info().Msg("session has no questions")
		if c.hooks.Empty != nil {
			c.hooks.Empty()
		}
		return
	}

	c.s.startedAt = c.now()
	c.log.Info().Str("session_id", c.s.id).Int("questions", len(c.s.questions)).Msg("session started")
	c.showQuestion()
}

// showQuestion displays the current question and starts its clock.
func (c *Controller) showQuestion() {
	c.state = Answering
	c.startTimer()
	if c.hooks.Question != nil {
		c.hooks.Question(c.Snapshot())
	}
}

func (c *Controller) startTimer() {
	c.timer.Start(c.s.req.Difficulty.TimerSeconds(), c.expired)
}

func (c *Controller) expired() {
	if c.state != Answering {
		return
	}
	c.log.Debug().Int("index", c.s.index).Msg("question timed out")
	_ = c.Submit(SubmitOptions{AllowEmpty: true, Reason: Timeout})
}

// SetInput replaces the typed answer. It is ignored outside Answering.
func (c *Controller) SetInput(text string) {
	if c.state != Answering {
		return
	}
	c.s.input = text
	if strings.TrimSpace(text) != "" {
		c.s.warning = ""
	}
}

// Select chooses a multiple-choice option for the current question.
func (c *Controller) Select(option int) error {
	if c.state != Answering {
		return nil
	}
	q := c.s.questions[c.s.index]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d out of range (question has %d)", option+1, len(q.Options))
	}
	c.s.selected = option
	c.s.input = q.Options[option]
	c.s.warning = ""
	c.emitInput()
	return nil
}

// Submit sends the current answer. It does nothing while another submission
// is in flight or once the session is finalized.
func (c *Controller) Submit(opts SubmitOptions) error {
	switch c.state {
	case Empty:
		return ErrNoQuestions
	case Answering:
	default:
		return nil
	}
	if opts.Reason == "" {
		opts.Reason = Manual
	}

	c.StopListening()
	c.cancelSpeech()

	q := c.s.questions[c.s.index]
	answer := strings.TrimSpace(c.s.input)
	if q.IsMultipleChoice() {
		answer = ""
		if c.s.selected >= 0 {
			answer = q.Options[c.s.selected]
		}
	}
	if answer == "" && !opts.AllowEmpty {
		msg := emptyAnswerWarning
		if q.IsMultipleChoice() {
			msg = noSelectionWarning
		}
		c.s.warning = msg
		if c.hooks.Warning != nil {
			c.hooks.Warning(msg)
		}
		return ErrEmptyAnswer
	}

	c.timer.Cancel()
	c.state = Submitting
	c.s.warning = ""
	if c.hooks.Submitting != nil {
		c.hooks.Submitting(true)
	}

	sub := Submission{
		SessionID: c.s.id,
		Index:     c.s.index,
		Question:  q,
		Answer:    answer,
		Selected:  c.s.selected,
		Reason:    opts.Reason,
	}
	if answer == "" {
		sub.Answer = TimedOutAnswer
		sub.Unanswered = true
		sub.Selected = -1
	}

	epoch, ctx := c.epoch, c.ctx
	c.log.Debug().Int("index", sub.Index).Str("reason", string(sub.Reason)).Msg("submitting answer")
	go func() {
		grade, err := c.grader.Grade(ctx, sub)
		c.loop.Post(func() { c.graded(epoch, sub, grade, err) })
	}()
	return nil
}

func (c *Controller) graded(epoch uint64, sub Submission, grade Grade, err error) {
	if epoch != c.epoch {
		c.log.Debug().Err(err).Int("index", sub.Index).Msg("dropping response for abandoned session")
		return
	}
	c.state = Answering
	if c.hooks.Submitting != nil {
		c.hooks.Submitting(false)
	}

	if err != nil {
		c.log.Warn().Err(err).Int("index", sub.Index).Msg("submission failed")
		c.alert(fmt.Errorf("failed to submit answer: %w", err))
		c.startTimer()
		return
	}

	c.s.answers = append(c.s.answers, AnswerRecord{
		Index:          sub.Index,
		Question:       sub.Question,
		Answer:         sub.Answer,
		Selected:       sub.Selected,
		Unanswered:     sub.Unanswered,
		Reason:         sub.Reason,
		Feedback:       grade.Feedback,
		Score:          grade.Score,
		Tone:           grade.Tone,
		ExpectedAnswer: grade.ExpectedAnswer,
		Correct:        grade.Correct,
	})
	c.s.input = ""
	c.s.selected = -1
	c.emitInput()

	if grade.Complete || c.s.index >= len(c.s.questions)-1 {
		c.finalize(sub.Reason)
		return
	}
	c.s.index++
	c.showQuestion()
}

func (c *Controller) finalize(reason Reason) {
	c.timer.Reset()
	c.state = Finalized
	res := buildResults(c.grader.Kind(), c.s, reason, c.now())
	res.ID = uuid.NewString()
	c.s.results = &res
	c.log.Info().
		Str("session_id", res.SessionID).
		Int("answers", len(res.Answers)).
		Int("percent", res.Percent).
		Str("reason", string(reason)).
		Msg("session finalized")

	if c.hooks.Finalized != nil {
		c.hooks.Finalized(res)
	}

	grader, journal, log := c.grader, c.journal, c.log
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), bestEffortTimeout)
		defer cancel()
		if err := grader.Finalize(ctx, res); err != nil {
			log.Warn().Err(err).Msg("saving result failed")
		}
		if journal != nil {
			if err := journal.Record(ctx, res); err != nil {
				log.Warn().Err(err).Msg("journal write failed")
			}
		}
	}()
}

// Back abandons the session: it notifies the grader without waiting and
// returns the controller to Idle.
func (c *Controller) Back() {
	if c.s != nil && c.s.id != "" && c.state != Finalized {
		c.endInBackground(c.s.id)
	}
	c.reset()
}

// Wait blocks until best-effort work started by finalize or Back has
// finished. Each piece is bounded by its own timeout.
func (c *Controller) Wait() {
	c.background.Wait()
}

// Restart clears a finished session so a new one can Start.
func (c *Controller) Restart() {
	c.reset()
}

// Dispose releases everything. The controller cannot be used afterwards.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.Back()
	c.disposed = true
}

// reset releases the timer, microphone and speech before clearing state.
func (c *Controller) reset() {
	c.StopListening()
	c.cancelSpeech()
	c.timer.Reset()
	c.epoch++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.ctx = nil
	c.s = nil
	c.state = Idle
}

func (c *Controller) endInBackground(sessionID string) {
	grader, log := c.grader, c.log
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), bestEffortTimeout)
		defer cancel()
		if err := grader.End(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("end session failed")
		}
	}()
}

// StartListening opens the microphone and appends recognised speech to the
// answer. A missing recognizer is reported once and then ignored.
func (c *Controller) StartListening() {
	if c.state != Answering || c.micDisabled {
		return
	}
	c.StopListening()
	if c.recognizer == nil {
		c.disableMic(errors.New("speech recognition is not available"))
		return
	}

	c.captureGen++
	gen, epoch := c.captureGen, c.epoch
	transcript := ""
	capture, err := c.recognizer.Listen(
		func(text string) {
			c.loop.Post(func() {
				if gen != c.captureGen || epoch != c.epoch || c.state != Answering {
					return
				}
				transcript += strings.TrimSpace(text) + " "
				c.s.input = transcript
				c.s.warning = ""
				c.emitInput()
			})
		},
		func(err error) {
			c.loop.Post(func() {
				if gen != c.captureGen {
					return
				}
				c.capture = nil
				if err != nil && epoch == c.epoch {
					c.log.Warn().Err(err).Msg("speech capture ended with error")
					c.alert(fmt.Errorf("mic error: %w", err))
				}
			})
		},
	)
	if err != nil {
		c.disableMic(err)
		return
	}
	c.capture = capture
}

// StopListening closes the microphone if it is open.
func (c *Controller) StopListening() {
	if c.capture == nil {
		return
	}
	c.captureGen++
	c.capture.Stop()
	c.capture = nil
}

// Speak reads the current question aloud.
func (c *Controller) Speak() {
	if c.speaker == nil || c.s == nil || (c.state != Answering && c.state != Submitting) {
		return
	}
	if err := c.speaker.Speak(c.s.questions[c.s.index].Text); err != nil {
		c.log.Warn().Err(err).Msg("speech synthesis failed")
		c.alert(fmt.Errorf("speech synthesis failed: %w", err))
		c.speaker = nil
	}
}

func (c *Controller) cancelSpeech() {
	if c.speaker != nil {
		c.speaker.Cancel()
	}
}

func (c *Controller) disableMic(err error) {
	c.micDisabled = true
	c.log.Info().Err(err).Msg("speech recognition disabled")
	c.alert(err)
}

func (c *Controller) alert(err error) {
	if c.hooks.Alert != nil {
		c.hooks.Alert(err)
	}
}

func (c *Controller) emitInput() {
	if c.hooks.Input != nil {
		c.hooks.Input(c.s.input)
	}
}

// Snapshot copies the state renderers need.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		State:     c.state,
		Kind:      c.grader.Kind(),
		Remaining: c.timer.Remaining(),
		Listening: c.capture != nil,
		Selected:  -1,
	}
	s := c.s
	if s == nil {
		return snap
	}
	snap.Role = s.req.Role
	snap.Difficulty = s.req.Difficulty
	snap.SessionID = s.id
	snap.Index = s.index
	snap.Total = len(s.questions)
	snap.Requested = s.requested
	snap.Available = s.available
	snap.Input = s.input
	snap.Selected = s.selected
	snap.Warning = s.warning
	snap.Answers = append([]AnswerRecord(nil), s.answers...)
	if s.index < len(s.questions) {
		q := s.questions[s.index]
		snap.Question = &q
	}
	snap.Results = s.results
	return snap
}
