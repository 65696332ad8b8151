// Package engine runs timed question sessions.
//
// A Controller owns one session at a time: the question list, the current
// index, the countdown and the single in-flight submission. What happens to
// an answer is delegated to a Grader, which is either the remote scoring
// service (interviews) or a local answer key (quizzes).
//
// Controller methods must be called on the goroutine that drains its Loop.
// Grader calls run on background goroutines and their completions are posted
// back to the Loop, so every state transition happens on that one goroutine.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/remote"
)

// TimedOutAnswer is recorded when the clock runs out on an empty answer.
const TimedOutAnswer = "(No answer - timed out)"

var (
	// ErrEmptyAnswer is returned by Submit when there is nothing to send.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrNoQuestions is returned by Submit when the session has no questions.
	ErrNoQuestions = errors.New("session has no questions")
	// ErrSessionActive is returned by Start while another session is live.
	ErrSessionActive = errors.New("a session is already active")
)

// Kind tells interviews and quizzes apart.
type Kind string

const (
	Interview Kind = "interview"
	Quiz      Kind = "quiz"
)

// Reason records what triggered a submission.
type Reason string

const (
	Manual  Reason = "manual"
	Timeout Reason = "timeout"
)

// State is the controller's position in the session lifecycle.
type State int

const (
	Idle State = iota
	Starting
	Answering
	Submitting
	Finalized
	Empty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Answering:
		return "answering"
	case Submitting:
		return "submitting"
	case Finalized:
		return "finalized"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// StartRequest selects what a new session asks.
type StartRequest struct {
	Role       string              `json:"role" validate:"required"`
	Difficulty question.Difficulty `json:"difficulty" validate:"oneof=Easy Medium Hard"`
	Limit      int                 `json:"limit" validate:"min=1,max=100"`
}

// Started is what a Grader hands back when a session opens.
type Started struct {
	SessionID string
	Questions []question.Question
	Requested int
	Available int
}

// Submission is one answer on its way to the Grader.
type Submission struct {
	SessionID string
	Index     int
	Question  question.Question
	// Answer is the trimmed text, the chosen option, or TimedOutAnswer.
	Answer     string
	Selected   int
	Unanswered bool
	Reason     Reason
}

// Grade is the Grader's verdict on one Submission.
type Grade struct {
	Feedback       string
	Score          remote.Score
	Tone           string
	ExpectedAnswer string
	Correct        bool
	// Complete is set when the grader considers the session done.
	Complete bool
}

// Grader is the capability set a session needs from whoever asks and scores
// the questions.
type Grader interface {
	Kind() Kind
	Begin(ctx context.Context, req StartRequest) (Started, error)
	Grade(ctx context.Context, sub Submission) (Grade, error)
	// Finalize persists finished results. It is best effort.
	Finalize(ctx context.Context, res Results) error
	// End notifies that an unfinished session was abandoned. It is best effort.
	End(ctx context.Context, sessionID string) error
}

// Journal records finished sessions locally.
type Journal interface {
	Record(ctx context.Context, res Results) error
}

// Speaker reads text aloud.
type Speaker interface {
	Speak(text string) error
	Cancel()
}

// Recognizer turns speech into text. onText receives each final transcript
// fragment and onDone runs once when capture ends; both may be called from
// any goroutine.
type Recognizer interface {
	Listen(onText func(string), onDone func(error)) (Capture, error)
}

// Capture is an open microphone.
type Capture interface {
	Stop()
}

// AnswerRecord is the outcome of one successful submission.
type AnswerRecord struct {
	Index          int               `json:"index"`
	Question       question.Question `json:"question"`
	Answer         string            `json:"answer"`
	Selected       int               `json:"selected"`
	Unanswered     bool              `json:"unanswered,omitempty"`
	Reason         Reason            `json:"reason"`
	Feedback       string            `json:"feedback,omitempty"`
	Score          remote.Score      `json:"score"`
	Tone           string            `json:"tone,omitempty"`
	ExpectedAnswer string            `json:"expected_answer,omitempty"`
	Correct        bool              `json:"correct"`
}

// SubmitOptions controls a single Submit call.
type SubmitOptions struct {
	AllowEmpty bool
	Reason     Reason
}

// Hooks are called on the loop goroutine whenever the display should change.
// Any of them may be nil.
type Hooks struct {
	Question   func(Snapshot)
	Tick       func(remaining int)
	Submitting func(bool)
	Warning    func(msg string)
	Alert      func(err error)
	Input      func(text string)
	Finalized  func(Results)
	Empty      func()
}

// Snapshot is a read-only view of the controller for renderers.
type Snapshot struct {
	State      State
	Kind       Kind
	Role       string
	Difficulty question.Difficulty
	SessionID  string
	Index      int
	Total      int
	Requested  int
	Available  int
	Question   *question.Question
	Input      string
	Selected   int
	Warning    string
	Remaining  int
	Listening  bool
	Answers    []AnswerRecord
	Results    *Results
}

// Clock formats the remaining time.
func (s Snapshot) Clock() string { return question.FormatClock(s.Remaining) }

const (
	emptyAnswerWarning = "⚠️ Please Answer the Question"
	noSelectionWarning = "⚠️ Please select an option"
	bestEffortTimeout  = 10 * time.Second
)
