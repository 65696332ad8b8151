package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fakeyudi/intervbot/internal/question"
)

// StartInterviewRequest is the body of POST /api/start_interview.
type StartInterviewRequest struct {
	Role       string `json:"role" validate:"required"`
	Limit      int    `json:"limit" validate:"min=1,max=100"`
	Difficulty string `json:"difficulty" validate:"oneof=Easy Medium Hard"`
}

// StartInterviewResponse carries the server-issued session and its questions.
type StartInterviewResponse struct {
	SessionID string              `json:"session_id"`
	Questions []question.Question `json:"questions"`
}

// SubmitAnswerRequest is the body of POST /api/submit_answer.
type SubmitAnswerRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Answer    string `json:"answer"`
}

// SubmitAnswerResponse is the server's grading of one answer.
type SubmitAnswerResponse struct {
	Feedback       string             `json:"feedback"`
	Score          Score              `json:"score"`
	Tone           string             `json:"tone"`
	ExpectedAnswer string             `json:"expected_answer"`
	IsComplete     bool               `json:"is_complete"`
	NextQuestion   *question.Question `json:"next_question"`
}

// QuestionsQuery filters GET /api/questions. Zero values are omitted.
type QuestionsQuery struct {
	Role       string
	Difficulty string
	Limit      int
}

// QuestionsResponse is a quiz question set drawn by the server.
type QuestionsResponse struct {
	Questions []question.Question `json:"questions"`
	Available int                 `json:"available"`
}

// QuizQuestion is the per-question record persisted with a quiz result.
type QuizQuestion struct {
	Question      string   `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

// QuizResult is the body of POST /api/save_quiz_result. A nil selection
// marks a question left unanswered.
type QuizResult struct {
	Role            string         `json:"role" validate:"required"`
	Difficulty      string         `json:"difficulty"`
	Score           int            `json:"score" validate:"min=0"`
	Total           int            `json:"total" validate:"min=0,gtefield=Score"`
	Selections      []*string      `json:"selections"`
	Questions       []QuizQuestion `json:"questions"`
	DurationSeconds int            `json:"duration_seconds" validate:"min=0"`
}

// Score is a grading score that the service may send as a number, a numeric
// string (optionally with a trailing %), or null.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a valid score.
func NewScore(v float64) Score { return Score{Value: v, Valid: true} }

// ParseScore converts loosely formatted score text.
func ParseScore(s string) Score {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Score{}
	}
	return NewScore(v)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = NewScore(n)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = ParseScore(text)
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// String renders the score the way it is shown next to feedback.
func (s Score) String() string {
	if !s.Valid {
		return "-"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}
