package engine

import (
	"math"
	"time"

	"github.com/fakeyudi/intervbot/internal/question"
)

// TimeoutNote is shown when the last question's clock ran out.
const TimeoutNote = "Submitted automatically because time expired."

// Results summarises a finalized session.
type Results struct {
	ID         string              `json:"id"`
	Kind       Kind                `json:"kind"`
	SessionID  string              `json:"session_id,omitempty"`
	Role       string              `json:"role"`
	Difficulty question.Difficulty `json:"difficulty"`
	Requested  int                 `json:"requested,omitempty"`
	Available  int                 `json:"available,omitempty"`
	Questions  []question.Question `json:"questions"`
	Answers    []AnswerRecord      `json:"answers"`
	Total      int                 `json:"total"`
	Attempted  int                 `json:"attempted"`
	Correct    int                 `json:"correct"`
	// Percent is round(100 × correct / total) for quizzes and the rounded
	// mean score for interviews.
	Percent    int       `json:"percent"`
	Reason     Reason    `json:"reason"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Incorrect counts answered or skipped questions that were not right.
func (r Results) Incorrect() int { return r.Total - r.Correct }

// Duration is the wall time between the first question and finalization.
func (r Results) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Note returns TimeoutNote when the session ended on the clock.
func (r Results) Note() string {
	if r.Reason == Timeout {
		return TimeoutNote
	}
	return ""
}

// Title names the session the way the history list shows it.
func (r Results) Title() string {
	if r.Kind == Quiz {
		return r.Role + " Quiz (" + string(r.Difficulty) + ")"
	}
	return r.Role + " (" + string(r.Difficulty) + ")"
}

// AverageScore is the rounded mean of the answers' scores. Missing or
// non-numeric scores count as zero.
func AverageScore(answers []AnswerRecord) int {
	if len(answers) == 0 {
		return 0
	}
	var sum float64
	for _, a := range answers {
		if a.Score.Valid {
			sum += a.Score.Value
		}
	}
	return int(math.Round(sum / float64(len(answers))))
}

// QuizScore counts correct answers and the rounded percentage of total.
func QuizScore(answers []AnswerRecord, total int) (correct, percent int) {
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}
	if total <= 0 {
		return correct, 0
	}
	return correct, int(math.Round(100 * float64(correct) / float64(total)))
}

func buildResults(kind Kind, s *session, reason Reason, now time.Time) Results {
	res := Results{
		Kind:       kind,
		SessionID:  s.id,
		Role:       s.req.Role,
		Difficulty: s.req.Difficulty,
		Requested:  s.requested,
		Available:  s.available,
		Questions:  append([]question.Question(nil), s.questions...),
		Answers:    append([]AnswerRecord(nil), s.answers...),
		Total:      len(s.questions),
		Reason:     reason,
		StartedAt:  s.startedAt,
		FinishedAt: now,
	}
	for _, a := range s.answers {
		if !a.Unanswered {
			res.Attempted++
		}
	}
	if kind == Quiz {
		res.Correct, res.Percent = QuizScore(s.answers, res.Total)
	} else {
		res.Percent = AverageScore(s.answers)
	}
	return res
}
