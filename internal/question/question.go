// Package question defines the questions delivered during a session and the
// per-difficulty timing policy shared by interviews and quizzes.
package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the level chosen when a session starts. It fixes the
// per-question countdown duration for the whole session.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Difficulties lists the accepted levels in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ErrUnknownDifficulty is returned by ParseDifficulty for values outside
// Easy, Medium and Hard.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty accepts any casing and surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", fmt.Errorf("%w: %q (want Easy, Medium or Hard)", ErrUnknownDifficulty, s)
}

// TimerSeconds returns the countdown duration for one question.
// Unrecognised values get the Easy duration.
func (d Difficulty) TimerSeconds() int {
	switch strings.ToLower(string(d)) {
	case "medium":
		return 90
	case "hard":
		return 120
	}
	return 60
}

// FormatClock renders seconds as MM:SS. Negative input renders as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Question is either an open-form prompt graded by the remote service or a
// multiple-choice item graded locally against CorrectAnswer.
type Question struct {
	ID            string   `json:"id,omitempty" yaml:"id,omitempty"`
	Text          string   `json:"question" yaml:"question"`
	Options       []string `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	Role          string   `json:"role,omitempty" yaml:"role,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// UnmarshalJSON accepts either a bare prompt string, which is how the
// interview endpoint returns questions, or a full question object.
func (q *Question) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*q = Question{Text: text}
		return nil
	}
	type plain Question
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = Question(p)
	return nil
}

// IsMultipleChoice reports whether q carries options.
func (q Question) IsMultipleChoice() bool {
	return len(q.Options) > 0
}

// Validate checks the multiple-choice shape: a prompt, at least two options
// and exactly one option equal to CorrectAnswer.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q has %d options, need at least 2", q.Text, len(q.Options))
	}
	matches := 0
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("question %q: correct answer must match exactly one option (matched %d)", q.Text, matches)
	}
	return nil
}

// Roles are the interview tracks offered by the service.
var Roles = []string{
	"General Interview",
	"Behavioral Round",
	"HR Round",
	"Mobile App Dev",
	"Cloud Engineer",
	"ML Engineer",
	"AI Engineer",
	"Full Stack Dev",
	"Software Engineer",
	"Data Engineer",
	"Business Analyst",
	"Data Analyst",
	"UI/UX Designer",
	"Product Designer",
	"QA Engineer",
	"Network Engineer",
	"IoT Engineer",
	"Sales Engineer",
	"Game Developer",
	"Blockchain Developer",
}

// GeneralRole matches every role when filtering question sets.
const GeneralRole = "General Interview"
