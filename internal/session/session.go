// Package session persists the prepared quiz between "quiz prepare" and the
// run that consumes it.
package session

import (
	"time"

	"github.com/fakeyudi/intervbot/internal/question"
)

// Payload is a prepared quiz waiting to be taken.
type Payload struct {
	ID         string              `json:"id"`
	Role       string              `json:"role"`
	Difficulty question.Difficulty `json:"difficulty"`
	Requested  int                 `json:"requested"`
	Available  int                 `json:"available"`
	Questions  []question.Question `json:"questions"`
	// Source names where the questions came from: "api" or "dataset".
	Source     string    `json:"source,omitempty"`
	PreparedAt time.Time `json:"prepared_at"`
}

// Short reports when fewer questions were found than requested.
func (p *Payload) Short() bool {
	return p.Available < p.Requested
}
