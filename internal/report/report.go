// Package report renders finished sessions for export and reads exported
// files back.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/intervbot/internal/engine"
)

// Version is the current report format version.
const Version = 1

// Report is the complete, renderable representation of a finished session.
type Report struct {
	Version     int            `json:"version"`
	Participant string         `json:"participant,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Results     engine.Results `json:"results"`
}

// New wraps res for rendering.
func New(res engine.Results, participant string, now time.Time) *Report {
	return &Report{Version: Version, Participant: participant, GeneratedAt: now, Results: res}
}

// Summary holds the headline numbers shown at the top of a report.
type Summary struct {
	TotalQuestions int
	Attempted      int
	Right          int
	Incorrect      int
	Percent        int
	Role           string
	Difficulty     string
	Duration       time.Duration
}

// Summary computes the headline numbers.
func (r *Report) Summary() Summary {
	res := r.Results
	return Summary{
		TotalQuestions: res.Total,
		Attempted:      res.Attempted,
		Right:          res.Correct,
		Incorrect:      res.Incorrect(),
		Percent:        res.Percent,
		Role:           res.Role,
		Difficulty:     string(res.Difficulty),
		Duration:       res.Duration().Round(time.Second),
	}
}

// FileName returns intervbot-<kind>-<timestamp>.<ext>.
func FileName(kind engine.Kind, t time.Time, ext string) string {
	return fmt.Sprintf("intervbot-%s-%s.%s", kind, t.Format("20060102-150405"), ext)
}

// Export renders r into dir and returns the written path.
func Export(dir string, r *Report, renderer Renderer) (string, error) {
	data, err := renderer.Render(r)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r.Results.Kind, r.GeneratedAt, renderer.Ext()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
