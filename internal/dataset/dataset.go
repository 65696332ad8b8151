// Package dataset handles the static question set the quiz falls back to
// when the question API is unavailable.
package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/intervbot/internal/question"
)

// Format selects the encoding of a question set.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the format from a file name. Anything that is not .yaml
// or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Decode parses a question set: a top-level list of question objects.
// Entries that are not objects are skipped, and fields of the wrong type are
// treated as absent.
func Decode(data []byte, format Format) ([]question.Question, error) {
	var raw []any
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding yaml question set: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding json question set: %w", err)
		}
	}

	out := make([]question.Question, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := question.Question{
			ID:            idString(m["id"]),
			Text:          str(m["question"]),
			CorrectAnswer: str(m["correct_answer"]),
			Role:          str(m["role"]),
			Difficulty:    str(m["difficulty"]),
		}
		if opts, ok := m["options"].([]any); ok {
			for _, o := range opts {
				if s, ok := o.(string); ok {
					q.Options = append(q.Options, s)
				}
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

var spaces = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Key is the identity used to drop duplicate questions: the normalized text,
// the sorted normalized options, the role and the difficulty. A question
// with none of those is keyed by its id. An empty key means the question
// cannot be identified and should be dropped.
func Key(q question.Question) string {
	var parts []string
	if text := normalize(q.Text); text != "" {
		parts = append(parts, text)
	}

	var opts []string
	for _, o := range q.Options {
		if n := normalize(o); n != "" {
			opts = append(opts, n)
		}
	}
	if len(opts) > 0 {
		sort.Strings(opts)
		parts = append(parts, "opts:"+strings.Join(opts, "|"))
	}
	if role := strings.ToLower(strings.TrimSpace(q.Role)); role != "" {
		parts = append(parts, "role:"+role)
	}
	if diff := strings.ToLower(strings.TrimSpace(q.Difficulty)); diff != "" {
		parts = append(parts, "diff:"+diff)
	}

	if len(parts) == 0 && q.ID != "" {
		parts = append(parts, "id:"+q.ID)
	}
	return strings.Join(parts, "||")
}

// Dedupe keeps the first question for every Key and drops unkeyed ones.
func Dedupe(qs []question.Question) []question.Question {
	seen := make(map[string]struct{}, len(qs))
	out := make([]question.Question, 0, len(qs))
	for _, q := range qs {
		k := Key(q)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	return out
}

// Filter keeps questions for role and difficulty. An empty role or the
// general role matches every question; an empty difficulty matches every
// difficulty.
func Filter(qs []question.Question, role, difficulty string) []question.Question {
	role = strings.TrimSpace(role)
	difficulty = strings.TrimSpace(difficulty)
	out := make([]question.Question, 0, len(qs))
	for _, q := range qs {
		if role != "" && role != question.GeneralRole && strings.TrimSpace(q.Role) != role {
			continue
		}
		if difficulty != "" && strings.TrimSpace(q.Difficulty) != difficulty {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Query describes the quiz to draw.
type Query struct {
	Role       string
	Difficulty string
	// Limit caps the result; zero or negative means no cap.
	Limit int
}

// Select draws a quiz from a raw question set: dedupe, drop questions that
// cannot be graded, filter, shuffle, then cap at the limit. available is the
// size of the pool before the cap.
func Select(all []question.Question, q Query, r *rand.Rand) (selected []question.Question, available int) {
	deduped := gradable(Dedupe(all))
	pool := Filter(deduped, q.Role, q.Difficulty)
	if len(pool) == 0 && strings.TrimSpace(q.Role) == question.GeneralRole {
		pool = deduped
	}
	if len(pool) == 0 {
		return nil, 0
	}

	pool = append([]question.Question(nil), pool...)
	Shuffle(r, pool)
	available = len(pool)
	if q.Limit > 0 && q.Limit < len(pool) {
		pool = pool[:q.Limit]
	}
	return pool, available
}

// Shuffle permutes qs in place. A nil r uses the global source.
func Shuffle(r *rand.Rand, qs []question.Question) {
	swap := func(i, j int) { qs[i], qs[j] = qs[j], qs[i] }
	if r == nil {
		rand.Shuffle(len(qs), swap)
		return
	}
	r.Shuffle(len(qs), swap)
}

func gradable(qs []question.Question) []question.Question {
	out := qs[:0:0]
	for _, q := range qs {
		if q.Validate() == nil {
			out = append(out, q)
		}
	}
	return out
}
