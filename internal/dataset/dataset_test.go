package dataset

import (
	"math/rand/v2"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/intervbot/internal/question"
)

const sampleJSON = `[
  {"id": 1, "question": "What does  HTTP stand for?", "options": ["HyperText Transfer Protocol", "High Transfer"], "correct_answer": "HyperText Transfer Protocol", "role": "Software Engineer", "difficulty": "Easy"},
  {"id": 2, "question": "what does http stand for?", "options": ["high transfer", " hypertext transfer protocol"], "correct_answer": "High Transfer", "role": "Software Engineer", "difficulty": "Easy"},
  {"id": 3, "question": "Which SQL clause filters groups?", "options": ["WHERE", "HAVING"], "correct_answer": "HAVING", "role": "Data Analyst", "difficulty": "Medium"},
  "not an object",
  {"id": 4},
  {"question": 42, "options": "nope"}
]`

const sampleYAML = `
- id: a1
  question: Which layer does TCP live on?
  options: [Transport, Network]
  correct_answer: Transport
  role: Network Engineer
  difficulty: Hard
- 7
`

func TestDecodeJSON(t *testing.T) {
	qs, err := Decode([]byte(sampleJSON), JSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("got %d questions, want 5 (non-objects skipped)", len(qs))
	}
	if qs[0].ID != "1" || qs[0].Role != "Software Engineer" || len(qs[0].Options) != 2 {
		t.Errorf("first = %+v", qs[0])
	}
	if qs[4].Text != "" || qs[4].Options != nil {
		t.Errorf("wrongly typed fields kept: %+v", qs[4])
	}
}

func TestDecodeYAML(t *testing.T) {
	qs, err := Decode([]byte(sampleYAML), FormatFor("set.YML"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "a1" || qs[0].CorrectAnswer != "Transport" {
		t.Fatalf("got %+v", qs)
	}
}

func TestDecodeRejectsNonList(t *testing.T) {
	if _, err := Decode([]byte(`{"questions": []}`), JSON); err == nil {
		t.Fatal("object accepted as question set")
	}
}

func TestKey(t *testing.T) {
	q := question.Question{
		Text:       "  What  is\tGo? ",
		Options:    []string{"B lang", " a  Lang", ""},
		Role:       " Software Engineer ",
		Difficulty: "Easy",
	}
	want := "what is go?||opts:a lang|b lang||role:software engineer||diff:easy"
	if got := Key(q); got != want {
		t.Fatalf("Key = %q\nwant  %q", got, want)
	}
	if got := Key(question.Question{ID: "9"}); got != "id:9" {
		t.Fatalf("id fallback = %q", got)
	}
	if got := Key(question.Question{}); got != "" {
		t.Fatalf("empty question keyed as %q", got)
	}
}

func TestDedupeKeepsFirst(t *testing.T) {
	qs, _ := Decode([]byte(sampleJSON), JSON)
	out := Dedupe(qs)
	// 1 and 2 collide; 4 keys by id; 5 has no key.
	if len(out) != 3 {
		t.Fatalf("Dedupe kept %d, want 3: %+v", len(out), out)
	}
	if out[0].ID != "1" || out[1].ID != "3" || out[2].ID != "4" {
		t.Fatalf("order = %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestFilter(t *testing.T) {
	qs, _ := Decode([]byte(sampleJSON), JSON)
	if got := Filter(qs, "Data Analyst", ""); len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("role filter = %+v", got)
	}
	if got := Filter(qs, question.GeneralRole, "Easy"); len(got) != 2 {
		t.Fatalf("general role + Easy = %d", len(got))
	}
	if got := Filter(qs, "", ""); len(got) != len(qs) {
		t.Fatalf("empty filter dropped questions")
	}
}

func TestSelectGeneralFallsBackToWholeSet(t *testing.T) {
	qs, _ := Decode([]byte(sampleJSON), JSON)
	got, available := Select(qs, Query{Role: question.GeneralRole, Difficulty: "Hard"}, rand.New(rand.NewPCG(1, 2)))
	// Only 1 and 3 are gradable after dedupe.
	if available != 2 || len(got) != 2 {
		t.Fatalf("available=%d got=%d", available, len(got))
	}
}

func TestSelectNoMatch(t *testing.T) {
	qs, _ := Decode([]byte(sampleJSON), JSON)
	got, available := Select(qs, Query{Role: "Game Developer"}, nil)
	if got != nil || available != 0 {
		t.Fatalf("got %v available %d", got, available)
	}
}

func genQuestion(t *rapid.T) question.Question {
	words := rapid.SampledFrom([]string{"go", "Go", " go ", "rust", "GO  lang", "go lang"})
	return question.Question{
		ID:            rapid.StringMatching(`[0-9]{0,2}`).Draw(t, "id"),
		Text:          words.Draw(t, "text"),
		Options:       []string{"yes", "no"},
		CorrectAnswer: rapid.SampledFrom([]string{"yes", "no", "maybe"}).Draw(t, "correct"),
		Role:          rapid.SampledFrom([]string{"", "QA Engineer", "qa engineer", "HR Round"}).Draw(t, "role"),
		Difficulty:    rapid.SampledFrom([]string{"", "Easy", "Hard"}).Draw(t, "difficulty"),
	}
}

// Feature: intervbot, Property 8: Deduplication leaves unique non-empty keys
func TestDedupeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qs := rapid.SliceOf(rapid.Custom(genQuestion)).Draw(t, "questions")
		out := Dedupe(qs)
		seen := map[string]bool{}
		for _, q := range out {
			k := Key(q)
			if k == "" || seen[k] {
				t.Fatalf("duplicate or empty key %q", k)
			}
			seen[k] = true
		}
		if again := Dedupe(out); len(again) != len(out) {
			t.Fatalf("Dedupe not idempotent: %d then %d", len(out), len(again))
		}
		for _, q := range qs {
			if k := Key(q); k != "" && !seen[k] {
				t.Fatalf("key %q lost", k)
			}
		}
	})
}

// Feature: intervbot, Property 9: Selection respects the limit and reports the pool size
func TestSelectProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qs := rapid.SliceOf(rapid.Custom(genQuestion)).Draw(t, "questions")
		query := Query{
			Role:       rapid.SampledFrom([]string{"", question.GeneralRole, "QA Engineer"}).Draw(t, "role"),
			Difficulty: rapid.SampledFrom([]string{"", "Easy"}).Draw(t, "difficulty"),
			Limit:      rapid.IntRange(0, 10).Draw(t, "limit"),
		}
		seed := rapid.Uint64().Draw(t, "seed")
		got, available := Select(qs, query, rand.New(rand.NewPCG(seed, seed)))

		if available < len(got) {
			t.Fatalf("available %d < selected %d", available, len(got))
		}
		if query.Limit > 0 && len(got) > query.Limit {
			t.Fatalf("selected %d over limit %d", len(got), query.Limit)
		}
		if query.Limit > 0 && len(got) != min(query.Limit, available) {
			t.Fatalf("selected %d, want min(%d, %d)", len(got), query.Limit, available)
		}
		seen := map[string]bool{}
		for _, q := range got {
			if q.Validate() != nil {
				t.Fatalf("ungradable question selected: %+v", q)
			}
			if seen[Key(q)] {
				t.Fatalf("duplicate selected")
			}
			seen[Key(q)] = true
			if query.Role == "QA Engineer" && strings.TrimSpace(q.Role) != "QA Engineer" {
				t.Fatalf("role filter leaked %q", q.Role)
			}
		}
	})
}
