package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/remote"
)

// fakeService is a minimal scoring service.
type fakeService struct {
	mu      sync.Mutex
	answers []string
	ended   chan string
}

func (f *fakeService) router() chi.Router {
	scores := []any{80, "60"}
	r := chi.NewRouter()
	r.Post("/api/start_interview", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"success":    true,
			"session_id": "sess-42",
			"questions":  []string{"What is a goroutine?", "How do channels close?"},
		})
	})
	r.Post("/api/submit_answer", func(w http.ResponseWriter, r *http.Request) {
		var req remote.SubmitAnswerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.answers = append(f.answers, req.Answer)
		n := len(f.answers)
		f.mu.Unlock()
		writeJSON(w, map[string]any{
			"success":     true,
			"feedback":    "noted",
			"score":       scores[(n-1)%len(scores)],
			"tone":        "neutral",
			"is_complete": n == 2,
		})
	})
	r.Delete("/api/end_session/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.ended <- chi.URLParam(r, "id")
		writeJSON(w, map[string]any{"success": true})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newInterview(t *testing.T) (*fakeService, engine.Grader) {
	t.Helper()
	svc := &fakeService{ended: make(chan string, 1)}
	srv := httptest.NewServer(svc.router())
	t.Cleanup(srv.Close)
	client := remote.New(srv.URL, 5*time.Second, zerolog.Nop())
	return svc, engine.RemoteGrader{API: client}
}

func run(t *testing.T, g engine.Grader, req engine.StartRequest, input string) (*engine.Results, string, error) {
	t.Helper()
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := Run(ctx, Options{
		Grader:  g,
		Request: req,
		In:      strings.NewReader(input),
		Out:     &out,
		Log:     zerolog.Nop(),
	})
	return res, out.String(), err
}

func TestInterviewEndToEnd(t *testing.T) {
	svc, g := newInterview(t)
	req := engine.StartRequest{Role: "Software Engineer", Difficulty: question.Medium, Limit: 2}

	res, out, err := run(t, g, req, "\nlightweight thread\nwhen the sender closes\n")
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, out)
	}
	if res == nil || res.Percent != 70 {
		t.Fatalf("results = %+v", res)
	}
	svc.mu.Lock()
	answers := append([]string(nil), svc.answers...)
	svc.mu.Unlock()
	if len(answers) != 2 || answers[0] != "lightweight thread" || answers[1] != "when the sender closes" {
		t.Errorf("server saw %q", answers)
	}
	for _, want := range []string{
		"Question 1/2  [01:30]",
		"What is a goroutine?",
		"⚠️ Please Answer the Question",
		"Question 2/2",
		"Overall Score: 70",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestBackEndsRemoteSession(t *testing.T) {
	svc, g := newInterview(t)
	req := engine.StartRequest{Role: "HR Round", Difficulty: question.Easy, Limit: 2}

	res, _, err := run(t, g, req, ":back\n")
	if !errors.Is(err, ErrAbandoned) || res != nil {
		t.Fatalf("res=%v err=%v", res, err)
	}
	select {
	case id := <-svc.ended:
		if id != "sess-42" {
			t.Errorf("ended %q", id)
		}
	default:
		t.Fatal("end_session was not sent before Run returned")
	}
}

func TestEOFAbandons(t *testing.T) {
	_, g := newInterview(t)
	req := engine.StartRequest{Role: "HR Round", Difficulty: question.Easy, Limit: 2}

	if _, _, err := run(t, g, req, ""); !errors.Is(err, ErrAbandoned) {
		t.Fatalf("err = %v", err)
	}
}

func TestQuizByOptionNumberAndText(t *testing.T) {
	g := engine.LocalGrader{
		Questions: []question.Question{
			{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
			{Text: "Go keyword for concurrency?", Options: []string{"go", "async"}, CorrectAnswer: "go"},
			{Text: "Zero value of int?", Options: []string{"0", "nil"}, CorrectAnswer: "0"},
		},
		Requested: 3,
		Available: 3,
	}
	req := engine.StartRequest{Role: "Software Engineer", Difficulty: question.Hard, Limit: 3}

	res, out, err := run(t, g, req, "7\n2\nASYNC\n1\n")
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, out)
	}
	if res.Correct != 2 || res.Percent != 67 {
		t.Errorf("correct=%d percent=%d", res.Correct, res.Percent)
	}
	for _, want := range []string{"Question 1/3  [02:00]", "  2. 4", "option 7 out of range", "Total Result %: 67%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestEmptyQuizStops(t *testing.T) {
	req := engine.StartRequest{Role: "QA Engineer", Difficulty: question.Easy, Limit: 3}
	_, out, err := run(t, engine.LocalGrader{}, req, "1\n")
	if !errors.Is(err, engine.ErrNoQuestions) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "No questions found") {
		t.Errorf("output = %q", out)
	}
}

func TestStartFailureReturnsAlert(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/start_interview", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{"success": false, "error": "model offline"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	g := engine.RemoteGrader{API: remote.New(srv.URL, 5*time.Second, zerolog.Nop())}

	_, out, err := run(t, g, engine.StartRequest{Role: "HR Round", Difficulty: question.Easy, Limit: 1}, "")
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "model offline" {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "failed to start session") {
		t.Errorf("output = %q", out)
	}
}
