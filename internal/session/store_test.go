package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/session"
)

// generateTime truncates to seconds so values survive JSON unchanged.
func generateTime(t *rapid.T) time.Time {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, "unix_sec")
	return time.Unix(sec, 0).UTC()
}

func generateQuestion(t *rapid.T) question.Question {
	opts := rapid.SliceOfN(rapid.StringN(1, 20, -1), 2, 4).Draw(t, "options")
	return question.Question{
		ID:            rapid.StringN(0, 8, -1).Draw(t, "qid"),
		Text:          rapid.StringN(1, 80, -1).Draw(t, "text"),
		Options:       opts,
		CorrectAnswer: rapid.SampledFrom(opts).Draw(t, "correct"),
		Role:          rapid.SampledFrom(question.Roles).Draw(t, "qrole"),
		Difficulty:    string(rapid.SampledFrom(question.Difficulties).Draw(t, "qdiff")),
	}
}

func generatePayload(t *rapid.T) *session.Payload {
	n := rapid.IntRange(0, 6).Draw(t, "num_questions")
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = generateQuestion(t)
	}
	return &session.Payload{
		ID:         rapid.StringN(1, 36, -1).Draw(t, "id"),
		Role:       rapid.SampledFrom(question.Roles).Draw(t, "role"),
		Difficulty: rapid.SampledFrom(question.Difficulties).Draw(t, "difficulty"),
		Requested:  rapid.IntRange(1, 100).Draw(t, "requested"),
		Available:  n,
		Questions:  qs,
		Source:     rapid.SampledFrom([]string{"api", "dataset"}).Draw(t, "source"),
		PreparedAt: generateTime(t),
	}
}

func newStore(t *testing.T) session.PayloadStore {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err := session.NewPayloadStore()
	if err != nil {
		t.Fatalf("NewPayloadStore: %v", err)
	}
	return store
}

// Feature: intervbot, Property 10: Stored quiz payloads load back unchanged
func TestPayloadRoundTrip(t *testing.T) {
	store := newStore(t)
	rapid.Check(t, func(rt *rapid.T) {
		want := generatePayload(rt)
		if err := store.Save(want); err != nil {
			rt.Fatalf("Save: %v", err)
		}
		got, err := store.Load()
		if err != nil {
			rt.Fatalf("Load: %v", err)
		}
		if len(want.Questions) == 0 {
			want.Questions = got.Questions
		}
		if !reflect.DeepEqual(want, got) {
			rt.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", want, got)
		}
	})
}

func TestTakeConsumesOnce(t *testing.T) {
	store := newStore(t)
	p := &session.Payload{ID: "p1", Role: "HR Round", Difficulty: question.Easy, Requested: 3, Available: 2}
	if err := store.Save(p); err != nil {
		t.Fatal(err)
	}

	got, err := store.Take()
	if err != nil || got.ID != "p1" {
		t.Fatalf("Take = %+v, %v", got, err)
	}
	if !got.Short() {
		t.Error("2 of 3 should be short")
	}
	if _, err := store.Take(); !errors.Is(err, session.ErrNoPayload) {
		t.Fatalf("second Take = %v, want ErrNoPayload", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoPayload) {
		t.Fatalf("Load after Take = %v", err)
	}
}

func TestTakeRemovesCorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.json")
	store, err := session.NewPayloadStoreAt(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Take(); err == nil || errors.Is(err, session.ErrNoPayload) {
		t.Fatalf("corrupt payload Take = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("corrupt payload left in the slot")
	}
}

func TestDeleteMissingIsFine(t *testing.T) {
	store := newStore(t)
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete on empty slot: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewPayloadStoreAt(filepath.Join(dir, "quiz.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Save(&session.Payload{ID: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only quiz.json", len(entries))
	}
}
