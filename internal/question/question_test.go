package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// Feature: intervbot, Property 1: Timer duration is fixed per difficulty
func TestTimerSecondsPerDifficulty(t *testing.T) {
	want := map[Difficulty]int{Easy: 60, Medium: 90, Hard: 120}
	rapid.Check(t, func(t *rapid.T) {
		d := rapid.SampledFrom(Difficulties).Draw(t, "difficulty")
		n := rapid.IntRange(1, 20).Draw(t, "questions")
		first := d.TimerSeconds()
		if first != want[d] {
			t.Fatalf("%s: got %d, want %d", d, first, want[d])
		}
		for i := 0; i < n; i++ {
			if got := d.TimerSeconds(); got != first {
				t.Fatalf("%s: duration changed between questions: %d then %d", d, first, got)
			}
		}
	})
}

func TestTimerSecondsUnknownFallsBackToEasy(t *testing.T) {
	if got := Difficulty("expert").TimerSeconds(); got != 60 {
		t.Errorf("got %d, want 60", got)
	}
	if got := Difficulty("hard").TimerSeconds(); got != 120 {
		t.Errorf("lowercase hard: got %d, want 120", got)
	}
}

func TestParseDifficulty(t *testing.T) {
	for in, want := range map[string]Difficulty{"easy": Easy, " MEDIUM ": Medium, "Hard": Hard} {
		got, err := ParseDifficulty(in)
		if err != nil {
			t.Fatalf("ParseDifficulty(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseDifficulty("insane"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("expected ErrUnknownDifficulty, got %v", err)
	}
}

// Feature: intervbot, Property 2: Clock display is zero-padded and never negative
func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 59: "00:59", 60: "01:00", 90: "01:30", 120: "02:00", -5: "00:00", 3599: "59:59"}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.IntRange(-1000, 5999).Draw(t, "seconds")
		got := FormatClock(s)
		if len(got) != 5 || got[2] != ':' {
			t.Fatalf("FormatClock(%d) = %q, want MM:SS", s, got)
		}
		if s <= 0 && got != "00:00" {
			t.Fatalf("FormatClock(%d) = %q, want 00:00", s, got)
		}
		if s > 0 && got != fmt.Sprintf("%02d:%02d", s/60, s%60) {
			t.Fatalf("FormatClock(%d) = %q", s, got)
		}
	})
}

func TestValidate(t *testing.T) {
	ok := Question{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []Question{
		{Text: "", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Text: "one option", Options: []string{"a"}, CorrectAnswer: "a"},
		{Text: "no match", Options: []string{"a", "b"}, CorrectAnswer: "c"},
		{Text: "dup", Options: []string{"a", "a"}, CorrectAnswer: "a"},
	}
	for _, q := range bad {
		if err := q.Validate(); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSplitCode(t *testing.T) {
	text := "What does this print?\n```python\n\nprint(1)\n```\nExplain."
	segs := SplitCode(text)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(segs), segs)
	}
	if segs[0].Code || segs[0].Text != "What does this print?" {
		t.Errorf("segment 0: %+v", segs[0])
	}
	if !segs[1].Code || segs[1].Language != "python" || segs[1].Text != "print(1)" {
		t.Errorf("segment 1: %+v", segs[1])
	}
	if segs[2].Code || segs[2].Text != "Explain." {
		t.Errorf("segment 2: %+v", segs[2])
	}

	plain := SplitCode("no code here")
	if len(plain) != 1 || plain[0].Code {
		t.Errorf("plain text: %+v", plain)
	}
}

func TestUnmarshalAcceptsBareString(t *testing.T) {
	var qs []Question
	data := `["Tell me about yourself.", {"id":"q2","question":"2+2?","options":["3","4"],"correct_answer":"4"}]`
	if err := json.Unmarshal([]byte(data), &qs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	if qs[0].Text != "Tell me about yourself." || qs[0].IsMultipleChoice() {
		t.Errorf("bare string decoded as %+v", qs[0])
	}
	if qs[1].ID != "q2" || qs[1].CorrectAnswer != "4" || !qs[1].IsMultipleChoice() {
		t.Errorf("object decoded as %+v", qs[1])
	}
}
