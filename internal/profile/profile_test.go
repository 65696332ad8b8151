package profile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fakeyudi/intervbot/internal/config"
	"github.com/fakeyudi/intervbot/internal/question"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if Exists() {
		t.Fatal("no profile expected in a fresh home")
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing profile")
	}

	want := &Profile{Name: "Ada", PreferredRole: "Go Developer", PreferredDifficulty: "Hard", DefaultFormat: "json", OutputDir: "out", VoiceEnabled: true}
	if err := Save(want); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("profile should exist after save")
	}
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRunSetupAcceptsDefaults(t *testing.T) {
	var out bytes.Buffer
	prof, err := RunSetup(strings.NewReader("Sam\n\n\n\n\n\n"), &out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if prof.Name != "Sam" || prof.PreferredRole != question.GeneralRole || prof.PreferredDifficulty != "Easy" {
		t.Errorf("got %+v", prof)
	}
	if prof.DefaultFormat != "markdown" || prof.OutputDir != "." || prof.VoiceEnabled {
		t.Errorf("got %+v", prof)
	}
	if !strings.Contains(out.String(), "first-time setup") {
		t.Error("banner missing")
	}
}

func TestRunSetupRoleByNumberAndListing(t *testing.T) {
	var out bytes.Buffer
	input := "Sam\n?\n3\nmedium\njson\nreports\ny\n"
	prof, err := RunSetup(strings.NewReader(input), &out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if prof.PreferredRole != question.Roles[2] {
		t.Errorf("role = %q", prof.PreferredRole)
	}
	if prof.PreferredDifficulty != "Medium" || prof.DefaultFormat != "json" || prof.OutputDir != "reports" || !prof.VoiceEnabled {
		t.Errorf("got %+v", prof)
	}
	if !strings.Contains(out.String(), question.Roles[0]) {
		t.Error("role list not printed")
	}
}

func TestRunSetupEditKeepsExisting(t *testing.T) {
	existing := &Profile{Name: "Kim", PreferredRole: "HR Round", PreferredDifficulty: "Hard", DefaultFormat: "json", OutputDir: "x", VoiceEnabled: true}
	prof, err := RunSetup(strings.NewReader("\n\nimpossible\n\n\n\n"), &bytes.Buffer{}, existing)
	if err != nil {
		t.Fatal(err)
	}
	if *prof != *existing {
		t.Errorf("got %+v, want %+v", prof, existing)
	}
}

func TestProfileIsLowestConfigLayer(t *testing.T) {
	p := &Profile{PreferredRole: "Data Scientist", PreferredDifficulty: "Medium", VoiceEnabled: true}
	cfg := config.Resolve(p.Config(), &config.Config{DefaultDifficulty: "Hard"})
	if cfg.DefaultRole != "Data Scientist" || cfg.DefaultDifficulty != "Hard" || !cfg.Voice() {
		t.Errorf("got %+v", cfg)
	}
	var none *Profile
	if none.Config() != nil {
		t.Error("nil profile should yield nil layer")
	}
}
