// Package profile manages the user's persistent intervbot profile.
// The profile is stored at ~/.config/intervbot/profile.json and is created
// once via the interactive setup flow, then fills gaps in the config.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fakeyudi/intervbot/internal/config"
	"github.com/fakeyudi/intervbot/internal/question"
)

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name                string `json:"name"` // shown in exported reports
	PreferredRole       string `json:"preferred_role"`
	PreferredDifficulty string `json:"preferred_difficulty"`
	DefaultFormat       string `json:"default_format"` // "markdown" | "json"
	OutputDir           string `json:"output_dir"`
	VoiceEnabled        bool   `json:"voice_enabled"`
}

func profilePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'intervbot setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Config converts the profile into the lowest-precedence config layer.
func (p *Profile) Config() *config.Config {
	if p == nil {
		return nil
	}
	voice := p.VoiceEnabled
	return &config.Config{
		DefaultRole:       p.PreferredRole,
		DefaultDifficulty: p.PreferredDifficulty,
		DefaultFormat:     p.DefaultFormat,
		OutputDir:         p.OutputDir,
		VoiceEnabled:      &voice,
	}
}

// RunSetup runs the interactive setup wizard on in/out and returns the
// resulting profile. If existing is non-nil, it is used as the default for
// each prompt (edit mode).
func RunSetup(in io.Reader, out io.Writer, existing *Profile) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes", nil
	}

	prof := &Profile{
		PreferredRole:       question.GeneralRole,
		PreferredDifficulty: string(question.Easy),
		DefaultFormat:       "markdown",
		OutputDir:           ".",
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │  intervbot · first-time setup   │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	prof.Name, err = ask("  Your name (shown in reports)", prof.Name)
	if err != nil {
		return nil, err
	}

	role, err := ask("  Preferred role (name or number, ? to list)", prof.PreferredRole)
	if err != nil {
		return nil, err
	}
	for role == "?" {
		for i, r := range question.Roles {
			fmt.Fprintf(out, "    %2d. %s\n", i+1, r)
		}
		if role, err = ask("  Preferred role", prof.PreferredRole); err != nil {
			return nil, err
		}
	}
	prof.PreferredRole = resolveRole(role)

	diff, err := ask("  Preferred difficulty (Easy/Medium/Hard)", prof.PreferredDifficulty)
	if err != nil {
		return nil, err
	}
	if d, perr := question.ParseDifficulty(diff); perr == nil {
		prof.PreferredDifficulty = string(d)
	} else {
		fmt.Fprintf(out, "  Unknown difficulty %q, keeping %s\n", diff, prof.PreferredDifficulty)
	}

	format, err := ask("  Default report format (markdown/json)", prof.DefaultFormat)
	if err != nil {
		return nil, err
	}
	if format == "json" {
		prof.DefaultFormat = "json"
	} else {
		prof.DefaultFormat = "markdown"
	}

	prof.OutputDir, err = ask("  Default report directory", prof.OutputDir)
	if err != nil {
		return nil, err
	}

	prof.VoiceEnabled, err = askBool("  Read questions aloud and accept spoken answers", prof.VoiceEnabled)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}

// resolveRole accepts a 1-based index into question.Roles or a role name,
// matched case-insensitively. Unknown names are kept as typed.
func resolveRole(s string) string {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(question.Roles) {
		return question.Roles[n-1]
	}
	for _, r := range question.Roles {
		if strings.EqualFold(r, s) {
			return r
		}
	}
	return s
}
