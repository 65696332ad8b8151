package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fakeyudi/intervbot/internal/question"
)

// Config holds all configurable intervbot settings.
type Config struct {
	BaseURL           string `json:"base_url"`
	DefaultRole       string `json:"default_role"`
	DefaultDifficulty string `json:"default_difficulty"`
	DefaultLimit      int    `json:"default_limit"`
	DefaultFormat     string `json:"default_format"` // "markdown" | "json"
	OutputDir         string `json:"output_dir"`
	// DatasetPath points at a local JSON or YAML question set. Empty means
	// the set is fetched from the service.
	DatasetPath           string `json:"dataset_path"`
	SpeakCommand          string `json:"speak_command"`
	ListenCommand         string `json:"listen_command"`
	VoiceEnabled          *bool  `json:"voice_enabled,omitempty"`
	LogLevel              string `json:"log_level"`
	LogFormat             string `json:"log_format"` // "json" | "pretty"
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		BaseURL:               "http://localhost:5000",
		DefaultRole:           question.GeneralRole,
		DefaultDifficulty:     string(question.Easy),
		DefaultLimit:          5,
		DefaultFormat:         "markdown",
		OutputDir:             ".",
		LogLevel:              "info",
		LogFormat:             "json",
		RequestTimeoutSeconds: 30,
	}
}

// RequestTimeout is the per-request deadline for the remote service.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Voice reports whether speech features are switched on.
func (c Config) Voice() bool {
	return c.VoiceEnabled != nil && *c.VoiceEnabled
}

// Validate checks the values a command relies on.
func (c Config) Validate() error {
	if _, err := question.ParseDifficulty(c.DefaultDifficulty); err != nil {
		return fmt.Errorf("default_difficulty: %w", err)
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > 100 {
		return fmt.Errorf("default_limit must be between 1 and 100, got %d", c.DefaultLimit)
	}
	switch c.DefaultFormat {
	case "markdown", "json":
	default:
		return fmt.Errorf("default_format must be markdown or json, got %q", c.DefaultFormat)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	return nil
}

// Dir returns ~/.config/intervbot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "intervbot"), nil
}

// LoadGlobal reads ~/.config/intervbot/config.json.
// Returns nil (no error) if the file is absent.
func LoadGlobal() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(dir, "config.json"))
}

// LoadProject reads .intervbotconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".intervbotconfig")
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	return Resolve(global, project)
}

// Resolve layers configs over the defaults. Later layers win; nil layers
// and zero fields are skipped.
func Resolve(layers ...*Config) Config {
	result := Defaults()
	for _, l := range layers {
		if l == nil {
			continue
		}
		setString(&result.BaseURL, l.BaseURL)
		setString(&result.DefaultRole, l.DefaultRole)
		setString(&result.DefaultDifficulty, l.DefaultDifficulty)
		setString(&result.DefaultFormat, l.DefaultFormat)
		setString(&result.OutputDir, l.OutputDir)
		setString(&result.DatasetPath, l.DatasetPath)
		setString(&result.SpeakCommand, l.SpeakCommand)
		setString(&result.ListenCommand, l.ListenCommand)
		setString(&result.LogLevel, l.LogLevel)
		setString(&result.LogFormat, l.LogFormat)
		if l.DefaultLimit > 0 {
			result.DefaultLimit = l.DefaultLimit
		}
		if l.RequestTimeoutSeconds > 0 {
			result.RequestTimeoutSeconds = l.RequestTimeoutSeconds
		}
		if l.VoiceEnabled != nil {
			v := *l.VoiceEnabled
			result.VoiceEnabled = &v
		}
	}
	return result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL   = "INTERVBOT_BASE_URL"
	EnvLogLevel  = "INTERVBOT_LOG_LEVEL"
	EnvLogFormat = "INTERVBOT_LOG_FORMAT"
	EnvDataset   = "INTERVBOT_DATASET"
	EnvTimeout   = "INTERVBOT_TIMEOUT_SECONDS"
)

// ApplyEnv overlays INTERVBOT_* variables onto cfg. Values from dotenvPath
// are used when the process environment does not set them; a missing file
// is not an error.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	vars := map[string]string{}
	if dotenvPath != "" {
		read, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			vars = read
		case errors.Is(err, os.ErrNotExist):
		default:
			return &ParseError{Path: dotenvPath, Err: err}
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(vars[key])
	}

	setString(&cfg.BaseURL, lookup(EnvBaseURL))
	setString(&cfg.LogLevel, lookup(EnvLogLevel))
	setString(&cfg.LogFormat, lookup(EnvLogFormat))
	setString(&cfg.DatasetPath, lookup(EnvDataset))
	if v := lookup(EnvTimeout); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: want a positive number of seconds, got %q", EnvTimeout, v)
		}
		cfg.RequestTimeoutSeconds = n
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
