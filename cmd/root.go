package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/config"
	"github.com/fakeyudi/intervbot/internal/logger"
	"github.com/fakeyudi/intervbot/internal/profile"
	"github.com/fakeyudi/intervbot/internal/remote"
	"github.com/fakeyudi/intervbot/internal/session"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// log is the command's logger. It writes to the log file unless
// --log-stderr is given.
var log = zerolog.Nop()

var (
	logStderr bool
	logFile   *os.File
)

var rootCmd = &cobra.Command{
	Use:          "intervbot",
	Short:        "Practice timed mock interviews and multiple-choice quizzes",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && interactive() {
			cmd.Println()
			cmd.Println("  Welcome to intervbot! Looks like this is your first time.")
			if err := runSetup(cmd, true); err != nil {
				return err
			}
		}

		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		// Profile values fill in config gaps.
		cfg = config.Resolve(activeProfile.Config(), global, project)
		if err := config.ApplyEnv(&cfg, ".env"); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return setupLogging(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func setupLogging(cmd *cobra.Command) error {
	closeLog()
	if logStderr {
		log = logger.Setup(cfg.LogLevel, "pretty", cmd.ErrOrStderr())
		return nil
	}
	dir, err := session.DataDir()
	if err != nil {
		return err
	}
	f, err := logger.OpenFile(filepath.Join(dir, "intervbot.log"))
	if err != nil {
		return err
	}
	logFile = f
	log = logger.Setup(cfg.LogLevel, cfg.LogFormat, f).With().Str("command", cmd.Name()).Logger()
	return nil
}

func closeLog() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	log = zerolog.Nop()
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())
}

func newClient() *remote.Client {
	return remote.New(cfg.BaseURL, cfg.RequestTimeout(), log)
}

func participant() string {
	if activeProfile == nil {
		return ""
	}
	return activeProfile.Name
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&logStderr, "log-stderr", false, "write logs to stderr instead of the log file")
}
