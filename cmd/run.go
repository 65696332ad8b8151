package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/console"
	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/history"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/report"
	"github.com/fakeyudi/intervbot/internal/session"
	"github.com/fakeyudi/intervbot/internal/tui"
	"github.com/fakeyudi/intervbot/internal/validator"
	"github.com/fakeyudi/intervbot/internal/voice"
)

// sessionFlags are shared by interview and quiz.
type sessionFlags struct {
	role       string
	difficulty string
	limit      int
	plain      bool
	export     bool
}

func (f *sessionFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.role, "role", "", "interview role (default from config)")
	c.Flags().StringVar(&f.difficulty, "difficulty", "", "Easy, Medium or Hard (default from config)")
	c.Flags().IntVar(&f.limit, "limit", 0, "number of questions (default from config)")
	c.Flags().BoolVar(&f.plain, "plain", false, "line-oriented session instead of the TUI")
	c.Flags().BoolVar(&f.export, "export", false, "write a report to the output directory when finished")
}

// request fills unset flags from the config.
func (f *sessionFlags) request() (engine.StartRequest, error) {
	role := strings.TrimSpace(f.role)
	if role == "" {
		role = cfg.DefaultRole
	}
	diffText := f.difficulty
	if diffText == "" {
		diffText = cfg.DefaultDifficulty
	}
	diff, err := question.ParseDifficulty(diffText)
	if err != nil {
		return engine.StartRequest{}, err
	}
	limit := f.limit
	if limit == 0 {
		limit = cfg.DefaultLimit
	}
	req := engine.StartRequest{Role: role, Difficulty: diff, Limit: limit}
	if err := validator.Struct(req); err != nil {
		return engine.StartRequest{}, err
	}
	return req, nil
}

// runSession drives one session in the TUI, or on the plain console when
// --plain is given or the terminal is not interactive.
func runSession(cmd *cobra.Command, flags *sessionFlags, grader engine.Grader, req engine.StartRequest) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	journal := openJournal()
	if journal != nil {
		defer journal.Close()
	}
	speaker, recognizer := voiceDevices()

	var j engine.Journal
	if journal != nil {
		j = journal
	}

	if flags.plain || !interactive() {
		res, err := console.Run(ctx, console.Options{
			Grader:      grader,
			Request:     req,
			Journal:     j,
			Speaker:     speaker,
			Recognizer:  recognizer,
			AutoSpeak:   speaker != nil,
			Participant: participant(),
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
			Log:         log,
		})
		if errors.Is(err, console.ErrAbandoned) {
			cmd.Println("Session ended.")
			return nil
		}
		if err != nil {
			return err
		}
		return maybeExport(cmd, flags, res)
	}

	m, err := tui.RunSession(tui.SessionOptions{
		Grader:      grader,
		Request:     req,
		Journal:     j,
		Speaker:     speaker,
		Recognizer:  recognizer,
		AutoSpeak:   speaker != nil,
		Participant: participant(),
		Export:      exportReport,
		Log:         log,
	})
	if err != nil {
		return err
	}
	return maybeExport(cmd, flags, m.Results())
}

func maybeExport(cmd *cobra.Command, flags *sessionFlags, res *engine.Results) error {
	if !flags.export || res == nil {
		return nil
	}
	path, err := exportReport(report.New(*res, participant(), time.Now()))
	if err != nil {
		return err
	}
	cmd.Printf("Report written to %s\n", path)
	return nil
}

func exportReport(r *report.Report) (string, error) {
	renderer, err := report.RendererFor(cfg.DefaultFormat)
	if err != nil {
		return "", err
	}
	return report.Export(cfg.OutputDir, r, renderer)
}

// openJournal opens the history database. A failure only disables history.
func openJournal() *history.Store {
	dir, err := session.DataDir()
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
		return nil
	}
	store, err := history.Open(history.DefaultPath(dir))
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
		return nil
	}
	return store
}

// voiceDevices returns the configured speech programs. When voice is off or
// a program is missing, listening reports why once.
func voiceDevices() (engine.Speaker, engine.Recognizer) {
	if !cfg.Voice() {
		return nil, voice.Unavailable{Err: fmt.Errorf("%w: voice is off, enable it with 'intervbot setup'", voice.ErrUnsupported)}
	}

	var speaker engine.Speaker
	speakCmd := voice.ParseCommand(cfg.SpeakCommand)
	if len(speakCmd) == 0 {
		speakCmd = voice.DefaultSpeakCommand()
	}
	if s, err := voice.NewSpeaker(speakCmd, log); err != nil {
		log.Info().Err(err).Msg("speech synthesis unavailable")
	} else {
		speaker = s
	}

	var recognizer engine.Recognizer
	if r, err := voice.NewRecognizer(voice.ParseCommand(cfg.ListenCommand), log); err != nil {
		recognizer = voice.Unavailable{Err: err}
	} else {
		recognizer = r
	}
	return speaker, recognizer
}

// withTimeout bounds a single remote or storage call.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.RequestTimeout())
}
