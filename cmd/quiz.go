package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/dataset"
	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/remote"
	"github.com/fakeyudi/intervbot/internal/session"
	"github.com/fakeyudi/intervbot/internal/source"
)

// errNoQuizQuestions is shown when nothing matches the role and difficulty.
var errNoQuizQuestions = errors.New("No quiz questions found for the selected role and difficulty.")

var quizFlags sessionFlags

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Prepare and take a timed multiple-choice quiz",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewPayloadStore()
		if err != nil {
			return err
		}
		if _, err := prepareQuiz(cmd, store); err != nil {
			return err
		}
		return takeQuiz(cmd, store)
	},
}

var quizPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Draw a question set and keep it for 'quiz run'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewPayloadStore()
		if err != nil {
			return err
		}
		p, err := prepareQuiz(cmd, store)
		if err != nil {
			return err
		}
		cmd.Printf("Prepared %d questions for %s (%s) from %s.\n", len(p.Questions), p.Role, p.Difficulty, p.Source)
		if p.Short() {
			cmd.Printf("Showing %d of %d requested\n", p.Available, p.Requested)
		}
		cmd.Println("Run 'intervbot quiz run' to start.")
		return nil
	},
}

var quizRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Take the prepared quiz",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewPayloadStore()
		if err != nil {
			return err
		}
		return takeQuiz(cmd, store)
	},
}

// prepareQuiz draws questions from the service, falling back to the static
// set, and saves them in the payload slot.
func prepareQuiz(cmd *cobra.Command, store session.PayloadStore) (*session.Payload, error) {
	req, err := quizFlags.request()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client := newClient()
	// The API gets its own deadline so a hung service still leaves the
	// static set. The client timeout bounds the static set fetch.
	src := source.Fallback{
		Primary:        source.API{Client: client},
		Secondary:      source.Dataset{Loader: datasetLoader(ctx, client)},
		PrimaryTimeout: cfg.RequestTimeout(),
		Log:            log,
	}

	res, err := src.Draw(ctx, dataset.Query{Role: req.Role, Difficulty: string(req.Difficulty), Limit: req.Limit})
	if err != nil {
		return nil, fmt.Errorf("loading quiz questions: %w", err)
	}
	if len(res.Questions) == 0 {
		return nil, errNoQuizQuestions
	}

	p := &session.Payload{
		ID:         uuid.NewString(),
		Role:       req.Role,
		Difficulty: req.Difficulty,
		Requested:  req.Limit,
		Available:  res.Available,
		Questions:  res.Questions,
		Source:     res.Source,
		PreparedAt: time.Now(),
	}
	if err := store.Save(p); err != nil {
		return nil, fmt.Errorf("saving prepared quiz: %w", err)
	}
	log.Info().Str("payload_id", p.ID).Str("source", p.Source).Int("questions", len(p.Questions)).Msg("quiz prepared")
	return p, nil
}

// datasetLoader reads dataset_path when configured and keeps its cache
// fresh while ctx lives; otherwise the service's static set is used.
func datasetLoader(ctx context.Context, client *remote.Client) source.Loader {
	if cfg.DatasetPath == "" {
		return source.RemoteDataset(ctx, client)
	}
	loader := dataset.NewFileLoader(cfg.DatasetPath, log)
	go func() {
		if err := loader.Watch(ctx, nil); err != nil {
			log.Debug().Err(err).Msg("dataset watch stopped")
		}
	}()
	return loader
}

// takeQuiz consumes the payload slot and runs the quiz.
func takeQuiz(cmd *cobra.Command, store session.PayloadStore) error {
	p, err := store.Take()
	if errors.Is(err, session.ErrNoPayload) {
		return errors.New("no prepared quiz; run 'intervbot quiz prepare' first")
	}
	if err != nil {
		return err
	}

	grader := engine.LocalGrader{
		Questions: p.Questions,
		Requested: p.Requested,
		Available: p.Available,
		Saver:     newClient(),
	}
	req := engine.StartRequest{Role: p.Role, Difficulty: p.Difficulty, Limit: max(1, p.Requested)}
	return runSession(cmd, &quizFlags, grader, req)
}

func init() {
	quizFlags.register(quizCmd)
	// prepare shares the selection flags; run shares the session flags.
	quizPrepareCmd.Flags().AddFlagSet(quizCmd.Flags())
	quizRunCmd.Flags().AddFlagSet(quizCmd.Flags())
	quizCmd.AddCommand(quizPrepareCmd, quizRunCmd)
	rootCmd.AddCommand(quizCmd)
}
