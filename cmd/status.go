package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/history"
	"github.com/fakeyudi/intervbot/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the prepared quiz and completed session counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewPayloadStore()
		if err != nil {
			return err
		}

		p, err := store.Load()
		switch {
		case errors.Is(err, session.ErrNoPayload):
			cmd.Println("no prepared quiz")
		case err != nil:
			return err
		default:
			cmd.Printf("Prepared quiz: %s (%s)\n", p.Role, p.Difficulty)
			cmd.Printf("Questions: %d\n", len(p.Questions))
			if p.Short() {
				cmd.Printf("Showing %d of %d requested\n", p.Available, p.Requested)
			}
			if p.Source != "" {
				cmd.Printf("Source: %s\n", p.Source)
			}
			cmd.Printf("Prepared: %s (%s ago)\n", p.PreparedAt.Format(time.RFC3339), time.Since(p.PreparedAt).Round(time.Second))
		}

		journal := openJournal()
		if journal == nil {
			return nil
		}
		defer journal.Close()
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		counts, err := journal.Counts(ctx)
		if err != nil {
			return err
		}
		printCounts(cmd, counts)
		return nil
	},
}

func printCounts(cmd *cobra.Command, c history.Counts) {
	cmd.Printf("Completed: %d quizzes, %d interviews\n", c.Quiz, c.Interview)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
