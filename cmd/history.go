package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/engine"
	"github.com/fakeyudi/intervbot/internal/history"
	"github.com/fakeyudi/intervbot/internal/report"
)

var (
	historyLimit  int
	historyDelete string
	historyShow   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished interviews and quizzes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		journal := openJournal()
		if journal == nil {
			return errors.New("history is unavailable, see the log for details")
		}
		defer journal.Close()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		if historyShow != "" {
			res, err := journal.Get(ctx, historyShow)
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no history entry %q", historyShow)
			}
			if err != nil {
				return err
			}
			return printReport(cmd, report.New(*res, participant(), res.FinishedAt))
		}

		if historyDelete != "" {
			if err := journal.Delete(ctx, historyDelete); err != nil {
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no history entry %q", historyDelete)
				}
				return err
			}
			cmd.Printf("Deleted %s\n", historyDelete)
			return nil
		}

		counts, err := journal.Counts(ctx)
		if err != nil {
			return err
		}
		printCounts(cmd, counts)

		entries, err := journal.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Println("no finished sessions yet")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTITLE\tRESULT\tID")
		for _, e := range entries {
			result := fmt.Sprintf("score %d", e.Percent)
			if e.Kind == engine.Quiz {
				result = fmt.Sprintf("%d/%d (%d%%)", e.Correct, e.Total, e.Percent)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Title, result, e.ID)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to list")
	historyCmd.Flags().StringVar(&historyDelete, "delete", "", "delete the entry with this id")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the full results of the entry with this id")
	rootCmd.AddCommand(historyCmd)
}
