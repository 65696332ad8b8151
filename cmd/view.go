package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/report"
	"github.com/fakeyudi/intervbot/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View an exported interview or quiz report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		r, err := report.Parse(data)
		if err != nil {
			return err
		}

		if plainOutput || !interactive() {
			return printReport(cmd, r)
		}
		return tui.RunViewer(r, path)
	},
}

// printReport writes the Markdown rendering without the embedded payload.
func printReport(cmd *cobra.Command, r *report.Report) error {
	data, err := (&report.MarkdownRenderer{}).Render(r)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "<!-- intervbot-") {
			continue
		}
		cmd.Println(line)
	}
	return nil
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
