package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/intervbot/internal/engine"
)

var interviewFlags sessionFlags

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Start a timed mock interview scored by the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := interviewFlags.request()
		if err != nil {
			return err
		}
		log.Info().Str("base_url", cfg.BaseURL).Msg("interview requested")
		return runSession(cmd, &interviewFlags, engine.RemoteGrader{API: newClient()}, req)
	},
}

func init() {
	interviewFlags.register(interviewCmd)
	rootCmd.AddCommand(interviewCmd)
}
