package cmd

import (
	"ocsync/core/apperr"
	"ocsync/feature/status"

	"github.com/spf13/cobra"
)

var statusOutput string

// statusCmd prints the status report.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remote, mount and destination status",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := status.ParseFormat(statusOutput)
		if err != nil {
			return apperr.Configuration("status", err.Error(), err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.reporter(0)
		if err != nil {
			return err
		}
		rep, err := r.Build(cmd.Context())
		if err != nil {
			return err
		}
		return status.Render(cmd.OutOrStdout(), rep, format)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text, json or yaml")
	RootCmd.AddCommand(statusCmd)
}
