package cmd

import (
	"fmt"

	"ocsync/core/apperr"
	"ocsync/core/engine"

	"github.com/spf13/cobra"
)

// resyncCmd re-derives a destination's baseline.
var resyncCmd = &cobra.Command{
	Use:   "resync <name> [local|remote|newer]",
	Short: "Re-derive the baseline of a destination",
	Long: `Reconciles both sides of a destination from scratch and records a new
baseline. Needed for a new destination and after a critical engine error.

Modes:
  local   the local folder wins; the remote becomes a mirror of it
  remote  the remote wins; the local folder becomes a mirror of it
  newer   the newer copy of each file wins; the other is kept as a backup (default)`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mode := engine.DefaultMode
		if len(args) == 2 {
			m, err := engine.ParseMode(args[1])
			if err != nil {
				return apperr.Configuration("resync", err.Error(), err, fmt.Sprintf("resync %s [local|remote|newer]", name))
			}
			mode = m
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.orch.Resync(cmd.Context(), name, mode)
		printOutput(rep)
		return err
	},
}

func init() {
	RootCmd.AddCommand(resyncCmd)
}
