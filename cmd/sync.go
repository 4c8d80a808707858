package cmd

import (
	"fmt"
	"os"
	"strings"

	"ocsync/core/engine"
	"ocsync/feature/orchestrator"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// syncCmd runs one or all destinations.
var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Sync one destination, or all of them",
	Long: `Runs an incremental two-way sync.

With a name, syncs that destination. Without one, syncs every registered
destination in turn; a failing destination does not stop the others.
A destination already being synced by another process is skipped.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: runSync,
}

// syncLsCmd lists destinations.
var syncLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered destinations",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		dests, err := a.orch.List()
		if err != nil {
			return err
		}
		if len(dests) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No destinations registered.")
			return nil
		}

		rows := make([][]string, 0, len(dests))
		for _, d := range dests {
			state, err := a.orch.State(cmd.Context(), d)
			if err != nil {
				return err
			}
			rows = append(rows, []string{d.Name, d.LocalPath, d.RemotePath, string(state), strings.Join(d.Excludes, " ")})
		}
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Headers("NAME", "LOCAL", "REMOTE", "STATE", "EXCLUDES").
			Rows(rows...)
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// syncRmCmd unregisters a destination.
var syncRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Unregister a destination",
	Long: `Removes a destination: its periodic trigger, lock, failure streak and
baseline. Local and remote files are not touched.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		a.log.Info("Destination removed", zap.String("destination", args[0]))
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncLsCmd)
	syncCmd.AddCommand(syncRmCmd)
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		rep, err := a.orch.Sync(cmd.Context(), args[0])
		printOutput(rep)
		return err
	}

	reps, err := a.orch.SyncAll(cmd.Context())
	for _, rep := range reps {
		printOutput(rep)
	}
	return err
}

// printOutput writes the engine output of a failed run to stderr so that
// scheduled run logs carry it. Interactive runs already streamed it.
func printOutput(rep *orchestrator.Report) {
	if rep == nil || rep.Result == nil || rep.Result.Outcome == engine.Success || rep.Result.Output == "" {
		return
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	fmt.Fprintln(os.Stderr, rep.Result.Output)
}
