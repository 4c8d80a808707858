package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"ocsync/core/apperr"
	"ocsync/core/engine"
	"ocsync/feature/destination"
	"ocsync/feature/orchestrator"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var installFlags struct {
	local    string
	remote   string
	mode     string
	excludes []string
}

// installCmd registers a destination and its periodic trigger.
var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Register a destination and schedule its periodic sync",
	Long: `Registers (or updates) a destination and installs its periodic sync trigger.

A destination without a baseline must be seeded first; choose how with --mode:
  local   the local folder wins; the remote becomes a mirror of it
  remote  the remote wins; the local folder becomes a mirror of it
  newer   the newer copy of each file wins; the other is kept as a backup

Examples:
  install ableton --local ~/Music/Ableton --remote Music/Ableton --mode newer
  install ableton --exclude '**/*.asd' --exclude 'Backup/**'`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runInstall,
}

// uninstallCmd removes a destination's periodic trigger.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Remove the periodic sync of a destination",
	Long:  `Removes the periodic sync trigger. The destination stays registered and can still be synced by hand.`,
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.orch.Uninstall(cmd.Context(), args[0])
	},
}

func init() {
	f := installCmd.Flags()
	f.StringVar(&installFlags.local, "local", "", "Local directory")
	f.StringVar(&installFlags.remote, "remote", "", "Path relative to the remote root")
	f.StringVar(&installFlags.mode, "mode", "", "Seeding mode for a new destination: local, remote or newer")
	f.StringArrayVar(&installFlags.excludes, "exclude", nil, "Glob pattern to skip (repeatable)")

	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(uninstallCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	const op = "install"
	name := args[0]
	ctx := cmd.Context()

	opts := orchestrator.InstallOptions{
		Update: destination.Update{
			LocalPath:  installFlags.local,
			RemotePath: installFlags.remote,
		},
	}
	if cmd.Flags().Changed("exclude") {
		// An explicit empty --exclude "" clears the list.
		opts.Excludes = append([]string{}, installFlags.excludes...)
	}
	if installFlags.mode != "" {
		mode, err := engine.ParseMode(installFlags.mode)
		if err != nil {
			return apperr.Configuration(op, err.Error(), err, fmt.Sprintf("install %s --mode local|remote|newer", name))
		}
		opts.Mode = mode
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.orch.Install(ctx, name, opts)
	if errors.Is(err, orchestrator.ErrModeRequired) && term.IsTerminal(int(os.Stdin.Fd())) {
		mode, perr := promptMode(name)
		if perr != nil {
			return perr
		}
		opts.Mode = mode
		rep, err = a.orch.Install(ctx, name, opts)
	}
	if err != nil {
		return err
	}

	d := rep.Destination
	a.log.Info("Destination installed",
		zap.String("destination", d.Name),
		zap.String("local_path", d.LocalPath),
		zap.String("remote_path", d.RemotePath),
		zap.Strings("excludes", d.Excludes),
		zap.Bool("created", rep.Created),
		zap.Bool("seeded", rep.Seed != nil))
	return nil
}

func promptMode(name string) (engine.Mode, error) {
	fmt.Fprintf(os.Stderr, "Destination %q has no baseline. How should it be seeded?\n", name)
	for _, m := range engine.Modes {
		fmt.Fprintf(os.Stderr, "  %-7s %s\n", m, m.Description())
	}
	in := bufio.NewReader(os.Stdin)
	for {
		v, err := ask(in, "Mode", string(engine.DefaultMode))
		if err != nil {
			return "", err
		}
		mode, err := engine.ParseMode(v)
		if err == nil {
			return mode, nil
		}
		fmt.Fprintln(os.Stderr, err)
	}
}
