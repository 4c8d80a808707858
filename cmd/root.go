package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ocsync/core/apperr"
	"ocsync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configDir is the --config-dir flag. Empty selects config.DefaultDir.
var configDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ocsync",
	Short: "Keep local folders in two-way sync with a shared remote",
	Long: `ocsync keeps named local folders ("destinations") in two-way sync with
sub-paths of one shared WebDAV or S3 remote. Each destination is synced
periodically by the OS scheduler; runs of the same destination never overlap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	// Console encoding at debug level gives readable timestamps on a terminal.
	l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
	if logErr == nil {
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	for _, s := range apperr.Suggestions(err) {
		fmt.Fprintf(os.Stderr, "  try: %s %s\n", RootCmd.Name(), s)
	}
	os.Exit(apperr.ExitCode(err))
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default $XDG_CONFIG_HOME/ocsync)")

	RootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Configuration("cli", err.Error(), err)
	})
}

// usageArgs turns argument count errors into configuration errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return apperr.Configuration("cli", err.Error(), err, strings.TrimPrefix(cmd.UseLine(), cmd.Root().Name()+" "))
		}
		return nil
	}
}
