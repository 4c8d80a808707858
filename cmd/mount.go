package cmd

import (
	"ocsync/core/apperr"
	"ocsync/core/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mountCmd mounts the remote read-only for browsing.
var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the remote read-only for browsing",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}
		defer l.Sync()

		if !cfg.Remote.Configured() {
			return apperr.Configuration("mount", "remote is not configured", nil, "setup")
		}
		m, err := mounter(cfg, runner.New(), l)
		if err != nil {
			return err
		}
		if err := m.Mount(cmd.Context()); err != nil {
			return err
		}
		l.Info("Remote mounted", zap.String("mount_point", m.MountPoint()))
		return nil
	},
}

// unmountCmd removes the browse mount.
var unmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Unmount the browse mount",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}
		defer l.Sync()

		m, err := mounter(cfg, runner.New(), l)
		if err != nil {
			return err
		}
		return m.Unmount(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(mountCmd)
	RootCmd.AddCommand(unmountCmd)
}
