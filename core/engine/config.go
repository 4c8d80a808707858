package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds configuration for the synchronization engine.
type Config struct {
	// Binary is the rclone executable.
	Binary string `mapstructure:"binary" default:"rclone"`
	// WorkDir overrides the bisync working directory holding listings.
	WorkDir string `mapstructure:"workdir" default:""`
	// BackupDir is the local root for superseded files kept by newer-wins resyncs.
	// Empty selects $XDG_STATE_HOME/ocsync/backups.
	BackupDir string `mapstructure:"backup_dir" default:""`
	// RemoteBackupDir is the remote directory, relative to the remote root, for superseded files.
	RemoteBackupDir string `mapstructure:"remote_backup_dir" default:".ocsync-backups"`
	// ExtraFlags are appended to every engine call, space separated.
	ExtraFlags string `mapstructure:"extra_flags" default:""`
	// TimeoutMinutes kills a run that takes longer. Zero disables the limit.
	TimeoutMinutes int `mapstructure:"timeout_minutes" default:"0"`
}

func (c Config) extraFlags() []string {
	return strings.Fields(c.ExtraFlags)
}

func (c Config) localBackupDir(name string) (string, error) {
	root := c.BackupDir
	if root == "" {
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to resolve home directory: %w", err)
			}
			base = filepath.Join(home, ".local", "state")
		}
		root = filepath.Join(base, "ocsync", "backups")
	}
	if name == "" {
		name = "default"
	}
	return filepath.Join(root, name), nil
}
