// Package mount manages the read-only browse mount of the remote.
package mount

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"ocsync/core/runner"
)

// Options describes the mount.
type Options struct {
	// Binary is the rclone executable.
	Binary string
	// Remote is the rclone remote name.
	Remote string
	// MountPoint is the absolute directory to mount on.
	MountPoint string
	// CachePolicy is passed as --vfs-cache-mode.
	CachePolicy string
}

// Mounter mounts and unmounts the remote.
type Mounter struct {
	opts    Options
	runner  runner.Runner
	log     *zap.Logger
	mounted func(path string) (bool, error)
}

// New creates a Mounter.
func New(opts Options, r runner.Runner, log *zap.Logger) *Mounter {
	if opts.Binary == "" {
		opts.Binary = "rclone"
	}
	if opts.CachePolicy == "" {
		opts.CachePolicy = "full"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mounter{opts: opts, runner: r, log: log, mounted: IsMounted}
}

// MountPoint returns the configured mount point.
func (m *Mounter) MountPoint() string {
	return m.opts.MountPoint
}

// Mounted reports whether the mount point is currently a mount.
func (m *Mounter) Mounted() (bool, error) {
	return m.mounted(m.opts.MountPoint)
}

// Mount mounts the remote read-only. Mounting an already mounted remote is a no-op.
func (m *Mounter) Mount(ctx context.Context) error {
	if m.opts.MountPoint == "" {
		return fmt.Errorf("no mount point configured")
	}
	if ok, err := m.Mounted(); err != nil {
		return err
	} else if ok {
		m.log.Info("Remote already mounted", zap.String("mount_point", m.opts.MountPoint))
		return nil
	}
	if err := os.MkdirAll(m.opts.MountPoint, 0o755); err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}

	args := []string{"mount", m.opts.Remote + ":", m.opts.MountPoint,
		"--read-only",
		"--vfs-cache-mode", m.opts.CachePolicy,
		"--daemon",
	}
	if res, err := m.runner.Run(ctx, m.opts.Binary, args); err != nil {
		return fmt.Errorf("rclone mount: %w: %s", err, res.Combined())
	}
	m.log.Info("Mounted remote", zap.String("mount_point", m.opts.MountPoint))
	return nil
}

// Unmount unmounts the remote. Unmounting when nothing is mounted is a no-op.
func (m *Mounter) Unmount(ctx context.Context) error {
	ok, err := m.Mounted()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	program, args := unmountCommand(runtime.GOOS, m.opts.MountPoint)
	if res, err := m.runner.Run(ctx, program, args); err != nil {
		return fmt.Errorf("%s: %w: %s", program, err, res.Combined())
	}
	m.log.Info("Unmounted remote", zap.String("mount_point", m.opts.MountPoint))
	return nil
}

func unmountCommand(goos, mountPoint string) (string, []string) {
	if goos == "linux" {
		return "fusermount", []string{"-u", mountPoint}
	}
	return "umount", []string{mountPoint}
}

// IsMounted reports whether path is a mount point, by comparing its device id
// with its parent's. A missing path is not mounted.
func IsMounted(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	var st, parent unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if err == unix.ENOENT {
			return false, nil
		}
		// A dead FUSE mount reports ENOTCONN; treat it as mounted so it can be unmounted.
		if err == unix.ENOTCONN {
			return true, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := unix.Stat(filepath.Dir(filepath.Clean(path)), &parent); err != nil {
		return false, fmt.Errorf("stat parent of %s: %w", path, err)
	}
	return st.Dev != parent.Dev, nil
}
