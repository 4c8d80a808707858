// Package engine adapts the external synchronization engine (rclone bisync).
//
// The orchestrator never moves bytes itself. It describes a run with an
// Invocation and the engine turns that into one or more subprocess calls. The
// mapping from Mode to engine flags lives in Plan so it can be tested without
// running anything.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ocsync/core/runner"
)

// Invocation describes one engine run for a destination.
type Invocation struct {
	// Name is the destination name; used for backup locations.
	Name string
	// LocalPath is the absolute local directory.
	LocalPath string
	// RemotePath is relative to the remote root.
	RemotePath string
	// Mode is the reconciliation mode; only consulted when Resync is set.
	Mode Mode
	// Resync re-derives the baseline from scratch instead of syncing incrementally.
	Resync bool
	// Excludes are glob patterns passed through to the engine.
	Excludes []string
}

// Outcome classifies an engine run.
type Outcome string

const (
	// Success means both replicas were reconciled.
	Success Outcome = "success"
	// Failure means the run failed; the baseline is still usable.
	Failure Outcome = "failure"
	// Critical means the engine refused to continue without a new baseline.
	Critical Outcome = "critical"
)

// Result describes a finished engine run.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Output   string
	Duration time.Duration
}

// Engine runs synchronization jobs.
type Engine interface {
	// Run executes inv. A non-success outcome is also returned as an error.
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// Step is a single engine subprocess call.
type Step struct {
	Args []string
}

// Rclone is the Engine backed by the rclone binary.
type Rclone struct {
	cfg    Config
	remote string
	runner runner.Runner

	stdout io.Writer
	stderr io.Writer
}

// NewRclone creates an rclone engine for the named rclone remote.
func NewRclone(cfg Config, remote string, r runner.Runner) *Rclone {
	if cfg.Binary == "" {
		cfg.Binary = "rclone"
	}
	return &Rclone{cfg: cfg, remote: remote, runner: r}
}

// WithOutput tees engine output to the given writers, e.g. the terminal for
// interactive runs.
func (e *Rclone) WithOutput(stdout, stderr io.Writer) *Rclone {
	e.stdout = stdout
	e.stderr = stderr
	return e
}

// Binary returns the rclone executable used.
func (e *Rclone) Binary() string {
	return e.cfg.Binary
}

// RemoteSpec returns "<remote>:<relative path>".
func (e *Rclone) RemoteSpec(relative string) string {
	return e.remote + ":" + strings.TrimPrefix(path.Clean("/"+relative), "/")
}

// Plan returns the subprocess calls for inv.
func (e *Rclone) Plan(inv Invocation) ([]Step, error) {
	if inv.LocalPath == "" || !filepath.IsAbs(inv.LocalPath) {
		return nil, fmt.Errorf("local path must be absolute: %q", inv.LocalPath)
	}
	if e.remote == "" {
		return nil, errors.New("no rclone remote configured")
	}

	local := inv.LocalPath
	remote := e.RemoteSpec(inv.RemotePath)
	filters := excludeArgs(inv.Excludes)

	bisync := []string{"bisync", local, remote,
		"--compare", "size,modtime,checksum",
		"--slow-hash-sync-only",
		"--create-empty-src-dirs",
		"--resilient",
		"--recover",
		"--conflict-resolve", "newer",
		"--conflict-loser", "num",
	}
	if e.cfg.WorkDir != "" {
		bisync = append(bisync, "--workdir", e.cfg.WorkDir)
	}
	bisync = append(bisync, filters...)
	bisync = append(bisync, e.cfg.extraFlags()...)

	if !inv.Resync {
		return []Step{{Args: bisync}}, nil
	}

	mirror := func(src, dst string) Step {
		args := []string{"sync", src, dst, "--create-empty-src-dirs"}
		args = append(args, filters...)
		args = append(args, e.cfg.extraFlags()...)
		return Step{Args: args}
	}
	resync := append(append([]string(nil), bisync...), "--resync")

	switch inv.Mode {
	case ModeLocal:
		return []Step{
			mirror(local, remote),
			{Args: append(resync, "--resync-mode", "path1")},
		}, nil
	case ModeRemote:
		return []Step{
			mirror(remote, local),
			{Args: append(resync, "--resync-mode", "path2")},
		}, nil
	case ModeNewer, "":
		localBackup, err := e.cfg.localBackupDir(inv.Name)
		if err != nil {
			return nil, err
		}
		remoteBackup := e.RemoteSpec(path.Join(e.cfg.RemoteBackupDir, inv.Name))
		return []Step{
			{Args: append(resync,
				"--resync-mode", "newer",
				"--backup-dir1", localBackup,
				"--backup-dir2", remoteBackup,
			)},
		}, nil
	default:
		return nil, fmt.Errorf("invalid mode %q", inv.Mode)
	}
}

// Run implements Engine.
func (e *Rclone) Run(ctx context.Context, inv Invocation) (*Result, error) {
	steps, err := e.Plan(inv)
	if err != nil {
		return nil, err
	}

	if e.cfg.TimeoutMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	if inv.Resync && (inv.Mode == ModeNewer || inv.Mode == "") {
		dir, err := e.cfg.localBackupDir(inv.Name)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	start := time.Now()
	var output strings.Builder
	for _, step := range steps {
		var opts []runner.Option
		if e.stdout != nil || e.stderr != nil {
			opts = append(opts, runner.WithOutput(e.stdout, e.stderr))
		}
		res, runErr := e.runner.Run(ctx, e.cfg.Binary, step.Args, opts...)
		output.WriteString(res.Combined())
		output.WriteString("\n")

		if runErr != nil {
			result := &Result{
				Outcome:  classify(ctx, step, res, output.String()),
				ExitCode: exitCode(res),
				Output:   strings.TrimSpace(output.String()),
				Duration: time.Since(start),
			}
			return result, fmt.Errorf("rclone %s: %w", step.Args[0], runErr)
		}
	}

	return &Result{
		Outcome:  Success,
		Output:   strings.TrimSpace(output.String()),
		Duration: time.Since(start),
	}, nil
}

// ListRemote lists the top level of the remote without transferring files.
func (e *Rclone) ListRemote(ctx context.Context) error {
	res, err := e.runner.Run(ctx, e.cfg.Binary, []string{"lsd", e.remote + ":", "--max-depth", "1"})
	if err != nil {
		if out := res.Combined(); out != "" {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}

var criticalPattern = regexp.MustCompile(`(?i)(must run --resync|bisync critical error|cannot find prior path[12] lists)`)

// bisyncCritical is the bisync exit status for an aborted run whose listings
// can no longer be trusted.
const bisyncCritical = 2

func classify(ctx context.Context, step Step, res *runner.Result, output string) Outcome {
	if ctx.Err() != nil {
		return Failure
	}
	if len(step.Args) > 0 && step.Args[0] == "bisync" && exitCode(res) == bisyncCritical {
		return Critical
	}
	if criticalPattern.MatchString(output) {
		return Critical
	}
	if res != nil && criticalPattern.MatchString(res.Stderr) {
		return Critical
	}
	return Failure
}

func exitCode(res *runner.Result) int {
	if res == nil {
		return -1
	}
	return res.ExitCode
}

func excludeArgs(patterns []string) []string {
	var args []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, "--exclude", p)
		}
	}
	return args
}
