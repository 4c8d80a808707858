package schedule

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ocsync/core/runner"
)

// Backend names.
const (
	BackendAuto    = "auto"
	BackendLaunchd = "launchd"
	BackendSystemd = "systemd"
	BackendCron    = "cron"
)

// Manager installs and removes periodic sync triggers.
type Manager interface {
	// Install registers "sync <name>", replacing any existing registration.
	Install(ctx context.Context, name string) error
	// Uninstall removes the registration. Missing registrations are not an error.
	Uninstall(ctx context.Context, name string) error
	// Installed reports whether a registration exists.
	Installed(ctx context.Context, name string) (bool, error)
}

// Action is the command every trigger runs.
type Action struct {
	// Executable is the absolute path of the ocsync binary.
	Executable string
	// GlobalArgs are inserted before "sync <name>", e.g. --config-dir.
	GlobalArgs []string
	// Env is exported to the triggered process.
	Env map[string]string
}

// Argv returns the full argument vector for name.
func (a Action) Argv(name string) []string {
	argv := append([]string{a.Executable}, a.GlobalArgs...)
	return append(argv, "sync", name)
}

// base carries everything a backend needs.
type base struct {
	cfg    Config
	action Action
	home   string
	logDir string
	runner runner.Runner
	log    *zap.Logger
}

// Label returns the registration identifier for name.
func (s *base) Label(name string) string {
	return s.cfg.LabelPrefix + "." + name
}

func (s *base) logFile(name string) string {
	return filepath.Join(s.logDir, name+".log")
}

// Option configures New.
type Option func(*base)

// WithHome overrides the home directory backends write under.
func WithHome(home string) Option {
	return func(s *base) { s.home = home }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *base) { s.log = l }
}

// New returns the Manager for cfg.Backend.
func New(cfg Config, action Action, r runner.Runner, opts ...Option) (Manager, error) {
	if cfg.LabelPrefix == "" {
		cfg.LabelPrefix = "com.ocsync"
	}
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 60
	}
	if action.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable: %w", err)
		}
		action.Executable = exe
	}
	if action.Env == nil {
		action.Env = map[string]string{"PATH": os.Getenv("PATH")}
	}

	s := &base{cfg: cfg, action: action, runner: r, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		s.home = home
	}
	s.logDir = cfg.LogDir
	if s.logDir == "" {
		s.logDir = defaultLogDir(s.home)
	}

	backend := cfg.Backend
	if backend == "" || backend == BackendAuto {
		backend = detect()
	}

	switch backend {
	case BackendLaunchd:
		return &launchd{base: s, uid: strconv.Itoa(os.Getuid())}, nil
	case BackendSystemd:
		return &systemd{base: s}, nil
	case BackendCron:
		return newCron(s)
	default:
		return nil, fmt.Errorf("unknown schedule backend %q", cfg.Backend)
	}
}

func detect() string {
	if runtime.GOOS == "darwin" {
		return BackendLaunchd
	}
	if _, err := exec.LookPath("systemctl"); err == nil {
		if _, err := os.Stat("/run/systemd/system"); err == nil {
			return BackendSystemd
		}
	}
	return BackendCron
}

func defaultLogDir(home string) string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "ocsync", "logs")
	}
	return filepath.Join(home, ".local", "state", "ocsync", "logs")
}

// writeFileAtomic writes data to path through a temporary file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// shellQuote quotes s for /bin/sh.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' || r == '=' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
