package cmd

import (
	"fmt"
	"os"
	"time"

	"ocsync/core/config"
	"ocsync/core/database"
	"ocsync/core/engine"
	"ocsync/core/failure"
	"ocsync/core/lock"
	"ocsync/core/logger"
	"ocsync/core/mount"
	"ocsync/core/reconcile"
	"ocsync/core/remote"
	"ocsync/core/runner"
	"ocsync/core/schedule"
	"ocsync/feature/destination"
	"ocsync/feature/orchestrator"
	"ocsync/feature/status"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app wires every component for one command invocation.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	runner runner.Runner

	engine     *engine.Rclone
	remote     *remote.Checker
	registry   *destination.Registry
	locks      *lock.Locker
	failures   *failure.Tracker
	controller *reconcile.Controller
	schedule   schedule.Manager
	orch       *orchestrator.Orchestrator
}

// loadConfig loads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// newApp loads configuration, opens the state database and builds the orchestrator.
func newApp() (*app, error) {
	cfg, l, err := loadConfig()
	if err != nil {
		return nil, err
	}

	stateCfg := cfg.State
	if stateCfg.Driver == "sqlite" && stateCfg.Path == "" {
		if stateCfg.Path, err = database.DefaultPath(); err != nil {
			return nil, err
		}
	}
	db, err := database.Connect(stateCfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, &lock.Record{}, &failure.Record{}, &reconcile.Baseline{}); err != nil {
		return nil, err
	}

	r := runner.New()
	eng := engine.NewRclone(cfg.Engine, cfg.Remote.Name, r)
	// Show engine progress when a person is watching.
	if term.IsTerminal(int(os.Stderr.Fd())) {
		eng.WithOutput(nil, os.Stderr)
	}

	sched, err := schedule.New(cfg.Schedule, scheduleAction(cfg), r, schedule.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	a := &app{
		cfg:        cfg,
		log:        l,
		db:         db,
		runner:     r,
		engine:     eng,
		remote:     remote.NewChecker(cfg.Remote, eng),
		registry:   destination.NewRegistry(cfg.DestinationsDir(), l),
		locks:      lock.New(db),
		failures:   failure.New(db),
		controller: reconcile.NewController(reconcile.NewBaselines(db), eng, l),
		schedule:   sched,
	}
	a.orch = orchestrator.New(orchestrator.Deps{
		Registry:   a.registry,
		Locks:      a.locks,
		Failures:   a.failures,
		Controller: a.controller,
		Schedule:   a.schedule,
		Remote:     a.remote,
		Threshold:  cfg.Sync.Threshold(),
		Logger:     l,
	})
	return a, nil
}

// scheduleAction is the command each periodic trigger runs.
func scheduleAction(cfg *config.Config) schedule.Action {
	action := schedule.Action{Executable: cfg.Schedule.Executable}
	if configDir != "" {
		action.GlobalArgs = []string{"--config-dir", cfg.Dir}
	}
	return action
}

// mounter builds the browse mount for cfg.
func mounter(cfg *config.Config, r runner.Runner, l *zap.Logger) (*mount.Mounter, error) {
	mp, err := cfg.Remote.ResolvedMountPoint()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mount point: %w", err)
	}
	return mount.New(mount.Options{
		Binary:      cfg.Engine.Binary,
		Remote:      cfg.Remote.Name,
		MountPoint:  mp,
		CachePolicy: cfg.Remote.CachePolicy,
	}, r, l), nil
}

// reporter builds the status reporter.
func (a *app) reporter(ttl time.Duration) (*status.Reporter, error) {
	m, err := mounter(a.cfg, a.runner, a.log)
	if err != nil {
		return nil, err
	}
	return status.NewReporter(status.Sources{
		Registry:   a.registry,
		Locks:      a.locks,
		Failures:   a.failures,
		Controller: a.controller,
		Schedule:   a.schedule,
		Remote:     a.remote,
		Mount:      m,
		RemoteURL:  a.cfg.Remote.URL,
		Threshold:  a.cfg.Sync.Threshold(),
		Logger:     a.log,
	}, ttl), nil
}

// Close releases the state database and flushes the logger.
func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
