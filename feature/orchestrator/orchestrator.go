package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ocsync/core/apperr"
	"ocsync/core/engine"
	"ocsync/core/failure"
	"ocsync/core/lock"
	"ocsync/core/logger"
	"ocsync/core/reconcile"
	"ocsync/core/schedule"
	"ocsync/feature/destination"
)

// RemoteChecker reports whether the shared remote is reachable.
type RemoteChecker interface {
	Check(ctx context.Context) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Registry   *destination.Registry
	Locks      *lock.Locker
	Failures   *failure.Tracker
	Controller *reconcile.Controller
	Schedule   schedule.Manager
	// Remote is optional; when set, runs are refused while it is unreachable.
	Remote RemoteChecker
	// Threshold is the failure streak at which a resync is recommended.
	Threshold int
	Logger    *zap.Logger
}

// Orchestrator coordinates destination runs.
type Orchestrator struct {
	Deps
}

// New creates an Orchestrator and registers the cleanups that run when a
// destination is removed.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Threshold <= 0 {
		deps.Threshold = failure.DefaultThreshold
	}
	o := &Orchestrator{Deps: deps}

	o.Registry.OnRemove("schedule", o.Schedule.Uninstall)
	o.Registry.OnRemove("lock", o.Locks.Purge)
	o.Registry.OnRemove("failures", o.Failures.Reset)
	o.Registry.OnRemove("baseline", o.Controller.Forget)
	return o
}

// Report describes the outcome of one destination run.
type Report struct {
	Name  string `json:"name"`
	RunID string `json:"run_id"`
	// Skipped is set when another live process held the lock.
	Skipped bool `json:"skipped"`
	// Result is the engine result; nil when the engine did not run.
	Result *engine.Result `json:"result,omitempty"`
	// Failures is the failure streak after the run.
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`

	started time.Time
}

// Sync runs an incremental pass for name.
func (o *Orchestrator) Sync(ctx context.Context, name string) (*Report, error) {
	if _, err := o.Registry.Get(name); err != nil {
		return nil, err
	}
	if err := o.checkRemote(ctx); err != nil {
		return nil, err
	}
	return o.sync(ctx, name)
}

// SyncAll syncs every destination in name order. Errors are joined.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]*Report, error) {
	dests, err := o.Registry.List()
	if err != nil {
		return nil, err
	}
	if len(dests) == 0 {
		o.Logger.Info("No destinations registered")
		return nil, nil
	}
	if err := o.checkRemote(ctx); err != nil {
		return nil, err
	}

	var (
		reports []*Report
		errs    []error
	)
	for _, d := range dests {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rep, err := o.sync(ctx, d.Name)
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func (o *Orchestrator) sync(ctx context.Context, name string) (*Report, error) {
	const op = "orchestrator.sync"

	dest, err := o.Registry.Get(name)
	if err != nil {
		return nil, err
	}

	rep, log, release, err := o.begin(ctx, name)
	if err != nil || rep.Skipped {
		return rep, err
	}
	defer release()

	log.Info("Starting sync",
		zap.String("local_path", dest.LocalPath),
		zap.String("remote_path", dest.RemotePath))

	res, err := o.Controller.Sync(ctx, target(dest))
	rep.Result = res
	rep.Duration = time.Since(rep.started)
	return o.finish(ctx, op, log, rep, err)
}

// Resync re-derives the baseline of name using mode.
func (o *Orchestrator) Resync(ctx context.Context, name string, mode engine.Mode) (*Report, error) {
	const op = "orchestrator.resync"

	dest, err := o.Registry.Get(name)
	if err != nil {
		return nil, err
	}
	if err := o.checkRemote(ctx); err != nil {
		return nil, err
	}

	rep, log, release, err := o.begin(ctx, name)
	if err != nil || rep.Skipped {
		return rep, err
	}
	defer release()

	if mode == "" {
		mode = engine.DefaultMode
	}
	log.Info("Starting resync",
		zap.String("mode", string(mode)),
		zap.String("local_path", dest.LocalPath),
		zap.String("remote_path", dest.RemotePath))

	res, err := o.Controller.Resync(ctx, target(dest), reconcile.ResyncOptions{Mode: mode})
	rep.Result = res
	rep.Duration = time.Since(rep.started)
	return o.finish(ctx, op, log, rep, err)
}

// begin takes the lock for name. When the lock is busy the returned report is
// marked skipped and release is nil.
func (o *Orchestrator) begin(ctx context.Context, name string) (*Report, *zap.Logger, func(), error) {
	rep := &Report{Name: name, RunID: uuid.NewString(), started: time.Now()}
	log := logger.WithRunID(o.Logger, rep.RunID).With(zap.String("destination", name))

	outcome, err := o.Locks.TryAcquire(ctx, name)
	if err != nil {
		return nil, log, nil, fmt.Errorf("failed to acquire lock for %s: %w", name, err)
	}
	if outcome == lock.Busy {
		log.Info("Another run holds the lock, skipping")
		rep.Skipped = true
		return rep, log, nil, nil
	}

	release := func() {
		// Release must run even when ctx was cancelled by a signal.
		if err := o.Locks.Release(context.WithoutCancel(ctx), name); err != nil {
			log.Error("Failed to release lock", zap.Error(err))
		}
	}
	return rep, log, release, nil
}

// finish updates the failure streak from err.
func (o *Orchestrator) finish(ctx context.Context, op string, log *zap.Logger, rep *Report, runErr error) (*Report, error) {
	store := context.WithoutCancel(ctx)

	if runErr == nil {
		if err := o.Failures.RecordSuccess(store, rep.Name); err != nil {
			return rep, err
		}
		log.Info("Run finished", zap.Duration("duration", rep.Duration))
		return rep, nil
	}

	if !apperr.Is(runErr, apperr.KindEngineFailure) {
		// Refusals such as a missing baseline are not part of a failure streak.
		count, err := o.Failures.Get(store, rep.Name)
		if err != nil {
			log.Warn("Failed to read failure streak", zap.Error(err))
		}
		rep.Failures = count
		return rep, runErr
	}

	count, err := o.Failures.RecordFailure(store, rep.Name, runErr)
	if err != nil {
		return rep, errors.Join(runErr, err)
	}
	rep.Failures = count

	fields := []zap.Field{zap.Error(runErr), zap.Int("failures", count)}
	if rep.Result != nil {
		fields = append(fields, zap.Int("exit_code", rep.Result.ExitCode), zap.String("outcome", string(rep.Result.Outcome)))
	}
	log.Error("Run failed", fields...)

	if count >= o.Threshold {
		return rep, apperr.New(apperr.KindEngineFailure, op, rep.Name,
			fmt.Sprintf("sync failed %d times in a row", count), runErr,
			fmt.Sprintf("resync %s", rep.Name))
	}
	return rep, runErr
}

func (o *Orchestrator) checkRemote(ctx context.Context) error {
	if o.Remote == nil {
		return nil
	}
	return o.Remote.Check(ctx)
}

func target(d *destination.Destination) reconcile.Target {
	return reconcile.Target{
		Name:       d.Name,
		LocalPath:  d.LocalPath,
		RemotePath: d.RemotePath,
		Excludes:   d.Excludes,
	}
}
