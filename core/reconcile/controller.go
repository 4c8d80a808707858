package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ocsync/core/apperr"
	"ocsync/core/engine"
)

// Controller drives the engine for a destination based on its baseline.
type Controller struct {
	baselines *Baselines
	engine    engine.Engine
	log       *zap.Logger
}

// NewController creates a controller.
func NewController(baselines *Baselines, eng engine.Engine, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{baselines: baselines, engine: eng, log: log}
}

// Baselines returns the underlying baseline store.
func (c *Controller) Baselines() *Baselines {
	return c.baselines
}

// State reports the reconciliation state of t. running tells whether a live
// process currently holds the destination's lock; a pending baseline without
// a running owner is an interrupted resync and counts as Unseeded.
func (c *Controller) State(ctx context.Context, t Target, running bool) (State, error) {
	b, err := c.baselines.Get(ctx, t.Name)
	if err != nil {
		return "", err
	}
	return stateOf(b, t, running), nil
}

func stateOf(b *Baseline, t Target, running bool) State {
	switch {
	case !b.Matches(t):
		return Unseeded
	case b.Status == BaselinePending && running:
		return Reconciling
	case b.Status == BaselinePending:
		return Unseeded
	default:
		return Steady
	}
}

// Sync runs an incremental pass for t. It refuses to run when t is not Steady.
// The caller must hold t's lock.
func (c *Controller) Sync(ctx context.Context, t Target) (*engine.Result, error) {
	const op = "reconcile.sync"

	b, err := c.baselines.Get(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if stateOf(b, t, false) != Steady {
		return nil, apperr.New(apperr.KindConfiguration, op, t.Name,
			fmt.Sprintf("destination %q has no baseline", t.Name), nil,
			fmt.Sprintf("resync %s [local|remote|newer]", t.Name))
	}

	res, err := c.engine.Run(ctx, t.invocation())
	if err == nil {
		return res, nil
	}

	if res != nil && res.Outcome == engine.Critical {
		c.log.Warn("Engine reported an unusable baseline, dropping it",
			zap.String("destination", t.Name),
			zap.Int("exit_code", res.ExitCode))
		if derr := c.baselines.Delete(ctx, t.Name); derr != nil {
			c.log.Error("Failed to drop baseline", zap.String("destination", t.Name), zap.Error(derr))
		}
		return res, apperr.Engine(op, t.Name, err, fmt.Sprintf("resync %s", t.Name))
	}
	return res, apperr.Engine(op, t.Name, err)
}

// Resync re-derives the baseline for t from scratch using opts.Mode. The caller
// must hold t's lock.
func (c *Controller) Resync(ctx context.Context, t Target, opts ResyncOptions) (*engine.Result, error) {
	const op = "reconcile.resync"

	if opts.Mode == "" {
		opts.Mode = engine.DefaultMode
	}
	if _, err := engine.ParseMode(string(opts.Mode)); err != nil {
		return nil, apperr.Configuration(op, "invalid reconciliation mode", err)
	}

	if err := c.baselines.Begin(ctx, t, opts); err != nil {
		return nil, err
	}

	inv := t.invocation()
	inv.Resync = true
	inv.Mode = opts.Mode

	c.log.Info("Re-deriving baseline",
		zap.String("destination", t.Name),
		zap.String("mode", string(opts.Mode)))

	res, err := c.engine.Run(ctx, inv)
	if err != nil {
		// A failed resync leaves no usable baseline.
		if derr := c.baselines.Delete(context.WithoutCancel(ctx), t.Name); derr != nil {
			c.log.Error("Failed to drop pending baseline", zap.String("destination", t.Name), zap.Error(derr))
		}
		return res, apperr.Engine(op, t.Name, err, fmt.Sprintf("resync %s %s", t.Name, opts.Mode))
	}

	if err := c.baselines.Establish(ctx, t.Name); err != nil {
		return res, err
	}
	return res, nil
}

// Forget removes the baseline for name.
func (c *Controller) Forget(ctx context.Context, name string) error {
	return c.baselines.Delete(ctx, name)
}
