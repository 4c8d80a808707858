package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ocsync/core/apperr"
	"ocsync/core/engine"
	"ocsync/core/lock"
	"ocsync/core/reconcile"
	"ocsync/feature/destination"
)

// ErrModeRequired is returned by Install for a destination without a baseline
// when no reconciliation mode was chosen.
var ErrModeRequired = errors.New("reconciliation mode required")

// InstallOptions are the arguments of Install.
type InstallOptions struct {
	destination.Update
	// Mode seeds an unseeded destination. Ignored when a baseline exists.
	Mode engine.Mode
}

// InstallReport describes what Install did.
type InstallReport struct {
	Destination *destination.Destination `json:"destination"`
	Created     bool                     `json:"created"`
	// Seed is the resync report when the destination had to be seeded.
	Seed *Report `json:"seed,omitempty"`
}

// Install registers or updates name, seeds its baseline when needed and
// installs its periodic trigger. A destination without a baseline is never
// scheduled until a mode has been chosen.
func (o *Orchestrator) Install(ctx context.Context, name string, opts InstallOptions) (*InstallReport, error) {
	const op = "orchestrator.install"

	dest, created, err := o.Registry.AddOrUpdate(name, opts.Update)
	if err != nil {
		return nil, err
	}
	rep := &InstallReport{Destination: dest, Created: created}
	log := o.Logger.With(zap.String("destination", name))

	state, err := o.State(ctx, dest)
	if err != nil {
		return rep, err
	}

	switch {
	case state == reconcile.Unseeded && opts.Mode == "":
		return rep, apperr.New(apperr.KindConfiguration, op, name,
			fmt.Sprintf("destination %q has no baseline", name), ErrModeRequired,
			fmt.Sprintf("install %s --mode local|remote|newer", name))

	case state == reconcile.Unseeded:
		seed, err := o.Resync(ctx, name, opts.Mode)
		rep.Seed = seed
		if err != nil {
			return rep, err
		}
		if seed.Skipped {
			return rep, apperr.New(apperr.KindConfiguration, op, name,
				fmt.Sprintf("destination %q is being synced by another process", name), nil,
				fmt.Sprintf("install %s", name))
		}

	case opts.Mode != "":
		log.Info("Baseline already established, ignoring mode",
			zap.String("mode", string(opts.Mode)),
			zap.String("state", string(state)))
	}

	if err := o.Schedule.Install(ctx, name); err != nil {
		return rep, fmt.Errorf("failed to install schedule for %s: %w", name, err)
	}
	log.Info("Installed destination", zap.Bool("created", created))
	return rep, nil
}

// Uninstall removes the periodic trigger of name. The destination stays registered.
func (o *Orchestrator) Uninstall(ctx context.Context, name string) error {
	if _, err := o.Registry.Get(name); err != nil {
		return err
	}
	if err := o.Schedule.Uninstall(ctx, name); err != nil {
		return fmt.Errorf("failed to uninstall schedule for %s: %w", name, err)
	}
	o.Logger.Info("Uninstalled destination", zap.String("destination", name))
	return nil
}

// Remove unregisters name and deletes all state keyed by it. Local and remote
// files are left untouched. A destination with a running sync is not removed.
func (o *Orchestrator) Remove(ctx context.Context, name string) error {
	const op = "orchestrator.remove"

	if _, err := o.Registry.Get(name); err != nil {
		return err
	}
	state, rec, err := o.Locks.Inspect(ctx, name)
	if err != nil {
		return err
	}
	if state == lock.StateRunning {
		return apperr.New(apperr.KindConfiguration, op, name,
			fmt.Sprintf("destination %q is being synced by pid %d on %s", name, rec.PID, rec.Hostname), nil,
			fmt.Sprintf("sync rm %s", name))
	}
	return o.Registry.Remove(ctx, name)
}

// List returns all destinations sorted by name.
func (o *Orchestrator) List() ([]*destination.Destination, error) {
	return o.Registry.List()
}

// State returns the reconciliation state of dest.
func (o *Orchestrator) State(ctx context.Context, dest *destination.Destination) (reconcile.State, error) {
	lockState, _, err := o.Locks.Inspect(ctx, dest.Name)
	if err != nil {
		return "", err
	}
	return o.Controller.State(ctx, target(dest), lockState == lock.StateRunning)
}
