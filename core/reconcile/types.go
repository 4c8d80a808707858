package reconcile

import (
	"time"

	"ocsync/core/engine"
)

// State is the reconciliation state of a destination.
type State string

const (
	// Unseeded means no usable baseline exists; only a resync can proceed.
	Unseeded State = "unseeded"
	// Steady means a baseline exists and incremental sync is possible.
	Steady State = "steady"
	// Reconciling means a resync is re-deriving the baseline right now.
	Reconciling State = "reconciling"
)

// Target is the path pair the controller reconciles.
type Target struct {
	// Name is the destination name.
	Name string
	// LocalPath is the absolute local directory.
	LocalPath string
	// RemotePath is relative to the remote root.
	RemotePath string
	// Excludes are glob patterns the engine skips.
	Excludes []string
}

func (t Target) invocation() engine.Invocation {
	return engine.Invocation{
		Name:       t.Name,
		LocalPath:  t.LocalPath,
		RemotePath: t.RemotePath,
		Excludes:   t.Excludes,
	}
}

// BaselineStatus marks whether a baseline record is complete.
type BaselineStatus string

const (
	// BaselinePending is written when a resync starts.
	BaselinePending BaselineStatus = "pending"
	// BaselineEstablished is written when a resync succeeds.
	BaselineEstablished BaselineStatus = "established"
)

// Baseline records that a destination's path pair has been reconciled.
type Baseline struct {
	// Name is the destination name.
	Name string `gorm:"primaryKey;size:128" json:"name"`
	// LocalPath and RemotePath are the pair the baseline was derived for.
	LocalPath  string `gorm:"type:text;not null" json:"local_path"`
	RemotePath string `gorm:"type:text;not null" json:"remote_path"`
	// Mode is the mode used by the resync that derived the baseline.
	Mode engine.Mode `gorm:"size:16;not null" json:"mode"`
	// Status is pending while the resync runs.
	Status BaselineStatus `gorm:"size:16;not null" json:"status"`
	// StartedAt is when the resync began.
	StartedAt time.Time `json:"started_at"`
	// EstablishedAt is when the resync completed; zero while pending.
	EstablishedAt *time.Time `json:"established_at,omitempty"`
}

// TableName specifies the table name for Baseline.
func (Baseline) TableName() string {
	return "baselines"
}

// Matches reports whether the baseline was derived for t's path pair.
func (b *Baseline) Matches(t Target) bool {
	return b != nil && b.LocalPath == t.LocalPath && b.RemotePath == t.RemotePath
}

// ResyncOptions controls a resync.
type ResyncOptions struct {
	// Mode selects the authoritative side.
	Mode engine.Mode
}
