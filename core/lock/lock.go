// Package lock provides per-destination mutual exclusion across process invocations.
//
// A lock is a row in the state database keyed by destination name and holding the
// owner's process id and host. Acquisition is a conditional insert, so two processes
// racing for the same destination cannot both succeed. A row whose owner is no
// longer running is stale: it is removed and acquisition is retried once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ocsync/core/process"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome is the result of TryAcquire.
type Outcome int

const (
	// Acquired means the caller now owns the lock and must Release it.
	Acquired Outcome = iota
	// Busy means a live process owns the lock; the caller should skip its run.
	Busy
)

func (o Outcome) String() string {
	switch o {
	case Acquired:
		return "acquired"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Record is the persisted lock row.
type Record struct {
	Name       string `gorm:"primaryKey;size:128"`
	PID        int    `gorm:"column:pid;not null"`
	Hostname   string `gorm:"size:255;not null"`
	AcquiredAt time.Time
}

// TableName specifies the table name for Record.
func (Record) TableName() string {
	return "execution_locks"
}

// State describes a lock as seen by a reader.
type State string

const (
	// StateIdle means no lock row exists.
	StateIdle State = "idle"
	// StateRunning means a live process holds the lock.
	StateRunning State = "running"
	// StateStale means a row exists but its owner is gone.
	StateStale State = "stale"
)

// Locker acquires and releases destination locks.
type Locker struct {
	db       *gorm.DB
	checker  process.Checker
	pid      int
	hostname string
	now      func() time.Time
}

// Option customizes a Locker.
type Option func(*Locker)

// WithOwner overrides the process id and host recorded as owner.
func WithOwner(pid int, hostname string) Option {
	return func(l *Locker) {
		l.pid = pid
		l.hostname = hostname
	}
}

// WithChecker overrides the liveness check.
func WithChecker(c process.Checker) Option {
	return func(l *Locker) {
		l.checker = c
	}
}

// New creates a Locker owned by the current process.
func New(db *gorm.DB, opts ...Option) *Locker {
	l := &Locker{
		db:       db,
		checker:  process.OS,
		pid:      process.Self(),
		hostname: process.Hostname(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Migrate creates the lock table.
func (l *Locker) Migrate() error {
	return l.db.AutoMigrate(&Record{})
}

// TryAcquire takes the lock for name if it is free or stale.
func (l *Locker) TryAcquire(ctx context.Context, name string) (Outcome, error) {
	for attempt := 0; attempt < 2; attempt++ {
		inserted, err := l.insert(ctx, name)
		if err != nil {
			return Busy, err
		}
		if inserted {
			return Acquired, nil
		}

		rec, found, err := l.read(ctx, name)
		if err != nil {
			return Busy, err
		}
		if !found {
			// Released between our insert and read.
			continue
		}
		if l.alive(rec) {
			return Busy, nil
		}

		if err := l.db.WithContext(ctx).
			Where("name = ? AND pid = ? AND hostname = ?", rec.Name, rec.PID, rec.Hostname).
			Delete(&Record{}).Error; err != nil {
			return Busy, fmt.Errorf("failed to remove stale lock for %s: %w", name, err)
		}
	}
	return Busy, nil
}

// Release deletes the lock for name unconditionally.
func (l *Locker) Release(ctx context.Context, name string) error {
	if err := l.db.WithContext(ctx).Where("name = ?", name).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to release lock for %s: %w", name, err)
	}
	return nil
}

// Purge removes any lock state for a destination that is being deleted.
func (l *Locker) Purge(ctx context.Context, name string) error {
	return l.Release(ctx, name)
}

// Inspect reports the lock state for name without modifying it.
func (l *Locker) Inspect(ctx context.Context, name string) (State, *Record, error) {
	rec, found, err := l.read(ctx, name)
	if err != nil {
		return StateIdle, nil, err
	}
	if !found {
		return StateIdle, nil, nil
	}
	if l.alive(rec) {
		return StateRunning, rec, nil
	}
	return StateStale, rec, nil
}

func (l *Locker) insert(ctx context.Context, name string) (bool, error) {
	rec := Record{
		Name:       name,
		PID:        l.pid,
		Hostname:   l.hostname,
		AcquiredAt: l.now().UTC(),
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("failed to write lock for %s: %w", name, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (l *Locker) read(ctx context.Context, name string) (*Record, bool, error) {
	var rec Record
	err := l.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lock for %s: %w", name, err)
	}
	return &rec, true, nil
}

// alive treats locks held on other hosts as live: their pids cannot be checked here.
func (l *Locker) alive(rec *Record) bool {
	if rec.Hostname != l.hostname {
		return true
	}
	return l.checker.Alive(rec.PID)
}
