// Package failure tracks consecutive sync failures per destination.
//
// A destination with no record is healthy. Every failed run increments its
// count; every successful run deletes the record. Crossing the threshold is only
// reported, never acted upon: repairing divergent replicas is an explicit resync.
package failure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultThreshold is the failure count from which status recommends a resync.
const DefaultThreshold = 3

// Record is the persisted failure streak.
type Record struct {
	Name      string `gorm:"primaryKey;size:128"`
	Count     int    `gorm:"not null"`
	LastError string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName specifies the table name for Record.
func (Record) TableName() string {
	return "failure_records"
}

// Tracker records outcomes of sync runs.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a Tracker.
func New(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// Migrate creates the failure table.
func (t *Tracker) Migrate() error {
	return t.db.AutoMigrate(&Record{})
}

// RecordSuccess ends any failure streak for name.
func (t *Tracker) RecordSuccess(ctx context.Context, name string) error {
	if err := t.db.WithContext(ctx).Where("name = ?", name).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to reset failures for %s: %w", name, err)
	}
	return nil
}

// Reset is RecordSuccess under the name used by destination cleanup.
func (t *Tracker) Reset(ctx context.Context, name string) error {
	return t.RecordSuccess(ctx, name)
}

// RecordFailure increments the streak for name and returns the new count.
func (t *Tracker) RecordFailure(ctx context.Context, name string, cause error) (int, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	var count int
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := Record{Name: name, Count: 1, LastError: msg, UpdatedAt: t.now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"last_error": msg,
				"updated_at": rec.UpdatedAt,
			}),
		}).Create(&rec).Error; err != nil {
			return err
		}

		var stored Record
		if err := tx.Where("name = ?", name).Take(&stored).Error; err != nil {
			return err
		}
		count = stored.Count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record failure for %s: %w", name, err)
	}
	return count, nil
}

// Get returns the current streak for name, 0 when healthy.
func (t *Tracker) Get(ctx context.Context, name string) (int, error) {
	rec, err := t.Lookup(ctx, name)
	if err != nil || rec == nil {
		return 0, err
	}
	return rec.Count, nil
}

// Lookup returns the full record for name, or nil when healthy.
func (t *Tracker) Lookup(ctx context.Context, name string) (*Record, error) {
	var rec Record
	err := t.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read failures for %s: %w", name, err)
	}
	return &rec, nil
}
