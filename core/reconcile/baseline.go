package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Baselines persists baseline records.
type Baselines struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBaselines creates a baseline store.
func NewBaselines(db *gorm.DB) *Baselines {
	return &Baselines{db: db, now: time.Now}
}

// Migrate creates the baseline table.
func (s *Baselines) Migrate() error {
	return s.db.AutoMigrate(&Baseline{})
}

// Get returns the baseline for name, or nil when none exists.
func (s *Baselines) Get(ctx context.Context, name string) (*Baseline, error) {
	var b Baseline
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline for %s: %w", name, err)
	}
	return &b, nil
}

// Begin replaces any baseline for t with a pending one.
func (s *Baselines) Begin(ctx context.Context, t Target, opts ResyncOptions) error {
	b := Baseline{
		Name:       t.Name,
		LocalPath:  t.LocalPath,
		RemotePath: t.RemotePath,
		Mode:       opts.Mode,
		Status:     BaselinePending,
		StartedAt:  s.now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&b).Error
	if err != nil {
		return fmt.Errorf("failed to start baseline for %s: %w", t.Name, err)
	}
	return nil
}

// Establish marks the pending baseline for name as complete.
func (s *Baselines) Establish(ctx context.Context, name string) error {
	now := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&Baseline{}).
		Where("name = ?", name).
		Updates(map[string]any{"status": BaselineEstablished, "established_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to establish baseline for %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no pending baseline for %s", name)
	}
	return nil
}

// Delete removes the baseline for name. Deleting a missing baseline is not an error.
func (s *Baselines) Delete(ctx context.Context, name string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Baseline{}).Error; err != nil {
		return fmt.Errorf("failed to delete baseline for %s: %w", name, err)
	}
	return nil
}
