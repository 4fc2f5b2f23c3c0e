package ingestion

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("ingestion record not found")

// Repository keeps ingestion_requests rows. Rows are written once on
// acceptance and then only change status or attempt counters.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusAccepted
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// SetStatus moves a record to status. reason is cleared when empty so a
// published record does not carry an earlier attempt's error.
func (r *Repository) SetStatus(ctx context.Context, id, status, reason string) error {
	result := r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"error":      reason,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFailedAttempt counts one failed publish of the record's text.
func (r *Repository) RecordFailedAttempt(ctx context.Context, id string, cause error) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&Record{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":  gorm.Expr("retry_count + 1"),
			"error":        cause.Error(),
			"last_attempt": now,
			"updated_at":   now,
		}).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PurgeSettled deletes published and failed records created before cutoff.
// Accepted rows are still in flight and stay.
func (r *Repository) PurgeSettled(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND status IN ?", cutoff, []string{StatusPublished, StatusFailed}).
		Delete(&Record{})
	return result.RowsAffected, result.Error
}
