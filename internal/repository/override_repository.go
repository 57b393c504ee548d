package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

const overrideSelect = `SELECT date::text AS date, is_open, daily_limit, note, updated_by, updated_at FROM daily_overrides`

// OverrideRepository manages staff-set daily overrides.
type OverrideRepository struct {
	reservationQueries
	db *sqlx.DB
}

// NewOverrideRepository creates a new instance of OverrideRepository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{reservationQueries: reservationQueries{ext: db}, db: db}
}

// Upsert creates or replaces the override for its date.
func (r *OverrideRepository) Upsert(ctx context.Context, override *models.DailyOverride) error {
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO daily_overrides (date, is_open, daily_limit, note, updated_by, updated_at) VALUES (:date, :is_open, :daily_limit, :note, :updated_by, :updated_at)
ON CONFLICT (date) DO UPDATE SET is_open = EXCLUDED.is_open, daily_limit = EXCLUDED.daily_limit, note = EXCLUDED.note, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// ListRange returns overrides between from and to inclusive.
func (r *OverrideRepository) ListRange(ctx context.Context, from, to string) ([]models.DailyOverride, error) {
	query := overrideSelect + ` WHERE date BETWEEN $1 AND $2 ORDER BY date ASC`
	var items []models.DailyOverride
	if err := r.db.SelectContext(ctx, &items, query, from, to); err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return items, nil
}
