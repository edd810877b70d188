package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/raito-kakutani/timable/internal/models"
)

// PriorityRepository stores per-class scheduling preferences.
type PriorityRepository struct {
	db *sqlx.DB
}

// NewPriorityRepository constructs a PriorityRepository.
func NewPriorityRepository(db *sqlx.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

const priorityColumns = `id, class_id, priority_subjects, weak_subjects, heavy_subjects, created_at, updated_at`

// ListAll returns every stored priority configuration ordered by class.
func (r *PriorityRepository) ListAll(ctx context.Context) ([]models.PriorityConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM priority_configs ORDER BY class_id ASC", priorityColumns)
	var configs []models.PriorityConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list priority configs: %w", err)
	}
	return configs, nil
}

// FindByClass fetches the configuration for one class.
func (r *PriorityRepository) FindByClass(ctx context.Context, classID string) (*models.PriorityConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM priority_configs WHERE class_id = $1", priorityColumns)
	var config models.PriorityConfig
	if err := r.db.GetContext(ctx, &config, query, classID); err != nil {
		return nil, err
	}
	return &config, nil
}

// Upsert stores the configuration for a class, one row per class.
func (r *PriorityRepository) Upsert(ctx context.Context, config *models.PriorityConfig) error {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now

	const query = `INSERT INTO priority_configs (id, class_id, priority_subjects, weak_subjects, heavy_subjects, created_at, updated_at)
		VALUES (:id, :class_id, :priority_subjects, :weak_subjects, :heavy_subjects, :created_at, :updated_at)
		ON CONFLICT (class_id) DO UPDATE SET priority_subjects = EXCLUDED.priority_subjects, weak_subjects = EXCLUDED.weak_subjects, heavy_subjects = EXCLUDED.heavy_subjects, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("upsert priority config: %w", err)
	}
	return nil
}

// Delete removes the configuration for a class.
func (r *PriorityRepository) Delete(ctx context.Context, classID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM priority_configs WHERE class_id = $1`, classID)
	if err != nil {
		return fmt.Errorf("delete priority config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("priority config rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
