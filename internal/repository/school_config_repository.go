package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/raito-kakutani/timable/internal/models"
)

// SchoolConfigRepository stores the single active school-week layout.
type SchoolConfigRepository struct {
	db *sqlx.DB
}

// NewSchoolConfigRepository constructs a SchoolConfigRepository.
func NewSchoolConfigRepository(db *sqlx.DB) *SchoolConfigRepository {
	return &SchoolConfigRepository{db: db}
}

// schoolConfigRow maps the relational shape: days as text[], breaks as
// a jsonb object keyed by stringified period index.
type schoolConfigRow struct {
	ID            string         `db:"id"`
	Days          pq.StringArray `db:"days"`
	PeriodsPerDay int            `db:"periods_per_day"`
	Breaks        types.JSONText `db:"breaks"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (row schoolConfigRow) toModel() (models.SchoolConfig, error) {
	cfg := models.SchoolConfig{
		ID:            row.ID,
		Days:          row.Days,
		PeriodsPerDay: row.PeriodsPerDay,
		Breaks:        map[int]string{},
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.Breaks) == 0 {
		return cfg, nil
	}
	raw := map[string]string{}
	if err := json.Unmarshal(row.Breaks, &raw); err != nil {
		return models.SchoolConfig{}, fmt.Errorf("decode breaks: %w", err)
	}
	for key, name := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return models.SchoolConfig{}, fmt.Errorf("decode break period %q: %w", key, err)
		}
		cfg.Breaks[idx] = name
	}
	return cfg, nil
}

func rowFromModel(cfg models.SchoolConfig) (schoolConfigRow, error) {
	raw := map[string]string{}
	for idx, name := range cfg.Breaks {
		raw[strconv.Itoa(idx)] = name
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return schoolConfigRow{}, fmt.Errorf("encode breaks: %w", err)
	}
	return schoolConfigRow{
		ID:            cfg.ID,
		Days:          pq.StringArray(cfg.Days),
		PeriodsPerDay: cfg.PeriodsPerDay,
		Breaks:        types.JSONText(encoded),
		CreatedAt:     cfg.CreatedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}, nil
}

// Get returns the active school configuration. sql.ErrNoRows is passed
// through when none has been stored yet.
func (r *SchoolConfigRepository) Get(ctx context.Context) (*models.SchoolConfig, error) {
	const query = `SELECT id, days, periods_per_day, breaks, created_at, updated_at FROM school_config ORDER BY updated_at DESC LIMIT 1`
	var row schoolConfigRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}
	cfg, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert replaces the school configuration, keeping a single row.
func (r *SchoolConfigRepository) Upsert(ctx context.Context, cfg *models.SchoolConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	row, err := rowFromModel(*cfg)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert school config: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM school_config WHERE id <> $1`, row.ID); err != nil {
		return fmt.Errorf("prune school config: %w", err)
	}
	const upsert = `INSERT INTO school_config (id, days, periods_per_day, breaks, created_at, updated_at)
		VALUES (:id, :days, :periods_per_day, :breaks, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET days = EXCLUDED.days, periods_per_day = EXCLUDED.periods_per_day, breaks = EXCLUDED.breaks, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
		return fmt.Errorf("upsert school config: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert school config: %w", err)
	}
	return nil
}
