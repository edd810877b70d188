package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/raito-kakutani/timable/internal/models"
)

// TimetableRepository persists versioned rotation plans: a header row
// plus one slot row per lesson per week.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, version, status, weeks, penalty, meta, created_at, updated_at`

// CreateVersioned stores a solved plan as the next draft version. The
// header and every slot row are written in one transaction.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, timetable *models.Timetable, plan models.RotationPlan) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	timetable.Weeks = len(plan.Weeks)
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create timetable: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables`
	if err := tx.GetContext(ctx, &timetable.Version, nextVersionQuery); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertHeader = `INSERT INTO timetables (id, version, status, weeks, penalty, meta, created_at, updated_at)
		VALUES (:id, :version, :status, :weeks, :penalty, :meta, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertHeader, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}

	const insertSlot = `INSERT INTO timetable_slots (id, timetable_id, week, class_id, day, period, subject, teacher_id, created_at)
		VALUES (:id, :timetable_id, :week, :class_id, :day, :period, :subject, :teacher_id, :created_at)`
	for week, assignment := range plan.Weeks {
		for _, key := range assignment.SortedKeys() {
			lesson := assignment.Lessons[key]
			slot := models.TimetableSlot{
				ID:          uuid.NewString(),
				TimetableID: timetable.ID,
				Week:        week,
				ClassID:     key.ClassID,
				Day:         key.Day,
				Period:      key.Period,
				Subject:     lesson.Subject,
				TeacherID:   lesson.TeacherID,
				CreatedAt:   now,
			}
			if _, err := tx.NamedExecContext(ctx, insertSlot, slot); err != nil {
				return fmt.Errorf("insert timetable slot: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable header by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindPublished loads the currently published timetable header.
func (r *TimetableRepository) FindPublished(ctx context.Context) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE status = $1 ORDER BY version DESC LIMIT 1", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, models.TimetableStatusPublished); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// List returns all timetable headers newest version first.
func (r *TimetableRepository) List(ctx context.Context) ([]models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables ORDER BY version DESC", timetableColumns)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// LoadSlots returns every stored slot row of a timetable in grid order.
func (r *TimetableRepository) LoadSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	const query = `SELECT id, timetable_id, week, class_id, day, period, subject, teacher_id, created_at
		FROM timetable_slots WHERE timetable_id = $1 ORDER BY week, class_id, day, period`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("load timetable slots: %w", err)
	}
	return slots, nil
}

// Publish marks a timetable published and archives the previous one in
// the same transaction.
func (r *TimetableRepository) Publish(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish timetable: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE timetables SET status = $1, updated_at = $2 WHERE status = $3`,
		models.TimetableStatusArchived, now, models.TimetableStatusPublished); err != nil {
		return fmt.Errorf("archive published timetable: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3`,
		models.TimetableStatusPublished, now, id)
	if err != nil {
		return fmt.Errorf("publish timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// Delete removes a timetable and its slots.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete timetable: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE timetable_id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable slots: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
