package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/raito-kakutani/timable/internal/models"
)

// ClassRepository manages classes together with their curriculum rows.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching filters along with total count. Subjects
// are loaded for every returned class.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.SchoolClass, int, error) {
	base := "FROM classes WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(id) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"id":         true,
		"grade":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "id"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, grade, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	if err := r.attachSubjects(ctx, classes); err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// ListAll returns every class with its curriculum, for solver snapshots.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.SchoolClass, error) {
	const query = `SELECT id, grade, created_at, updated_at FROM classes ORDER BY id ASC`
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	if err := r.attachSubjects(ctx, classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// FindByID fetches a class and its curriculum rows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	const query = `SELECT id, grade, created_at, updated_at FROM classes WHERE id = $1`
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	classes := []models.SchoolClass{class}
	if err := r.attachSubjects(ctx, classes); err != nil {
		return nil, err
	}
	return &classes[0], nil
}

func (r *ClassRepository) attachSubjects(ctx context.Context, classes []models.SchoolClass) error {
	if len(classes) == 0 {
		return nil
	}
	ids := make([]string, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	query, args, err := sqlx.In(`SELECT id, class_id, subject, weekly_periods, teacher_id, position, created_at FROM class_subjects WHERE class_id IN (?) ORDER BY class_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build class subjects query: %w", err)
	}
	query = r.db.Rebind(query)

	var subjects []models.ClassSubject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return fmt.Errorf("load class subjects: %w", err)
	}

	byClass := make(map[string][]models.ClassSubject, len(classes))
	for _, s := range subjects {
		byClass[s.ClassID] = append(byClass[s.ClassID], s)
	}
	for i := range classes {
		classes[i].Subjects = byClass[classes[i].ID]
	}
	return nil
}

// Create inserts a class and its curriculum rows in one transaction.
func (r *ClassRepository) Create(ctx context.Context, class *models.SchoolClass) error {
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `INSERT INTO classes (id, grade, created_at, updated_at) VALUES (:id, :grade, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, class); err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	if err := insertClassSubjects(ctx, tx, class.ID, class.Subjects); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// ReplaceSubjects swaps the entire curriculum of a class atomically.
func (r *ClassRepository) ReplaceSubjects(ctx context.Context, classID string, subjects []models.ClassSubject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace subjects: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class subjects: %w", err)
	}
	if err := insertClassSubjects(ctx, tx, classID, subjects); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE classes SET updated_at = $2 WHERE id = $1`, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch class: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace subjects: %w", err)
	}
	return nil
}

func insertClassSubjects(ctx context.Context, tx *sqlx.Tx, classID string, subjects []models.ClassSubject) error {
	const insert = `INSERT INTO class_subjects (id, class_id, subject, weekly_periods, teacher_id, position, created_at) VALUES (:id, :class_id, :subject, :weekly_periods, :teacher_id, :position, :created_at)`
	now := time.Now().UTC()
	for i := range subjects {
		if subjects[i].ID == "" {
			subjects[i].ID = uuid.NewString()
		}
		subjects[i].ClassID = classID
		subjects[i].Position = i
		if subjects[i].CreatedAt.IsZero() {
			subjects[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, subjects[i]); err != nil {
			return fmt.Errorf("insert class subject %s: %w", subjects[i].Subject, err)
		}
	}
	return nil
}

// Update modifies class attributes without touching the curriculum.
func (r *ClassRepository) Update(ctx context.Context, class *models.SchoolClass) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET grade = :grade, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("class rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a class and its curriculum rows.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class subjects: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("class rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
