package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	AssignedSubjects(ctx context.Context, teacherID string) ([]models.ClassSubject, error)
}

// TeacherService manages the teacher roster.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService instance.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns a filtered page of teachers with the total count.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, total, nil
}

// Get returns a single teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	now := time.Now().UTC()
	teacher := &models.Teacher{
		ID:               uuid.NewString(),
		FullName:         req.FullName,
		Subjects:         req.Subjects,
		Sections:         req.Sections,
		MaxPeriodsPerDay: req.MaxPeriodsPerDay,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if teacher.Sections == nil {
		teacher.Sections = []string{}
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacherId", teacher.ID))
	return teacher, nil
}

// Update rewrites the teacher attributes. Removing a subject the teacher
// currently covers in a curriculum is rejected.
func (s *TeacherService) Update(ctx context.Context, id string, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.AssignedSubjects(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignments")
	}
	keeps := make(map[string]bool, len(req.Subjects))
	for _, subject := range req.Subjects {
		keeps[subject] = true
	}
	for _, cs := range assigned {
		if !keeps[cs.Subject] {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("subject %s is still assigned to class %s", cs.Subject, cs.ClassID))
		}
	}

	existing.FullName = req.FullName
	existing.Subjects = req.Subjects
	existing.Sections = req.Sections
	if existing.Sections == nil {
		existing.Sections = []string{}
	}
	existing.MaxPeriodsPerDay = req.MaxPeriodsPerDay
	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return existing, nil
}

// Delete removes a teacher. Teachers referenced by any curriculum row
// cannot be removed.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	assigned, err := s.repo.AssignedSubjects(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignments")
	}
	if len(assigned) > 0 {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("teacher is assigned to %d curriculum entries", len(assigned)))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.String("teacherId", id))
	return nil
}
