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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.SchoolClass, int, error)
	FindByID(ctx context.Context, id string) (*models.SchoolClass, error)
	Create(ctx context.Context, class *models.SchoolClass) error
	ReplaceSubjects(ctx context.Context, classID string, subjects []models.ClassSubject) error
	Update(ctx context.Context, class *models.SchoolClass) error
	Delete(ctx context.Context, id string) error
}

type classTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classConfigLookup interface {
	Get(ctx context.Context) (*models.SchoolConfig, error)
}

// ClassService manages class sections and their curricula.
type ClassService struct {
	repo      classRepository
	teachers  classTeacherLookup
	configs   classConfigLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, teachers classTeacherLookup, configs classConfigLookup, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, teachers: teachers, configs: configs, validator: validate, logger: logger}
}

// List returns a filtered page of classes with the total count.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.SchoolClass, int, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, total, nil
}

// Get returns a single class with its curriculum.
func (s *ClassService) Get(ctx context.Context, id string) (*models.SchoolClass, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	return class, nil
}

// Create registers a class together with its curriculum rows.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	subjects, err := s.buildCurriculum(ctx, req.ID, req.Subjects)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	class := &models.SchoolClass{
		ID:        req.ID,
		Grade:     req.Grade,
		Subjects:  subjects,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("classId", class.ID), zap.Int("subjects", len(subjects)))
	return class, nil
}

// Update changes the grade and, when subjects are supplied, replaces the
// whole curriculum.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassUpdateRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Grade != "" {
		class.Grade = req.Grade
		class.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, class); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
		}
	}
	if len(req.Subjects) > 0 {
		subjects, err := s.buildCurriculum(ctx, id, req.Subjects)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceSubjects(ctx, id, subjects); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace curriculum")
		}
		class.Subjects = subjects
	}
	return class, nil
}

// Delete removes a class and its curriculum.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.logger.Info("class deleted", zap.String("classId", id))
	return nil
}

// buildCurriculum validates curriculum rows against the roster and the
// week shape, then materialises them in request order.
func (s *ClassService) buildCurriculum(ctx context.Context, classID string, rows []dto.ClassSubjectRequest) ([]models.ClassSubject, error) {
	config, err := s.configs.Get(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school config")
	}

	seen := make(map[string]bool, len(rows))
	demand := 0
	subjects := make([]models.ClassSubject, 0, len(rows))
	for i, row := range rows {
		if seen[row.Subject] {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("subject %s appears more than once", row.Subject))
		}
		seen[row.Subject] = true
		demand += row.WeeklyPeriods

		teacher, err := s.teachers.FindByID(ctx, row.TeacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("teacher %s does not exist", row.TeacherID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
		}
		if !teacher.Teaches(row.Subject) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("teacher %s is not qualified for %s", teacher.FullName, row.Subject))
		}
		if !teacher.CoversSection(classID) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("teacher %s does not cover section %s", teacher.FullName, classID))
		}

		subjects = append(subjects, models.ClassSubject{
			ID:            uuid.NewString(),
			ClassID:       classID,
			Subject:       row.Subject,
			WeeklyPeriods: row.WeeklyPeriods,
			TeacherID:     row.TeacherID,
			Position:      i,
			CreatedAt:     time.Now().UTC(),
		})
	}

	if config != nil {
		capacity := len(config.Days) * config.TeachingPeriodsPerDay()
		if demand > capacity {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("curriculum demands %d periods but the week offers %d", demand, capacity))
		}
	}
	return subjects, nil
}
