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

type priorityRepository interface {
	ListAll(ctx context.Context) ([]models.PriorityConfig, error)
	FindByClass(ctx context.Context, classID string) (*models.PriorityConfig, error)
	Upsert(ctx context.Context, config *models.PriorityConfig) error
	Delete(ctx context.Context, classID string) error
}

type priorityClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.SchoolClass, error)
}

// PriorityService manages per-class scheduling preferences.
type PriorityService struct {
	repo      priorityRepository
	classes   priorityClassLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPriorityService constructs a PriorityService instance.
func NewPriorityService(repo priorityRepository, classes priorityClassLookup, validate *validator.Validate, logger *zap.Logger) *PriorityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PriorityService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// ListAll returns the preferences of every class.
func (s *PriorityService) ListAll(ctx context.Context) ([]models.PriorityConfig, error) {
	configs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list priorities")
	}
	return configs, nil
}

// Get returns the preferences of one class.
func (s *PriorityService) Get(ctx context.Context, classID string) (*models.PriorityConfig, error) {
	config, err := s.repo.FindByClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no priority configuration for class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch priorities")
	}
	return config, nil
}

// Put stores the preferences of one class. Every named subject must be on
// the class curriculum.
func (s *PriorityService) Put(ctx context.Context, classID string, req dto.PriorityRequest) (*models.PriorityConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid priority payload")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	onCurriculum := make(map[string]bool, len(class.Subjects))
	for _, cs := range class.Subjects {
		onCurriculum[cs.Subject] = true
	}
	for _, group := range [][]string{req.PrioritySubjects, req.WeakSubjects, req.HeavySubjects} {
		for _, subject := range group {
			if !onCurriculum[subject] {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("subject %s is not on the curriculum of %s", subject, classID))
			}
		}
	}

	now := time.Now().UTC()
	config := &models.PriorityConfig{
		ID:               uuid.NewString(),
		ClassID:          classID,
		PrioritySubjects: emptyIfNil(req.PrioritySubjects),
		WeakSubjects:     emptyIfNil(req.WeakSubjects),
		HeavySubjects:    emptyIfNil(req.HeavySubjects),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Upsert(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store priorities")
	}
	s.logger.Info("priorities stored", zap.String("classId", classID))
	return config, nil
}

// Delete removes the preferences of one class.
func (s *PriorityService) Delete(ctx context.Context, classID string) error {
	if err := s.repo.Delete(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no priority configuration for class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete priorities")
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
