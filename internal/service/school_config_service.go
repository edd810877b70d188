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

type schoolConfigRepository interface {
	Get(ctx context.Context) (*models.SchoolConfig, error)
	Upsert(ctx context.Context, cfg *models.SchoolConfig) error
}

// SchoolConfigService manages the single school-week configuration.
type SchoolConfigService struct {
	repo      schoolConfigRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolConfigService constructs a SchoolConfigService instance.
func NewSchoolConfigService(repo schoolConfigRepository, validate *validator.Validate, logger *zap.Logger) *SchoolConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolConfigService{repo: repo, validator: validate, logger: logger}
}

// Get returns the active school configuration.
func (s *SchoolConfigService) Get(ctx context.Context) (*models.SchoolConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school configuration not set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school config")
	}
	return cfg, nil
}

// Put replaces the school configuration.
func (s *SchoolConfigService) Put(ctx context.Context, req dto.SchoolConfigRequest) (*models.SchoolConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school config payload")
	}

	seen := make(map[string]bool, len(req.Days))
	for _, day := range req.Days {
		if seen[day] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %s appears more than once", day))
		}
		seen[day] = true
	}
	for period := range req.Breaks {
		if period < 0 || period >= req.PeriodsPerDay {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("break period %d is outside 0..%d", period, req.PeriodsPerDay-1))
		}
	}
	if len(req.Breaks) >= req.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "every period of the day is a break")
	}

	now := time.Now().UTC()
	cfg := &models.SchoolConfig{
		ID:            uuid.NewString(),
		Days:          req.Days,
		PeriodsPerDay: req.PeriodsPerDay,
		Breaks:        req.Breaks,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing, err := s.repo.Get(ctx); err == nil {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school config")
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store school config")
	}
	s.logger.Info("school config replaced",
		zap.Int("days", len(cfg.Days)),
		zap.Int("periodsPerDay", cfg.PeriodsPerDay))
	return cfg, nil
}
