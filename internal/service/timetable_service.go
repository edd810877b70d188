package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	"github.com/raito-kakutani/timable/internal/solver"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

// PublishedAlias addresses the currently published timetable in place of
// a concrete id.
const PublishedAlias = "published"

type timetableRepository interface {
	CreateVersioned(ctx context.Context, timetable *models.Timetable, plan models.RotationPlan) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindPublished(ctx context.Context) (*models.Timetable, error)
	List(ctx context.Context) ([]models.Timetable, error)
	LoadSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	Publish(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type rosterSource interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classSource interface {
	ListAll(ctx context.Context) ([]models.SchoolClass, error)
	FindByID(ctx context.Context, id string) (*models.SchoolClass, error)
}

type configSource interface {
	Get(ctx context.Context) (*models.SchoolConfig, error)
}

type prioritySource interface {
	ListAll(ctx context.Context) ([]models.PriorityConfig, error)
}

type viewCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type solveObserver interface {
	ObserveSolve(outcome string, elapsed time.Duration)
	CacheHit(view string)
	CacheMiss(view string)
}

// TimetableServiceConfig bounds solve runs and view caching.
type TimetableServiceConfig struct {
	SolveTimeout      time.Duration
	OptimizerMaxSwaps int
	HeavyWeight       int
	RotationWeeks     int
	RelaxDailyCaps    bool
	ViewCacheTTL      time.Duration
}

// TimetableService orchestrates timetable generation, storage, and the
// derived class and teacher views.
type TimetableService struct {
	repo       timetableRepository
	teachers   rosterSource
	classes    classSource
	configs    configSource
	priorities prioritySource
	cache      viewCache
	metrics    solveObserver
	validator  *validator.Validate
	logger     *zap.Logger
	config     TimetableServiceConfig
}

// NewTimetableService constructs a TimetableService instance. cache and
// metrics may be nil; the service then skips caching and observation.
func NewTimetableService(
	repo timetableRepository,
	teachers rosterSource,
	classes classSource,
	configs configSource,
	priorities prioritySource,
	cache viewCache,
	metrics solveObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	config TimetableServiceConfig,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SolveTimeout <= 0 {
		config.SolveTimeout = 5 * time.Second
	}
	if config.RotationWeeks <= 0 {
		config.RotationWeeks = 1
	}
	return &TimetableService{
		repo:       repo,
		teachers:   teachers,
		classes:    classes,
		configs:    configs,
		priorities: priorities,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// timetableMeta snapshots the week shape a timetable was solved against,
// so stored plans render correctly after the live config changes.
type timetableMeta struct {
	Days           []string       `json:"days"`
	PeriodsPerDay  int            `json:"periodsPerDay"`
	Breaks         map[int]string `json:"breaks,omitempty"`
	RelaxDailyCaps bool           `json:"relaxDailyCaps"`
	Stats          dto.SolveStats `json:"stats"`
}

// Solve runs the full generation pipeline and stores the result as a new
// draft version: snapshot inputs, search, optimize, rotate, persist.
func (s *TimetableService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}

	config, teachers, classes, priorities, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	relax := s.config.RelaxDailyCaps
	if req.RelaxDailyCaps != nil {
		relax = *req.RelaxDailyCaps
	}
	problem, err := solver.Build(*config, teachers, classes, solver.Options{
		HeavyWeight:    s.config.HeavyWeight,
		MaxSwaps:       s.config.OptimizerMaxSwaps,
		RelaxDailyCaps: relax,
	})
	if err != nil {
		s.observeSolve("rejected", 0)
		return nil, mapSolverError(err)
	}

	started := time.Now()
	solveCtx, cancel := context.WithTimeout(ctx, s.config.SolveTimeout)
	defer cancel()

	base, searchStats, err := problem.Solve(solveCtx)
	if err != nil {
		s.observeSolve(solveOutcome(err), time.Since(started))
		return nil, mapSolverError(err)
	}

	optimized, optStats := problem.Optimize(base, priorities)

	weeks := req.Weeks
	if weeks == 0 {
		weeks = s.config.RotationWeeks
	}
	plan, err := problem.Rotate(solveCtx, optimized, weeks)
	if err != nil {
		s.observeSolve(solveOutcome(err), time.Since(started))
		return nil, mapSolverError(err)
	}
	elapsed := time.Since(started)
	s.observeSolve("success", elapsed)

	stats := dto.SolveStats{
		Nodes:          searchStats.Nodes,
		Backtracks:     searchStats.Backtracks,
		ElapsedMS:      elapsed.Milliseconds(),
		Swaps:          optStats.Swaps,
		Moves:          optStats.Moves,
		InitialPenalty: optStats.InitialPenalty,
		FinalPenalty:   optStats.FinalPenalty,
	}
	meta, err := json.Marshal(timetableMeta{
		Days:           config.Days,
		PeriodsPerDay:  config.PeriodsPerDay,
		Breaks:         config.Breaks,
		RelaxDailyCaps: relax,
		Stats:          stats,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable meta")
	}

	now := time.Now().UTC()
	timetable := &models.Timetable{
		ID:        uuid.NewString(),
		Status:    models.TimetableStatusDraft,
		Weeks:     len(plan.Weeks),
		Penalty:   optStats.FinalPenalty,
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateVersioned(ctx, timetable, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}

	s.logger.Info("timetable solved",
		zap.String("timetableId", timetable.ID),
		zap.Int("version", timetable.Version),
		zap.Int("weeks", timetable.Weeks),
		zap.Int("penalty", timetable.Penalty),
		zap.Duration("elapsed", elapsed))

	return &dto.SolveResponse{Timetable: summarize(timetable), Stats: stats}, nil
}

// List returns every stored timetable, newest version first.
func (s *TimetableService) List(ctx context.Context) ([]dto.TimetableSummary, error) {
	timetables, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	summaries := make([]dto.TimetableSummary, 0, len(timetables))
	for i := range timetables {
		summaries = append(summaries, summarize(&timetables[i]))
	}
	return summaries, nil
}

// Get returns one timetable summary; id may be the published alias.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableSummary, error) {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := summarize(timetable)
	return &summary, nil
}

// Publish promotes a draft to the single published timetable; the
// previously published version is archived.
func (s *TimetableService) Publish(ctx context.Context, id string) (*dto.TimetableSummary, error) {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if timetable.Status != models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only drafts can be published")
	}
	if err := s.repo.Publish(ctx, timetable.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	s.invalidateViews(ctx, timetable.ID)
	s.logger.Info("timetable published", zap.String("timetableId", timetable.ID), zap.Int("version", timetable.Version))
	return s.Get(ctx, timetable.ID)
}

// Delete removes a timetable. Only drafts can be deleted.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if timetable.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only drafts can be deleted")
	}
	if err := s.repo.Delete(ctx, timetable.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidateViews(ctx, timetable.ID)
	s.logger.Info("timetable deleted", zap.String("timetableId", timetable.ID))
	return nil
}

// Validate re-checks every week of a stored timetable against the
// current roster, curricula, and week shape.
func (s *TimetableService) Validate(ctx context.Context, id string) (*dto.ValidateResponse, error) {
	timetable, plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	config, teachers, classes, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	relax := s.config.RelaxDailyCaps
	if meta := s.decodeMeta(timetable); meta != nil {
		relax = meta.RelaxDailyCaps
	}
	problem, err := solver.Build(*config, teachers, classes, solver.Options{
		HeavyWeight:    s.config.HeavyWeight,
		MaxSwaps:       s.config.OptimizerMaxSwaps,
		RelaxDailyCaps: relax,
	})
	if err != nil {
		return nil, mapSolverError(err)
	}

	response := &dto.ValidateResponse{TimetableID: timetable.ID, Valid: true}
	for week, assignment := range plan.Weeks {
		if d := problem.Validate(assignment); d != nil {
			response.Valid = false
			response.Issues = append(response.Issues, dto.ValidationIssue{
				Week:      week + 1,
				Dimension: string(d.Dimension),
				ClassID:   d.ClassID,
				TeacherID: d.TeacherID,
				Subject:   d.Subject,
				Detail:    d.Detail,
			})
		}
	}
	return response, nil
}

// ClassView renders one class across all rotation weeks.
func (s *TimetableService) ClassView(ctx context.Context, id, classID string) (*dto.ClassTimetableView, error) {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("views:class:%s:%s", timetable.ID, classID)
	var cached dto.ClassTimetableView
	if s.cacheGet(ctx, cacheKey, &cached) {
		s.observeCache("class", true)
		return &cached, nil
	}
	s.observeCache("class", false)

	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	_, plan, err := s.loadPlan(ctx, timetable.ID)
	if err != nil {
		return nil, err
	}
	days, periods, breaks := s.weekShape(ctx, timetable)
	names, err := s.teacherNames(ctx)
	if err != nil {
		return nil, err
	}

	view := &dto.ClassTimetableView{
		TimetableID: timetable.ID,
		ClassID:     classID,
		Days:        days,
		Periods:     periods,
	}
	for week, assignment := range plan.Weeks {
		grid := emptyGrid(len(days), periods, breaks)
		for _, key := range assignment.ClassSlots(classID) {
			lesson := assignment.Lessons[key]
			if key.Day >= len(days) || key.Period >= periods {
				continue
			}
			grid[key.Day][key.Period] = &dto.LessonCell{
				Subject:     lesson.Subject,
				TeacherID:   lesson.TeacherID,
				TeacherName: names[lesson.TeacherID],
			}
		}
		view.Weeks = append(view.Weeks, dto.WeekGrid{Week: week + 1, Grid: grid})
	}

	s.cacheSet(ctx, cacheKey, view)
	return view, nil
}

// TeacherView renders one teacher's week across all rotation weeks.
func (s *TimetableService) TeacherView(ctx context.Context, id, teacherID string) (*dto.TeacherTimetableView, error) {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("views:teacher:%s:%s", timetable.ID, teacherID)
	var cached dto.TeacherTimetableView
	if s.cacheGet(ctx, cacheKey, &cached) {
		s.observeCache("teacher", true)
		return &cached, nil
	}
	s.observeCache("teacher", false)

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	_, plan, err := s.loadPlan(ctx, timetable.ID)
	if err != nil {
		return nil, err
	}
	days, periods, breaks := s.weekShape(ctx, timetable)

	view := &dto.TeacherTimetableView{
		TimetableID: timetable.ID,
		TeacherID:   teacherID,
		TeacherName: teacher.FullName,
		Days:        days,
		Periods:     periods,
	}
	for week, assignment := range plan.Weeks {
		grid := emptyGrid(len(days), periods, breaks)
		for _, key := range assignment.SortedKeys() {
			lesson := assignment.Lessons[key]
			if lesson.TeacherID != teacherID || key.Day >= len(days) || key.Period >= periods {
				continue
			}
			grid[key.Day][key.Period] = &dto.LessonCell{
				Subject: lesson.Subject,
				ClassID: key.ClassID,
			}
		}
		view.Weeks = append(view.Weeks, dto.WeekGrid{Week: week + 1, Grid: grid})
	}

	s.cacheSet(ctx, cacheKey, view)
	return view, nil
}

// Plan loads the full rotation plan of a timetable for overlay and
// export consumers.
func (s *TimetableService) Plan(ctx context.Context, id string) (*models.Timetable, models.RotationPlan, error) {
	return s.loadPlan(ctx, id)
}

// WeekShape reports the day labels, period count, and break map the
// timetable was solved against.
func (s *TimetableService) WeekShape(ctx context.Context, timetable *models.Timetable) ([]string, int, map[int]string) {
	return s.weekShape(ctx, timetable)
}

func (s *TimetableService) snapshot(ctx context.Context) (*models.SchoolConfig, []models.Teacher, []models.SchoolClass, map[string]models.PriorityConfig, error) {
	config, err := s.configs.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, nil, appErrors.Clone(appErrors.ErrConfiguration, "school configuration not set")
		}
		return nil, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school config")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if len(classes) == 0 {
		return nil, nil, nil, nil, appErrors.Clone(appErrors.ErrConfiguration, "no classes configured")
	}
	priorityRows, err := s.priorities.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list priorities")
	}
	priorities := make(map[string]models.PriorityConfig, len(priorityRows))
	for _, row := range priorityRows {
		priorities[row.ClassID] = row
	}
	return config, teachers, classes, priorities, nil
}

func (s *TimetableService) resolve(ctx context.Context, id string) (*models.Timetable, error) {
	var (
		timetable *models.Timetable
		err       error
	)
	if id == PublishedAlias {
		timetable, err = s.repo.FindPublished(ctx)
	} else {
		timetable, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch timetable")
	}
	return timetable, nil
}

func (s *TimetableService) loadPlan(ctx context.Context, id string) (*models.Timetable, models.RotationPlan, error) {
	timetable, err := s.resolve(ctx, id)
	if err != nil {
		return nil, models.RotationPlan{}, err
	}
	slots, err := s.repo.LoadSlots(ctx, timetable.ID)
	if err != nil {
		return nil, models.RotationPlan{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	return timetable, models.AssignmentFromSlots(slots, timetable.Weeks), nil
}

func (s *TimetableService) decodeMeta(timetable *models.Timetable) *timetableMeta {
	if len(timetable.Meta) == 0 {
		return nil
	}
	var meta timetableMeta
	if err := json.Unmarshal(timetable.Meta, &meta); err != nil || len(meta.Days) == 0 {
		return nil
	}
	return &meta
}

// weekShape prefers the meta snapshot and falls back to the live config.
func (s *TimetableService) weekShape(ctx context.Context, timetable *models.Timetable) ([]string, int, map[int]string) {
	if meta := s.decodeMeta(timetable); meta != nil {
		return meta.Days, meta.PeriodsPerDay, meta.Breaks
	}
	if config, err := s.configs.Get(ctx); err == nil {
		return config.Days, config.PeriodsPerDay, config.Breaks
	}
	return nil, 0, nil
}

func (s *TimetableService) teacherNames(ctx context.Context) (map[string]string, error) {
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName
	}
	return names, nil
}

func (s *TimetableService) cacheGet(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, target) == nil
}

func (s *TimetableService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.config.ViewCacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache view", zap.String("key", key), zap.Error(err))
	}
}

func (s *TimetableService) invalidateViews(ctx context.Context, timetableID string) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{
		fmt.Sprintf("views:class:%s:*", timetableID),
		fmt.Sprintf("views:teacher:%s:*", timetableID),
	} {
		keys, err := s.cache.Keys(ctx, pattern).Result()
		if err != nil || len(keys) == 0 {
			continue
		}
		if err := s.cache.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("failed to invalidate views", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (s *TimetableService) observeSolve(outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSolve(outcome, elapsed)
	}
}

func (s *TimetableService) observeCache(view string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHit(view)
	} else {
		s.metrics.CacheMiss(view)
	}
}

func summarize(t *models.Timetable) dto.TimetableSummary {
	return dto.TimetableSummary{
		ID:        t.ID,
		Version:   t.Version,
		Status:    t.Status,
		Weeks:     t.Weeks,
		Penalty:   t.Penalty,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func emptyGrid(days, periods int, breaks map[int]string) [][]*dto.LessonCell {
	grid := make([][]*dto.LessonCell, days)
	for d := range grid {
		grid[d] = make([]*dto.LessonCell, periods)
		for p := 0; p < periods; p++ {
			if name, ok := breaks[p]; ok {
				grid[d][p] = &dto.LessonCell{Break: name}
			}
		}
	}
	return grid
}

func solveOutcome(err error) string {
	var timeoutErr *solver.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	var infeasibleErr *solver.InfeasibleError
	if errors.As(err, &infeasibleErr) {
		return "infeasible"
	}
	var rotationErr *solver.RotationError
	if errors.As(err, &rotationErr) {
		return "rotation_failed"
	}
	return "rejected"
}

// mapSolverError translates solver failures into API errors so handlers
// never need to know solver internals.
func mapSolverError(err error) error {
	var configErr *solver.ConfigurationError
	if errors.As(err, &configErr) {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, configErr.Diagnosis.Detail)
	}
	var infeasibleErr *solver.InfeasibleError
	if errors.As(err, &infeasibleErr) {
		return appErrors.Wrap(err, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, infeasibleErr.Diagnosis.Detail)
	}
	var timeoutErr *solver.TimeoutError
	if errors.As(err, &timeoutErr) {
		return appErrors.Wrap(err, appErrors.ErrSolveTimeout.Code, appErrors.ErrSolveTimeout.Status,
			fmt.Sprintf("search exceeded the time limit after %s", timeoutErr.Elapsed.Round(time.Millisecond)))
	}
	var rotationErr *solver.RotationError
	if errors.As(err, &rotationErr) {
		return appErrors.Wrap(err, appErrors.ErrRotationInfeasible.Code, appErrors.ErrRotationInfeasible.Status,
			fmt.Sprintf("rotation week %d could not be scheduled", rotationErr.Week))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver failed")
}
