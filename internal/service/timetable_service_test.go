package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

type stubTimetableRepo struct {
	timetables map[string]*models.Timetable
	plans      map[string]models.RotationPlan
	nextVer    int
	published  string
}

func newStubTimetableRepo() *stubTimetableRepo {
	return &stubTimetableRepo{
		timetables: make(map[string]*models.Timetable),
		plans:      make(map[string]models.RotationPlan),
	}
}

func (r *stubTimetableRepo) CreateVersioned(ctx context.Context, timetable *models.Timetable, plan models.RotationPlan) error {
	r.nextVer++
	timetable.Version = r.nextVer
	r.timetables[timetable.ID] = timetable
	r.plans[timetable.ID] = plan.Clone()
	return nil
}

func (r *stubTimetableRepo) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	t, ok := r.timetables[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (r *stubTimetableRepo) FindPublished(ctx context.Context) (*models.Timetable, error) {
	if r.published == "" {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, r.published)
}

func (r *stubTimetableRepo) List(ctx context.Context) ([]models.Timetable, error) {
	out := make([]models.Timetable, 0, len(r.timetables))
	for _, t := range r.timetables {
		out = append(out, *t)
	}
	return out, nil
}

func (r *stubTimetableRepo) LoadSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	plan, ok := r.plans[timetableID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var slots []models.TimetableSlot
	for week, assignment := range plan.Weeks {
		for _, key := range assignment.SortedKeys() {
			lesson := assignment.Lessons[key]
			slots = append(slots, models.TimetableSlot{
				TimetableID: timetableID,
				Week:        week,
				ClassID:     key.ClassID,
				Day:         key.Day,
				Period:      key.Period,
				Subject:     lesson.Subject,
				TeacherID:   lesson.TeacherID,
			})
		}
	}
	return slots, nil
}

func (r *stubTimetableRepo) Publish(ctx context.Context, id string) error {
	t, ok := r.timetables[id]
	if !ok {
		return sql.ErrNoRows
	}
	if r.published != "" && r.published != id {
		r.timetables[r.published].Status = models.TimetableStatusArchived
	}
	t.Status = models.TimetableStatusPublished
	r.published = id
	return nil
}

func (r *stubTimetableRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.timetables[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.timetables, id)
	delete(r.plans, id)
	return nil
}

type stubRoster struct {
	teachers []models.Teacher
}

func (s *stubRoster) ListAll(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

func (s *stubRoster) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for i := range s.teachers {
		if s.teachers[i].ID == id {
			return &s.teachers[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubClasses struct {
	classes []models.SchoolClass
}

func (s *stubClasses) ListAll(ctx context.Context) ([]models.SchoolClass, error) {
	return s.classes, nil
}

func (s *stubClasses) FindByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	for i := range s.classes {
		if s.classes[i].ID == id {
			return &s.classes[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubConfigs struct {
	config *models.SchoolConfig
}

func (s *stubConfigs) Get(ctx context.Context) (*models.SchoolConfig, error) {
	if s.config == nil {
		return nil, sql.ErrNoRows
	}
	return s.config, nil
}

type stubPriorities struct {
	rows []models.PriorityConfig
}

func (s *stubPriorities) ListAll(ctx context.Context) ([]models.PriorityConfig, error) {
	return s.rows, nil
}

func solveFixture() (*stubTimetableRepo, *TimetableService) {
	repo := newStubTimetableRepo()
	teachers := &stubRoster{teachers: []models.Teacher{
		{ID: "t-math", FullName: "Rahul Mehta", Subjects: []string{"math"}, Sections: []string{}, MaxPeriodsPerDay: 2},
		{ID: "t-art", FullName: "Sofia Mendes", Subjects: []string{"art"}, Sections: []string{}, MaxPeriodsPerDay: 2},
	}}
	classes := &stubClasses{classes: []models.SchoolClass{
		{ID: "10A", Grade: "10", Subjects: []models.ClassSubject{
			{ClassID: "10A", Subject: "math", WeeklyPeriods: 2, TeacherID: "t-math", Position: 0},
			{ClassID: "10A", Subject: "art", WeeklyPeriods: 2, TeacherID: "t-art", Position: 1},
		}},
	}}
	configs := &stubConfigs{config: &models.SchoolConfig{
		ID:            "cfg",
		Days:          []string{"Monday", "Tuesday"},
		PeriodsPerDay: 2,
		Breaks:        map[int]string{},
	}}
	svc := NewTimetableService(repo, teachers, classes, configs, &stubPriorities{}, nil, nil, nil, nil, TimetableServiceConfig{
		SolveTimeout:      2 * time.Second,
		OptimizerMaxSwaps: 50,
		HeavyWeight:       2,
		RotationWeeks:     1,
	})
	return repo, svc
}

func TestTimetableServiceSolveStoresDraft(t *testing.T) {
	repo, svc := solveFixture()

	res, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Timetable.Version)
	assert.Equal(t, models.TimetableStatusDraft, res.Timetable.Status)
	assert.Equal(t, 1, res.Timetable.Weeks)
	assert.Greater(t, res.Stats.Nodes, 0)

	stored := repo.plans[res.Timetable.ID]
	require.Len(t, stored.Weeks, 1)
	assert.Len(t, stored.Weeks[0].Lessons, 4)
}

func TestTimetableServiceSolveRejectsMissingConfig(t *testing.T) {
	repo, _ := solveFixture()
	svc := NewTimetableService(repo, &stubRoster{}, &stubClasses{}, &stubConfigs{}, &stubPriorities{}, nil, nil, nil, nil, TimetableServiceConfig{})

	_, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSolveMapsConfigurationError(t *testing.T) {
	repo := newStubTimetableRepo()
	teachers := &stubRoster{teachers: []models.Teacher{
		{ID: "t-math", FullName: "Rahul Mehta", Subjects: []string{"math"}, Sections: []string{}, MaxPeriodsPerDay: 8},
	}}
	// Demand of three weekly periods cannot fit a one day, two period week.
	classes := &stubClasses{classes: []models.SchoolClass{
		{ID: "10A", Grade: "10", Subjects: []models.ClassSubject{
			{ClassID: "10A", Subject: "math", WeeklyPeriods: 3, TeacherID: "t-math", Position: 0},
		}},
	}}
	configs := &stubConfigs{config: &models.SchoolConfig{ID: "cfg", Days: []string{"Monday"}, PeriodsPerDay: 2}}
	svc := NewTimetableService(repo, teachers, classes, configs, &stubPriorities{}, nil, nil, nil, nil, TimetableServiceConfig{})

	_, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceClassView(t *testing.T) {
	_, svc := solveFixture()
	res, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)

	view, err := svc.ClassView(context.Background(), res.Timetable.ID, "10A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Tuesday"}, view.Days)
	assert.Equal(t, 2, view.Periods)
	require.Len(t, view.Weeks, 1)

	filled := 0
	for _, row := range view.Weeks[0].Grid {
		for _, cell := range row {
			if cell != nil {
				filled++
				assert.NotEmpty(t, cell.Subject)
				assert.NotEmpty(t, cell.TeacherName)
			}
		}
	}
	assert.Equal(t, 4, filled)
}

func TestTimetableServiceTeacherView(t *testing.T) {
	_, svc := solveFixture()
	res, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)

	view, err := svc.TeacherView(context.Background(), res.Timetable.ID, "t-math")
	require.NoError(t, err)
	assert.Equal(t, "Rahul Mehta", view.TeacherName)

	filled := 0
	for _, row := range view.Weeks[0].Grid {
		for _, cell := range row {
			if cell != nil {
				filled++
				assert.Equal(t, "math", cell.Subject)
				assert.Equal(t, "10A", cell.ClassID)
			}
		}
	}
	assert.Equal(t, 2, filled)
}

func TestTimetableServicePublishLifecycle(t *testing.T) {
	repo, svc := solveFixture()

	first, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)
	second, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)

	published, err := svc.Publish(context.Background(), first.Timetable.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, published.Status)

	// Publishing again is rejected, the timetable is no longer a draft.
	_, err = svc.Publish(context.Background(), first.Timetable.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// The published alias resolves to the first timetable.
	aliased, err := svc.Get(context.Background(), PublishedAlias)
	require.NoError(t, err)
	assert.Equal(t, first.Timetable.ID, aliased.ID)

	// Promoting the second draft archives the first.
	_, err = svc.Publish(context.Background(), second.Timetable.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, repo.timetables[first.Timetable.ID].Status)
}

func TestTimetableServiceDeleteDraftOnly(t *testing.T) {
	_, svc := solveFixture()

	res, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), res.Timetable.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), res.Timetable.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceValidateDetectsDrift(t *testing.T) {
	repo, svc := solveFixture()

	res, err := svc.Solve(context.Background(), dto.SolveRequest{})
	require.NoError(t, err)

	clean, err := svc.Validate(context.Background(), res.Timetable.ID)
	require.NoError(t, err)
	assert.True(t, clean.Valid)

	// Swap a stored lesson onto the wrong teacher.
	plan := repo.plans[res.Timetable.ID]
	for key, lesson := range plan.Weeks[0].Lessons {
		if lesson.Subject == "math" {
			plan.Weeks[0].Lessons[key] = models.Lesson{Subject: "math", TeacherID: "t-art"}
			break
		}
	}

	dirty, err := svc.Validate(context.Background(), res.Timetable.ID)
	require.NoError(t, err)
	assert.False(t, dirty.Valid)
	require.NotEmpty(t, dirty.Issues)
	assert.Equal(t, 1, dirty.Issues[0].Week)
}
