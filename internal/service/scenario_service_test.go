package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

type stubPlans struct {
	timetable *models.Timetable
	plan      models.RotationPlan
	days      []string
	periods   int
	breaks    map[int]string
}

func (s *stubPlans) Plan(ctx context.Context, id string) (*models.Timetable, models.RotationPlan, error) {
	return s.timetable, s.plan.Clone(), nil
}

func (s *stubPlans) WeekShape(ctx context.Context, timetable *models.Timetable) ([]string, int, map[int]string) {
	return s.days, s.periods, s.breaks
}

// Two classes over two days and two periods. t-math teaches both
// classes, t-sub is a qualified math teacher with a free first period.
func scenarioFixture() (*stubPlans, *stubRoster) {
	week := models.NewAssignment()
	week.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 0}] = models.Lesson{Subject: "math", TeacherID: "t-math"}
	week.Lessons[models.SlotKey{ClassID: "10B", Day: 0, Period: 1}] = models.Lesson{Subject: "math", TeacherID: "t-math"}
	week.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 1}] = models.Lesson{Subject: "art", TeacherID: "t-sub"}
	week.Lessons[models.SlotKey{ClassID: "10B", Day: 1, Period: 0}] = models.Lesson{Subject: "math", TeacherID: "t-math"}

	plans := &stubPlans{
		timetable: &models.Timetable{ID: "tt-1", Version: 1, Weeks: 1},
		plan:      models.RotationPlan{Weeks: []models.Assignment{week}},
		days:      []string{"Monday", "Tuesday"},
		periods:   2,
	}
	roster := &stubRoster{teachers: []models.Teacher{
		{ID: "t-math", FullName: "Rahul Mehta", Subjects: []string{"math"}, Sections: []string{}, MaxPeriodsPerDay: 4},
		{ID: "t-sub", FullName: "Aisha Khan", Subjects: []string{"math", "art"}, Sections: []string{}, MaxPeriodsPerDay: 4},
	}}
	return plans, roster
}

func intptr(v int) *int { return &v }

func TestScenarioTeacherAbsentFindsSubstitute(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	res, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:      dto.ScenarioTeacherAbsent,
		Week:      1,
		Day:       intptr(0),
		TeacherID: "t-math",
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)

	// Period 0: t-sub is free and qualified, so 10A keeps its lesson.
	assert.Equal(t, "substituted", res.Changes[0].Action)
	assert.Equal(t, "10A", res.Changes[0].ClassID)
	assert.Equal(t, "t-sub", res.Changes[0].ToTeacher)

	// Period 1: t-sub already teaches 10A art, so 10B goes free.
	assert.Equal(t, "freed", res.Changes[1].Action)
	assert.Equal(t, "10B", res.Changes[1].ClassID)

	assert.ElementsMatch(t, []string{"10A", "10B"}, res.ClassIDs)
}

func TestScenarioTeacherAbsentLeavesOtherDays(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	res, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:      dto.ScenarioTeacherAbsent,
		Week:      1,
		Day:       intptr(1),
		TeacherID: "t-math",
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, 1, res.Changes[0].Day)
}

func TestScenarioShortenedDayDropsLatePeriods(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	res, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:         dto.ScenarioShortenedDay,
		Week:         1,
		Day:          intptr(0),
		CutoffPeriod: intptr(1),
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	for _, change := range res.Changes {
		assert.Equal(t, "freed", change.Action)
		assert.Equal(t, 1, change.Period)
	}
}

func TestScenarioEmergencyFree(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	res, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:    dto.ScenarioEmergencyFree,
		Week:    1,
		Day:     intptr(0),
		ClassID: "10A",
		Period:  intptr(0),
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "math", res.Changes[0].Subject)
	assert.Equal(t, []string{"10A"}, res.ClassIDs)
}

func TestScenarioManualSubstitute(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	res, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:         dto.ScenarioSubstitute,
		Week:         1,
		Day:          intptr(0),
		TeacherID:    "t-math",
		SubstituteID: "t-sub",
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	for _, change := range res.Changes {
		assert.Equal(t, "t-sub", change.ToTeacher)
	}
}

func TestScenarioRejectsUnknownWeek(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)

	_, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:      dto.ScenarioTeacherAbsent,
		Week:      3,
		Day:       intptr(0),
		TeacherID: "t-math",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScenarioNeverMutatesBase(t *testing.T) {
	plans, roster := scenarioFixture()
	svc := NewScenarioService(plans, roster, nil, nil)
	before := len(plans.plan.Weeks[0].Lessons)

	_, err := svc.Preview(context.Background(), "tt-1", dto.ScenarioRequest{
		Type:      dto.ScenarioTeacherAbsent,
		Week:      1,
		Day:       intptr(0),
		TeacherID: "t-math",
	})
	require.NoError(t, err)
	assert.Len(t, plans.plan.Weeks[0].Lessons, before)
}
