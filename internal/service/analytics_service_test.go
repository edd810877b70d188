package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

func analyticsFixture() (*stubPlans, *stubRoster, *stubPriorities) {
	week := models.NewAssignment()
	week.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 0}] = models.Lesson{Subject: "math", TeacherID: "t-math"}
	week.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 1}] = models.Lesson{Subject: "math", TeacherID: "t-math"}
	week.Lessons[models.SlotKey{ClassID: "10A", Day: 1, Period: 0}] = models.Lesson{Subject: "art", TeacherID: "t-art"}
	week.Lessons[models.SlotKey{ClassID: "10B", Day: 0, Period: 0}] = models.Lesson{Subject: "art", TeacherID: "t-art"}

	plans := &stubPlans{
		timetable: &models.Timetable{ID: "tt-1", Version: 1, Weeks: 1},
		plan:      models.RotationPlan{Weeks: []models.Assignment{week}},
		days:      []string{"Monday", "Tuesday"},
		periods:   2,
	}
	roster := &stubRoster{teachers: []models.Teacher{
		{ID: "t-math", FullName: "Rahul Mehta", Subjects: []string{"math"}, Sections: []string{}, MaxPeriodsPerDay: 2},
		{ID: "t-art", FullName: "Sofia Mendes", Subjects: []string{"art"}, Sections: []string{}, MaxPeriodsPerDay: 4},
	}}
	priorities := &stubPriorities{rows: []models.PriorityConfig{
		{ClassID: "10A", HeavySubjects: []string{"math"}},
	}}
	return plans, roster, priorities
}

func TestAnalyticsTeacherLoad(t *testing.T) {
	plans, roster, priorities := analyticsFixture()
	svc := NewAnalyticsService(plans, roster, priorities, nil)

	res, err := svc.Insights(context.Background(), "tt-1", 1)
	require.NoError(t, err)
	require.Len(t, res.TeacherLoad, 2)

	// Rows are sorted by teacher name.
	assert.Equal(t, "Rahul Mehta", res.TeacherLoad[0].TeacherName)
	assert.Equal(t, []int{2, 0}, res.TeacherLoad[0].PerDay)
	assert.Equal(t, 2, res.TeacherLoad[0].Total)
	assert.Equal(t, "Sofia Mendes", res.TeacherLoad[1].TeacherName)
	assert.Equal(t, []int{1, 1}, res.TeacherLoad[1].PerDay)
}

func TestAnalyticsFatigueUsesHeavySubjects(t *testing.T) {
	plans, roster, priorities := analyticsFixture()
	svc := NewAnalyticsService(plans, roster, priorities, nil)

	res, err := svc.Insights(context.Background(), "tt-1", 1)
	require.NoError(t, err)

	var fatigue10A []float64
	for _, row := range res.Fatigue {
		if row.ClassID == "10A" {
			fatigue10A = row.PerPeriod
		}
	}
	// 10A has math in period 0 on one of two days, and in period 1 once.
	require.Len(t, fatigue10A, 2)
	assert.InDelta(t, 0.5, fatigue10A[0], 1e-9)
	assert.InDelta(t, 0.5, fatigue10A[1], 1e-9)
}

func TestAnalyticsCongestion(t *testing.T) {
	plans, roster, priorities := analyticsFixture()
	svc := NewAnalyticsService(plans, roster, priorities, nil)

	res, err := svc.Insights(context.Background(), "tt-1", 1)
	require.NoError(t, err)
	require.Len(t, res.Congestion, 2)
	assert.Equal(t, []int{2, 1}, res.Congestion[0].PerPeriod)
	assert.Equal(t, []int{1, 0}, res.Congestion[1].PerPeriod)
}

func TestAnalyticsClashRiskFlagsCapTeachers(t *testing.T) {
	plans, roster, priorities := analyticsFixture()
	svc := NewAnalyticsService(plans, roster, priorities, nil)

	res, err := svc.Insights(context.Background(), "tt-1", 1)
	require.NoError(t, err)

	// t-math teaches two periods on Monday, exactly at the cap of two.
	require.Len(t, res.ClashRisk, 1)
	assert.Equal(t, "t-math", res.ClashRisk[0].TeacherID)
	assert.Equal(t, 0, res.ClashRisk[0].Day)
	assert.Equal(t, 2, res.ClashRisk[0].Load)
	assert.Equal(t, 2, res.ClashRisk[0].Cap)
}

func TestAnalyticsRejectsUnknownWeek(t *testing.T) {
	plans, roster, priorities := analyticsFixture()
	svc := NewAnalyticsService(plans, roster, priorities, nil)

	_, err := svc.Insights(context.Background(), "tt-1", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
