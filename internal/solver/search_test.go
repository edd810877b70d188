package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

func twoClassFixture(t *testing.T) *Problem {
	t.Helper()
	teachers := []models.Teacher{
		testTeacher("t-math", 4, "math"),
		testTeacher("t-sci", 4, "science"),
		testTeacher("t-lang", 4, "english", "history"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t-math", 4),
			testSubject(1, "science", "t-sci", 3),
			testSubject(2, "english", "t-lang", 3),
		),
		testClass("10B", "10",
			testSubject(0, "math", "t-math", 4),
			testSubject(1, "science", "t-sci", 3),
			testSubject(2, "history", "t-lang", 3),
		),
	}
	return mustBuild(t, testConfig(5, 3, nil), teachers, classes, Options{})
}

func TestSolveSatisfiesAllConstraints(t *testing.T) {
	p := twoClassFixture(t)

	a, stats, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p.Validate(a))
	assert.Equal(t, 20, len(a.Lessons))
	assert.Greater(t, stats.Nodes, 0)
}

func TestSolveIsDeterministic(t *testing.T) {
	first, _, err := twoClassFixture(t).Solve(context.Background())
	require.NoError(t, err)
	second, _, err := twoClassFixture(t).Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Lessons, second.Lessons)
}

func TestSolveSkipsBreakPeriods(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 2, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 4)),
	}
	p := mustBuild(t, testConfig(5, 3, map[int]string{1: "Recess"}), teachers, classes, Options{})

	a, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Nil(t, p.Validate(a))
	for _, key := range a.SortedKeys() {
		assert.NotEqual(t, 1, key.Period, "lesson scheduled into the break")
	}
}

func TestSolveEmptyProblem(t *testing.T) {
	p := mustBuild(t, testConfig(5, 4, nil), nil, nil, Options{})

	a, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, a.Lessons)
}

func TestSolveInfeasibleReportsDiagnosis(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 2, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 2)),
	}
	p := mustBuild(t, testConfig(1, 2, nil), teachers, classes, Options{})
	p.Forbid("10A", "math", models.Slot{Day: 0, Period: 0})

	_, _, err := p.Solve(context.Background())
	var infErr *InfeasibleError
	require.ErrorAs(t, err, &infErr)
	assert.Equal(t, "10A", infErr.Diagnosis.ClassID)
	assert.Equal(t, "math", infErr.Diagnosis.Subject)
}

func TestSolveHonoursContextCancellation(t *testing.T) {
	p := twoClassFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Solve(ctx)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestValidateFlagsTampering(t *testing.T) {
	p := twoClassFixture(t)
	a, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	t.Run("wrong teacher", func(t *testing.T) {
		bad := a.Clone()
		key := bad.SortedKeys()[0]
		lesson := bad.Lessons[key]
		lesson.TeacherID = "t-sci"
		if lesson.Subject == "science" {
			lesson.TeacherID = "t-math"
		}
		bad.Lessons[key] = lesson
		diag := p.Validate(bad)
		require.NotNil(t, diag)
		assert.Equal(t, DimensionTeacher, diag.Dimension)
	})

	t.Run("missing lesson", func(t *testing.T) {
		bad := a.Clone()
		delete(bad.Lessons, bad.SortedKeys()[0])
		diag := p.Validate(bad)
		require.NotNil(t, diag)
		assert.Equal(t, DimensionCoverage, diag.Dimension)
	})

	t.Run("slot out of range", func(t *testing.T) {
		bad := a.Clone()
		key := bad.SortedKeys()[0]
		lesson := bad.Lessons[key]
		delete(bad.Lessons, key)
		bad.Lessons[models.SlotKey{ClassID: key.ClassID, Day: 9, Period: 0}] = lesson
		diag := p.Validate(bad)
		require.NotNil(t, diag)
		assert.Equal(t, DimensionClass, diag.Dimension)
	})
}

func TestSolveDailyCapForcesSpreadAcrossDays(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t-math", 2, "math"),
		testTeacher("t-sci", 2, "science"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t-math", 3),
			testSubject(1, "science", "t-sci", 3),
		),
	}
	p := mustBuild(t, testConfig(5, 6, nil), teachers, classes, Options{})

	a, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Nil(t, p.Validate(a))

	// Three weekly periods under a daily cap of two cannot fit one day.
	days := map[string]map[int]bool{}
	for key, lesson := range a.Lessons {
		if days[lesson.TeacherID] == nil {
			days[lesson.TeacherID] = map[int]bool{}
		}
		days[lesson.TeacherID][key.Day] = true
	}
	assert.GreaterOrEqual(t, len(days["t-math"]), 2)
	assert.GreaterOrEqual(t, len(days["t-sci"]), 2)
}
