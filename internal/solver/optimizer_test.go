package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

func priorityMap(configs ...models.PriorityConfig) map[string]models.PriorityConfig {
	out := make(map[string]models.PriorityConfig, len(configs))
	for _, pc := range configs {
		out[pc.ClassID] = pc
	}
	return out
}

func TestPenaltyCountsPriorityAndHeavy(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 4, "math"),
		testTeacher("t2", 4, "physics"),
		testTeacher("t3", 4, "art"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 1),
			testSubject(1, "physics", "t2", 1),
			testSubject(2, "art", "t3", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 4, nil), teachers, classes, Options{})

	a := models.NewAssignment()
	a.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 0}] = models.Lesson{Subject: "math", TeacherID: "t1"}
	a.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 1}] = models.Lesson{Subject: "physics", TeacherID: "t2"}
	a.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 3}] = models.Lesson{Subject: "art", TeacherID: "t3"}

	priorities := priorityMap(models.PriorityConfig{
		ClassID:          "10A",
		PrioritySubjects: []string{"art"},
		HeavySubjects:    []string{"math", "physics"},
	})

	// art at period 3 plus one heavy pair at default weight 2.
	assert.Equal(t, 5, p.Penalty(a, priorities))
}

func TestOptimizePullsPrioritySubjectEarlier(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 4, "math"),
		testTeacher("t2", 4, "science"),
		testTeacher("t3", 4, "art"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 1),
			testSubject(1, "science", "t2", 1),
			testSubject(2, "art", "t3", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 3, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	priorities := priorityMap(models.PriorityConfig{
		ClassID:          "10A",
		PrioritySubjects: []string{"art"},
	})

	improved, stats := p.Optimize(base, priorities)
	require.Nil(t, p.Validate(improved))
	assert.LessOrEqual(t, stats.FinalPenalty, stats.InitialPenalty)
	assert.Equal(t, 0, stats.FinalPenalty)
	assert.Equal(t, models.Lesson{Subject: "art", TeacherID: "t3"},
		improved.Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 0}])
}

func TestOptimizeSeparatesHeavySubjects(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 4, "math"),
		testTeacher("t2", 4, "physics"),
		testTeacher("t3", 4, "art"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 1),
			testSubject(1, "physics", "t2", 1),
			testSubject(2, "art", "t3", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 4, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	priorities := priorityMap(models.PriorityConfig{
		ClassID:       "10A",
		HeavySubjects: []string{"math", "physics"},
	})

	require.Equal(t, p.opts.HeavyWeight, p.Penalty(base, priorities))

	improved, stats := p.Optimize(base, priorities)
	require.Nil(t, p.Validate(improved))
	assert.Equal(t, 0, stats.FinalPenalty)
}

func TestOptimizeIsMonotonicAndDeterministic(t *testing.T) {
	p := twoClassFixture(t)
	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	priorities := priorityMap(
		models.PriorityConfig{
			ClassID:          "10A",
			PrioritySubjects: []string{"math", "english"},
			HeavySubjects:    []string{"math", "science"},
		},
		models.PriorityConfig{
			ClassID:          "10B",
			PrioritySubjects: []string{"science"},
			HeavySubjects:    []string{"math", "history"},
		},
	)

	first, firstStats := p.Optimize(base, priorities)
	require.Nil(t, p.Validate(first))
	assert.LessOrEqual(t, firstStats.FinalPenalty, firstStats.InitialPenalty)

	second, secondStats := p.Optimize(base, priorities)
	assert.Equal(t, first.Lessons, second.Lessons)
	assert.Equal(t, firstStats, secondStats)

	// The input assignment is untouched.
	assert.Equal(t, p.Penalty(base, priorities), firstStats.InitialPenalty)
}

func TestOptimizeRespectsSwapBudget(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 4, "math"),
		testTeacher("t2", 4, "science"),
		testTeacher("t3", 4, "art"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 1),
			testSubject(1, "science", "t2", 1),
			testSubject(2, "art", "t3", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 3, nil), teachers, classes, Options{MaxSwaps: 1})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	_, stats := p.Optimize(base, priorityMap(models.PriorityConfig{
		ClassID:          "10A",
		PrioritySubjects: []string{"science", "art"},
	}))
	assert.Equal(t, 1, stats.Swaps+stats.Moves)
}
