package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

func TestRotateShiftsEligibleSubjectsByOneDay(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 2, "math"),
		testTeacher("t2", 2, "science"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 2),
			testSubject(1, "science", "t2", 2),
		),
	}
	p := mustBuild(t, testConfig(2, 2, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Nil(t, p.Validate(base))

	plan, err := p.Rotate(context.Background(), base, 2)
	require.NoError(t, err)
	require.Len(t, plan.Weeks, 2)
	assert.Equal(t, base.Lessons, plan.Weeks[0].Lessons)
	require.Nil(t, p.Validate(plan.Weeks[1]))

	for key, lesson := range base.Lessons {
		shifted := models.SlotKey{ClassID: key.ClassID, Day: (key.Day + 1) % 2, Period: key.Period}
		assert.Equal(t, lesson, plan.Weeks[1].Lessons[shifted])
	}
}

func TestRotateKeepsSingleOccurrenceSubjectsAnchored(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 2, "math"),
		testTeacher("t2", 2, "civics"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 3),
			testSubject(1, "civics", "t2", 1),
		),
	}
	p := mustBuild(t, testConfig(3, 2, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	anchor := base.SubjectSlots("10A", "civics")
	require.Len(t, anchor, 1)

	plan, err := p.Rotate(context.Background(), base, 3)
	require.NoError(t, err)
	require.Len(t, plan.Weeks, 3)

	for w, week := range plan.Weeks {
		require.Nil(t, p.Validate(week), "week %d is invalid", w+1)
		assert.Equal(t, anchor, week.SubjectSlots("10A", "civics"), "week %d moved the anchored subject", w+1)
	}
}

func TestRotateFallsBackToResolveOnCollision(t *testing.T) {
	// Shifting math by one day lands on the anchored civics slot, so the
	// second week must come from a re-solve that avoids math's week-one
	// slots.
	teachers := []models.Teacher{
		testTeacher("t1", 2, "math"),
		testTeacher("t2", 2, "civics"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 3),
			testSubject(1, "civics", "t2", 1),
		),
	}
	p := mustBuild(t, testConfig(3, 2, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	baseMath := base.SubjectSlots("10A", "math")
	require.Len(t, baseMath, 3)

	plan, err := p.Rotate(context.Background(), base, 2)
	require.NoError(t, err)
	week2 := plan.Weeks[1]
	require.Nil(t, p.Validate(week2))

	assert.Equal(t, base.SubjectSlots("10A", "civics"), week2.SubjectSlots("10A", "civics"))
	assert.NotEqual(t, baseMath, week2.SubjectSlots("10A", "math"))
}

func TestRotateSingleDayRotatesAlongPeriods(t *testing.T) {
	teachers := []models.Teacher{
		testTeacher("t1", 3, "math"),
		testTeacher("t2", 3, "art"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 2),
			testSubject(1, "art", "t2", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 4, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	plan, err := p.Rotate(context.Background(), base, 2)
	require.NoError(t, err)
	require.Nil(t, p.Validate(plan.Weeks[1]))
	assert.Equal(t, base.SubjectSlots("10A", "art"), plan.Weeks[1].SubjectSlots("10A", "art"))
	assert.NotEqual(t, base.SubjectSlots("10A", "math"), plan.Weeks[1].SubjectSlots("10A", "math"))
}

func TestRotateReportsUnresolvableWeek(t *testing.T) {
	// One day, three periods: the anchored subject and two math periods
	// fill the day, so no rotated or re-solved variant can differ.
	teachers := []models.Teacher{
		testTeacher("t1", 3, "math"),
		testTeacher("t2", 3, "civics"),
	}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 2),
			testSubject(1, "civics", "t2", 1),
		),
	}
	p := mustBuild(t, testConfig(1, 3, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	_, err = p.Rotate(context.Background(), base, 2)
	var rotErr *RotationError
	require.ErrorAs(t, err, &rotErr)
	assert.Equal(t, 2, rotErr.Week)
}

func TestRotateSingleWeekReturnsBaseOnly(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 2, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 2)),
	}
	p := mustBuild(t, testConfig(2, 2, nil), teachers, classes, Options{})

	base, _, err := p.Solve(context.Background())
	require.NoError(t, err)

	plan, err := p.Rotate(context.Background(), base, 1)
	require.NoError(t, err)
	require.Len(t, plan.Weeks, 1)
	assert.Equal(t, base.Lessons, plan.Weeks[0].Lessons)

	_, err = p.Rotate(context.Background(), base, 0)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
