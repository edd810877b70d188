package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

var weekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func testConfig(days, periods int, breaks map[int]string) models.SchoolConfig {
	return models.SchoolConfig{
		ID:            "cfg-1",
		Days:          weekDays[:days],
		PeriodsPerDay: periods,
		Breaks:        breaks,
	}
}

func testTeacher(id string, maxPerDay int, subjects ...string) models.Teacher {
	return models.Teacher{
		ID:               id,
		FullName:         "Teacher " + id,
		Subjects:         subjects,
		MaxPeriodsPerDay: maxPerDay,
	}
}

func testSubject(pos int, subject, teacherID string, weekly int) models.ClassSubject {
	return models.ClassSubject{
		ID:            subject + "-" + teacherID,
		Subject:       subject,
		WeeklyPeriods: weekly,
		TeacherID:     teacherID,
		Position:      pos,
	}
}

func testClass(id, grade string, subjects ...models.ClassSubject) models.SchoolClass {
	for i := range subjects {
		subjects[i].ClassID = id
	}
	return models.SchoolClass{ID: id, Grade: grade, Subjects: subjects}
}

func mustBuild(t *testing.T, config models.SchoolConfig, teachers []models.Teacher, classes []models.SchoolClass, opts Options) *Problem {
	t.Helper()
	p, err := Build(config, teachers, classes, opts)
	require.NoError(t, err)
	return p
}

func TestBuildRejectsEmptyWeek(t *testing.T) {
	_, err := Build(testConfig(0, 4, nil), nil, nil, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionCoverage, cfgErr.Diagnosis.Dimension)
}

func TestBuildRejectsAllDayBreaks(t *testing.T) {
	_, err := Build(testConfig(5, 1, map[int]string{0: "Recess"}), nil, nil, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionCoverage, cfgErr.Diagnosis.Dimension)
}

func TestBuildRejectsUnknownTeacher(t *testing.T) {
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "ghost", 2)),
	}
	_, err := Build(testConfig(5, 4, nil), nil, classes, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionTeacher, cfgErr.Diagnosis.Dimension)
	assert.Equal(t, "ghost", cfgErr.Diagnosis.TeacherID)
	assert.Equal(t, "10A", cfgErr.Diagnosis.ClassID)
}

func TestBuildRejectsUnqualifiedTeacher(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 4, "biology")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 2)),
	}
	_, err := Build(testConfig(5, 4, nil), teachers, classes, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionTeacher, cfgErr.Diagnosis.Dimension)
	assert.Equal(t, "math", cfgErr.Diagnosis.Subject)
}

func TestBuildRejectsOverfullClass(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 4, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 5)),
	}
	_, err := Build(testConfig(2, 2, nil), teachers, classes, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionClass, cfgErr.Diagnosis.Dimension)
	assert.Equal(t, "10A", cfgErr.Diagnosis.ClassID)
}

func TestBuildRejectsOverloadedTeacher(t *testing.T) {
	// One period per day over two days cannot carry three weekly periods.
	teachers := []models.Teacher{testTeacher("t1", 1, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 3)),
	}
	_, err := Build(testConfig(2, 3, nil), teachers, classes, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionLoad, cfgErr.Diagnosis.Dimension)
	assert.Equal(t, "t1", cfgErr.Diagnosis.TeacherID)
}

func TestBuildRelaxedCapsAcceptOverloadedTeacher(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 1, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10", testSubject(0, "math", "t1", 3)),
	}
	p := mustBuild(t, testConfig(2, 3, nil), teachers, classes, Options{RelaxDailyCaps: true})

	a, _, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Nil(t, p.Validate(a))

	perDay := map[int]int{}
	for _, key := range a.SortedKeys() {
		perDay[key.Day]++
	}
	for day, count := range perDay {
		assert.LessOrEqual(t, count, 2, "day %d exceeds the relaxed cap", day)
	}
}

func TestBuildRejectsDuplicateSubject(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t1", 4, "math")}
	classes := []models.SchoolClass{
		testClass("10A", "10",
			testSubject(0, "math", "t1", 1),
			testSubject(1, "math", "t1", 1),
		),
	}
	_, err := Build(testConfig(5, 4, nil), teachers, classes, Options{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, DimensionCoverage, cfgErr.Diagnosis.Dimension)
}

func TestBuildOrdersOccurrencesBySubject(t *testing.T) {
	teachers := []models.Teacher{testTeacher("t-1", 8, "zoology", "art", "math")}
	classes := []models.SchoolClass{testClass("10A", "10",
		testSubject(0, "zoology", "t-1", 1),
		testSubject(1, "math", "t-1", 2),
		testSubject(2, "art", "t-1", 1),
	)}
	p := mustBuild(t, testConfig(5, 4, nil), teachers, classes, Options{})

	var got []string
	for _, occ := range p.occs {
		got = append(got, occ.key.Subject)
	}
	// Curriculum position is display order; the search tie-break runs on
	// subject identifier.
	assert.Equal(t, []string{"art", "math", "math", "zoology"}, got)
}
