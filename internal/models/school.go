package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher describes one instructor: what they teach, which sections they
// cover, and how many periods they can take per day.
type Teacher struct {
	ID               string         `db:"id" json:"id"`
	FullName         string         `db:"full_name" json:"full_name"`
	Subjects         pq.StringArray `db:"subjects" json:"subjects"`
	Sections         pq.StringArray `db:"sections" json:"sections"`
	MaxPeriodsPerDay int            `db:"max_periods_per_day" json:"max_periods_per_day"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the teacher is qualified for a subject.
func (t Teacher) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// CoversSection reports whether the teacher is eligible for a class section.
// An empty section list means the teacher covers every section.
func (t Teacher) CoversSection(classID string) bool {
	if len(t.Sections) == 0 {
		return true
	}
	for _, s := range t.Sections {
		if s == classID {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Subject   string
	Section   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ClassSubject binds one subject requirement to a class: how many periods a
// week it needs and who teaches it.
type ClassSubject struct {
	ID            string    `db:"id" json:"id"`
	ClassID       string    `db:"class_id" json:"class_id"`
	Subject       string    `db:"subject" json:"subject"`
	WeeklyPeriods int       `db:"weekly_periods" json:"weekly_periods"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	Position      int       `db:"position" json:"position"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SchoolClass is one class section together with its ordered subject
// requirements.
type SchoolClass struct {
	ID        string         `db:"id" json:"id"`
	Grade     string         `db:"grade" json:"grade"`
	Subjects  []ClassSubject `db:"-" json:"subjects"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// WeeklyDemand sums the required weekly periods across all subjects.
func (c SchoolClass) WeeklyDemand() int {
	total := 0
	for _, cs := range c.Subjects {
		total += cs.WeeklyPeriods
	}
	return total
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Grade     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SchoolConfig holds the school-wide week shape: day labels, periods per
// day, and named break periods (period index -> label).
type SchoolConfig struct {
	ID            string         `db:"id" json:"id"`
	Days          []string       `db:"-" json:"days"`
	PeriodsPerDay int            `db:"periods_per_day" json:"periods_per_day"`
	Breaks        map[int]string `db:"-" json:"breaks"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// IsBreak reports whether the period index is a configured break.
func (c SchoolConfig) IsBreak(period int) bool {
	_, ok := c.Breaks[period]
	return ok
}

// BreakName returns the label for a break period, defaulting to "Break".
func (c SchoolConfig) BreakName(period int) string {
	if name, ok := c.Breaks[period]; ok && name != "" {
		return name
	}
	return "Break"
}

// TeachingPeriodsPerDay counts the non-break periods in one day.
func (c SchoolConfig) TeachingPeriodsPerDay() int {
	n := 0
	for p := 0; p < c.PeriodsPerDay; p++ {
		if !c.IsBreak(p) {
			n++
		}
	}
	return n
}

// Slots enumerates every valid (day, period) coordinate, ordered by day
// then period, excluding breaks. This is the domain every assignment
// variable ranges over.
func (c SchoolConfig) Slots() []Slot {
	slots := make([]Slot, 0, len(c.Days)*c.PeriodsPerDay)
	for d := range c.Days {
		for p := 0; p < c.PeriodsPerDay; p++ {
			if c.IsBreak(p) {
				continue
			}
			slots = append(slots, Slot{Day: d, Period: p})
		}
	}
	return slots
}

// Clone returns a deep copy safe to hand to an in-flight solve.
func (c SchoolConfig) Clone() SchoolConfig {
	out := c
	out.Days = append([]string(nil), c.Days...)
	out.Breaks = make(map[int]string, len(c.Breaks))
	for k, v := range c.Breaks {
		out.Breaks[k] = v
	}
	return out
}
