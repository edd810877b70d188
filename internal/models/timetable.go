package models

import (
	"sort"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Slot is one (day, period) coordinate inside the school week.
type Slot struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// Before orders slots by day then period.
func (s Slot) Before(other Slot) bool {
	if s.Day != other.Day {
		return s.Day < other.Day
	}
	return s.Period < other.Period
}

// Lesson is what occupies a slot: a subject taught by a teacher.
type Lesson struct {
	Subject   string `json:"subject"`
	TeacherID string `json:"teacher_id"`
}

// SlotKey addresses one class cell in a weekly assignment.
type SlotKey struct {
	ClassID string
	Day     int
	Period  int
}

// Slot returns the (day, period) part of the key.
func (k SlotKey) Slot() Slot {
	return Slot{Day: k.Day, Period: k.Period}
}

// Assignment is one week's timetable for all classes: every occupied
// class cell mapped to its lesson. Assignments are replaced wholesale,
// never mutated in place once handed out.
type Assignment struct {
	Lessons map[SlotKey]Lesson `json:"lessons"`
}

// NewAssignment returns an empty week.
func NewAssignment() Assignment {
	return Assignment{Lessons: make(map[SlotKey]Lesson)}
}

// Clone deep-copies the assignment.
func (a Assignment) Clone() Assignment {
	out := Assignment{Lessons: make(map[SlotKey]Lesson, len(a.Lessons))}
	for k, v := range a.Lessons {
		out.Lessons[k] = v
	}
	return out
}

// SortedKeys returns every occupied cell ordered by class, day, period.
// Iteration over the map directly is never used where determinism matters.
func (a Assignment) SortedKeys() []SlotKey {
	keys := make([]SlotKey, 0, len(a.Lessons))
	for k := range a.Lessons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClassID != keys[j].ClassID {
			return keys[i].ClassID < keys[j].ClassID
		}
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Period < keys[j].Period
	})
	return keys
}

// ClassSlots returns the occupied cells of one class, ordered.
func (a Assignment) ClassSlots(classID string) []SlotKey {
	var keys []SlotKey
	for k := range a.Lessons {
		if k.ClassID == classID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Period < keys[j].Period
	})
	return keys
}

// SubjectSlots returns the slots a (class, subject) pair occupies, ordered.
func (a Assignment) SubjectSlots(classID, subject string) []Slot {
	var slots []Slot
	for k, lesson := range a.Lessons {
		if k.ClassID == classID && lesson.Subject == subject {
			slots = append(slots, k.Slot())
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

// TeacherGrid inverts the class-indexed assignment into teacher ->
// (day, period) -> (class, subject).
func (a Assignment) TeacherGrid() map[string]map[Slot]TeacherCell {
	grid := make(map[string]map[Slot]TeacherCell)
	for k, lesson := range a.Lessons {
		if grid[lesson.TeacherID] == nil {
			grid[lesson.TeacherID] = make(map[Slot]TeacherCell)
		}
		grid[lesson.TeacherID][k.Slot()] = TeacherCell{ClassID: k.ClassID, Subject: lesson.Subject}
	}
	return grid
}

// TeacherCell is one teacher-view cell: which class and subject the
// teacher has in a slot.
type TeacherCell struct {
	ClassID string `json:"class_id"`
	Subject string `json:"subject"`
}

// RotationPlan is an ordered cycle of weekly assignments. Week 0 is the
// optimized base week; every week satisfies the hard constraints
// independently.
type RotationPlan struct {
	Weeks []Assignment `json:"weeks"`
}

// Clone deep-copies the plan.
func (p RotationPlan) Clone() RotationPlan {
	out := RotationPlan{Weeks: make([]Assignment, len(p.Weeks))}
	for i, w := range p.Weeks {
		out.Weeks[i] = w.Clone()
	}
	return out
}

// TimetableStatus represents lifecycle phases for solved timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable is the persisted header of one solved rotation plan.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	Version   int             `db:"version" json:"version"`
	Status    TimetableStatus `db:"status" json:"status"`
	Weeks     int             `db:"weeks" json:"weeks"`
	Penalty   int             `db:"penalty" json:"penalty"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSlot is one persisted cell of a stored rotation plan.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	Week        int       `db:"week" json:"week"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Day         int       `db:"day" json:"day"`
	Period      int       `db:"period" json:"period"`
	Subject     string    `db:"subject" json:"subject"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AssignmentFromSlots rebuilds weekly assignments from persisted rows.
func AssignmentFromSlots(slots []TimetableSlot, weeks int) RotationPlan {
	plan := RotationPlan{Weeks: make([]Assignment, weeks)}
	for i := range plan.Weeks {
		plan.Weeks[i] = NewAssignment()
	}
	for _, s := range slots {
		if s.Week < 0 || s.Week >= weeks {
			continue
		}
		key := SlotKey{ClassID: s.ClassID, Day: s.Day, Period: s.Period}
		plan.Weeks[s.Week].Lessons[key] = Lesson{Subject: s.Subject, TeacherID: s.TeacherID}
	}
	return plan
}
