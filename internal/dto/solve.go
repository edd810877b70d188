package dto

import (
	"time"

	"github.com/raito-kakutani/timable/internal/models"
)

// SolveRequest starts a timetable generation run.
type SolveRequest struct {
	Weeks          int   `json:"weeks" validate:"omitempty,min=1,max=3"`
	RelaxDailyCaps *bool `json:"relaxDailyCaps"`
}

// SolveStats aggregates search and optimizer counters for one run.
type SolveStats struct {
	Nodes          int   `json:"nodes"`
	Backtracks     int   `json:"backtracks"`
	ElapsedMS      int64 `json:"elapsedMs"`
	Swaps          int   `json:"swaps"`
	Moves          int   `json:"moves"`
	InitialPenalty int   `json:"initialPenalty"`
	FinalPenalty   int   `json:"finalPenalty"`
}

// TimetableSummary is the list/response shape of a stored timetable.
type TimetableSummary struct {
	ID        string                 `json:"id"`
	Version   int                    `json:"version"`
	Status    models.TimetableStatus `json:"status"`
	Weeks     int                    `json:"weeks"`
	Penalty   int                    `json:"penalty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// SolveResponse returns the stored draft and its run statistics.
type SolveResponse struct {
	Timetable TimetableSummary `json:"timetable"`
	Stats     SolveStats       `json:"stats"`
}

// LessonCell is one rendered timetable cell. Break cells carry the
// break name, free cells are omitted from grids entirely.
type LessonCell struct {
	Subject     string `json:"subject,omitempty"`
	TeacherID   string `json:"teacherId,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
	ClassID     string `json:"classId,omitempty"`
	Break       string `json:"break,omitempty"`
}

// WeekGrid is a day-by-period matrix; nil entries are free periods.
type WeekGrid struct {
	Week int             `json:"week"`
	Grid [][]*LessonCell `json:"grid"`
}

// ClassTimetableView renders one class across all rotation weeks.
type ClassTimetableView struct {
	TimetableID string     `json:"timetableId"`
	ClassID     string     `json:"classId"`
	Days        []string   `json:"days"`
	Periods     int        `json:"periods"`
	Weeks       []WeekGrid `json:"weeks"`
}

// TeacherTimetableView renders one teacher across all rotation weeks.
type TeacherTimetableView struct {
	TimetableID string     `json:"timetableId"`
	TeacherID   string     `json:"teacherId"`
	TeacherName string     `json:"teacherName"`
	Days        []string   `json:"days"`
	Periods     int        `json:"periods"`
	Weeks       []WeekGrid `json:"weeks"`
}

// ValidationIssue reports one violated constraint of a stored plan.
type ValidationIssue struct {
	Week      int    `json:"week"`
	Dimension string `json:"dimension"`
	ClassID   string `json:"classId,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Detail    string `json:"detail"`
}

// ValidateResponse is the outcome of re-validating a stored timetable.
type ValidateResponse struct {
	TimetableID string            `json:"timetableId"`
	Valid       bool              `json:"valid"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
}
