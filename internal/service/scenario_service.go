package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

type planSource interface {
	Plan(ctx context.Context, id string) (*models.Timetable, models.RotationPlan, error)
	WeekShape(ctx context.Context, timetable *models.Timetable) ([]string, int, map[int]string)
}

// ScenarioService previews what-if overlays on a stored week. The base
// timetable is never mutated; every preview works on a copy.
type ScenarioService struct {
	plans     planSource
	teachers  rosterSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScenarioService constructs a ScenarioService instance.
func NewScenarioService(plans planSource, teachers rosterSource, validate *validator.Validate, logger *zap.Logger) *ScenarioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScenarioService{plans: plans, teachers: teachers, validator: validate, logger: logger}
}

// Preview resolves an overlay against one week of the timetable.
func (s *ScenarioService) Preview(ctx context.Context, timetableID string, req dto.ScenarioRequest) (*dto.ScenarioResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scenario payload")
	}

	timetable, plan, err := s.plans.Plan(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	week := req.Week
	if week == 0 {
		week = 1
	}
	if week < 1 || week > len(plan.Weeks) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("week %d is outside 1..%d", week, len(plan.Weeks)))
	}
	days, periods, breaks := s.plans.WeekShape(ctx, timetable)
	if req.Day == nil || *req.Day < 0 || *req.Day >= len(days) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day is required and must address a school day")
	}
	day := *req.Day

	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	resolved := plan.Weeks[week-1].Clone()
	var changes []dto.ScenarioChange
	switch req.Type {
	case dto.ScenarioTeacherAbsent:
		if req.TeacherID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId is required for a teacher absence")
		}
		changes = applyTeacherAbsent(resolved, teachers, day, req.TeacherID)
	case dto.ScenarioRoomUnavailable:
		if req.Subject == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required for a room closure")
		}
		changes = applyRoomUnavailable(resolved, day, req.Subject)
	case dto.ScenarioShortenedDay:
		if req.CutoffPeriod == nil || *req.CutoffPeriod < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cutoffPeriod is required for a shortened day")
		}
		changes = applyShortenedDay(resolved, day, *req.CutoffPeriod)
	case dto.ScenarioEmergencyFree:
		if req.ClassID == "" || req.Period == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "classId and period are required for an emergency free period")
		}
		changes = applyEmergencyFree(resolved, day, req.ClassID, *req.Period)
	case dto.ScenarioSubstitute:
		if req.TeacherID == "" || req.SubstituteID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId and substituteId are required for a substitution")
		}
		if !teacherExists(teachers, req.SubstituteID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute teacher does not exist")
		}
		changes = applySubstitute(resolved, day, req.TeacherID, req.SubstituteID)
	}

	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName
	}
	classIDs := affectedClasses(changes)
	grids := make([]dto.WeekGrid, 0, len(classIDs))
	for _, classID := range classIDs {
		grid := emptyGrid(len(days), periods, breaks)
		for _, key := range resolved.ClassSlots(classID) {
			lesson := resolved.Lessons[key]
			if key.Day >= len(days) || key.Period >= periods {
				continue
			}
			grid[key.Day][key.Period] = &dto.LessonCell{
				Subject:     lesson.Subject,
				TeacherID:   lesson.TeacherID,
				TeacherName: names[lesson.TeacherID],
			}
		}
		grids = append(grids, dto.WeekGrid{Week: week, Grid: grid})
	}

	return &dto.ScenarioResponse{
		TimetableID: timetable.ID,
		Week:        week,
		Type:        req.Type,
		Changes:     changes,
		Classes:     grids,
		ClassIDs:    classIDs,
	}, nil
}

// applyTeacherAbsent reassigns the absent teacher's lessons to the first
// qualified teacher free at the slot and under their daily cap, and
// frees the period when none exists.
func applyTeacherAbsent(resolved models.Assignment, teachers []models.Teacher, day int, absentID string) []dto.ScenarioChange {
	var changes []dto.ScenarioChange
	for _, key := range resolved.SortedKeys() {
		lesson := resolved.Lessons[key]
		if key.Day != day || lesson.TeacherID != absentID {
			continue
		}
		if sub := findSubstitute(resolved, teachers, day, key.Period, absentID, lesson.Subject); sub != "" {
			resolved.Lessons[key] = models.Lesson{Subject: lesson.Subject, TeacherID: sub}
			changes = append(changes, dto.ScenarioChange{
				ClassID:     key.ClassID,
				Day:         key.Day,
				Period:      key.Period,
				Action:      "substituted",
				Subject:     lesson.Subject,
				FromTeacher: absentID,
				ToTeacher:   sub,
			})
			continue
		}
		delete(resolved.Lessons, key)
		changes = append(changes, dto.ScenarioChange{
			ClassID:     key.ClassID,
			Day:         key.Day,
			Period:      key.Period,
			Action:      "freed",
			Subject:     lesson.Subject,
			FromTeacher: absentID,
		})
	}
	return changes
}

// findSubstitute scans teachers in id order so previews are stable.
func findSubstitute(resolved models.Assignment, teachers []models.Teacher, day, period int, absentID, subject string) string {
	sorted := make([]models.Teacher, len(teachers))
	copy(sorted, teachers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dayLoad := make(map[string]int)
	busy := make(map[string]bool)
	for key, lesson := range resolved.Lessons {
		if key.Day != day {
			continue
		}
		dayLoad[lesson.TeacherID]++
		if key.Period == period {
			busy[lesson.TeacherID] = true
		}
	}
	for _, t := range sorted {
		if t.ID == absentID || !t.Teaches(subject) || busy[t.ID] {
			continue
		}
		if dayLoad[t.ID] >= t.MaxPeriodsPerDay {
			continue
		}
		return t.ID
	}
	return ""
}

func applyRoomUnavailable(resolved models.Assignment, day int, subject string) []dto.ScenarioChange {
	var changes []dto.ScenarioChange
	for _, key := range resolved.SortedKeys() {
		lesson := resolved.Lessons[key]
		if key.Day != day || lesson.Subject != subject {
			continue
		}
		delete(resolved.Lessons, key)
		changes = append(changes, dto.ScenarioChange{
			ClassID:     key.ClassID,
			Day:         key.Day,
			Period:      key.Period,
			Action:      "freed",
			Subject:     lesson.Subject,
			FromTeacher: lesson.TeacherID,
		})
	}
	return changes
}

func applyShortenedDay(resolved models.Assignment, day, cutoff int) []dto.ScenarioChange {
	var changes []dto.ScenarioChange
	for _, key := range resolved.SortedKeys() {
		lesson := resolved.Lessons[key]
		if key.Day != day || key.Period < cutoff {
			continue
		}
		delete(resolved.Lessons, key)
		changes = append(changes, dto.ScenarioChange{
			ClassID:     key.ClassID,
			Day:         key.Day,
			Period:      key.Period,
			Action:      "freed",
			Subject:     lesson.Subject,
			FromTeacher: lesson.TeacherID,
		})
	}
	return changes
}

func applyEmergencyFree(resolved models.Assignment, day int, classID string, period int) []dto.ScenarioChange {
	key := models.SlotKey{ClassID: classID, Day: day, Period: period}
	lesson, ok := resolved.Lessons[key]
	if !ok {
		return nil
	}
	delete(resolved.Lessons, key)
	return []dto.ScenarioChange{{
		ClassID:     classID,
		Day:         day,
		Period:      period,
		Action:      "freed",
		Subject:     lesson.Subject,
		FromTeacher: lesson.TeacherID,
	}}
}

func applySubstitute(resolved models.Assignment, day int, fromID, toID string) []dto.ScenarioChange {
	var changes []dto.ScenarioChange
	for _, key := range resolved.SortedKeys() {
		lesson := resolved.Lessons[key]
		if key.Day != day || lesson.TeacherID != fromID {
			continue
		}
		resolved.Lessons[key] = models.Lesson{Subject: lesson.Subject, TeacherID: toID}
		changes = append(changes, dto.ScenarioChange{
			ClassID:     key.ClassID,
			Day:         key.Day,
			Period:      key.Period,
			Action:      "substituted",
			Subject:     lesson.Subject,
			FromTeacher: fromID,
			ToTeacher:   toID,
		})
	}
	return changes
}

func teacherExists(teachers []models.Teacher, id string) bool {
	for _, t := range teachers {
		if t.ID == id {
			return true
		}
	}
	return false
}

// affectedClasses lists the classes the overlay touched, sorted.
func affectedClasses(changes []dto.ScenarioChange) []string {
	seen := make(map[string]bool)
	for _, change := range changes {
		seen[change.ClassID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
