package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
)

// AnalyticsService derives load, fatigue, congestion, and clash-risk
// insights from a stored timetable week.
type AnalyticsService struct {
	plans      planSource
	teachers   rosterSource
	priorities prioritySource
	logger     *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService instance.
func NewAnalyticsService(plans planSource, teachers rosterSource, priorities prioritySource, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{plans: plans, teachers: teachers, priorities: priorities, logger: logger}
}

// Insights computes every heatmap for one week of a stored timetable.
func (s *AnalyticsService) Insights(ctx context.Context, timetableID string, week int) (*dto.InsightsResponse, error) {
	timetable, plan, err := s.plans.Plan(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if week == 0 {
		week = 1
	}
	if week < 1 || week > len(plan.Weeks) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("week %d is outside 1..%d", week, len(plan.Weeks)))
	}
	days, periods, _ := s.plans.WeekShape(ctx, timetable)
	assignment := plan.Weeks[week-1]

	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	priorityRows, err := s.priorities.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list priorities")
	}
	priorities := make(map[string]models.PriorityConfig, len(priorityRows))
	for _, row := range priorityRows {
		priorities[row.ClassID] = row
	}

	response := &dto.InsightsResponse{
		TimetableID: timetable.ID,
		Week:        week,
		Days:        days,
		Periods:     periods,
	}
	response.TeacherLoad = teacherLoad(assignment, teachers, len(days))
	response.Fatigue = classFatigue(assignment, priorities, len(days), periods)
	response.Congestion = dayCongestion(assignment, len(days), periods)
	response.ClashRisk = clashRisk(response.TeacherLoad, teachers)
	return response, nil
}

// teacherLoad counts taught periods per teacher per day, reported for
// every rostered teacher so idle staff show up as zero rows.
func teacherLoad(a models.Assignment, teachers []models.Teacher, days int) []dto.TeacherLoadRow {
	perTeacher := make(map[string][]int)
	for key, lesson := range a.Lessons {
		if lesson.TeacherID == "" || key.Day >= days {
			continue
		}
		if perTeacher[lesson.TeacherID] == nil {
			perTeacher[lesson.TeacherID] = make([]int, days)
		}
		perTeacher[lesson.TeacherID][key.Day]++
	}

	sorted := make([]models.Teacher, len(teachers))
	copy(sorted, teachers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FullName < sorted[j].FullName })

	rows := make([]dto.TeacherLoadRow, 0, len(sorted))
	for _, t := range sorted {
		perDay := perTeacher[t.ID]
		if perDay == nil {
			perDay = make([]int, days)
		}
		total := 0
		for _, count := range perDay {
			total += count
		}
		rows = append(rows, dto.TeacherLoadRow{
			TeacherID:   t.ID,
			TeacherName: t.FullName,
			PerDay:      perDay,
			Total:       total,
		})
	}
	return rows
}

// classFatigue reports, per class and period index, the share of days
// where that period holds a heavy subject. Classes without a priority
// configuration have zero density everywhere.
func classFatigue(a models.Assignment, priorities map[string]models.PriorityConfig, days, periods int) []dto.FatigueRow {
	heavyCount := make(map[string][]int)
	for key, lesson := range a.Lessons {
		if key.Day >= days || key.Period >= periods {
			continue
		}
		if heavyCount[key.ClassID] == nil {
			heavyCount[key.ClassID] = make([]int, periods)
		}
		if cfg, ok := priorities[key.ClassID]; ok && cfg.IsHeavy(lesson.Subject) {
			heavyCount[key.ClassID][key.Period]++
		}
	}

	classIDs := make([]string, 0, len(heavyCount))
	for id := range heavyCount {
		classIDs = append(classIDs, id)
	}
	sort.Strings(classIDs)

	rows := make([]dto.FatigueRow, 0, len(classIDs))
	for _, id := range classIDs {
		perPeriod := make([]float64, periods)
		for p, count := range heavyCount[id] {
			if days > 0 {
				perPeriod[p] = float64(count) / float64(days)
			}
		}
		rows = append(rows, dto.FatigueRow{ClassID: id, PerPeriod: perPeriod})
	}
	return rows
}

func dayCongestion(a models.Assignment, days, periods int) []dto.CongestionRow {
	rows := make([]dto.CongestionRow, days)
	for d := range rows {
		rows[d] = dto.CongestionRow{Day: d, PerPeriod: make([]int, periods)}
	}
	for key := range a.Lessons {
		if key.Day >= days || key.Period >= periods {
			continue
		}
		rows[key.Day].PerPeriod[key.Period]++
	}
	return rows
}

// clashRisk flags teachers at or above their daily cap.
func clashRisk(load []dto.TeacherLoadRow, teachers []models.Teacher) []dto.ClashRiskCell {
	caps := make(map[string]int, len(teachers))
	for _, t := range teachers {
		caps[t.ID] = t.MaxPeriodsPerDay
	}
	var cells []dto.ClashRiskCell
	for _, row := range load {
		limit := caps[row.TeacherID]
		if limit <= 0 {
			continue
		}
		for day, count := range row.PerDay {
			if count >= limit {
				cells = append(cells, dto.ClashRiskCell{
					TeacherID:   row.TeacherID,
					TeacherName: row.TeacherName,
					Day:         day,
					Load:        count,
					Cap:         limit,
				})
			}
		}
	}
	return cells
}
