package solver

import (
	"fmt"
	"sort"

	"github.com/raito-kakutani/timable/internal/models"
)

// Validate checks an assignment against every hard constraint of the
// problem and returns nil when it holds. The first violation found, in
// deterministic slot order, is reported as a Diagnosis.
func (p *Problem) Validate(a models.Assignment) *Diagnosis {
	counts := make(map[subjectKey]int, len(p.weekly))
	teacherAt := make(map[string]map[models.Slot]string)
	teacherDay := make(map[string]map[int]int)

	for _, key := range a.SortedKeys() {
		lesson := a.Lessons[key]
		slot := key.Slot()

		if _, ok := p.slotIdx[slot]; !ok {
			return &Diagnosis{
				Dimension: DimensionClass,
				ClassID:   key.ClassID,
				Subject:   lesson.Subject,
				Detail:    fmt.Sprintf("class %s has %s at day %d period %d, which is not a teaching slot", key.ClassID, lesson.Subject, slot.Day, slot.Period),
			}
		}

		sk := subjectKey{ClassID: key.ClassID, Subject: lesson.Subject}
		if _, ok := p.weekly[sk]; !ok {
			return &Diagnosis{
				Dimension: DimensionCoverage,
				ClassID:   key.ClassID,
				Subject:   lesson.Subject,
				Detail:    fmt.Sprintf("subject %s is not on the curriculum of class %s", lesson.Subject, key.ClassID),
			}
		}
		if tid, ok := p.TeacherFor(key.ClassID, lesson.Subject); !ok || tid != lesson.TeacherID {
			return &Diagnosis{
				Dimension: DimensionTeacher,
				ClassID:   key.ClassID,
				TeacherID: lesson.TeacherID,
				Subject:   lesson.Subject,
				Detail:    fmt.Sprintf("teacher %s is not assigned to %s for class %s", lesson.TeacherID, lesson.Subject, key.ClassID),
			}
		}
		counts[sk]++

		if teacherAt[lesson.TeacherID] == nil {
			teacherAt[lesson.TeacherID] = make(map[models.Slot]string)
			teacherDay[lesson.TeacherID] = make(map[int]int)
		}
		if other, busy := teacherAt[lesson.TeacherID][slot]; busy {
			return &Diagnosis{
				Dimension: DimensionTeacher,
				ClassID:   key.ClassID,
				TeacherID: lesson.TeacherID,
				Subject:   lesson.Subject,
				Detail:    fmt.Sprintf("teacher %s is booked for classes %s and %s at day %d period %d", lesson.TeacherID, other, key.ClassID, slot.Day, slot.Period),
			}
		}
		teacherAt[lesson.TeacherID][slot] = key.ClassID
		teacherDay[lesson.TeacherID][slot.Day]++
	}

	for _, class := range p.classes {
		for _, cs := range class.Subjects {
			sk := subjectKey{ClassID: class.ID, Subject: cs.Subject}
			if counts[sk] != cs.WeeklyPeriods {
				return &Diagnosis{
					Dimension: DimensionCoverage,
					ClassID:   class.ID,
					TeacherID: cs.TeacherID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("class %s has %d of %d weekly periods of %s", class.ID, counts[sk], cs.WeeklyPeriods, cs.Subject),
				}
			}
		}
	}

	tids := make([]string, 0, len(teacherDay))
	for tid := range teacherDay {
		tids = append(tids, tid)
	}
	sort.Strings(tids)
	for _, tid := range tids {
		days := teacherDay[tid]
		limit := p.caps[tid]
		for day := 0; day < len(p.config.Days); day++ {
			if days[day] > limit {
				return &Diagnosis{
					Dimension: DimensionLoad,
					TeacherID: tid,
					Detail:    fmt.Sprintf("teacher %s has %d periods on day %d, above the cap of %d", tid, days[day], day, limit),
				}
			}
		}
	}

	return nil
}
