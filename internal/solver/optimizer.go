package solver

import (
	"github.com/raito-kakutani/timable/internal/models"
)

// OptimizerStats summarises a local-search pass.
type OptimizerStats struct {
	Swaps          int `json:"swaps"`
	Moves          int `json:"moves"`
	InitialPenalty int `json:"initial_penalty"`
	FinalPenalty   int `json:"final_penalty"`
}

// Penalty scores an assignment against the per-class priority
// configuration. Every occurrence of a priority subject costs its period
// index, so earlier placement is cheaper, and each pair of heavy
// subjects in adjacent periods of the same class day costs HeavyWeight.
func (p *Problem) Penalty(a models.Assignment, priorities map[string]models.PriorityConfig) int {
	total := 0
	for key, lesson := range a.Lessons {
		pc, ok := priorities[key.ClassID]
		if !ok {
			continue
		}
		if pc.IsPriority(lesson.Subject) {
			total += key.Period
		}
	}

	for _, class := range p.classes {
		pc, ok := priorities[class.ID]
		if !ok || len(pc.HeavySubjects) == 0 {
			continue
		}
		for day := 0; day < len(p.config.Days); day++ {
			for period := 0; period+1 < p.config.PeriodsPerDay; period++ {
				first, ok1 := a.Lessons[models.SlotKey{ClassID: class.ID, Day: day, Period: period}]
				second, ok2 := a.Lessons[models.SlotKey{ClassID: class.ID, Day: day, Period: period + 1}]
				if ok1 && ok2 && pc.IsHeavy(first.Subject) && pc.IsHeavy(second.Subject) {
					total += p.opts.HeavyWeight
				}
			}
		}
	}
	return total
}

// Optimize runs deterministic first-improving local search over the
// assignment: lessons of a class may move to a free slot of that class
// or swap with another lesson of the same class, provided every hard
// constraint still holds. The penalty never increases and the search
// stops after MaxSwaps accepted changes or when no change improves it.
// The input assignment is not modified.
func (p *Problem) Optimize(a models.Assignment, priorities map[string]models.PriorityConfig) (models.Assignment, OptimizerStats) {
	st := newOptState(p, a.Clone())
	stats := OptimizerStats{InitialPenalty: p.Penalty(st.a, priorities)}
	penalty := stats.InitialPenalty

	for stats.Swaps+stats.Moves < p.opts.MaxSwaps {
		next, isSwap := st.improveOnce(priorities, penalty)
		if next < 0 {
			break
		}
		penalty = next
		if isSwap {
			stats.Swaps++
		} else {
			stats.Moves++
		}
	}

	stats.FinalPenalty = penalty
	return st.a, stats
}

type optState struct {
	p          *Problem
	a          models.Assignment
	teacherAt  map[string]map[models.Slot]bool
	teacherDay map[string][]int
}

func newOptState(p *Problem, a models.Assignment) *optState {
	st := &optState{
		p:          p,
		a:          a,
		teacherAt:  make(map[string]map[models.Slot]bool),
		teacherDay: make(map[string][]int),
	}
	for key, lesson := range a.Lessons {
		st.book(lesson.TeacherID, key.Slot())
	}
	return st
}

func (st *optState) book(teacherID string, slot models.Slot) {
	if st.teacherAt[teacherID] == nil {
		st.teacherAt[teacherID] = make(map[models.Slot]bool)
		st.teacherDay[teacherID] = make([]int, len(st.p.config.Days))
	}
	st.teacherAt[teacherID][slot] = true
	st.teacherDay[teacherID][slot.Day]++
}

func (st *optState) release(teacherID string, slot models.Slot) {
	delete(st.teacherAt[teacherID], slot)
	st.teacherDay[teacherID][slot.Day]--
}

func (st *optState) remove(key models.SlotKey) models.Lesson {
	lesson := st.a.Lessons[key]
	delete(st.a.Lessons, key)
	st.release(lesson.TeacherID, key.Slot())
	return lesson
}

func (st *optState) add(key models.SlotKey, lesson models.Lesson) {
	st.a.Lessons[key] = lesson
	st.book(lesson.TeacherID, key.Slot())
}

// fits reports whether a lesson may occupy the slot for its class given
// the current teacher bookings. The caller has already removed the
// lesson from its source slot.
func (st *optState) fits(classID string, lesson models.Lesson, slot models.Slot) bool {
	sk := subjectKey{ClassID: classID, Subject: lesson.Subject}
	if idx, ok := st.p.slotIdx[slot]; !ok || st.p.forbidden[sk][idx] {
		return false
	}
	if st.teacherAt[lesson.TeacherID][slot] {
		return false
	}
	return st.teacherDay[lesson.TeacherID][slot.Day] < st.p.caps[lesson.TeacherID]
}

// improveOnce scans classes, slots and swap pairs in a fixed order and
// applies the first change that lowers the penalty. It returns the new
// penalty and whether the change was a swap, or -1 when no change helps.
func (st *optState) improveOnce(priorities map[string]models.PriorityConfig, penalty int) (int, bool) {
	for _, class := range st.p.classes {
		keys := st.a.ClassSlots(class.ID)

		for _, key := range keys {
			for _, slot := range st.p.slots {
				target := models.SlotKey{ClassID: class.ID, Day: slot.Day, Period: slot.Period}
				if target == key {
					continue
				}
				if _, occupied := st.a.Lessons[target]; occupied {
					continue
				}
				lesson := st.remove(key)
				if !st.fits(class.ID, lesson, slot) {
					st.add(key, lesson)
					continue
				}
				st.add(target, lesson)
				if next := st.p.Penalty(st.a, priorities); next < penalty {
					return next, false
				}
				st.remove(target)
				st.add(key, lesson)
			}
		}

		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				if next, ok := st.trySwap(class.ID, keys[i], keys[j], priorities, penalty); ok {
					return next, true
				}
			}
		}
	}
	return -1, false
}

func (st *optState) trySwap(classID string, a, b models.SlotKey, priorities map[string]models.PriorityConfig, penalty int) (int, bool) {
	la := st.remove(a)
	lb := st.remove(b)
	if !st.fits(classID, la, b.Slot()) {
		st.add(a, la)
		st.add(b, lb)
		return 0, false
	}
	st.add(b, la)
	if !st.fits(classID, lb, a.Slot()) {
		st.remove(b)
		st.add(a, la)
		st.add(b, lb)
		return 0, false
	}
	st.add(a, lb)

	if next := st.p.Penalty(st.a, priorities); next < penalty {
		return next, true
	}

	st.remove(a)
	st.remove(b)
	st.add(a, la)
	st.add(b, lb)
	return 0, false
}
