package solver

import (
	"context"
	"errors"

	"github.com/raito-kakutani/timable/internal/models"
)

// Rotate derives a multi-week plan from a validated base week. Week one
// is the base itself. Each later week shifts every rotation-eligible
// lesson by a cyclic day offset while single-period subjects keep their
// slot, so pupils see the same curriculum at varied times. A shifted
// week that collides or breaks a hard constraint is rebuilt by a fresh
// search that forbids the eligible subjects' week-one slots. Failure to
// produce a valid week yields *RotationError; deadline overruns
// propagate as *TimeoutError.
func (p *Problem) Rotate(ctx context.Context, base models.Assignment, weeks int) (models.RotationPlan, error) {
	if weeks < 1 {
		return models.RotationPlan{}, configErr(Diagnosis{
			Dimension: DimensionCoverage,
			Detail:    "rotation requires at least one week",
		})
	}
	plan := models.RotationPlan{Weeks: []models.Assignment{base.Clone()}}
	for w := 1; w < weeks; w++ {
		week, err := p.rotateWeek(ctx, base, w)
		if err != nil {
			return models.RotationPlan{}, err
		}
		plan.Weeks = append(plan.Weeks, week)
	}
	return plan, nil
}

// eligible reports whether the subject rotates. Subjects taught once a
// week stay put so their anchor slot is stable across the cycle.
func (p *Problem) eligible(classID, subject string) bool {
	return p.weekly[subjectKey{ClassID: classID, Subject: subject}] > 1
}

func (p *Problem) rotateWeek(ctx context.Context, base models.Assignment, shift int) (models.Assignment, error) {
	if shifted, ok := p.shiftEligible(base, shift); ok {
		if diag := p.Validate(shifted); diag == nil {
			return shifted, nil
		}
	}
	return p.resolveWeek(ctx, base, shift)
}

func (p *Problem) shiftSlot(s models.Slot, shift int) models.Slot {
	if len(p.config.Days) > 1 {
		return models.Slot{Day: (s.Day + shift) % len(p.config.Days), Period: s.Period}
	}
	// Single-day timetables rotate along the teaching-slot sequence
	// instead, since a day shift would be the identity.
	idx := p.slotIdx[s]
	return p.slots[(idx+shift)%len(p.slots)]
}

func (p *Problem) shiftEligible(base models.Assignment, shift int) (models.Assignment, bool) {
	out := models.NewAssignment()
	for key, lesson := range base.Lessons {
		slot := key.Slot()
		if p.eligible(key.ClassID, lesson.Subject) {
			slot = p.shiftSlot(slot, shift)
		}
		moved := models.SlotKey{ClassID: key.ClassID, Day: slot.Day, Period: slot.Period}
		if _, taken := out.Lessons[moved]; taken {
			return models.Assignment{}, false
		}
		out.Lessons[moved] = lesson
	}
	return out, true
}

// resolveWeek re-solves the week when the plain shift is invalid. The
// first attempt forbids every week-one slot of every eligible subject to
// force variation; if that over-constrains the search, a weaker attempt
// forbids only each subject's earliest week-one slot.
func (p *Problem) resolveWeek(ctx context.Context, base models.Assignment, shift int) (models.Assignment, error) {
	strict := p.child()
	p.pinAnchors(strict, base)
	for key, lesson := range base.Lessons {
		if p.eligible(key.ClassID, lesson.Subject) {
			strict.Forbid(key.ClassID, lesson.Subject, key.Slot())
		}
	}
	a, _, err := strict.Solve(ctx)
	if err == nil {
		return a, nil
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return models.Assignment{}, err
	}

	weak := p.child()
	p.pinAnchors(weak, base)
	for sk, count := range p.weekly {
		if count <= 1 {
			continue
		}
		if slots := base.SubjectSlots(sk.ClassID, sk.Subject); len(slots) > 0 {
			weak.Forbid(sk.ClassID, sk.Subject, slots[0])
		}
	}
	a, _, err = weak.Solve(ctx)
	if err == nil {
		return a, nil
	}
	if errors.As(err, &timeout) {
		return models.Assignment{}, err
	}
	return models.Assignment{}, &RotationError{Week: shift + 1, Cause: err}
}

// pinAnchors restricts every single-occurrence subject to its week-one
// slot so anchored lessons survive a re-solve unchanged.
func (p *Problem) pinAnchors(child *Problem, base models.Assignment) {
	for key, lesson := range base.Lessons {
		if p.eligible(key.ClassID, lesson.Subject) {
			continue
		}
		anchor := key.Slot()
		for _, slot := range p.slots {
			if slot != anchor {
				child.Forbid(key.ClassID, lesson.Subject, slot)
			}
		}
	}
}
