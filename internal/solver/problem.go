// Package solver turns a validated school snapshot into clash-free weekly
// timetables: a finite-domain backtracking search over one variable per
// (class, subject, occurrence), a penalty-driven local optimizer, and a
// rotation generator that derives further week variants.
package solver

import (
	"fmt"
	"sort"

	"github.com/raito-kakutani/timable/internal/models"
)

// Options tunes search and optimization. The zero value is usable.
type Options struct {
	// HeavyWeight is the penalty added for each pair of adjacent heavy
	// subjects on the same class and day.
	HeavyWeight int
	// MaxSwaps bounds the optimizer's improving moves.
	MaxSwaps int
	// RelaxDailyCaps lifts a teacher's daily cap to ceil(weeklyLoad/days)
	// when the configured cap cannot structurally fit their weekly load,
	// instead of failing the pre-check.
	RelaxDailyCaps bool
}

func (o Options) withDefaults() Options {
	if o.HeavyWeight <= 0 {
		o.HeavyWeight = 2
	}
	if o.MaxSwaps <= 0 {
		o.MaxSwaps = 100
	}
	return o
}

// subjectKey identifies one (class, subject) requirement.
type subjectKey struct {
	ClassID string
	Subject string
}

// occurrence is one decision variable: a single weekly instance of a
// (class, subject) pair that needs a slot.
type occurrence struct {
	key       subjectKey
	teacherID string
	index     int
}

// Problem is an immutable solve-ready formulation: the slot domain, the
// occurrence variables, and everything needed to evaluate the hard
// constraints. One Problem belongs to one solve invocation.
type Problem struct {
	config   models.SchoolConfig
	classes  []models.SchoolClass
	teachers map[string]models.Teacher

	slots   []models.Slot
	slotIdx map[models.Slot]int

	occs   []occurrence
	weekly map[subjectKey]int
	caps   map[string]int

	forbidden map[subjectKey]map[int]bool

	opts Options
}

// Build validates the snapshot, runs the fast infeasibility pre-checks,
// and produces the decision variables. It fails with *ConfigurationError
// before any search when the input is structurally impossible.
func Build(config models.SchoolConfig, teachers []models.Teacher, classes []models.SchoolClass, opts Options) (*Problem, error) {
	opts = opts.withDefaults()

	if len(config.Days) == 0 {
		return nil, configErr(Diagnosis{Dimension: DimensionCoverage, Detail: "school week has no days"})
	}
	if config.PeriodsPerDay < 1 {
		return nil, configErr(Diagnosis{Dimension: DimensionCoverage, Detail: "periods per day must be at least 1"})
	}
	for idx := range config.Breaks {
		if idx < 0 || idx >= config.PeriodsPerDay {
			return nil, configErr(Diagnosis{
				Dimension: DimensionCoverage,
				Detail:    fmt.Sprintf("break period %d is outside the school day", idx),
			})
		}
	}
	if config.TeachingPeriodsPerDay() == 0 {
		return nil, configErr(Diagnosis{Dimension: DimensionCoverage, Detail: "every period of the day is a break"})
	}

	p := &Problem{
		config:    config.Clone(),
		teachers:  make(map[string]models.Teacher, len(teachers)),
		weekly:    make(map[subjectKey]int),
		caps:      make(map[string]int, len(teachers)),
		forbidden: make(map[subjectKey]map[int]bool),
		opts:      opts,
	}

	for _, t := range teachers {
		if t.MaxPeriodsPerDay < 1 {
			return nil, configErr(Diagnosis{
				Dimension: DimensionLoad,
				TeacherID: t.ID,
				Detail:    fmt.Sprintf("teacher %s has a daily cap below 1", t.ID),
			})
		}
		p.teachers[t.ID] = t
	}

	p.slots = p.config.Slots()
	p.slotIdx = make(map[models.Slot]int, len(p.slots))
	for i, s := range p.slots {
		p.slotIdx[s] = i
	}

	p.classes = make([]models.SchoolClass, len(classes))
	copy(p.classes, classes)
	sort.Slice(p.classes, func(i, j int) bool { return p.classes[i].ID < p.classes[j].ID })

	weeklyLoad := make(map[string]int)
	for ci := range p.classes {
		class := &p.classes[ci]
		subjects := make([]models.ClassSubject, len(class.Subjects))
		copy(subjects, class.Subjects)
		// Occurrence order is the search tie-break: (class, subject, index).
		sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Subject < subjects[j].Subject })
		class.Subjects = subjects

		for _, cs := range class.Subjects {
			if cs.WeeklyPeriods < 1 {
				return nil, configErr(Diagnosis{
					Dimension: DimensionCoverage,
					ClassID:   class.ID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("subject %s of class %s needs at least one weekly period", cs.Subject, class.ID),
				})
			}
			teacher, ok := p.teachers[cs.TeacherID]
			if !ok {
				return nil, configErr(Diagnosis{
					Dimension: DimensionTeacher,
					ClassID:   class.ID,
					TeacherID: cs.TeacherID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("teacher %s assigned to %s/%s does not exist", cs.TeacherID, class.ID, cs.Subject),
				})
			}
			if !teacher.Teaches(cs.Subject) {
				return nil, configErr(Diagnosis{
					Dimension: DimensionTeacher,
					ClassID:   class.ID,
					TeacherID: cs.TeacherID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("teacher %s is not qualified for subject %s", cs.TeacherID, cs.Subject),
				})
			}
			if !teacher.CoversSection(class.ID) {
				return nil, configErr(Diagnosis{
					Dimension: DimensionTeacher,
					ClassID:   class.ID,
					TeacherID: cs.TeacherID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("teacher %s does not cover section %s", cs.TeacherID, class.ID),
				})
			}

			key := subjectKey{ClassID: class.ID, Subject: cs.Subject}
			if _, dup := p.weekly[key]; dup {
				return nil, configErr(Diagnosis{
					Dimension: DimensionCoverage,
					ClassID:   class.ID,
					Subject:   cs.Subject,
					Detail:    fmt.Sprintf("subject %s appears twice for class %s", cs.Subject, class.ID),
				})
			}
			p.weekly[key] = cs.WeeklyPeriods
			weeklyLoad[cs.TeacherID] += cs.WeeklyPeriods

			for i := 0; i < cs.WeeklyPeriods; i++ {
				p.occs = append(p.occs, occurrence{key: key, teacherID: cs.TeacherID, index: i})
			}
		}

		if demand := class.WeeklyDemand(); demand > len(p.slots) {
			return nil, configErr(Diagnosis{
				Dimension: DimensionClass,
				ClassID:   class.ID,
				Detail: fmt.Sprintf("class %s needs %d weekly periods but only %d non-break slots exist",
					class.ID, demand, len(p.slots)),
			})
		}
	}

	numDays := len(p.config.Days)
	available := p.config.TeachingPeriodsPerDay()
	for tid, load := range weeklyLoad {
		limit := p.teachers[tid].MaxPeriodsPerDay
		if opts.RelaxDailyCaps {
			required := (load + numDays - 1) / numDays
			if required > limit {
				limit = required
			}
		}
		if limit > available {
			limit = available
		}
		p.caps[tid] = limit
		if load > limit*numDays {
			return nil, configErr(Diagnosis{
				Dimension: DimensionLoad,
				TeacherID: tid,
				Detail: fmt.Sprintf("teacher %s needs %d weekly periods but can take at most %d (%d/day over %d days)",
					tid, load, limit*numDays, limit, numDays),
			})
		}
	}

	return p, nil
}

// Forbid excludes a slot from the domain of every occurrence of the
// given (class, subject) pair. Used by the rotation fallback.
func (p *Problem) Forbid(classID, subject string, slot models.Slot) {
	key := subjectKey{ClassID: classID, Subject: subject}
	if p.forbidden[key] == nil {
		p.forbidden[key] = make(map[int]bool)
	}
	if idx, ok := p.slotIdx[slot]; ok {
		p.forbidden[key][idx] = true
	}
}

// child clones the problem with an independent forbidden-slot set, so a
// rotation fallback solve cannot leak constraints into the base problem.
func (p *Problem) child() *Problem {
	clone := *p
	clone.forbidden = make(map[subjectKey]map[int]bool, len(p.forbidden))
	for key, set := range p.forbidden {
		inner := make(map[int]bool, len(set))
		for idx := range set {
			inner[idx] = true
		}
		clone.forbidden[key] = inner
	}
	return &clone
}

// Config exposes the defensively copied school configuration in use.
func (p *Problem) Config() models.SchoolConfig {
	return p.config
}

// Classes exposes the defensively copied, deterministically ordered classes.
func (p *Problem) Classes() []models.SchoolClass {
	return p.classes
}

// TeacherFor returns the configured teacher for a (class, subject) pair.
func (p *Problem) TeacherFor(classID, subject string) (string, bool) {
	for _, class := range p.classes {
		if class.ID != classID {
			continue
		}
		for _, cs := range class.Subjects {
			if cs.Subject == subject {
				return cs.TeacherID, true
			}
		}
	}
	return "", false
}

func configErr(d Diagnosis) error {
	return &ConfigurationError{Diagnosis: d}
}
