package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/raito-kakutani/timable/internal/models"
)

// SearchStats summarises one base-solver run.
type SearchStats struct {
	Nodes      int           `json:"nodes"`
	Backtracks int           `json:"backtracks"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Solve searches for an assignment satisfying every hard constraint.
//
// The search is backtracking with forward checking: the unassigned
// occurrence with the fewest remaining valid slots is assigned first
// (ties broken by class, subject, occurrence index), and slots are tried
// earliest day, earliest period first. Identical input therefore yields
// an identical assignment. The context deadline bounds the search;
// exceeding it returns *TimeoutError, exhaustion returns
// *InfeasibleError. No partial assignment is ever returned.
func (p *Problem) Solve(ctx context.Context) (models.Assignment, SearchStats, error) {
	st := newSearchState(p)
	ok, err := st.run(ctx)
	stats := SearchStats{Nodes: st.nodes, Backtracks: st.backtracks, Elapsed: time.Since(st.start)}
	if err != nil {
		return models.Assignment{}, stats, err
	}
	if !ok {
		return models.Assignment{}, stats, &InfeasibleError{Diagnosis: st.diagnose()}
	}
	return st.assignment(), stats, nil
}

type searchState struct {
	p     *Problem
	start time.Time

	assigned    []int
	classBusy   map[string][]bool
	teacherBusy map[string][]bool
	teacherDay  map[string][]int
	slotDay     []int

	nodes      int
	backtracks int

	deadEnds      []int
	rejectClass   []int
	rejectTeacher []int
	rejectLoad    []int
}

func newSearchState(p *Problem) *searchState {
	n := len(p.occs)
	st := &searchState{
		p:             p,
		start:         time.Now(),
		assigned:      make([]int, n),
		classBusy:     make(map[string][]bool, len(p.classes)),
		teacherBusy:   make(map[string][]bool, len(p.caps)),
		teacherDay:    make(map[string][]int, len(p.caps)),
		slotDay:       make([]int, len(p.slots)),
		deadEnds:      make([]int, n),
		rejectClass:   make([]int, n),
		rejectTeacher: make([]int, n),
		rejectLoad:    make([]int, n),
	}
	for i := range st.assigned {
		st.assigned[i] = -1
	}
	for i, s := range p.slots {
		st.slotDay[i] = s.Day
	}
	for _, class := range p.classes {
		st.classBusy[class.ID] = make([]bool, len(p.slots))
	}
	for tid := range p.caps {
		st.teacherBusy[tid] = make([]bool, len(p.slots))
		st.teacherDay[tid] = make([]int, len(p.config.Days))
	}
	return st
}

func (st *searchState) run(ctx context.Context) (bool, error) {
	st.nodes++
	if st.nodes&0xff == 1 {
		select {
		case <-ctx.Done():
			return false, &TimeoutError{Elapsed: time.Since(st.start)}
		default:
		}
	}

	i := st.pick()
	if i < 0 {
		return true, nil
	}

	domain := st.domain(i)
	if len(domain) == 0 {
		st.deadEnds[i]++
		st.recordRejections(i)
		return false, nil
	}

	for _, s := range domain {
		st.place(i, s)
		ok, err := st.run(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		st.unplace(i, s)
		st.backtracks++
	}
	return false, nil
}

// pick selects the unassigned occurrence with the fewest remaining valid
// slots; ties resolve to the lowest occurrence order (class, subject,
// index), which the occurrence list already encodes.
func (st *searchState) pick() int {
	best := -1
	bestCount := -1
	for i := range st.p.occs {
		if st.assigned[i] >= 0 {
			continue
		}
		count := st.domainSize(i)
		if best < 0 || count < bestCount {
			best = i
			bestCount = count
		}
	}
	return best
}

func (st *searchState) domain(i int) []int {
	var out []int
	for s := range st.p.slots {
		if st.allowed(i, s) {
			out = append(out, s)
		}
	}
	return out
}

func (st *searchState) domainSize(i int) int {
	count := 0
	for s := range st.p.slots {
		if st.allowed(i, s) {
			count++
		}
	}
	return count
}

func (st *searchState) allowed(i, s int) bool {
	occ := st.p.occs[i]
	if st.p.forbidden[occ.key][s] {
		return false
	}
	if st.classBusy[occ.key.ClassID][s] {
		return false
	}
	if st.teacherBusy[occ.teacherID][s] {
		return false
	}
	if st.teacherDay[occ.teacherID][st.slotDay[s]] >= st.p.caps[occ.teacherID] {
		return false
	}
	// Occurrences of the same (class, subject) are interchangeable; force
	// ascending slot order between them to prune symmetric branches.
	if occ.index > 0 && st.assigned[i-1] >= 0 && s <= st.assigned[i-1] {
		return false
	}
	if i+1 < len(st.p.occs) && st.p.occs[i+1].key == occ.key && st.assigned[i+1] >= 0 && s >= st.assigned[i+1] {
		return false
	}
	return true
}

func (st *searchState) place(i, s int) {
	occ := st.p.occs[i]
	st.assigned[i] = s
	st.classBusy[occ.key.ClassID][s] = true
	st.teacherBusy[occ.teacherID][s] = true
	st.teacherDay[occ.teacherID][st.slotDay[s]]++
}

func (st *searchState) unplace(i, s int) {
	occ := st.p.occs[i]
	st.assigned[i] = -1
	st.classBusy[occ.key.ClassID][s] = false
	st.teacherBusy[occ.teacherID][s] = false
	st.teacherDay[occ.teacherID][st.slotDay[s]]--
}

// recordRejections tallies, for a dead-ended occurrence, which constraint
// removed each slot so infeasibility can name the offending dimension.
func (st *searchState) recordRejections(i int) {
	occ := st.p.occs[i]
	for s := range st.p.slots {
		switch {
		case st.classBusy[occ.key.ClassID][s]:
			st.rejectClass[i]++
		case st.teacherBusy[occ.teacherID][s]:
			st.rejectTeacher[i]++
		case st.teacherDay[occ.teacherID][st.slotDay[s]] >= st.p.caps[occ.teacherID]:
			st.rejectLoad[i]++
		}
	}
}

func (st *searchState) diagnose() Diagnosis {
	worst := 0
	for i := range st.deadEnds {
		if st.deadEnds[i] > st.deadEnds[worst] {
			worst = i
		}
	}
	if len(st.p.occs) == 0 {
		return Diagnosis{Dimension: DimensionCoverage, Detail: "no occurrences to schedule"}
	}

	occ := st.p.occs[worst]
	dim := DimensionClass
	top := st.rejectClass[worst]
	if st.rejectTeacher[worst] > top {
		dim = DimensionTeacher
		top = st.rejectTeacher[worst]
	}
	if st.rejectLoad[worst] > top {
		dim = DimensionLoad
	}

	return Diagnosis{
		Dimension: dim,
		ClassID:   occ.key.ClassID,
		TeacherID: occ.teacherID,
		Subject:   occ.key.Subject,
		Detail: fmt.Sprintf("subject %s for class %s (teacher %s) ran out of valid slots",
			occ.key.Subject, occ.key.ClassID, occ.teacherID),
	}
}

func (st *searchState) assignment() models.Assignment {
	a := models.NewAssignment()
	for i, s := range st.assigned {
		occ := st.p.occs[i]
		slot := st.p.slots[s]
		key := models.SlotKey{ClassID: occ.key.ClassID, Day: slot.Day, Period: slot.Period}
		a.Lessons[key] = models.Lesson{Subject: occ.key.Subject, TeacherID: occ.teacherID}
	}
	return a
}
