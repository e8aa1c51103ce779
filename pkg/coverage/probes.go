package coverage

import (
	"fmt"
	"math"
	"reflect"
)

// Op is a relational operator evaluated by a branch probe.
type Op int

// Supported relational operators.
const (
	EQ Op = iota
	NE
	LT
	LE
	GT
	GE
)

func (op Op) String() string {
	switch op {
	case EQ:
		return "=="
	case NE:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	}

	return fmt.Sprintf("Op(%d)", int(op))
}

// Probes registers goals for one class and hands out the probes that
// instrumented code calls at run time. Every probe method is a no-op on a
// nil probe, so the same code runs with and without instrumentation.
type Probes struct {
	tracker *Tracker
	class   string
}

// Class returns the class the probes belong to.
func (p *Probes) Class() string {
	return p.class
}

// Method registers the entry goal of a method.
func (p *Probes) Method(name string) *MethodProbe {
	id := MethodGoalID(p.class, name)
	p.tracker.register(Goal{
		ID:          id,
		Criterion:   Method,
		Class:       p.class,
		Member:      name,
		Description: "entry of " + name,
	})

	return &MethodProbe{probes: p, name: name, id: id}
}

// MethodProbe records entry into one method and owns its branch, line and
// mutant probes.
type MethodProbe struct {
	probes *Probes
	name   string
	id     GoalID
}

// Enter records that the method was entered.
func (m *MethodProbe) Enter() {
	if m == nil {
		return
	}

	m.probes.tracker.record(m.id, 0)
}

// Branch registers both sides of a conditional inside the method. Once a
// method has a branch its entry goal no longer counts as a branch goal.
func (m *MethodProbe) Branch(label string) *BranchProbe {
	tracker := m.probes.tracker
	class := m.probes.class
	trueID := BranchGoalID(class, m.name, label, true)
	falseID := BranchGoalID(class, m.name, label, false)

	tracker.markBranched(class, m.name)
	tracker.register(Goal{ID: trueID, Criterion: Branch, Class: class, Member: m.name, Description: label + " (true)"})
	tracker.register(Goal{ID: falseID, Criterion: Branch, Class: class, Member: m.name, Description: label + " (false)"})

	return &BranchProbe{tracker: tracker, trueID: trueID, falseID: falseID}
}

// Line registers a line goal attributed to the method.
func (m *MethodProbe) Line(line int) *LineProbe {
	id := LineGoalID(m.probes.class, line)
	m.probes.tracker.register(Goal{
		ID:          id,
		Criterion:   Line,
		Class:       m.probes.class,
		Member:      m.name,
		Description: fmt.Sprintf("line %d", line),
	})

	return &LineProbe{tracker: m.probes.tracker, id: id}
}

// Mutant registers a weak mutation goal inside the method.
func (m *MethodProbe) Mutant(id, description string) *MutantProbe {
	goalID := MutantGoalID(m.probes.class, m.name, id)
	m.probes.tracker.register(Goal{
		ID:          goalID,
		Criterion:   Mutation,
		Class:       m.probes.class,
		Member:      m.name,
		Description: description,
	})

	return &MutantProbe{tracker: m.probes.tracker, id: goalID}
}

// BranchProbe evaluates a conditional and records the distance of both sides.
type BranchProbe struct {
	tracker *Tracker
	trueID  GoalID
	falseID GoalID
}

// Eval records a plain boolean condition.
func (b *BranchProbe) Eval(cond bool) bool {
	if b == nil {
		return cond
	}

	if cond {
		b.tracker.record(b.trueID, 0)
		b.tracker.record(b.falseID, 1)
	} else {
		b.tracker.record(b.trueID, 1)
		b.tracker.record(b.falseID, 0)
	}

	return cond
}

// CompareInt evaluates lhs op rhs on integers.
func (b *BranchProbe) CompareInt(op Op, lhs, rhs int) bool {
	return b.Compare(op, float64(lhs), float64(rhs))
}

// Compare evaluates lhs op rhs and records the branch distance of each side.
func (b *BranchProbe) Compare(op Op, lhs, rhs float64) bool {
	dTrue, dFalse := distances(op, lhs, rhs)
	if b == nil {
		return dTrue == 0
	}

	b.tracker.record(b.trueID, dTrue)
	b.tracker.record(b.falseID, dFalse)

	return dTrue == 0
}

func distances(op Op, a, b float64) (float64, float64) {
	diff := math.Abs(a - b)

	switch op {
	case EQ:
		if a == b {
			return 0, 1
		}

		return diff, 0
	case NE:
		if a != b {
			return 0, diff
		}

		return 1, 0
	case LT:
		if a < b {
			return 0, b - a
		}

		return a - b + 1, 0
	case LE:
		if a <= b {
			return 0, b - a + 1
		}

		return a - b, 0
	case GT:
		if a > b {
			return 0, a - b
		}

		return b - a + 1, 0
	case GE:
		if a >= b {
			return 0, a - b + 1
		}

		return b - a, 0
	}

	return 1, 1
}

// LineProbe records execution of one line.
type LineProbe struct {
	tracker *Tracker
	id      GoalID
}

// Hit records that the line executed.
func (l *LineProbe) Hit() {
	if l == nil {
		return
	}

	l.tracker.record(l.id, 0)
}

// MutantProbe records weak mutation infection.
type MutantProbe struct {
	tracker *Tracker
	id      GoalID
}

// Infect records whether the mutated expression value differs from the
// original one and returns the original so execution is unaffected.
func (mp *MutantProbe) Infect(original, mutated any) any {
	if mp == nil {
		return original
	}

	if reflect.DeepEqual(original, mutated) {
		mp.tracker.record(mp.id, 1)
	} else {
		mp.tracker.record(mp.id, 0)
	}

	return original
}
