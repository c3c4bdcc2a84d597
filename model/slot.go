// Package model holds the slots and constraints of a qualifier inference problem.
//
// Slots live in an arena (Slots) and derived slots refer to each other by SlotID, so the
// slot graph may contain cycles. Anything walking it must keep a visited set.
package model

import (
	"fmt"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/qerr"
)

// SlotID identifies a slot for the lifetime of one inference run. Zero is never a valid id
type SlotID int

func (id SlotID) String() string {
	return fmt.Sprintf("#%d", int(id))
}

type SlotKind int

const (
	VariableKind SlotKind = iota
	ConstantKind
	RefinementKind
	ExistentialKind
	CombinationKind
	LeastUpperBoundKind
)

func (k SlotKind) String() string {
	switch k {
	case VariableKind:
		return "variable"
	case ConstantKind:
		return "constant"
	case RefinementKind:
		return "refinement"
	case ExistentialKind:
		return "existential"
	case CombinationKind:
		return "combination"
	case LeastUpperBoundKind:
		return "lub"
	default:
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
}

// Location is where in the analysed program a slot or constraint comes from.
// It is only used for diagnostics
type Location struct {
	File   string
	Line   int
	Column int
}

var MissingLocation = Location{}

func (l Location) String() string {
	if l == MissingLocation {
		return "<missing location>"
	}
	if l.Column == 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

type Slot interface {
	ID() SlotID
	Kind() SlotKind
	// References returns the slots this slot is derived from, empty for variables and constants
	References() []SlotID
	String() string
}

// VariableSlot is every slot kind whose qualifier is unknown before solving.
// Its solution is written exactly once, after a successful solve
type VariableSlot interface {
	Slot
	Location() Location
	Solution() (lattice.Qualifier, bool)
	AssignSolution(q lattice.Qualifier)

	variable()
}

type slotBase struct {
	id SlotID
}

func (s slotBase) ID() SlotID { return s.id }

type variableBase struct {
	slotBase
	location Location
	solution lattice.Qualifier
	solved   bool
}

func (v *variableBase) Location() Location { return v.location }

func (v *variableBase) Solution() (lattice.Qualifier, bool) {
	return v.solution, v.solved
}

func (v *variableBase) AssignSolution(q lattice.Qualifier) {
	if v.solved {
		qerr.Bug(qerr.NewSolutionRewritten{SlotID: int(v.id), Previous: string(v.solution), Next: string(q)})
	}
	v.solution = q
	v.solved = true
}

func (v *variableBase) variable() {}

type Variable struct {
	variableBase
}

func (v *Variable) Kind() SlotKind { return VariableKind }
func (v *Variable) References() []SlotID { return nil }
func (v *Variable) String() string { return v.id.String() }

// Constant is a slot whose qualifier is known upfront
type Constant struct {
	slotBase
	Value lattice.Qualifier
}

func (c *Constant) Kind() SlotKind { return ConstantKind }
func (c *Constant) References() []SlotID { return nil }
func (c *Constant) String() string { return string(c.Value) }

// Refinement is a local narrowing of Refined, for example after an assignment
type Refinement struct {
	variableBase
	Refined SlotID
}

func (r *Refinement) Kind() SlotKind { return RefinementKind }
func (r *Refinement) References() []SlotID { return []SlotID{r.Refined} }
func (r *Refinement) String() string {
	return fmt.Sprintf("%s = refine(%s)", r.id, r.Refined)
}

// Existential is Potential when its qualifier exists and Alternative otherwise
type Existential struct {
	variableBase
	Potential   SlotID
	Alternative SlotID
}

func (e *Existential) Kind() SlotKind { return ExistentialKind }
func (e *Existential) References() []SlotID { return []SlotID{e.Potential, e.Alternative} }
func (e *Existential) String() string {
	return fmt.Sprintf("%s = (%s | %s)", e.id, e.Potential, e.Alternative)
}

// Combination is the viewpoint adapted qualifier of Second seen through First
type Combination struct {
	variableBase
	First  SlotID
	Second SlotID
}

func (c *Combination) Kind() SlotKind { return CombinationKind }
func (c *Combination) References() []SlotID { return []SlotID{c.First, c.Second} }
func (c *Combination) String() string {
	return fmt.Sprintf("%s = combine(%s, %s)", c.id, c.First, c.Second)
}

// LeastUpperBound merges Left and Right where control flow joins
type LeastUpperBound struct {
	variableBase
	Left  SlotID
	Right SlotID
}

func (l *LeastUpperBound) Kind() SlotKind { return LeastUpperBoundKind }
func (l *LeastUpperBound) References() []SlotID { return []SlotID{l.Left, l.Right} }
func (l *LeastUpperBound) String() string {
	return fmt.Sprintf("%s = lub(%s, %s)", l.id, l.Left, l.Right)
}

var (
	_ VariableSlot = &Variable{}
	_ VariableSlot = &Refinement{}
	_ VariableSlot = &Existential{}
	_ VariableSlot = &Combination{}
	_ VariableSlot = &LeastUpperBound{}
	_ Slot         = &Constant{}
)
