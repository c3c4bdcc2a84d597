package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cottand/qinfer/qerr"
)

type ConstraintKind int

const (
	SubtypeKind ConstraintKind = iota
	EqualityKind
	InequalityKind
	ComparableKind
	PreferenceKind
	CombineKind
	ExistentialConstraintKind
	ArithmeticKind
)

// ConstraintKinds lists every kind, in the order statistics are reported
var ConstraintKinds = []ConstraintKind{
	SubtypeKind, EqualityKind, InequalityKind, ComparableKind,
	PreferenceKind, CombineKind, ExistentialConstraintKind, ArithmeticKind,
}

func (k ConstraintKind) String() string {
	switch k {
	case SubtypeKind:
		return "subtype"
	case EqualityKind:
		return "equality"
	case InequalityKind:
		return "inequality"
	case ComparableKind:
		return "comparable"
	case PreferenceKind:
		return "preference"
	case CombineKind:
		return "combine"
	case ExistentialConstraintKind:
		return "existential"
	case ArithmeticKind:
		return "arithmetic"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

// Constraint is an immutable relation between slots.
// Two constraints are equal when their kind and operands are, regardless of their location
type Constraint interface {
	Kind() ConstraintKind
	Location() Location
	// Operands returns the slots the constraint relates, in the order they are explained
	Operands() []Slot
	// Hash is equal for constraints that are Equal. Distinct constraints may share it
	Hash() uint64
	String() string
	shape() shape
}

// shape is what identifies a constraint: its kind, the ids of the slots it relates, its
// scalar arguments and the constraints nested in each of its branches
type shape struct {
	kind     ConstraintKind
	slots    []SlotID
	scalars  []int
	branches [][]Constraint
}

func shapeOf(kind ConstraintKind, scalars []int, branches [][]Constraint, slots ...Slot) shape {
	ids := make([]SlotID, len(slots))
	for i, s := range slots {
		ids[i] = s.ID()
	}
	return shape{kind: kind, slots: ids, scalars: scalars, branches: branches}
}

// Equal compares a and b structurally, nested constraints included
func Equal(a, b Constraint) bool {
	sa, sb := a.shape(), b.shape()
	if sa.kind != sb.kind || !slices.Equal(sa.slots, sb.slots) || !slices.Equal(sa.scalars, sb.scalars) {
		return false
	}
	return slices.EqualFunc(sa.branches, sb.branches, func(x, y []Constraint) bool {
		return slices.EqualFunc(x, y, Equal)
	})
}

const (
	hashPrime1 uint64 = 1099511628211
	hashPrime2 uint64 = 14695981039346656037
)

func hashOf(c Constraint) uint64 {
	s := c.shape()
	hash := hashPrime2 ^ uint64(s.kind)
	for _, id := range s.slots {
		hash = hash*hashPrime1 ^ uint64(id)
	}
	for _, scalar := range s.scalars {
		hash = hash*hashPrime1 ^ uint64(scalar)
	}
	for _, branch := range s.branches {
		// the branch length separates branches, so moving a constraint between them changes the hash
		hash = hash*hashPrime1 ^ uint64(len(branch))
		for _, nested := range branch {
			hash = hash*hashPrime1 ^ nested.Hash()
		}
	}
	return hash
}

func requireSlots(construct string, describe func() string, slots ...Slot) {
	for _, s := range slots {
		if isNull(s) {
			qerr.Bug(qerr.NewNullSlot{Construct: construct, Detail: describe()})
		}
	}
}

func requireNested(cs []Constraint, branch string) {
	for i, c := range cs {
		if isNull(c) {
			qerr.Bug(qerr.NewNullSlot{
				Construct: "existential constraint",
				Detail:    fmt.Sprintf("%s[%d]: null", branch, i),
			})
		}
	}
}

func describeSlots(names []string, slots ...Slot) func() string {
	return func() string {
		parts := make([]string, len(slots))
		for i, s := range slots {
			if isNull(s) {
				parts[i] = names[i] + ": null"
			} else {
				parts[i] = names[i] + ": " + s.String()
			}
		}
		return strings.Join(parts, " ")
	}
}

type located struct {
	location Location
}

func (l located) Location() Location { return l.location }

// Subtype requires Subtype <: Supertype
type Subtype struct {
	located
	Subtype   Slot
	Supertype Slot
}

func NewSubtype(loc Location, sub, super Slot) *Subtype {
	requireSlots("subtype constraint", describeSlots([]string{"Subtype", "Supertype"}, sub, super), sub, super)
	return &Subtype{located: located{loc}, Subtype: sub, Supertype: super}
}

func (c *Subtype) Kind() ConstraintKind { return SubtypeKind }
func (c *Subtype) Operands() []Slot { return []Slot{c.Subtype, c.Supertype} }
func (c *Subtype) Hash() uint64 { return hashOf(c) }
func (c *Subtype) shape() shape { return shapeOf(SubtypeKind, nil, nil, c.Subtype, c.Supertype) }

// ref names slot inside a constraint: constants by their qualifier, every other slot by its id
func ref(slot Slot) string {
	if c, ok := slot.(*Constant); ok {
		return string(c.Value)
	}
	return slot.ID().String()
}

func (c *Subtype) String() string {
	return fmt.Sprintf("%s <: %s", ref(c.Subtype), ref(c.Supertype))
}

// Equality requires First == Second
type Equality struct {
	located
	First  Slot
	Second Slot
}

func NewEquality(loc Location, first, second Slot) *Equality {
	requireSlots("equality constraint", describeSlots([]string{"First", "Second"}, first, second), first, second)
	return &Equality{located: located{loc}, First: first, Second: second}
}

func (c *Equality) Kind() ConstraintKind { return EqualityKind }
func (c *Equality) Operands() []Slot { return []Slot{c.First, c.Second} }
func (c *Equality) Hash() uint64 { return hashOf(c) }
func (c *Equality) shape() shape { return shapeOf(EqualityKind, nil, nil, c.First, c.Second) }
func (c *Equality) String() string {
	return fmt.Sprintf("%s == %s", ref(c.First), ref(c.Second))
}

// Inequality requires First != Second
type Inequality struct {
	located
	First  Slot
	Second Slot
}

func NewInequality(loc Location, first, second Slot) *Inequality {
	requireSlots("inequality constraint", describeSlots([]string{"First", "Second"}, first, second), first, second)
	return &Inequality{located: located{loc}, First: first, Second: second}
}

func (c *Inequality) Kind() ConstraintKind { return InequalityKind }
func (c *Inequality) Operands() []Slot { return []Slot{c.First, c.Second} }
func (c *Inequality) Hash() uint64 { return hashOf(c) }
func (c *Inequality) shape() shape { return shapeOf(InequalityKind, nil, nil, c.First, c.Second) }
func (c *Inequality) String() string {
	return fmt.Sprintf("%s != %s", ref(c.First), ref(c.Second))
}

// Comparable requires either of First and Second to be a subtype of the other
type Comparable struct {
	located
	First  Slot
	Second Slot
}

func NewComparable(loc Location, first, second Slot) *Comparable {
	requireSlots("comparable constraint", describeSlots([]string{"First", "Second"}, first, second), first, second)
	return &Comparable{located: located{loc}, First: first, Second: second}
}

func (c *Comparable) Kind() ConstraintKind { return ComparableKind }
func (c *Comparable) Operands() []Slot { return []Slot{c.First, c.Second} }
func (c *Comparable) Hash() uint64 { return hashOf(c) }
func (c *Comparable) shape() shape { return shapeOf(ComparableKind, nil, nil, c.First, c.Second) }
func (c *Comparable) String() string {
	return fmt.Sprintf("%s <~> %s", ref(c.First), ref(c.Second))
}

// Preference is a soft constraint asking for Variable to be Goal.
// Preferences of higher Weight are satisfied first
type Preference struct {
	located
	Variable VariableSlot
	Goal     *Constant
	Weight   int
}

func NewPreference(loc Location, variable VariableSlot, goal *Constant, weight int) *Preference {
	requireSlots("preference constraint", describeSlots([]string{"Variable", "Goal"}, variable, goal), variable, goal)
	return &Preference{located: located{loc}, Variable: variable, Goal: goal, Weight: weight}
}

func (c *Preference) Kind() ConstraintKind { return PreferenceKind }
func (c *Preference) Operands() []Slot { return []Slot{c.Variable} }
func (c *Preference) Hash() uint64 { return hashOf(c) }
func (c *Preference) shape() shape {
	return shapeOf(PreferenceKind, []int{c.Weight}, nil, c.Variable, c.Goal)
}
func (c *Preference) String() string {
	return fmt.Sprintf("prefer %s = %s (%d)", c.Variable.ID(), c.Goal, c.Weight)
}

// Combine requires Result to be the viewpoint adaptation of Declared as seen through Target
type Combine struct {
	located
	Target   Slot
	Declared Slot
	Result   *Combination
}

func NewCombine(loc Location, target, declared Slot, result *Combination) *Combine {
	requireSlots("combine constraint",
		describeSlots([]string{"Target", "Decl", "Result"}, target, declared, result),
		target, declared, result)
	return &Combine{located: located{loc}, Target: target, Declared: declared, Result: result}
}

func (c *Combine) Kind() ConstraintKind { return CombineKind }
func (c *Combine) Operands() []Slot { return []Slot{c.Result, c.Target, c.Declared} }
func (c *Combine) Hash() uint64 { return hashOf(c) }
func (c *Combine) shape() shape {
	return shapeOf(CombineKind, nil, nil, c.Target, c.Declared, c.Result)
}
func (c *Combine) String() string {
	return fmt.Sprintf("%s := combine(%s, %s)", c.Result.ID(), ref(c.Target), ref(c.Declared))
}

// ExistentialConstraint holds PotentialConstraints when the qualifier of Potential exists,
// and AlternateConstraints otherwise. A nested preference is not soft: it must hold in its branch
type ExistentialConstraint struct {
	located
	Potential            Slot
	PotentialConstraints []Constraint
	AlternateConstraints []Constraint
}

func NewExistentialConstraint(loc Location, potential Slot, then, otherwise []Constraint) *ExistentialConstraint {
	requireSlots("existential constraint", describeSlots([]string{"Potential"}, potential), potential)
	requireNested(then, "Then")
	requireNested(otherwise, "Else")
	return &ExistentialConstraint{
		located:              located{loc},
		Potential:            potential,
		PotentialConstraints: append([]Constraint(nil), then...),
		AlternateConstraints: append([]Constraint(nil), otherwise...),
	}
}

func (c *ExistentialConstraint) Kind() ConstraintKind { return ExistentialConstraintKind }
func (c *ExistentialConstraint) Operands() []Slot { return []Slot{c.Potential} }
func (c *ExistentialConstraint) Hash() uint64 { return hashOf(c) }
func (c *ExistentialConstraint) shape() shape {
	branches := [][]Constraint{c.PotentialConstraints, c.AlternateConstraints}
	return shapeOf(ExistentialConstraintKind, nil, branches, c.Potential)
}
func (c *ExistentialConstraint) String() string {
	return fmt.Sprintf("if exists(%s) { %s } else { %s }", ref(c.Potential),
		joinConstraints(c.PotentialConstraints), joinConstraints(c.AlternateConstraints))
}

func joinConstraints(cs []Constraint) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, "; ")
}

// Arithmetic requires Result to be the qualifier of Left Op Right
type Arithmetic struct {
	located
	Op     ArithmeticOp
	Left   Slot
	Right  Slot
	Result *Combination
}

func NewArithmetic(loc Location, op ArithmeticOp, left, right Slot, result *Combination) *Arithmetic {
	requireSlots("arithmetic constraint",
		describeSlots([]string{"Left", "Right", "Result"}, left, right, result),
		left, right, result)
	return &Arithmetic{located: located{loc}, Op: op, Left: left, Right: right, Result: result}
}

func (c *Arithmetic) Kind() ConstraintKind { return ArithmeticKind }
func (c *Arithmetic) Operands() []Slot { return []Slot{c.Left, c.Right, c.Result} }
func (c *Arithmetic) Hash() uint64 { return hashOf(c) }
func (c *Arithmetic) shape() shape {
	return shapeOf(ArithmeticKind, []int{int(c.Op)}, nil, c.Left, c.Right, c.Result)
}
func (c *Arithmetic) String() string {
	return fmt.Sprintf("%s := %s %s %s", c.Result.ID(), ref(c.Left), c.Op, ref(c.Right))
}

type ArithmeticOp int

const (
	Plus ArithmeticOp = iota
	Minus
	Multiply
	Divide
	Remainder
	LeftShift
	RightShift
	UnsignedRightShift
	And
	Or
	Xor
)

var arithmeticOps = map[ArithmeticOp]struct{ name, symbol string }{
	Plus:               {"plus", "+"},
	Minus:              {"minus", "-"},
	Multiply:           {"multiply", "*"},
	Divide:             {"divide", "/"},
	Remainder:          {"remainder", "%"},
	LeftShift:          {"left_shift", "<<"},
	RightShift:         {"right_shift", ">>"},
	UnsignedRightShift: {"unsigned_right_shift", ">>>"},
	And:                {"and", "&"},
	Or:                 {"or", "|"},
	Xor:                {"xor", "^"},
}

func (op ArithmeticOp) String() string {
	if o, ok := arithmeticOps[op]; ok {
		return o.symbol
	}
	return fmt.Sprintf("ArithmeticOp(%d)", int(op))
}

// ParseArithmeticOp accepts either the name (plus) or the symbol (+) of an operation
func ParseArithmeticOp(s string) (ArithmeticOp, error) {
	for op, o := range arithmeticOps {
		if s == o.name || s == o.symbol {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown arithmetic operation '%s'", s)
}

// Constraints is the ordered, duplicate free set of constraints of a problem
type Constraints struct {
	ordered []Constraint
	// buckets groups the registered constraints by Hash
	buckets map[uint64][]Constraint
}

func NewConstraints() *Constraints {
	return &Constraints{buckets: make(map[uint64][]Constraint, 16)}
}

// Add registers cs, skipping those structurally equal to one already registered.
// It returns how many were new
func (c *Constraints) Add(cs ...Constraint) int {
	added := 0
	for _, constraint := range cs {
		if isNull(constraint) {
			qerr.Bug(qerr.NewNullSlot{Construct: "constraint set", Detail: "added a null constraint"})
		}
		hash := constraint.Hash()
		bucket := c.buckets[hash]
		if slices.ContainsFunc(bucket, func(other Constraint) bool { return Equal(constraint, other) }) {
			continue
		}
		c.buckets[hash] = append(bucket, constraint)
		c.ordered = append(c.ordered, constraint)
		added++
	}
	return added
}

// All returns the constraints in the order they were added. The slice must not be modified
func (c *Constraints) All() []Constraint {
	return c.ordered
}

func (c *Constraints) Len() int {
	return len(c.ordered)
}

func (c *Constraints) CountByKind() map[ConstraintKind]int {
	counts := make(map[ConstraintKind]int, len(ConstraintKinds))
	for _, constraint := range c.ordered {
		counts[constraint.Kind()]++
	}
	return counts
}
