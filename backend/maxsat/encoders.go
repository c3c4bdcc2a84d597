// Package maxsat encodes qualifier inference as clauses over one boolean per pair of
// (slot, qualifier), to be solved by gini. Preferences are soft clauses.
package maxsat

import (
	"github.com/cottand/qinfer/backend"
	"github.com/cottand/qinfer/encoder"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/verify"
	"github.com/go-air/gini/z"
)

// Clauses is a conjunction of disjunctions of literals
type Clauses [][]z.Lit

// True is the reserved variable 1, which every problem asserts
var True = z.Var(1).Pos()

var (
	// Empty always holds
	Empty = Clauses{}
	// Contradiction never holds
	Contradiction = Clauses{{True}, {True.Not()}}
)

func IsContradiction(c Clauses) bool {
	return len(c) == 2 && len(c[0]) == 1 && len(c[1]) == 1 && c[0][0] == True && c[1][0] == True.Not()
}

// Lits numbers the literals of a problem. The numbering only depends on slot ids and
// qualifier ordinals, so constraints can be encoded independently of each other
type Lits struct {
	qualifiers int
	slots      int
	arena      *model.Slots
}

func NewLits(l *lattice.Lattice, slots *model.Slots) Lits {
	return Lits{qualifiers: l.Len(), slots: slots.Len(), arena: slots}
}

// Slot is true when slot id has the qualifier of ordinal q
func (n Lits) Slot(id model.SlotID, q int) z.Lit {
	return z.Var(2 + (int(id)-1)*n.qualifiers + q).Pos()
}

// Existence is true when the qualifier of slot id exists
func (n Lits) Existence(id model.SlotID) z.Lit {
	return z.Var(2 + n.slots*n.qualifiers + int(id) - 1).Pos()
}

// Selector activates the constraint of index i
func (n Lits) Selector(i int) z.Lit {
	return z.Var(2 + n.slots*n.qualifiers + n.slots + i).Pos()
}

// NewTranslator returns a finished translator for problems over l numbered by lits
func NewTranslator(l *lattice.Lattice, lits Lits) *backend.Translator[Clauses, Clauses] {
	return backend.NewBuilder("maxsat", l, verify.New(l), Empty, newEncoders).Finish(lits)
}

func newEncoders(l *lattice.Lattice, v *verify.Verifier, lits Lits, nested backend.Serializer[Clauses]) (backend.Encoders[Clauses], backend.SlotEncoder[Clauses]) {
	c := &common{
		Base: encoder.Base[Clauses]{Lattice: l, Verifier: v, Empty: Empty, Contradiction: Contradiction},
		lits: lits,
	}
	return backend.Encoders[Clauses]{
		Subtype:     subtypeEncoder{c},
		Equality:    equalityEncoder{c},
		Inequality:  inequalityEncoder{c},
		Comparable:  comparableEncoder{c},
		Preference:  preferenceEncoder{c},
		Combine:     combineEncoder{c},
		Existential: existentialEncoder{common: c, nested: nested},
		Arithmetic:  arithmeticEncoder{c},
	}, c.encodeSlot
}

type common struct {
	encoder.Base[Clauses]
	lits Lits
}

func (c *common) ordinal(constant *model.Constant) int {
	i, ok := c.Lattice.Index(constant.Value)
	if !ok {
		qerr.Bug(qerr.NewUnknownQualifier{Name: string(constant.Value)})
	}
	return i
}

func (c *common) lit(slot model.Slot, q int) z.Lit {
	return c.lits.Slot(slot.ID(), q)
}

// forbid returns a clause for every pair of qualifiers that allowed rejects
func (c *common) forbid(fst, snd model.VariableSlot, allowed func(i, j int) bool) Clauses {
	clauses := Clauses{}
	n := c.Lattice.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !allowed(i, j) {
				clauses = append(clauses, []z.Lit{c.lit(fst, i).Not(), c.lit(snd, j).Not()})
			}
		}
	}
	return clauses
}

// forbidOne returns a unit clause for every qualifier of slot that allowed rejects
func (c *common) forbidOne(slot model.VariableSlot, allowed func(i int) bool) Clauses {
	clauses := Clauses{}
	for i := 0; i < c.Lattice.Len(); i++ {
		if !allowed(i) {
			clauses = append(clauses, []z.Lit{c.lit(slot, i).Not()})
		}
	}
	return clauses
}

// encodeSlot makes slot take exactly one qualifier. An existential slot also takes
// the qualifier of its potential slot when that exists, and of its alternative otherwise
func (c *common) encodeSlot(slot model.VariableSlot) Clauses {
	n := c.Lattice.Len()
	clauses := Clauses{}
	atLeastOne := make([]z.Lit, n)
	for i := 0; i < n; i++ {
		atLeastOne[i] = c.lit(slot, i)
		for j := i + 1; j < n; j++ {
			clauses = append(clauses, []z.Lit{c.lit(slot, i).Not(), c.lit(slot, j).Not()})
		}
	}
	clauses = append(clauses, atLeastOne)

	if e, ok := slot.(*model.Existential); ok {
		exists := c.lits.Existence(e.Potential)
		clauses = append(clauses, c.tie(exists, e, e.Potential)...)
		clauses = append(clauses, c.tie(exists.Not(), e, e.Alternative)...)
	}
	return clauses
}

// tie makes slot equal to other whenever when holds
func (c *common) tie(when z.Lit, slot *model.Existential, other model.SlotID) Clauses {
	var clauses Clauses
	n := c.Lattice.Len()
	if constant, ok := c.lits.arena.Get(other).(*model.Constant); ok {
		q := c.ordinal(constant)
		for i := 0; i < n; i++ {
			if i == q {
				clauses = append(clauses, []z.Lit{when.Not(), c.lit(slot, i)})
			} else {
				clauses = append(clauses, []z.Lit{when.Not(), c.lit(slot, i).Not()})
			}
		}
		return clauses
	}
	for i := 0; i < n; i++ {
		x, y := c.lit(slot, i), c.lits.Slot(other, i)
		clauses = append(clauses,
			[]z.Lit{when.Not(), x.Not(), y},
			[]z.Lit{when.Not(), x, y.Not()},
		)
	}
	return clauses
}
