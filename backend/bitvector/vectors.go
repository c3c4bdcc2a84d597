// Package bitvector encodes qualifier inference as a gini circuit, where every variable slot
// is a vector of ⌈log2 n⌉ inputs holding the ordinal of its qualifier in binary.
//
// The circuit is shared by every encoder and grows as constraints are encoded, so encoding
// is serial.
package bitvector

import (
	"math/bits"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// Vectors allocates the inputs of every slot in a circuit
type Vectors struct {
	c         *logic.C
	lattice   *lattice.Lattice
	width     int
	arena     *model.Slots
	bits      map[model.SlotID][]z.Lit
	existence map[model.SlotID]z.Lit
}

func NewVectors(l *lattice.Lattice, slots *model.Slots, c *logic.C) *Vectors {
	return &Vectors{
		c:         c,
		lattice:   l,
		width:     Width(l.Len()),
		arena:     slots,
		bits:      make(map[model.SlotID][]z.Lit),
		existence: make(map[model.SlotID]z.Lit),
	}
}

// Width is the number of bits needed for n qualifiers, at least one
func Width(n int) int {
	return max(1, bits.Len(uint(n-1)))
}

func (v *Vectors) Circuit() *logic.C { return v.c }

// Of returns the bits of slot, least significant first
func (v *Vectors) Of(slot model.Slot) []z.Lit {
	if c, ok := slot.(*model.Constant); ok {
		q, found := v.lattice.Index(c.Value)
		if !found {
			qerr.Bug(qerr.NewUnknownQualifier{Name: string(c.Value)})
		}
		return v.Code(q)
	}
	return v.Inputs(slot.ID())
}

// Inputs returns the input bits of the slot of id, allocating them the first time
func (v *Vectors) Inputs(id model.SlotID) []z.Lit {
	if vec, ok := v.bits[id]; ok {
		return vec
	}
	if slot := v.arena.Get(id); slot.Kind() == model.ConstantKind {
		return v.Of(slot)
	}
	vec := make([]z.Lit, v.width)
	for i := range vec {
		vec[i] = v.c.Lit()
	}
	v.bits[id] = vec
	return vec
}

// Existence is the input that is true when the qualifier of the slot of id exists
func (v *Vectors) Existence(id model.SlotID) z.Lit {
	if m, ok := v.existence[id]; ok {
		return m
	}
	m := v.c.Lit()
	v.existence[id] = m
	return m
}

// Code is the constant vector of ordinal q
func (v *Vectors) Code(q int) []z.Lit {
	vec := make([]z.Lit, v.width)
	for i := range vec {
		if q&(1<<i) != 0 {
			vec[i] = v.c.T
		} else {
			vec[i] = v.c.F
		}
	}
	return vec
}

// Is holds when vec is the code of ordinal q
func (v *Vectors) Is(vec []z.Lit, q int) z.Lit {
	conj := make([]z.Lit, len(vec))
	for i, bit := range vec {
		if q&(1<<i) != 0 {
			conj[i] = bit
		} else {
			conj[i] = bit.Not()
		}
	}
	return v.c.Ands(conj...)
}

// Equal holds when both vectors hold the same code
func (v *Vectors) Equal(a, b []z.Lit) z.Lit {
	conj := make([]z.Lit, len(a))
	for i := range a {
		conj[i] = v.c.Xor(a[i], b[i]).Not()
	}
	return v.c.Ands(conj...)
}

// InRange holds when vec is the code of a qualifier
func (v *Vectors) InRange(vec []z.Lit) z.Lit {
	var conj []z.Lit
	for q := v.lattice.Len(); q < 1<<v.width; q++ {
		conj = append(conj, v.Is(vec, q).Not())
	}
	return v.c.Ands(conj...)
}

// Decode reads the ordinal held by vec in a model
func (v *Vectors) Decode(vec []z.Lit, value func(z.Lit) bool) int {
	q := 0
	for i, bit := range vec {
		if value(bit) {
			q |= 1 << i
		}
	}
	return q
}
