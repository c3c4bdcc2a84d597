// Package verify answers questions about constants, so that constraints between two
// constants can be decided without a solver.
package verify

import (
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
)

type Verifier struct {
	lattice *lattice.Lattice
}

func New(l *lattice.Lattice) *Verifier {
	return &Verifier{lattice: l}
}

func (v *Verifier) AreEqual(a, b *model.Constant) bool {
	return a.Value == b.Value
}

func (v *Verifier) IsSubtype(sub, super *model.Constant) bool {
	return v.lattice.IsSubtype(sub.Value, super.Value)
}

func (v *Verifier) AreComparable(a, b *model.Constant) bool {
	return v.lattice.AreComparable(a.Value, b.Value)
}
