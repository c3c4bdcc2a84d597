// Package lattice describes the finite hierarchy of type qualifiers an inference run solves over.
//
// A Lattice is built once through a Builder and never changes afterwards, so it can be
// shared freely between goroutines.
package lattice

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/qinfer/qerr"
)

// Qualifier is the name of a type qualifier, such as "Nullable" or "HIGH"
type Qualifier string

// Lattice is a bounded lattice of qualifiers.
//
// All relations are precomputed as tables indexed by the ordinal of each qualifier,
// which is its position in Qualifiers.
type Lattice struct {
	qualifiers []Qualifier
	index      *immutable.Map[Qualifier, int]

	subtype    [][]bool
	join, meet [][]int
	combine    [][]int
	arithmetic [][]int
	top        int
	bottom     int
}

// Len returns the number of qualifiers
func (l *Lattice) Len() int {
	return len(l.qualifiers)
}

// Qualifiers returns every qualifier, ordered by ordinal
func (l *Lattice) Qualifiers() []Qualifier {
	return append([]Qualifier(nil), l.qualifiers...)
}

// Index returns the ordinal of q
func (l *Lattice) Index(q Qualifier) (int, bool) {
	return l.index.Get(q)
}

// At returns the qualifier of ordinal i
func (l *Lattice) At(i int) Qualifier {
	return l.qualifiers[i]
}

// Contains reports whether q is part of the lattice
func (l *Lattice) Contains(q Qualifier) bool {
	_, ok := l.index.Get(q)
	return ok
}

func (l *Lattice) mustIndex(q Qualifier) int {
	i, ok := l.index.Get(q)
	if !ok {
		qerr.Bug(qerr.NewUnknownQualifier{Name: string(q)})
	}
	return i
}

func (l *Lattice) Top() Qualifier    { return l.qualifiers[l.top] }
func (l *Lattice) Bottom() Qualifier { return l.qualifiers[l.bottom] }

// IsSubtype reports whether sub <: super
func (l *Lattice) IsSubtype(sub, super Qualifier) bool {
	return l.subtype[l.mustIndex(sub)][l.mustIndex(super)]
}

// IsSubtypeIndex is IsSubtype over ordinals
func (l *Lattice) IsSubtypeIndex(sub, super int) bool {
	return l.subtype[sub][super]
}

// AreComparable reports whether either of a and b is a subtype of the other
func (l *Lattice) AreComparable(a, b Qualifier) bool {
	return l.IsSubtype(a, b) || l.IsSubtype(b, a)
}

// Join returns the least upper bound of a and b
func (l *Lattice) Join(a, b Qualifier) Qualifier {
	return l.qualifiers[l.join[l.mustIndex(a)][l.mustIndex(b)]]
}

// Meet returns the greatest lower bound of a and b
func (l *Lattice) Meet(a, b Qualifier) Qualifier {
	return l.qualifiers[l.meet[l.mustIndex(a)][l.mustIndex(b)]]
}

// Combine returns the viewpoint adaptation of decl as seen through target
func (l *Lattice) Combine(target, decl Qualifier) Qualifier {
	return l.qualifiers[l.combine[l.mustIndex(target)][l.mustIndex(decl)]]
}

// CombineIndex is Combine over ordinals
func (l *Lattice) CombineIndex(target, decl int) int {
	return l.combine[target][decl]
}

// Arithmetic returns the qualifier of the result of an arithmetic operation over left and right
func (l *Lattice) Arithmetic(left, right Qualifier) Qualifier {
	return l.qualifiers[l.arithmetic[l.mustIndex(left)][l.mustIndex(right)]]
}

// ArithmeticIndex is Arithmetic over ordinals
func (l *Lattice) ArithmeticIndex(left, right int) int {
	return l.arithmetic[left][right]
}

// String lists the qualifiers together with their direct supertypes
func (l *Lattice) String() string {
	sb := &strings.Builder{}
	for i, q := range l.qualifiers {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(q))
		var supers []string
		for j, other := range l.qualifiers {
			if i != j && l.isCover(i, j) {
				supers = append(supers, string(other))
			}
		}
		if len(supers) > 0 {
			_, _ = fmt.Fprintf(sb, " <: %s", strings.Join(supers, " & "))
		}
	}
	return sb.String()
}

// isCover reports whether j is a direct supertype of i
func (l *Lattice) isCover(i, j int) bool {
	if !l.subtype[i][j] {
		return false
	}
	for k := range l.qualifiers {
		if k != i && k != j && l.subtype[i][k] && l.subtype[k][j] {
			return false
		}
	}
	return true
}
