// Package backend turns constraints and slots into the encoded form of one solver backend.
//
// A Translator is built in two steps: NewBuilder fixes the lattice, the verifier and the
// neutral value, and Finish creates the encoders once the resources they need (a circuit, a
// literal numbering) exist. Only the finished *Translator can serialize.
package backend

import (
	"github.com/cottand/qinfer/encoder"
	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/verify"
)

var logger = log.DefaultLogger.With("section", "encode")

// Encoders holds the encoder of each constraint kind. A nil encoder means the backend
// does not support that kind, and its constraints encode to the neutral value
type Encoders[T any] struct {
	Subtype     encoder.SubtypeEncoder[T]
	Equality    encoder.EqualityEncoder[T]
	Inequality  encoder.InequalityEncoder[T]
	Comparable  encoder.ComparableEncoder[T]
	Preference  encoder.PreferenceEncoder[T]
	Combine     encoder.CombineEncoder[T]
	Existential encoder.ExistentialEncoder[T]
	Arithmetic  encoder.ArithmeticEncoder[T]
}

// SlotEncoder produces the backend encoding of a slot whose qualifier is solved for
type SlotEncoder[S any] func(slot model.VariableSlot) S

// Serializer encodes constraints. Encoders of nested constraints use it to encode what they contain
type Serializer[T any] interface {
	Serialize(c model.Constraint) T
}

// Factory creates the encoders of a backend from the resources passed to Finish.
// nested must not be used before Factory returns
type Factory[T, S, R any] func(l *lattice.Lattice, v *verify.Verifier, resources R, nested Serializer[T]) (Encoders[T], SlotEncoder[S])

// Builder is a translator that has no encoders yet
type Builder[T, S, R any] struct {
	name     string
	lattice  *lattice.Lattice
	verifier *verify.Verifier
	neutral  T
	factory  Factory[T, S, R]
}

func NewBuilder[T, S, R any](name string, l *lattice.Lattice, v *verify.Verifier, neutral T, factory Factory[T, S, R]) *Builder[T, S, R] {
	return &Builder[T, S, R]{
		name:     name,
		lattice:  l,
		verifier: v,
		neutral:  neutral,
		factory:  factory,
	}
}

// Finish creates the encoders from resources. The returned translator never changes afterwards
func (b *Builder[T, S, R]) Finish(resources R) *Translator[T, S] {
	t := &Translator[T, S]{
		name:     b.name,
		lattice:  b.lattice,
		verifier: b.verifier,
		neutral:  b.neutral,
	}
	t.encoders, t.slotEncoder = b.factory(b.lattice, b.verifier, resources, t)
	t.ready = true
	logger.Debug("translator ready", "backend", b.name, "unsupported", t.Unsupported())
	return t
}

type Translator[T, S any] struct {
	name        string
	lattice     *lattice.Lattice
	verifier    *verify.Verifier
	neutral     T
	encoders    Encoders[T]
	slotEncoder SlotEncoder[S]
	ready       bool
}

func (t *Translator[T, S]) Name() string { return t.name }
func (t *Translator[T, S]) Lattice() *lattice.Lattice { return t.lattice }
func (t *Translator[T, S]) Verifier() *verify.Verifier { return t.verifier }
func (t *Translator[T, S]) Neutral() T { return t.neutral }

func (t *Translator[T, S]) mustBeReady() {
	if t == nil || !t.ready {
		name := "<nil>"
		if t != nil {
			name = t.name
		}
		qerr.Bug(qerr.NewTranslatorNotFinished{Backend: name})
	}
}

// Serialize encodes c. Constraints of a kind without an encoder encode to the neutral value
func (t *Translator[T, S]) Serialize(c model.Constraint) T {
	t.mustBeReady()
	switch c := c.(type) {
	case *model.Subtype:
		if t.encoders.Subtype == nil {
			return t.neutral
		}
		return encoder.DispatchSubtype(t.encoders.Subtype, c)
	case *model.Equality:
		if t.encoders.Equality == nil {
			return t.neutral
		}
		return encoder.DispatchEquality(t.encoders.Equality, c)
	case *model.Inequality:
		if t.encoders.Inequality == nil {
			return t.neutral
		}
		return encoder.DispatchInequality(t.encoders.Inequality, c)
	case *model.Comparable:
		if t.encoders.Comparable == nil {
			return t.neutral
		}
		return encoder.DispatchComparable(t.encoders.Comparable, c)
	case *model.Combine:
		if t.encoders.Combine == nil {
			return t.neutral
		}
		return encoder.DispatchCombine(t.encoders.Combine, c)
	case *model.Arithmetic:
		if t.encoders.Arithmetic == nil {
			return t.neutral
		}
		return encoder.DispatchArithmetic(t.encoders.Arithmetic, c)
	case *model.Preference:
		if t.encoders.Preference == nil {
			return t.neutral
		}
		return t.encoders.Preference.EncodePreference(c)
	case *model.ExistentialConstraint:
		if t.encoders.Existential == nil {
			return t.neutral
		}
		return t.encoders.Existential.EncodeExistential(c)
	default:
		qerr.Bug(qerr.NewUnknownConstraint{Constraint: c})
		panic("unreachable")
	}
}

// SerializeSlot encodes a slot. Backends without a slot encoder return the zero value of S
func (t *Translator[T, S]) SerializeSlot(slot model.VariableSlot) S {
	t.mustBeReady()
	if t.slotEncoder == nil {
		var none S
		return none
	}
	return t.slotEncoder(slot)
}

// Supports reports whether constraints of kind are encoded, rather than ignored
func (t *Translator[T, S]) Supports(kind model.ConstraintKind) bool {
	switch kind {
	case model.SubtypeKind:
		return t.encoders.Subtype != nil
	case model.EqualityKind:
		return t.encoders.Equality != nil
	case model.InequalityKind:
		return t.encoders.Inequality != nil
	case model.ComparableKind:
		return t.encoders.Comparable != nil
	case model.PreferenceKind:
		return t.encoders.Preference != nil
	case model.CombineKind:
		return t.encoders.Combine != nil
	case model.ExistentialConstraintKind:
		return t.encoders.Existential != nil
	case model.ArithmeticKind:
		return t.encoders.Arithmetic != nil
	default:
		return false
	}
}

// Unsupported lists the constraint kinds this translator ignores
func (t *Translator[T, S]) Unsupported() []model.ConstraintKind {
	var kinds []model.ConstraintKind
	for _, kind := range model.ConstraintKinds {
		if !t.Supports(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
