// Package encoder declares one encoder per constraint kind, and the dispatch that picks which
// of an encoder's methods applies to a constraint depending on the kinds of its operands.
//
// A backend implements these interfaces for its own encoded type T. Encoders of binary
// constraints never see two constants: they implement EncodeConstantConstant by deciding the
// constraint with the verifier, returning the Empty or Contradiction value of Base.
package encoder

import (
	"fmt"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/verify"
)

// BinaryEncoder encodes a relation between two slots, one method per combination of operand kinds
type BinaryEncoder[T any] interface {
	EncodeVariableVariable(fst, snd model.VariableSlot) T
	EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) T
	EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) T
	EncodeConstantConstant(fst, snd *model.Constant) T
}

type SubtypeEncoder[T any] interface {
	BinaryEncoder[T]
}

type EqualityEncoder[T any] interface {
	BinaryEncoder[T]
}

type InequalityEncoder[T any] interface {
	BinaryEncoder[T]
}

type ComparableEncoder[T any] interface {
	BinaryEncoder[T]
}

// CombineEncoder encodes result = combine(target, decl)
type CombineEncoder[T any] interface {
	EncodeVariableVariable(target, decl model.VariableSlot, result *model.Combination) T
	EncodeVariableConstant(target model.VariableSlot, decl *model.Constant, result *model.Combination) T
	EncodeConstantVariable(target *model.Constant, decl model.VariableSlot, result *model.Combination) T
	EncodeConstantConstant(target, decl *model.Constant, result *model.Combination) T
}

// ArithmeticEncoder encodes result = left op right
type ArithmeticEncoder[T any] interface {
	EncodeVariableVariable(op model.ArithmeticOp, left, right model.VariableSlot, result *model.Combination) T
	EncodeVariableConstant(op model.ArithmeticOp, left model.VariableSlot, right *model.Constant, result *model.Combination) T
	EncodeConstantVariable(op model.ArithmeticOp, left *model.Constant, right model.VariableSlot, result *model.Combination) T
	EncodeConstantConstant(op model.ArithmeticOp, left, right *model.Constant, result *model.Combination) T
}

type PreferenceEncoder[T any] interface {
	EncodePreference(c *model.Preference) T
}

type ExistentialEncoder[T any] interface {
	EncodeExistential(c *model.ExistentialConstraint) T
}

// Base holds what every encoder of a backend shares
type Base[T any] struct {
	Lattice  *lattice.Lattice
	Verifier *verify.Verifier
	// Empty is the value of a constraint that always holds
	Empty T
	// Contradiction is the value of a constraint that never holds
	Contradiction T
}

// Decide returns Empty when holds is true, and Contradiction otherwise
func (b Base[T]) Decide(holds bool) T {
	if holds {
		return b.Empty
	}
	return b.Contradiction
}

// Dispatch calls the method of enc matching the kinds of fst and snd
func Dispatch[T any](enc BinaryEncoder[T], fst, snd model.Slot) T {
	switch fst := fst.(type) {
	case *model.Constant:
		switch snd := snd.(type) {
		case *model.Constant:
			return enc.EncodeConstantConstant(fst, snd)
		case model.VariableSlot:
			return enc.EncodeConstantVariable(fst, snd)
		}
	case model.VariableSlot:
		switch snd := snd.(type) {
		case *model.Constant:
			return enc.EncodeVariableConstant(fst, snd)
		case model.VariableSlot:
			return enc.EncodeVariableVariable(fst, snd)
		}
	}
	panic(fmt.Sprintf("cannot dispatch on slots %v (%T) and %v (%T)", fst, fst, snd, snd))
}

func DispatchSubtype[T any](enc SubtypeEncoder[T], c *model.Subtype) T {
	return Dispatch[T](enc, c.Subtype, c.Supertype)
}

func DispatchEquality[T any](enc EqualityEncoder[T], c *model.Equality) T {
	return Dispatch[T](enc, c.First, c.Second)
}

func DispatchInequality[T any](enc InequalityEncoder[T], c *model.Inequality) T {
	return Dispatch[T](enc, c.First, c.Second)
}

func DispatchComparable[T any](enc ComparableEncoder[T], c *model.Comparable) T {
	return Dispatch[T](enc, c.First, c.Second)
}

func DispatchCombine[T any](enc CombineEncoder[T], c *model.Combine) T {
	switch target := c.Target.(type) {
	case *model.Constant:
		switch decl := c.Declared.(type) {
		case *model.Constant:
			return enc.EncodeConstantConstant(target, decl, c.Result)
		case model.VariableSlot:
			return enc.EncodeConstantVariable(target, decl, c.Result)
		}
	case model.VariableSlot:
		switch decl := c.Declared.(type) {
		case *model.Constant:
			return enc.EncodeVariableConstant(target, decl, c.Result)
		case model.VariableSlot:
			return enc.EncodeVariableVariable(target, decl, c.Result)
		}
	}
	panic(fmt.Sprintf("cannot dispatch combine constraint %v", c))
}

func DispatchArithmetic[T any](enc ArithmeticEncoder[T], c *model.Arithmetic) T {
	switch left := c.Left.(type) {
	case *model.Constant:
		switch right := c.Right.(type) {
		case *model.Constant:
			return enc.EncodeConstantConstant(c.Op, left, right, c.Result)
		case model.VariableSlot:
			return enc.EncodeConstantVariable(c.Op, left, right, c.Result)
		}
	case model.VariableSlot:
		switch right := c.Right.(type) {
		case *model.Constant:
			return enc.EncodeVariableConstant(c.Op, left, right, c.Result)
		case model.VariableSlot:
			return enc.EncodeVariableVariable(c.Op, left, right, c.Result)
		}
	}
	panic(fmt.Sprintf("cannot dispatch arithmetic constraint %v", c))
}
