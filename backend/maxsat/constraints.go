package maxsat

import (
	"github.com/cottand/qinfer/backend"
	"github.com/cottand/qinfer/model"
	"github.com/go-air/gini/z"
)

type subtypeEncoder struct{ *common }

func (e subtypeEncoder) EncodeVariableVariable(sub, super model.VariableSlot) Clauses {
	return e.forbid(sub, super, e.Lattice.IsSubtypeIndex)
}

func (e subtypeEncoder) EncodeVariableConstant(sub model.VariableSlot, super *model.Constant) Clauses {
	s := e.ordinal(super)
	return e.forbidOne(sub, func(i int) bool { return e.Lattice.IsSubtypeIndex(i, s) })
}

func (e subtypeEncoder) EncodeConstantVariable(sub *model.Constant, super model.VariableSlot) Clauses {
	s := e.ordinal(sub)
	return e.forbidOne(super, func(j int) bool { return e.Lattice.IsSubtypeIndex(s, j) })
}

func (e subtypeEncoder) EncodeConstantConstant(sub, super *model.Constant) Clauses {
	return e.Decide(e.Verifier.IsSubtype(sub, super))
}

type equalityEncoder struct{ *common }

func (e equalityEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) Clauses {
	clauses := Clauses{}
	for i := 0; i < e.Lattice.Len(); i++ {
		x, y := e.lit(fst, i), e.lit(snd, i)
		clauses = append(clauses, []z.Lit{x.Not(), y}, []z.Lit{x, y.Not()})
	}
	return clauses
}

func (e equalityEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) Clauses {
	return Clauses{{e.lit(fst, e.ordinal(snd))}}
}

func (e equalityEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) Clauses {
	return e.EncodeVariableConstant(snd, fst)
}

func (e equalityEncoder) EncodeConstantConstant(fst, snd *model.Constant) Clauses {
	return e.Decide(e.Verifier.AreEqual(fst, snd))
}

type inequalityEncoder struct{ *common }

func (e inequalityEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) Clauses {
	return e.forbid(fst, snd, func(i, j int) bool { return i != j })
}

func (e inequalityEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) Clauses {
	return Clauses{{e.lit(fst, e.ordinal(snd)).Not()}}
}

func (e inequalityEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) Clauses {
	return e.EncodeVariableConstant(snd, fst)
}

func (e inequalityEncoder) EncodeConstantConstant(fst, snd *model.Constant) Clauses {
	return e.Decide(!e.Verifier.AreEqual(fst, snd))
}

type comparableEncoder struct{ *common }

func (e comparableEncoder) related(i, j int) bool {
	return e.Lattice.IsSubtypeIndex(i, j) || e.Lattice.IsSubtypeIndex(j, i)
}

func (e comparableEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) Clauses {
	return e.forbid(fst, snd, e.related)
}

func (e comparableEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) Clauses {
	s := e.ordinal(snd)
	return e.forbidOne(fst, func(i int) bool { return e.related(i, s) })
}

func (e comparableEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) Clauses {
	return e.EncodeVariableConstant(snd, fst)
}

func (e comparableEncoder) EncodeConstantConstant(fst, snd *model.Constant) Clauses {
	return e.Decide(e.Verifier.AreComparable(fst, snd))
}

// combineEncoder implies the qualifier of the result for every pair of operand qualifiers
type combineEncoder struct{ *common }

func (e combineEncoder) EncodeVariableVariable(target, decl model.VariableSlot, result *model.Combination) Clauses {
	clauses := Clauses{}
	n := e.Lattice.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			clauses = append(clauses, []z.Lit{
				e.lit(target, i).Not(), e.lit(decl, j).Not(), e.lit(result, e.Lattice.CombineIndex(i, j)),
			})
		}
	}
	return clauses
}

func (e combineEncoder) EncodeVariableConstant(target model.VariableSlot, decl *model.Constant, result *model.Combination) Clauses {
	clauses := Clauses{}
	d := e.ordinal(decl)
	for i := 0; i < e.Lattice.Len(); i++ {
		clauses = append(clauses, []z.Lit{e.lit(target, i).Not(), e.lit(result, e.Lattice.CombineIndex(i, d))})
	}
	return clauses
}

func (e combineEncoder) EncodeConstantVariable(target *model.Constant, decl model.VariableSlot, result *model.Combination) Clauses {
	clauses := Clauses{}
	t := e.ordinal(target)
	for j := 0; j < e.Lattice.Len(); j++ {
		clauses = append(clauses, []z.Lit{e.lit(decl, j).Not(), e.lit(result, e.Lattice.CombineIndex(t, j))})
	}
	return clauses
}

func (e combineEncoder) EncodeConstantConstant(target, decl *model.Constant, result *model.Combination) Clauses {
	return Clauses{{e.lit(result, e.Lattice.CombineIndex(e.ordinal(target), e.ordinal(decl)))}}
}

// arithmeticEncoder is combineEncoder over the arithmetic rule. The rule is the same for every op
type arithmeticEncoder struct{ *common }

func (e arithmeticEncoder) EncodeVariableVariable(_ model.ArithmeticOp, left, right model.VariableSlot, result *model.Combination) Clauses {
	clauses := Clauses{}
	n := e.Lattice.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			clauses = append(clauses, []z.Lit{
				e.lit(left, i).Not(), e.lit(right, j).Not(), e.lit(result, e.Lattice.ArithmeticIndex(i, j)),
			})
		}
	}
	return clauses
}

func (e arithmeticEncoder) EncodeVariableConstant(_ model.ArithmeticOp, left model.VariableSlot, right *model.Constant, result *model.Combination) Clauses {
	clauses := Clauses{}
	r := e.ordinal(right)
	for i := 0; i < e.Lattice.Len(); i++ {
		clauses = append(clauses, []z.Lit{e.lit(left, i).Not(), e.lit(result, e.Lattice.ArithmeticIndex(i, r))})
	}
	return clauses
}

func (e arithmeticEncoder) EncodeConstantVariable(_ model.ArithmeticOp, left *model.Constant, right model.VariableSlot, result *model.Combination) Clauses {
	clauses := Clauses{}
	l := e.ordinal(left)
	for j := 0; j < e.Lattice.Len(); j++ {
		clauses = append(clauses, []z.Lit{e.lit(right, j).Not(), e.lit(result, e.Lattice.ArithmeticIndex(l, j))})
	}
	return clauses
}

func (e arithmeticEncoder) EncodeConstantConstant(_ model.ArithmeticOp, left, right *model.Constant, result *model.Combination) Clauses {
	return Clauses{{e.lit(result, e.Lattice.ArithmeticIndex(e.ordinal(left), e.ordinal(right)))}}
}

type preferenceEncoder struct{ *common }

func (e preferenceEncoder) EncodePreference(c *model.Preference) Clauses {
	return Clauses{{e.lit(c.Variable, e.ordinal(c.Goal))}}
}

// existentialEncoder guards each nested clause with the existence of the potential slot
type existentialEncoder struct {
	*common
	nested backend.Serializer[Clauses]
}

func (e existentialEncoder) EncodeExistential(c *model.ExistentialConstraint) Clauses {
	if _, ok := c.Potential.(*model.Constant); ok {
		// a constant qualifier always exists
		return e.encodeAll(c.PotentialConstraints, nil)
	}
	exists := e.lits.Existence(c.Potential.ID())
	clauses := e.encodeAll(c.PotentialConstraints, []z.Lit{exists.Not()})
	return append(clauses, e.encodeAll(c.AlternateConstraints, []z.Lit{exists})...)
}

func (e existentialEncoder) encodeAll(constraints []model.Constraint, guard []z.Lit) Clauses {
	clauses := Clauses{}
	for _, constraint := range constraints {
		for _, clause := range e.nested.Serialize(constraint) {
			guarded := make([]z.Lit, 0, len(guard)+len(clause))
			guarded = append(append(guarded, guard...), clause...)
			clauses = append(clauses, guarded)
		}
	}
	return clauses
}
