package bitvector

import (
	"github.com/cottand/qinfer/backend"
	"github.com/cottand/qinfer/encoder"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/verify"
	"github.com/go-air/gini/z"
)

const Name = "bitvector"

// NewTranslator returns a finished translator writing into the circuit of vectors.
// Constraints encode to a single literal of that circuit
func NewTranslator(l *lattice.Lattice, vectors *Vectors) *backend.Translator[z.Lit, z.Lit] {
	return backend.NewBuilder(Name, l, verify.New(l), vectors.c.T, newEncoders).Finish(vectors)
}

func newEncoders(l *lattice.Lattice, v *verify.Verifier, vectors *Vectors, nested backend.Serializer[z.Lit]) (backend.Encoders[z.Lit], backend.SlotEncoder[z.Lit]) {
	c := &common{
		Base:    encoder.Base[z.Lit]{Lattice: l, Verifier: v, Empty: vectors.c.T, Contradiction: vectors.c.F},
		Vectors: vectors,
	}
	return backend.Encoders[z.Lit]{
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
	encoder.Base[z.Lit]
	*Vectors
}

func (c *common) ordinal(constant *model.Constant) int {
	i, ok := c.Lattice.Index(constant.Value)
	if !ok {
		qerr.Bug(qerr.NewUnknownQualifier{Name: string(constant.Value)})
	}
	return i
}

// forbid holds when no pair of qualifiers rejected by allowed is taken by fst and snd
func (c *common) forbid(fst, snd []z.Lit, allowed func(i, j int) bool) z.Lit {
	var conj []z.Lit
	n := c.Lattice.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !allowed(i, j) {
				conj = append(conj, c.c.And(c.Is(fst, i), c.Is(snd, j)).Not())
			}
		}
	}
	return c.c.Ands(conj...)
}

// forbidOne holds when vec takes none of the qualifiers rejected by allowed
func (c *common) forbidOne(vec []z.Lit, allowed func(i int) bool) z.Lit {
	var conj []z.Lit
	for i := 0; i < c.Lattice.Len(); i++ {
		if !allowed(i) {
			conj = append(conj, c.Is(vec, i).Not())
		}
	}
	return c.c.Ands(conj...)
}

// table holds when result is table(i, j) for the qualifiers i and j of fst and snd.
// A fixed ordinal for fst or snd is passed as fixed, -1 otherwise
func (c *common) table(fst, snd, result []z.Lit, fixedFst, fixedSnd int, table func(i, j int) int) z.Lit {
	var conj []z.Lit
	n := c.Lattice.Len()
	for i := 0; i < n; i++ {
		if fixedFst >= 0 && i != fixedFst {
			continue
		}
		for j := 0; j < n; j++ {
			if fixedSnd >= 0 && j != fixedSnd {
				continue
			}
			premise := c.c.And(c.Is(fst, i), c.Is(snd, j))
			conj = append(conj, c.c.Implies(premise, c.Is(result, table(i, j))))
		}
	}
	return c.c.Ands(conj...)
}

// encodeSlot keeps slot within the codes of the lattice, and ties existential slots to
// their potential or alternative slot
func (c *common) encodeSlot(slot model.VariableSlot) z.Lit {
	vec := c.Inputs(slot.ID())
	wellFormed := c.InRange(vec)
	if e, ok := slot.(*model.Existential); ok {
		exists := c.Existence(e.Potential)
		potential := c.Equal(vec, c.Inputs(e.Potential))
		alternative := c.Equal(vec, c.Inputs(e.Alternative))
		wellFormed = c.c.And(wellFormed, c.c.Choice(exists, potential, alternative))
	}
	return wellFormed
}

type subtypeEncoder struct{ *common }

func (e subtypeEncoder) EncodeVariableVariable(sub, super model.VariableSlot) z.Lit {
	return e.forbid(e.Of(sub), e.Of(super), e.Lattice.IsSubtypeIndex)
}

func (e subtypeEncoder) EncodeVariableConstant(sub model.VariableSlot, super *model.Constant) z.Lit {
	s := e.ordinal(super)
	return e.forbidOne(e.Of(sub), func(i int) bool { return e.Lattice.IsSubtypeIndex(i, s) })
}

func (e subtypeEncoder) EncodeConstantVariable(sub *model.Constant, super model.VariableSlot) z.Lit {
	s := e.ordinal(sub)
	return e.forbidOne(e.Of(super), func(j int) bool { return e.Lattice.IsSubtypeIndex(s, j) })
}

func (e subtypeEncoder) EncodeConstantConstant(sub, super *model.Constant) z.Lit {
	return e.Decide(e.Verifier.IsSubtype(sub, super))
}

type equalityEncoder struct{ *common }

func (e equalityEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) z.Lit {
	return e.Equal(e.Of(fst), e.Of(snd))
}

func (e equalityEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) z.Lit {
	return e.Is(e.Of(fst), e.ordinal(snd))
}

func (e equalityEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) z.Lit {
	return e.EncodeVariableConstant(snd, fst)
}

func (e equalityEncoder) EncodeConstantConstant(fst, snd *model.Constant) z.Lit {
	return e.Decide(e.Verifier.AreEqual(fst, snd))
}

type inequalityEncoder struct{ *common }

func (e inequalityEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) z.Lit {
	return e.Equal(e.Of(fst), e.Of(snd)).Not()
}

func (e inequalityEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) z.Lit {
	return e.Is(e.Of(fst), e.ordinal(snd)).Not()
}

func (e inequalityEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) z.Lit {
	return e.EncodeVariableConstant(snd, fst)
}

func (e inequalityEncoder) EncodeConstantConstant(fst, snd *model.Constant) z.Lit {
	return e.Decide(!e.Verifier.AreEqual(fst, snd))
}

type comparableEncoder struct{ *common }

func (e comparableEncoder) related(i, j int) bool {
	return e.Lattice.IsSubtypeIndex(i, j) || e.Lattice.IsSubtypeIndex(j, i)
}

func (e comparableEncoder) EncodeVariableVariable(fst, snd model.VariableSlot) z.Lit {
	return e.forbid(e.Of(fst), e.Of(snd), e.related)
}

func (e comparableEncoder) EncodeVariableConstant(fst model.VariableSlot, snd *model.Constant) z.Lit {
	s := e.ordinal(snd)
	return e.forbidOne(e.Of(fst), func(i int) bool { return e.related(i, s) })
}

func (e comparableEncoder) EncodeConstantVariable(fst *model.Constant, snd model.VariableSlot) z.Lit {
	return e.EncodeVariableConstant(snd, fst)
}

func (e comparableEncoder) EncodeConstantConstant(fst, snd *model.Constant) z.Lit {
	return e.Decide(e.Verifier.AreComparable(fst, snd))
}

type combineEncoder struct{ *common }

func (e combineEncoder) EncodeVariableVariable(target, decl model.VariableSlot, result *model.Combination) z.Lit {
	return e.table(e.Of(target), e.Of(decl), e.Of(result), -1, -1, e.Lattice.CombineIndex)
}

func (e combineEncoder) EncodeVariableConstant(target model.VariableSlot, decl *model.Constant, result *model.Combination) z.Lit {
	return e.table(e.Of(target), e.Of(decl), e.Of(result), -1, e.ordinal(decl), e.Lattice.CombineIndex)
}

func (e combineEncoder) EncodeConstantVariable(target *model.Constant, decl model.VariableSlot, result *model.Combination) z.Lit {
	return e.table(e.Of(target), e.Of(decl), e.Of(result), e.ordinal(target), -1, e.Lattice.CombineIndex)
}

func (e combineEncoder) EncodeConstantConstant(target, decl *model.Constant, result *model.Combination) z.Lit {
	return e.Is(e.Of(result), e.Lattice.CombineIndex(e.ordinal(target), e.ordinal(decl)))
}

type arithmeticEncoder struct{ *common }

func (e arithmeticEncoder) EncodeVariableVariable(_ model.ArithmeticOp, left, right model.VariableSlot, result *model.Combination) z.Lit {
	return e.table(e.Of(left), e.Of(right), e.Of(result), -1, -1, e.Lattice.ArithmeticIndex)
}

func (e arithmeticEncoder) EncodeVariableConstant(_ model.ArithmeticOp, left model.VariableSlot, right *model.Constant, result *model.Combination) z.Lit {
	return e.table(e.Of(left), e.Of(right), e.Of(result), -1, e.ordinal(right), e.Lattice.ArithmeticIndex)
}

func (e arithmeticEncoder) EncodeConstantVariable(_ model.ArithmeticOp, left *model.Constant, right model.VariableSlot, result *model.Combination) z.Lit {
	return e.table(e.Of(left), e.Of(right), e.Of(result), e.ordinal(left), -1, e.Lattice.ArithmeticIndex)
}

func (e arithmeticEncoder) EncodeConstantConstant(_ model.ArithmeticOp, left, right *model.Constant, result *model.Combination) z.Lit {
	return e.Is(e.Of(result), e.Lattice.ArithmeticIndex(e.ordinal(left), e.ordinal(right)))
}

type preferenceEncoder struct{ *common }

func (e preferenceEncoder) EncodePreference(c *model.Preference) z.Lit {
	return e.Is(e.Of(c.Variable), e.ordinal(c.Goal))
}

type existentialEncoder struct {
	*common
	nested backend.Serializer[z.Lit]
}

func (e existentialEncoder) EncodeExistential(c *model.ExistentialConstraint) z.Lit {
	then := e.encodeAll(c.PotentialConstraints)
	if _, ok := c.Potential.(*model.Constant); ok {
		return then
	}
	otherwise := e.encodeAll(c.AlternateConstraints)
	return e.c.Choice(e.Existence(c.Potential.ID()), then, otherwise)
}

func (e existentialEncoder) encodeAll(constraints []model.Constraint) z.Lit {
	conj := make([]z.Lit, len(constraints))
	for i, constraint := range constraints {
		conj[i] = e.nested.Serialize(constraint)
	}
	return e.c.Ands(conj...)
}
