package bitvector

import (
	"context"
	"testing"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/solver"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = model.MissingLocation

func lowHigh(t *testing.T) *lattice.Lattice {
	l, err := lattice.NewBuilder().Qualifier("LOW", "HIGH").Subtype("LOW", "HIGH").Build()
	require.NoError(t, err)
	return l
}

// chain builds A <: B <: C, which needs two bits and leaves the code 3 unused
func chain(t *testing.T) *lattice.Lattice {
	l, err := lattice.NewBuilder().Qualifier("A", "B", "C").Subtype("A", "B").Subtype("B", "C").Build()
	require.NoError(t, err)
	return l
}

func problem(l *lattice.Lattice, slots *model.Slots, cs ...model.Constraint) *solver.Problem {
	constraints := model.NewConstraints()
	constraints.Add(cs...)
	return &solver.Problem{Lattice: l, Slots: slots, Constraints: constraints}
}

func TestWidth(t *testing.T) {
	for n, expected := range map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4} {
		assert.Equal(t, expected, Width(n), "width of %d qualifiers", n)
	}
}

func TestConstantConstant(t *testing.T) {
	l := lowHigh(t)
	slots := model.NewSlots()
	low, high := slots.Constant("LOW"), slots.Constant("HIGH")
	c := logic.NewC()
	tr := NewTranslator(l, NewVectors(l, slots, c))

	assert.Equal(t, c.T, tr.Serialize(model.NewEquality(loc, low, low)))
	assert.Equal(t, c.F, tr.Serialize(model.NewEquality(loc, low, high)))
	assert.Equal(t, c.T, tr.Serialize(model.NewSubtype(loc, low, high)))
	assert.Equal(t, c.F, tr.Serialize(model.NewSubtype(loc, high, low)))
	assert.Equal(t, c.F, tr.Serialize(model.NewInequality(loc, high, high)))
	assert.Equal(t, c.T, tr.Serialize(model.NewComparable(loc, low, high)))
}

func TestSolve(t *testing.T) {
	t.Run("variable equal to constant", func(t *testing.T) {
		l := lowHigh(t)
		slots := model.NewSlots()
		v1 := slots.Variable(loc)
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots, model.NewEquality(loc, v1, slots.Constant("HIGH"))))
		require.NoError(t, err)
		assert.True(t, result.Satisfiable)
		assert.Equal(t, map[model.SlotID]lattice.Qualifier{v1.ID(): "HIGH"}, result.Solutions)
	})

	t.Run("contradicting constants", func(t *testing.T) {
		l := lowHigh(t)
		slots := model.NewSlots()
		c := model.NewEquality(loc, slots.Constant("LOW"), slots.Constant("HIGH"))
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots, c))
		require.NoError(t, err)
		assert.False(t, result.Satisfiable)
		assert.Equal(t, []model.Constraint{c}, result.UnsatCore)
	})

	t.Run("unused codes are never chosen", func(t *testing.T) {
		l := chain(t)
		slots := model.NewSlots()
		v1, v2 := slots.Variable(loc), slots.Variable(loc)
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots,
			model.NewSubtype(loc, slots.Constant("C"), v1),
			model.NewInequality(loc, v1, v2),
			model.NewSubtype(loc, slots.Constant("B"), v2),
		))
		require.NoError(t, err)
		require.True(t, result.Satisfiable)
		assert.Equal(t, lattice.Qualifier("C"), result.Solutions[v1.ID()])
		assert.Equal(t, lattice.Qualifier("B"), result.Solutions[v2.ID()])
	})

	t.Run("core names the conflicting constraints", func(t *testing.T) {
		l := chain(t)
		slots := model.NewSlots()
		v1 := slots.Variable(loc)
		above := model.NewSubtype(loc, slots.Constant("B"), v1)
		below := model.NewSubtype(loc, v1, slots.Constant("A"))
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots, above, below))
		require.NoError(t, err)
		assert.False(t, result.Satisfiable)
		assert.ElementsMatch(t, []model.Constraint{above, below}, result.UnsatCore)
	})

	t.Run("arithmetic follows the lattice rule", func(t *testing.T) {
		l := chain(t)
		slots := model.NewSlots()
		left, right := slots.Variable(loc), slots.Variable(loc)
		sum := slots.Combination(loc, left.ID(), right.ID())
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots,
			model.NewEquality(loc, left, slots.Constant("B")),
			model.NewEquality(loc, right, slots.Constant("A")),
			model.NewArithmetic(loc, model.Plus, left, right, sum),
		))
		require.NoError(t, err)
		require.True(t, result.Satisfiable)
		assert.Equal(t, lattice.Qualifier("B"), result.Solutions[sum.ID()])
	})

	t.Run("preferences", func(t *testing.T) {
		l := chain(t)
		slots := model.NewSlots()
		v1 := slots.Variable(loc)
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots,
			model.NewSubtype(loc, v1, slots.Constant("B")),
			model.NewPreference(loc, v1, slots.Constant("C"), 3),
			model.NewPreference(loc, v1, slots.Constant("B"), 1),
		))
		require.NoError(t, err)
		require.True(t, result.Satisfiable)
		assert.Equal(t, lattice.Qualifier("B"), result.Solutions[v1.ID()])
		assert.Equal(t, 1, result.Stats.SatisfiedPreferences)
	})

	t.Run("existential slot falls back to its alternative", func(t *testing.T) {
		l := chain(t)
		slots := model.NewSlots()
		potential := slots.Variable(loc)
		alternative := slots.Constant("A")
		exists := slots.Existential(loc, potential.ID(), alternative.ID())
		result, err := (&Backend{}).Solve(context.Background(), problem(l, slots,
			model.NewEquality(loc, potential, slots.Constant("C")),
			model.NewInequality(loc, exists, slots.Constant("C")),
		))
		require.NoError(t, err)
		require.True(t, result.Satisfiable)
		assert.Equal(t, lattice.Qualifier("A"), result.Solutions[exists.ID()])
	})
}

func TestDecodeOutOfRange(t *testing.T) {
	l := chain(t)
	slots := model.NewSlots()
	v1 := slots.Variable(loc)
	vectors := NewVectors(l, slots, logic.NewC())

	err := qerr.Catch(func() { Decode(l, vectors, func(z.Lit) bool { return true }, v1) })
	require.NotNil(t, err)
	assert.Equal(t, qerr.UndecodableValue, err.Code())
	assert.Contains(t, err.Error(), "the code 11")
}
