package lattice

import (
	"github.com/cottand/qinfer/qerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func lowHigh(t *testing.T) *Lattice {
	l, err := NewBuilder().
		Qualifier("LOW", "HIGH").
		Subtype("LOW", "HIGH").
		Build()
	require.NoError(t, err)
	return l
}

// diamond builds
//
//	     Top
//	    /   \
//	  Left  Right
//	    \   /
//	    Bottom
func diamond(t *testing.T) *Lattice {
	l, err := NewBuilder().
		Qualifier("Top", "Left", "Right", "Bottom").
		Subtype("Left", "Top").
		Subtype("Right", "Top").
		Subtype("Bottom", "Left").
		Subtype("Bottom", "Right").
		Build()
	require.NoError(t, err)
	return l
}

func TestLowHigh(t *testing.T) {
	l := lowHigh(t)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, Qualifier("HIGH"), l.Top())
	assert.Equal(t, Qualifier("LOW"), l.Bottom())
	assert.True(t, l.IsSubtype("LOW", "HIGH"))
	assert.False(t, l.IsSubtype("HIGH", "LOW"))
	assert.Equal(t, Qualifier("HIGH"), l.Join("LOW", "HIGH"))
	assert.Equal(t, Qualifier("LOW"), l.Meet("HIGH", "LOW"))
	assert.Equal(t, "LOW <: HIGH, HIGH", l.String())
}

func TestDiamond(t *testing.T) {
	l := diamond(t)
	assert.Equal(t, Qualifier("Top"), l.Top())
	assert.Equal(t, Qualifier("Bottom"), l.Bottom())
	assert.True(t, l.IsSubtype("Bottom", "Top"), "closure is transitive")
	assert.False(t, l.AreComparable("Left", "Right"))
	assert.Equal(t, Qualifier("Top"), l.Join("Left", "Right"))
	assert.Equal(t, Qualifier("Bottom"), l.Meet("Left", "Right"))
	assert.Equal(t, "Top, Left <: Top, Right <: Top, Bottom <: Left & Right", l.String())
}

func TestSubtypeAgreesWithJoinAndMeet(t *testing.T) {
	for name, l := range map[string]*Lattice{"low-high": lowHigh(t), "diamond": diamond(t)} {
		t.Run(name, func(t *testing.T) {
			for _, a := range l.Qualifiers() {
				for _, b := range l.Qualifiers() {
					if !l.IsSubtype(a, b) {
						continue
					}
					assert.Equal(t, b, l.Join(a, b), "join(%s, %s)", a, b)
					assert.Equal(t, a, l.Meet(a, b), "meet(%s, %s)", a, b)
				}
			}
		})
	}
}

func TestRules(t *testing.T) {
	t.Run("defaults to join", func(t *testing.T) {
		l := lowHigh(t)
		assert.Equal(t, Qualifier("HIGH"), l.Combine("LOW", "HIGH"))
		assert.Equal(t, Qualifier("LOW"), l.Arithmetic("LOW", "LOW"))
	})

	t.Run("read-only receiver", func(t *testing.T) {
		l, err := NewBuilder().
			Qualifier("ReadOnly", "Mutable").
			Subtype("Mutable", "ReadOnly").
			CombineRule(`target == "ReadOnly" ? "ReadOnly" : decl`).
			ArithmeticRule("bottom").
			Build()
		require.NoError(t, err)
		assert.Equal(t, Qualifier("ReadOnly"), l.Combine("ReadOnly", "Mutable"))
		assert.Equal(t, Qualifier("Mutable"), l.Combine("Mutable", "Mutable"))
		assert.Equal(t, Qualifier("ReadOnly"), l.Combine("Mutable", "ReadOnly"))
		assert.Equal(t, Qualifier("Mutable"), l.Arithmetic("ReadOnly", "ReadOnly"))
	})

	t.Run("helpers", func(t *testing.T) {
		l, err := NewBuilder().
			Qualifier("Top", "Left", "Right", "Bottom").
			Subtype("Left", "Top").
			Subtype("Right", "Top").
			Subtype("Bottom", "Left").
			Subtype("Bottom", "Right").
			CombineRule(`isSubtype(target, decl) ? meet(target, decl) : top`).
			Build()
		require.NoError(t, err)
		assert.Equal(t, Qualifier("Bottom"), l.Combine("Bottom", "Left"))
		assert.Equal(t, Qualifier("Top"), l.Combine("Left", "Right"))
	})
}

func TestBuildErrors(t *testing.T) {
	testCases := []struct {
		name    string
		builder *Builder
		errMsg  string
	}{
		{
			name:    "empty",
			builder: NewBuilder(),
			errMsg:  "no qualifiers",
		},
		{
			name:    "duplicate",
			builder: NewBuilder().Qualifier("A", "A"),
			errMsg:  "declared twice",
		},
		{
			name:    "unknown edge",
			builder: NewBuilder().Qualifier("A").Subtype("A", "B"),
			errMsg:  "unknown qualifier 'B'",
		},
		{
			name:    "cycle",
			builder: NewBuilder().Qualifier("A", "B").Subtype("A", "B").Subtype("B", "A"),
			errMsg:  "subtype cycle",
		},
		{
			name:    "no top",
			builder: NewBuilder().Qualifier("A", "B"),
			errMsg:  "no least upper bound",
		},
		{
			name: "ambiguous join",
			builder: NewBuilder().Qualifier("Top", "X", "Y", "A", "B", "Bottom").
				Subtype("X", "Top").Subtype("Y", "Top").
				Subtype("A", "X").Subtype("A", "Y").
				Subtype("B", "X").Subtype("B", "Y").
				Subtype("Bottom", "A").Subtype("Bottom", "B"),
			errMsg: "no unique least upper bound",
		},
		{
			name:    "rule produces unknown qualifier",
			builder: NewBuilder().Qualifier("A").CombineRule(`"B"`),
			errMsg:  "combine rule",
		},
		{
			name:    "rule produces non-qualifier",
			builder: NewBuilder().Qualifier("A").ArithmeticRule(`1 + 1`),
			errMsg:  "expected a qualifier name",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestUnknownQualifierIsBug(t *testing.T) {
	l := lowHigh(t)
	err := qerr.Catch(func() {
		l.Join("LOW", "MEDIUM")
	})
	require.NotNil(t, err)
	assert.Equal(t, qerr.UnknownQualifier, err.Code())
}
