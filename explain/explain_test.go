package explain

import (
	"strings"
	"testing"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(line int) model.Location {
	return model.Location{File: "Main.java", Line: line}
}

func TestUnsolvableEmpty(t *testing.T) {
	_, err := Unsolvable(model.NewSlots(), nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestUnsolvableCycle(t *testing.T) {
	slots := model.NewSlots()
	// a refines b, b combines a with x
	bID := slots.NextID() + 1
	a := slots.Refinement(at(1), bID)
	b := slots.Combination(at(2), a.ID(), bID+1)
	x := slots.Variable(at(3))
	require.Equal(t, bID, b.ID())
	require.NoError(t, slots.Validate(mustLattice(t)))

	constraint := model.NewEquality(at(10), a, slots.Constant("HIGH"))
	text, err := Unsolvable(slots, []model.Constraint{constraint})
	require.NoError(t, err)

	expected := "" +
		"------------------ Unsatisfactory Constraints ------------------\n" +
		"\t#1 == HIGH \n\t\tMain.java:10\n" +
		"------------- Related Slots -------------\n" +
		"\t#3\n\t\tMain.java:3\n" +
		"\t#2 = combine(#1, #3)\n\t\tMain.java:2\n" +
		"\t#1 = refine(#2)\n\t\tMain.java:1\n"
	assert.Equal(t, expected, text)
	assert.Equal(t, 1, strings.Count(text, "\t"+x.String()+"\n"))
}

func TestSlotsArePrintedOnce(t *testing.T) {
	slots := model.NewSlots()
	v1, v2 := slots.Variable(at(1)), slots.Variable(at(2))
	lub := slots.LeastUpperBound(at(3), v1.ID(), v2.ID())
	high := slots.Constant("HIGH")

	printer := NewSlotPrinter(slots)
	first := printer.Constraint(model.NewSubtype(at(4), lub, high))
	second := printer.Constraint(model.NewEquality(at(5), v1, v2))

	assert.Equal(t, "\t#1\n\t\tMain.java:1\n\t#2\n\t\tMain.java:2\n\t#3 = lub(#1, #2)\n\t\tMain.java:3\n", first)
	assert.Empty(t, second)
	assert.Empty(t, printer.Slot(high), "constants are never printed")
}

func TestSolutions(t *testing.T) {
	solutions := map[model.SlotID]lattice.Qualifier{12: "LOW", 3: "HIGH"}
	assert.Equal(t, ""+
		"SlotID: 3   Annotation: HIGH\n"+
		"SlotID: 12  Annotation: LOW\n",
		Solutions(solutions, 40))
	assert.Empty(t, Solutions(nil, 0))
}

func TestStatistics(t *testing.T) {
	stats := solver.Stats{Backend: "maxsat", Slots: 2, Variables: 1, Constraints: 1}
	text := Statistics(stats)
	assert.True(t, strings.HasPrefix(text, "backend,maxsat\nslots,2\n"))
	assert.True(t, strings.HasSuffix(text, "satisfied_preferences,0/0\n"))
}

func mustLattice(t *testing.T) *lattice.Lattice {
	l, err := lattice.NewBuilder().Qualifier("LOW", "HIGH").Subtype("LOW", "HIGH").Build()
	require.NoError(t, err)
	return l
}
