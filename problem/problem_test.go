package problem

import (
	"testing"
	"testing/fstest"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fieldAccess = `
lattice:
  qualifiers: [LOW, HIGH]
  subtypes: [[LOW, HIGH]]
  combine: "decl == top ? top : target"
slots:
  - {name: receiver, kind: variable, at: "Main.java:3:5"}
  - {name: field, kind: combination, of: [receiver, HIGH], at: "Main.java:4"}
  - {name: local, kind: refinement, of: [later]}
  - {name: later, kind: lub, of: [receiver, local]}
constraints:
  - {kind: combine, slots: [receiver, HIGH, field]}
  - {kind: subtype, slots: [local, HIGH], at: "Main.java:9"}
  - {kind: preference, slots: [receiver, LOW], weight: 3}
  - kind: existential
    slots: [receiver]
    then:
      - {kind: equality, slots: [local, LOW]}
    else:
      - {kind: arithmetic, op: "+", slots: [receiver, local, field]}
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(fieldAccess), "field.yaml")
	require.NoError(t, err)

	assert.Equal(t, "LOW <: HIGH, HIGH", p.Lattice.String())
	assert.Equal(t, lattice.Qualifier("HIGH"), p.Lattice.Combine("LOW", "HIGH"))
	assert.Equal(t, lattice.Qualifier("LOW"), p.Lattice.Combine("LOW", "LOW"))

	// HIGH is referred to by a declared slot, so it comes first
	assert.Equal(t, map[string]model.SlotID{"receiver": 2, "field": 3, "local": 4, "later": 5}, p.Names)
	assert.Equal(t, model.ConstantKind, p.Slots.Get(1).Kind())
	assert.Equal(t, "#3 = combine(#2, #1)", p.Slots.Get(3).String())
	assert.Equal(t, "#4 = refine(#5)", p.Slots.Get(4).String())
	assert.Equal(t, "#5 = lub(#2, #4)", p.Slots.Get(5).String())
	assert.Equal(t, model.Location{File: "Main.java", Line: 3, Column: 5}, p.Slots.Get(2).(model.VariableSlot).Location())

	constraints := p.Constraints.All()
	require.Len(t, constraints, 4)
	assert.Equal(t, "#3 := combine(#2, HIGH)", constraints[0].String())
	assert.Equal(t, "Main.java:9", constraints[1].Location().String())
	assert.Equal(t, "prefer #2 = LOW (3)", constraints[2].String())

	existential, ok := constraints[3].(*model.ExistentialConstraint)
	require.True(t, ok)
	require.Len(t, existential.PotentialConstraints, 1)
	require.Len(t, existential.AlternateConstraints, 1)
	assert.Equal(t, model.ArithmeticKind, existential.AlternateConstraints[0].Kind())
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{"problems/field.yaml": {Data: []byte(fieldAccess)}}
	p, err := Load(fsys, "problems/field.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Constraints.Len())

	_, err = Load(fsys, "problems/missing.yaml")
	assert.ErrorContains(t, err, "reading problem problems/missing.yaml")
}

func TestParseErrors(t *testing.T) {
	const lowHigh = "lattice: {qualifiers: [LOW, HIGH], subtypes: [[LOW, HIGH]]}\n"
	testCases := []struct {
		name     string
		yaml     string
		expected string
	}{
		{"bad yaml", "lattice: [", "parsing problem"},
		{"bad lattice", "lattice: {qualifiers: [A, B]}", "lattice: "},
		{"bad edge", "lattice: {qualifiers: [A], subtypes: [[A]]}", "expected [sub, super]"},
		{"unknown slot kind", lowHigh + "slots: [{name: x, kind: wildcard}]", "unknown slot kind 'wildcard'"},
		{"arity", lowHigh + "slots: [{name: x, kind: refinement}]", "derived from 1 slots, got 0"},
		{"duplicate", lowHigh + "slots: [{name: x, kind: variable}, {name: x, kind: variable}]", "declared twice"},
		{"qualifier name", lowHigh + "slots: [{name: LOW, kind: variable}]", "has the name of a qualifier"},
		{"dangling", lowHigh + "slots: [{name: x, kind: refinement, of: [y]}]", "refers to unknown slot 'y'"},
		{"unknown operand", lowHigh + "constraints: [{kind: equality, slots: [x, LOW]}]", "unknown slot 'x'"},
		{"unknown constraint kind", lowHigh + "constraints: [{kind: likes, slots: [LOW, LOW]}]", "unknown constraint kind 'likes'"},
		{"operand count", lowHigh + "constraints: [{kind: subtype, slots: [LOW]}]", "expected 2 slots, got 1"},
		{"preference of constant", lowHigh + "constraints: [{kind: preference, slots: [LOW, HIGH]}]", "'LOW' is not a variable slot"},
		{"result", lowHigh + "slots: [{name: x, kind: variable}]\nconstraints: [{kind: combine, slots: [x, x, x]}]", "result 'x' is not a combination slot"},
		{"bad location", lowHigh + "slots: [{name: x, kind: variable, at: nowhere}]", "location 'nowhere'"},
		{
			"nested",
			lowHigh + "slots: [{name: x, kind: variable}]\nconstraints: [{kind: existential, slots: [x], then: [{kind: subtype, slots: [x, MID]}]}]",
			"constraint 1 (existential): then: constraint 1 (subtype): unknown slot 'MID'",
		},
		{
			"nested preference",
			lowHigh + "slots: [{name: x, kind: variable}]\nconstraints: [{kind: existential, slots: [x], else: [{kind: preference, slots: [x, LOW]}]}]",
			"constraint 1 (existential): else: constraint 1: preferences cannot be nested in an existential constraint",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expected)
		})
	}
}

func TestParseLocation(t *testing.T) {
	testCases := []struct {
		in       string
		expected model.Location
	}{
		{"", model.MissingLocation},
		{"Main.java:3", model.Location{File: "Main.java", Line: 3}},
		{"Main.java:3:14", model.Location{File: "Main.java", Line: 3, Column: 14}},
		{`C:\src\Main.java:3:14`, model.Location{File: `C:\src\Main.java`, Line: 3, Column: 14}},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			loc, err := ParseLocation(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, loc)
		})
	}
}
