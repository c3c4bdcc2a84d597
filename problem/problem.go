// Package problem reads inference problems written as YAML.
//
// A problem file declares a lattice, the slots of the problem and the constraints over them:
//
//	lattice:
//	  qualifiers: [LOW, HIGH]
//	  subtypes: [[LOW, HIGH]]
//	slots:
//	  - {name: x, kind: variable, at: "Main.java:3"}
//	  - {name: y, kind: refinement, of: [x]}
//	constraints:
//	  - {kind: subtype, slots: [y, HIGH], at: "Main.java:4"}
//
// Slots are referred to by name, and qualifiers of the lattice stand for their constant slot.
// Every declared slot has its id reserved before any is created, so that a slot may refer to
// one declared after it.
package problem

import (
	"io/fs"
	"strconv"
	"strings"

	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/solver"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var logger = log.DefaultLogger.With("section", "problem")

type File struct {
	Lattice     Lattice      `yaml:"lattice"`
	Slots       []Slot       `yaml:"slots"`
	Constraints []Constraint `yaml:"constraints"`
}

type Lattice struct {
	Qualifiers []string `yaml:"qualifiers"`
	// Subtypes are [sub, super] pairs
	Subtypes [][]string `yaml:"subtypes,omitempty"`

	Combine    string `yaml:"combine,omitempty"`
	Arithmetic string `yaml:"arithmetic,omitempty"`
}

type Slot struct {
	Name string `yaml:"name"`
	// Kind is one of variable, refinement, existential, combination or lub
	Kind string `yaml:"kind"`
	// Of lists the slots this slot is derived from
	Of []string `yaml:"of,omitempty"`

	At string `yaml:"at,omitempty"`
}

type Constraint struct {
	Kind   string   `yaml:"kind"`
	Slots  []string `yaml:"slots"`
	Op     string   `yaml:"op,omitempty"`
	Weight int      `yaml:"weight,omitempty"`
	At     string   `yaml:"at,omitempty"`

	// Then and Else are the nested constraints of an existential constraint
	Then []Constraint `yaml:"then,omitempty"`
	Else []Constraint `yaml:"else,omitempty"`
}

// Problem is a decoded problem file
type Problem struct {
	*solver.Problem
	// Names maps the declared slot names to their slot
	Names map[string]model.SlotID
}

// Load reads the problem file at path in fsys
func Load(fsys fs.FS, path string) (*Problem, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading problem %s", path)
	}
	return Parse(data, path)
}

// Parse decodes a problem file. name is only used in error messages
func Parse(data []byte, name string) (*Problem, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parsing problem %s", name)
	}
	p, err := file.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "problem %s", name)
	}
	logger.Debug("loaded problem", "name", name, "slots", p.Slots.Len(), "constraints", p.Constraints.Len())
	return p, nil
}

// Build creates the lattice, slots and constraints f describes
func (f *File) Build() (*Problem, error) {
	l, err := f.Lattice.Build()
	if err != nil {
		return nil, err
	}
	b := &builder{
		lattice:     l,
		slots:       model.NewSlots(),
		constraints: model.NewConstraints(),
		names:       make(map[string]model.SlotID, len(f.Slots)),
	}
	if err := b.declare(f.Slots); err != nil {
		return nil, err
	}
	for i, c := range f.Constraints {
		constraint, err := b.constraint(c)
		if err != nil {
			return nil, errors.Wrapf(err, "constraint %d (%s)", i+1, c.Kind)
		}
		b.constraints.Add(constraint)
	}
	if err := b.slots.Validate(l); err != nil {
		return nil, err
	}
	return &Problem{
		Problem: &solver.Problem{Lattice: l, Slots: b.slots, Constraints: b.constraints},
		Names:   b.names,
	}, nil
}

func (l Lattice) Build() (*lattice.Lattice, error) {
	b := lattice.NewBuilder()
	for _, q := range l.Qualifiers {
		b.Qualifier(lattice.Qualifier(q))
	}
	for _, edge := range l.Subtypes {
		if len(edge) != 2 {
			return nil, errors.Errorf("subtype %v: expected [sub, super]", edge)
		}
		b.Subtype(lattice.Qualifier(edge[0]), lattice.Qualifier(edge[1]))
	}
	if l.Combine != "" {
		b.CombineRule(l.Combine)
	}
	if l.Arithmetic != "" {
		b.ArithmeticRule(l.Arithmetic)
	}
	built, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "lattice")
	}
	return built, nil
}

type builder struct {
	lattice     *lattice.Lattice
	slots       *model.Slots
	constraints *model.Constraints
	names       map[string]model.SlotID
}

func (b *builder) declare(declared []Slot) error {
	for _, s := range declared {
		if s.Name == "" {
			return errors.New("slot without a name")
		}
		if b.lattice.Contains(lattice.Qualifier(s.Name)) {
			return errors.Errorf("slot '%s' has the name of a qualifier", s.Name)
		}
		if _, ok := b.names[s.Name]; ok {
			return errors.Errorf("slot '%s' declared twice", s.Name)
		}
		b.names[s.Name] = 0
	}
	// constants referred to by declared slots take the first ids, so that the ids of the
	// declared slots are known before any of them is created
	for _, s := range declared {
		for _, ref := range s.Of {
			if _, ok := b.names[ref]; ok {
				continue
			}
			if !b.lattice.Contains(lattice.Qualifier(ref)) {
				return errors.Errorf("slot '%s' refers to unknown slot '%s'", s.Name, ref)
			}
			b.slots.Constant(lattice.Qualifier(ref))
		}
	}
	first := b.slots.NextID()
	for i, s := range declared {
		b.names[s.Name] = first + model.SlotID(i)
	}

	for _, s := range declared {
		if _, err := b.slot(s); err != nil {
			return errors.Wrapf(err, "slot '%s'", s.Name)
		}
	}
	return nil
}

var arity = map[string]int{
	"variable":    0,
	"refinement":  1,
	"existential": 2,
	"combination": 2,
	"lub":         2,
}

func (b *builder) slot(s Slot) (model.Slot, error) {
	n, ok := arity[s.Kind]
	if !ok {
		return nil, errors.Errorf("unknown slot kind '%s'", s.Kind)
	}
	if len(s.Of) != n {
		return nil, errors.Errorf("a %s slot is derived from %d slots, got %d", s.Kind, n, len(s.Of))
	}
	loc, err := ParseLocation(s.At)
	if err != nil {
		return nil, err
	}
	refs := make([]model.SlotID, n)
	for i, name := range s.Of {
		refs[i] = b.id(name)
	}
	switch s.Kind {
	case "refinement":
		return b.slots.Refinement(loc, refs[0]), nil
	case "existential":
		return b.slots.Existential(loc, refs[0], refs[1]), nil
	case "combination":
		return b.slots.Combination(loc, refs[0], refs[1]), nil
	case "lub":
		return b.slots.LeastUpperBound(loc, refs[0], refs[1]), nil
	default:
		return b.slots.Variable(loc), nil
	}
}

// id resolves a name checked by declare
func (b *builder) id(name string) model.SlotID {
	if id, ok := b.names[name]; ok {
		return id
	}
	return b.slots.Constant(lattice.Qualifier(name)).ID()
}

// resolve finds the slot called name, or the constant slot of the qualifier name
func (b *builder) resolve(name string) (model.Slot, error) {
	if id, ok := b.names[name]; ok {
		return b.slots.Get(id), nil
	}
	if b.lattice.Contains(lattice.Qualifier(name)) {
		return b.slots.Constant(lattice.Qualifier(name)), nil
	}
	return nil, errors.Errorf("unknown slot '%s'", name)
}

func (b *builder) constraint(c Constraint) (model.Constraint, error) {
	loc, err := ParseLocation(c.At)
	if err != nil {
		return nil, err
	}
	operands := make([]model.Slot, len(c.Slots))
	for i, name := range c.Slots {
		if operands[i], err = b.resolve(name); err != nil {
			return nil, err
		}
	}
	expect := func(n int) error {
		if len(operands) != n {
			return errors.Errorf("expected %d slots, got %d", n, len(operands))
		}
		return nil
	}

	switch c.Kind {
	case "subtype", "equality", "inequality", "comparable":
		if err := expect(2); err != nil {
			return nil, err
		}
		return binary[c.Kind](loc, operands[0], operands[1]), nil
	case "preference":
		if err := expect(2); err != nil {
			return nil, err
		}
		variable, ok := operands[0].(model.VariableSlot)
		if !ok {
			return nil, errors.Errorf("'%s' is not a variable slot", c.Slots[0])
		}
		goal, ok := operands[1].(*model.Constant)
		if !ok {
			return nil, errors.Errorf("'%s' is not a qualifier", c.Slots[1])
		}
		return model.NewPreference(loc, variable, goal, max(c.Weight, 1)), nil
	case "combine", "arithmetic":
		if err := expect(3); err != nil {
			return nil, err
		}
		result, ok := operands[2].(*model.Combination)
		if !ok {
			return nil, errors.Errorf("result '%s' is not a combination slot", c.Slots[2])
		}
		if c.Kind == "combine" {
			return model.NewCombine(loc, operands[0], operands[1], result), nil
		}
		op, err := model.ParseArithmeticOp(c.Op)
		if err != nil {
			return nil, err
		}
		return model.NewArithmetic(loc, op, operands[0], operands[1], result), nil
	case "existential":
		if err := expect(1); err != nil {
			return nil, err
		}
		then, err := b.nested(c.Then)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}
		otherwise, err := b.nested(c.Else)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}
		return model.NewExistentialConstraint(loc, operands[0], then, otherwise), nil
	default:
		return nil, errors.Errorf("unknown constraint kind '%s'", c.Kind)
	}
}

var binary = map[string]func(model.Location, model.Slot, model.Slot) model.Constraint{
	"subtype":    func(l model.Location, a, b model.Slot) model.Constraint { return model.NewSubtype(l, a, b) },
	"equality":   func(l model.Location, a, b model.Slot) model.Constraint { return model.NewEquality(l, a, b) },
	"inequality": func(l model.Location, a, b model.Slot) model.Constraint { return model.NewInequality(l, a, b) },
	"comparable": func(l model.Location, a, b model.Slot) model.Constraint { return model.NewComparable(l, a, b) },
}

func (b *builder) nested(cs []Constraint) ([]model.Constraint, error) {
	nested := make([]model.Constraint, len(cs))
	for i, c := range cs {
		if c.Kind == "preference" {
			return nil, errors.Errorf("constraint %d: preferences cannot be nested in an existential constraint", i+1)
		}
		constraint, err := b.constraint(c)
		if err != nil {
			return nil, errors.Wrapf(err, "constraint %d (%s)", i+1, c.Kind)
		}
		nested[i] = constraint
	}
	return nested, nil
}

// ParseLocation reads file:line or file:line:column. An empty string is model.MissingLocation
func ParseLocation(s string) (model.Location, error) {
	if s == "" {
		return model.MissingLocation, nil
	}
	parts := strings.Split(s, ":")
	var numbers []int
	for len(parts) > 1 && len(numbers) < 2 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		numbers = append([]int{n}, numbers...)
		parts = parts[:len(parts)-1]
	}
	if len(numbers) == 0 {
		return model.Location{}, errors.Errorf("location '%s': expected file:line[:column]", s)
	}
	loc := model.Location{File: strings.Join(parts, ":"), Line: numbers[0]}
	if len(numbers) == 2 {
		loc.Column = numbers[1]
	}
	return loc, nil
}
