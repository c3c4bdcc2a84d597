package model

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/util"
	"github.com/hashicorp/go-set/v3"
)

// Slots is the arena every slot of a run is allocated from. Ids are handed out sequentially,
// starting at 1, so NextID may be used to refer to a slot before it is created
type Slots struct {
	slots     []Slot
	constants map[lattice.Qualifier]*Constant
}

func NewSlots() *Slots {
	return &Slots{
		constants: make(map[lattice.Qualifier]*Constant),
	}
}

// NextID is the id the next created slot will get
func (s *Slots) NextID() SlotID {
	return SlotID(len(s.slots) + 1)
}

func (s *Slots) Len() int {
	return len(s.slots)
}

func (s *Slots) add(slot Slot) {
	s.slots = append(s.slots, slot)
}

func (s *Slots) Variable(loc Location) *Variable {
	v := &Variable{variableBase{slotBase: slotBase{s.NextID()}, location: loc}}
	s.add(v)
	return v
}

// Constant returns the constant slot of q, creating it the first time q is asked for
func (s *Slots) Constant(q lattice.Qualifier) *Constant {
	if c, ok := s.constants[q]; ok {
		return c
	}
	c := &Constant{slotBase: slotBase{s.NextID()}, Value: q}
	s.constants[q] = c
	s.add(c)
	return c
}

func (s *Slots) Refinement(loc Location, refined SlotID) *Refinement {
	requireRefs("refinement slot", refined)
	r := &Refinement{
		variableBase: variableBase{slotBase: slotBase{s.NextID()}, location: loc},
		Refined:      refined,
	}
	s.add(r)
	return r
}

func (s *Slots) Existential(loc Location, potential, alternative SlotID) *Existential {
	requireRefs("existential slot", potential, alternative)
	e := &Existential{
		variableBase: variableBase{slotBase: slotBase{s.NextID()}, location: loc},
		Potential:    potential,
		Alternative:  alternative,
	}
	s.add(e)
	return e
}

func (s *Slots) Combination(loc Location, first, second SlotID) *Combination {
	requireRefs("combination slot", first, second)
	c := &Combination{
		variableBase: variableBase{slotBase: slotBase{s.NextID()}, location: loc},
		First:        first,
		Second:       second,
	}
	s.add(c)
	return c
}

func (s *Slots) LeastUpperBound(loc Location, left, right SlotID) *LeastUpperBound {
	requireRefs("lub slot", left, right)
	l := &LeastUpperBound{
		variableBase: variableBase{slotBase: slotBase{s.NextID()}, location: loc},
		Left:         left,
		Right:        right,
	}
	s.add(l)
	return l
}

func requireRefs(construct string, refs ...SlotID) {
	for i, ref := range refs {
		if ref == 0 {
			qerr.Bug(qerr.NewNullSlot{Construct: construct, Detail: fmt.Sprintf("reference %d of %v is null", i, refs)})
		}
	}
}

// Lookup returns the slot of id, if it exists
func (s *Slots) Lookup(id SlotID) (Slot, bool) {
	if id < 1 || int(id) > len(s.slots) {
		return nil, false
	}
	return s.slots[id-1], true
}

// Get returns the slot of id, and panics with an UnknownSlot bug if there is none
func (s *Slots) Get(id SlotID) Slot {
	slot, ok := s.Lookup(id)
	if !ok {
		qerr.Bug(qerr.NewUnknownSlot{ID: int(id)})
	}
	return slot
}

// All iterates over every slot in id order
func (s *Slots) All() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for _, slot := range s.slots {
			if !yield(slot) {
				return
			}
		}
	}
}

// Variables returns every slot whose qualifier is solved for, in id order
func (s *Slots) Variables() []VariableSlot {
	var vars []VariableSlot
	for _, slot := range s.slots {
		if v, ok := slot.(VariableSlot); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// Validate checks that every reference between slots resolves and that every constant
// belongs to l
func (s *Slots) Validate(l *lattice.Lattice) error {
	for _, slot := range s.slots {
		for _, ref := range slot.References() {
			if _, ok := s.Lookup(ref); !ok {
				return fmt.Errorf("slot %s refers to %s, which does not exist", slot.ID(), ref)
			}
		}
		if c, ok := slot.(*Constant); ok && !l.Contains(c.Value) {
			return fmt.Errorf("constant slot %s: qualifier '%s' is not part of the lattice", c.ID(), c.Value)
		}
	}
	return nil
}

// Reachable returns every slot reachable from roots through slot references, each once,
// in the order they are first reached
func (s *Slots) Reachable(roots ...SlotID) []Slot {
	visited := set.New[SlotID](len(roots))
	var reached []Slot
	stack := util.NewStack[SlotID]()
	for i := len(roots) - 1; i >= 0; i-- {
		stack.Push(roots[i])
	}
	for id, ok := stack.Pop(); ok; id, ok = stack.Pop() {
		if !visited.Insert(id) {
			continue
		}
		slot := s.Get(id)
		reached = append(reached, slot)
		refs := slot.References()
		for i := len(refs) - 1; i >= 0; i-- {
			stack.Push(refs[i])
		}
	}
	return reached
}

// isNull reports whether v is nil, including a typed nil pointer inside an interface
func isNull(v any) bool {
	if v == nil {
		return true
	}
	value := reflect.ValueOf(v)
	return value.Kind() == reflect.Pointer && value.IsNil()
}
