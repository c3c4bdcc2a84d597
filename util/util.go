package util

// Pair is an ordered pair, such as a declared subtype edge
type Pair[A, B any] struct {
	Fst A
	Snd B
}

func NewPair[A, B any](fst A, snd B) Pair[A, B] {
	return Pair[A, B]{Fst: fst, Snd: snd}
}

// Stack is a LIFO used by the iterative graph traversals
type Stack[A any] struct {
	items []A
}

func NewStack[A any](items ...A) *Stack[A] {
	return &Stack[A]{items: items}
}

func (s *Stack[A]) Push(v ...A) {
	s.items = append(s.items, v...)
}

func (s *Stack[A]) Pop() (top A, ok bool) {
	if len(s.items) == 0 {
		return top, false
	}
	last := len(s.items) - 1
	top = s.items[last]
	s.items = s.items[:last]
	return top, true
}

func (s *Stack[A]) Len() int {
	return len(s.items)
}
