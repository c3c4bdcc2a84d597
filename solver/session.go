package solver

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	xset "github.com/xtgo/set"
)

// pollInterval is how often a running solve checks whether its context is done
const pollInterval = 5 * time.Millisecond

// Session accumulates clauses into one gini instance. It is not safe for concurrent use:
// encoding may run in parallel, but adding to a Session must be serialised.
//
// Every hard constraint is guarded by an activation literal that is assumed on each solve,
// so that gini can name the constraints responsible for unsatisfiability
type Session struct {
	g     *gini.Gini
	hard  []guard
	soft  []preference
	byLit map[z.Lit][]int

	satisfied []int
}

type guard struct {
	lit   z.Lit
	index int
}

type preference struct {
	guard
	weight int
}

func NewSession() *Session {
	return &Session{
		g:     gini.New(),
		byLit: make(map[z.Lit][]int),
	}
}

// Adder exposes the underlying solver to code that writes clauses directly, such as logic.C.ToCnf
func (s *Session) Adder() *gini.Gini {
	return s.g
}

// AddClause adds a clause that always holds
func (s *Session) AddClause(lits ...z.Lit) {
	for _, m := range lits {
		s.g.Add(m)
	}
	s.g.Add(z.LitNull)
}

// Require makes constraint index hold whenever lit is true. lit is assumed on every solve
func (s *Session) Require(index int, lit z.Lit) {
	s.hard = append(s.hard, guard{lit: lit, index: index})
	s.byLit[lit] = append(s.byLit[lit], index)
}

// Prefer asks for lit to hold if it can without breaking hard constraints or preferences
// of a higher weight
func (s *Session) Prefer(index int, lit z.Lit, weight int) {
	s.soft = append(s.soft, preference{guard: guard{lit: lit, index: index}, weight: weight})
}

// Solve reports whether every required constraint can hold. When it cannot, it returns the
// indexes of the required constraints gini blames, sorted and without duplicates.
//
// Preferences are then satisfied greedily, heaviest first. This does not always find the
// largest satisfiable set of preferences, but every preference it keeps is consistent with
// all those of a higher weight.
func (s *Session) Solve(ctx context.Context) (sat bool, core []int, err error) {
	assumptions := make([]z.Lit, 0, len(s.hard)+len(s.soft))
	for _, h := range s.hard {
		assumptions = append(assumptions, h.lit)
	}
	res, err := s.solveAssuming(ctx, assumptions)
	if err != nil {
		return false, nil, err
	}
	if res < 0 {
		return false, s.core(), nil
	}

	soft := slices.Clone(s.soft)
	slices.SortStableFunc(soft, func(a, b preference) int {
		return cmp.Compare(b.weight, a.weight)
	})
	s.satisfied = s.satisfied[:0]
	for _, p := range soft {
		res, err := s.solveAssuming(ctx, append(assumptions, p.lit))
		if err != nil {
			return false, nil, err
		}
		if res > 0 {
			assumptions = append(assumptions, p.lit)
			s.satisfied = append(s.satisfied, p.index)
		}
	}
	logger.Debug("preferences", "satisfied", len(s.satisfied), "total", len(s.soft))

	// solve once more so that Value reads a model of every kept assumption
	res, err = s.solveAssuming(ctx, assumptions)
	if err != nil {
		return false, nil, err
	}
	return res > 0, nil, nil
}

func (s *Session) solveAssuming(ctx context.Context, assumptions []z.Lit) (int, error) {
	s.g.Assume(assumptions...)
	running := s.g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if res, done := running.Test(); done {
			return res, nil
		}
		select {
		case <-ctx.Done():
			running.Stop()
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) core() []int {
	var indexes []int
	for _, lit := range s.g.Why(nil) {
		indexes = append(indexes, s.byLit[lit]...)
	}
	return xset.Ints(indexes)
}

// Value is the value of m in the model found by the last successful Solve
func (s *Session) Value(m z.Lit) bool {
	if m.Var() > s.g.MaxVar() {
		// never added to the solver, so unconstrained
		return !m.IsPos()
	}
	return s.g.Value(m)
}

// Satisfied returns the indexes of the preferences the last Solve kept
func (s *Session) Satisfied() []int {
	return xset.Ints(slices.Clone(s.satisfied))
}

func (s *Session) Vars() int {
	return int(s.g.MaxVar())
}
