// Package qinfer runs qualifier inference end to end: it checks a problem, solves it with one
// of the backends, writes the solution back onto the variable slots, and explains failures.
package qinfer

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/cottand/qinfer/backend/bitvector"
	"github.com/cottand/qinfer/backend/maxsat"
	"github.com/cottand/qinfer/explain"
	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/solver"
	"github.com/google/uuid"
)

var logger = log.DefaultLogger.With("section", "run")

type Options struct {
	// Backend names the backend to solve with, maxsat when empty
	Backend string
	// Jobs bounds the goroutines encoding constraints, for backends that encode in parallel
	Jobs int
	// Explain renders the unsat core of an unsatisfiable problem
	Explain bool
}

// Outcome is the result of a Run
type Outcome struct {
	RunID  string
	Result *solver.Result
	// Explanation describes the unsat core, when the problem is unsatisfiable and Options.Explain is set
	Explanation string
	// ExplainErr is explain.ErrUnsupported when the backend did not name an unsat core
	ExplainErr error
}

var backends = map[string]func(Options) solver.Backend{
	maxsat.Name:    func(o Options) solver.Backend { return &maxsat.Backend{Jobs: o.Jobs} },
	bitvector.Name: func(Options) solver.Backend { return &bitvector.Backend{} },
}

// Backends lists the names Options.Backend accepts
func Backends() []string {
	return slices.Sorted(maps.Keys(backends))
}

func NewBackend(opts Options) (solver.Backend, error) {
	name := opts.Backend
	if name == "" {
		name = maxsat.Name
	}
	newBackend, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend '%s', expected one of %v", name, Backends())
	}
	return newBackend(opts), nil
}

// Run solves p. When p is satisfiable, every variable slot of p holds its solution afterwards.
//
// An unsatisfiable problem is not an error. Errors are invalid problems, cancellation, and
// internal inference errors, which are returned as qerr.BugError
func Run(ctx context.Context, p *solver.Problem, opts Options) (outcome *Outcome, err error) {
	defer qerr.Recover(&err)

	b, err := NewBackend(opts)
	if err != nil {
		return nil, err
	}
	if err := p.Slots.Validate(p.Lattice); err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}
	runID := uuid.NewString()
	logger := logger.With("run", runID, "backend", b.Name())
	logger.Info("solving", "slots", p.Slots.Len(), "constraints", p.Constraints.Len())

	result, err := b.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", b.Name(), err)
	}
	outcome = &Outcome{RunID: runID, Result: result}
	if result.Satisfiable {
		for _, v := range p.Slots.Variables() {
			v.AssignSolution(result.Solutions[v.ID()])
		}
		logger.Info("solved", "satisfied_preferences", result.Stats.SatisfiedPreferences)
		return outcome, nil
	}

	var roots []model.SlotID
	for _, c := range result.UnsatCore {
		for _, operand := range c.Operands() {
			roots = append(roots, operand.ID())
		}
	}
	logger.Info("unsatisfiable", "core", len(result.UnsatCore), "related_slots", len(p.Slots.Reachable(roots...)))
	if opts.Explain {
		outcome.Explanation, outcome.ExplainErr = explain.Unsolvable(p.Slots, result.UnsatCore)
	}
	return outcome, nil
}
