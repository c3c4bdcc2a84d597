package maxsat

import (
	"context"
	"fmt"

	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/solver"
	"github.com/go-air/gini/z"
)

var logger = log.DefaultLogger.With("section", "solve-maxsat")

const Name = "maxsat"

// Backend solves problems as clauses. Constraints are encoded on up to Jobs goroutines,
// all of them when Jobs is zero
type Backend struct {
	Jobs int
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error) {
	lits := NewLits(p.Lattice, p.Slots)
	translator := NewTranslator(p.Lattice, lits)
	constraints := p.Constraints.All()
	stats := solver.NewStats(Name, p)

	encoded, err := solver.EncodeAll(ctx, constraints, b.Jobs, translator.Serialize)
	if err != nil {
		return nil, fmt.Errorf("encoding constraints: %w", err)
	}

	session := solver.NewSession()
	session.AddClause(True)
	variables := p.Slots.Variables()
	for _, v := range variables {
		for _, clause := range translator.SerializeSlot(v) {
			session.AddClause(clause...)
			stats.Encoded++
		}
	}

	var contradicted []model.Constraint
	for i, c := range constraints {
		clauses := encoded[i]
		if IsContradiction(clauses) {
			contradicted = append(contradicted, c)
			continue
		}
		if len(clauses) == 0 {
			continue
		}
		stats.Encoded += len(clauses)
		selector := lits.Selector(i)
		for _, clause := range clauses {
			session.AddClause(append([]z.Lit{selector.Not()}, clause...)...)
		}
		if preference, ok := c.(*model.Preference); ok {
			session.Prefer(i, selector, preference.Weight)
		} else {
			session.Require(i, selector)
		}
	}
	stats.SatVariables = session.Vars()
	logger.Debug("encoded", "constraints", len(constraints), "clauses", stats.Encoded, "vars", stats.SatVariables)

	if len(contradicted) > 0 {
		logger.Debug("contradiction found before solving", "constraints", len(contradicted))
		return &solver.Result{UnsatCore: contradicted, Stats: stats}, nil
	}

	sat, core, err := session.Solve(ctx)
	if err != nil {
		return nil, err
	}
	if !sat {
		result := &solver.Result{Stats: stats}
		for _, i := range core {
			result.UnsatCore = append(result.UnsatCore, constraints[i])
		}
		return result, nil
	}

	stats.SatisfiedPreferences = len(session.Satisfied())
	solutions := make(map[model.SlotID]lattice.Qualifier, len(variables))
	for _, v := range variables {
		solutions[v.ID()] = Decode(p.Lattice, lits, session.Value, v)
	}
	return &solver.Result{Satisfiable: true, Solutions: solutions, Stats: stats}, nil
}

// Decode returns the qualifier the model given by value assigns to slot.
// A model that assigns none or several is an UndecodableValue bug
func Decode(l *lattice.Lattice, lits Lits, value func(z.Lit) bool, slot model.VariableSlot) lattice.Qualifier {
	var chosen []int
	for q := 0; q < l.Len(); q++ {
		if value(lits.Slot(slot.ID(), q)) {
			chosen = append(chosen, q)
		}
	}
	if len(chosen) != 1 {
		qerr.Bug(qerr.NewUndecodableValue{
			Backend: Name,
			SlotID:  int(slot.ID()),
			Value:   fmt.Sprintf("the qualifier ordinals %v", chosen),
		})
	}
	return l.At(chosen[0])
}
