package bitvector

import (
	"context"
	"fmt"

	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/qerr"
	"github.com/cottand/qinfer/solver"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

var logger = log.DefaultLogger.With("section", "solve-bitvector")

type Backend struct{}

func (b *Backend) Name() string { return Name }

func (b *Backend) Solve(ctx context.Context, p *solver.Problem) (*solver.Result, error) {
	c := logic.NewC()
	vectors := NewVectors(p.Lattice, p.Slots, c)
	translator := NewTranslator(p.Lattice, vectors)
	constraints := p.Constraints.All()
	stats := solver.NewStats(Name, p)

	variables := p.Slots.Variables()
	wellFormed := make([]z.Lit, len(variables))
	for i, v := range variables {
		wellFormed[i] = translator.SerializeSlot(v)
	}
	roots := make([]z.Lit, len(constraints))
	for i, constraint := range constraints {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("encoding constraints: %w", err)
		}
		roots[i] = translator.Serialize(constraint)
	}

	session := solver.NewSession()
	c.ToCnf(session.Adder())
	stats.Encoded = c.Len()
	for _, m := range wellFormed {
		if m == c.F {
			return &solver.Result{Stats: stats}, nil
		}
		session.AddClause(m)
	}

	var contradicted []model.Constraint
	for i, constraint := range constraints {
		switch roots[i] {
		case c.F:
			contradicted = append(contradicted, constraint)
			continue
		case c.T:
			continue
		}
		selector := c.Lit()
		session.AddClause(selector.Not(), roots[i])
		if preference, ok := constraint.(*model.Preference); ok {
			session.Prefer(i, selector, preference.Weight)
		} else {
			session.Require(i, selector)
		}
	}
	stats.SatVariables = session.Vars()
	logger.Debug("encoded", "constraints", len(constraints), "gates", stats.Encoded, "vars", stats.SatVariables)

	if len(contradicted) > 0 {
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
		solutions[v.ID()] = Decode(p.Lattice, vectors, session.Value, v)
	}
	return &solver.Result{Satisfiable: true, Solutions: solutions, Stats: stats}, nil
}

// Decode returns the qualifier the model given by value assigns to slot.
// A code outside of the lattice is an UndecodableValue bug
func Decode(l *lattice.Lattice, vectors *Vectors, value func(z.Lit) bool, slot model.VariableSlot) lattice.Qualifier {
	q := vectors.Decode(vectors.Inputs(slot.ID()), value)
	if q >= l.Len() {
		qerr.Bug(qerr.NewUndecodableValue{
			Backend: Name,
			SlotID:  int(slot.ID()),
			Value:   fmt.Sprintf("the code %b", q),
		})
	}
	return l.At(q)
}
