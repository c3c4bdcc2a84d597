// Package solver is the boundary between encoded problems and the SAT solver behind every backend.
//
// A Backend encodes a Problem with its translator, hands the result to a Session, and decodes
// the model back into qualifiers. The core never sees partial results: a solve either
// assigns every variable slot, reports the problem unsatisfiable, or fails.
package solver

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"golang.org/x/sync/errgroup"
)

var logger = log.DefaultLogger.With("section", "solve")

type Problem struct {
	Lattice     *lattice.Lattice
	Slots       *model.Slots
	Constraints *model.Constraints
}

type Result struct {
	Satisfiable bool
	// Solutions holds a qualifier for every variable slot when Satisfiable
	Solutions map[model.SlotID]lattice.Qualifier
	// UnsatCore is a subset of the constraints that cannot hold together, when not Satisfiable.
	// It may be empty when the backend cannot tell which constraints are to blame
	UnsatCore []model.Constraint
	Stats     Stats
}

type Backend interface {
	Name() string
	Solve(ctx context.Context, p *Problem) (*Result, error)
}

// Stats are the counts reported after a run
type Stats struct {
	Backend     string
	Slots       int
	Variables   int
	Constraints int
	ByKind      map[model.ConstraintKind]int
	// Encoded is the size of the encoded problem, in clauses or circuit gates depending on the backend
	Encoded int
	// SatVariables is the number of variables of the SAT problem
	SatVariables int
	Preferences  int
	// SatisfiedPreferences is how many soft constraints the solution meets
	SatisfiedPreferences int
}

// NewStats fills in the counts that only depend on p
func NewStats(backend string, p *Problem) Stats {
	return Stats{
		Backend:     backend,
		Slots:       p.Slots.Len(),
		Variables:   len(p.Slots.Variables()),
		Constraints: p.Constraints.Len(),
		ByKind:      p.Constraints.CountByKind(),
		Preferences: p.Constraints.CountByKind()[model.PreferenceKind],
	}
}

// Lines renders the stats as key,value lines
func (s Stats) Lines() []string {
	lines := []string{
		"backend," + s.Backend,
		fmt.Sprintf("slots,%d", s.Slots),
		fmt.Sprintf("variable_slots,%d", s.Variables),
		fmt.Sprintf("constraints,%d", s.Constraints),
	}
	for _, kind := range model.ConstraintKinds {
		if n := s.ByKind[kind]; n > 0 {
			lines = append(lines, fmt.Sprintf("%s_constraints,%d", kind, n))
		}
	}
	return append(lines,
		fmt.Sprintf("encoded_size,%d", s.Encoded),
		fmt.Sprintf("sat_variables,%d", s.SatVariables),
		fmt.Sprintf("satisfied_preferences,%d/%d", s.SatisfiedPreferences, s.Preferences),
	)
}

func (s Stats) String() string {
	return strings.Join(s.Lines(), "\n")
}

// EncodeAll encodes every constraint with encode on up to jobs goroutines.
// Result i is the encoding of constraints[i]. encode must not touch shared mutable state
func EncodeAll[T any](ctx context.Context, constraints []model.Constraint, jobs int, encode func(model.Constraint) T) ([]T, error) {
	results := make([]T, len(constraints))
	if len(constraints) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(constraints)))
	for i, c := range constraints {
		g.Go(func() (err error) {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// a Bug raised on a worker is handed back to the caller's goroutine
			defer func() {
				if r := recover(); r != nil {
					err = panicked{r}
				}
			}()
			results[i] = encode(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if p, ok := err.(panicked); ok {
			panic(p.value)
		}
		return nil, err
	}
	return results, nil
}

type panicked struct {
	value any
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic while encoding: %v", p.value)
}
