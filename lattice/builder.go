package lattice

import (
	"fmt"
	"slices"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/util"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var logger = log.DefaultLogger.With("section", "lattice")

const (
	DefaultCombineRule    = "join(target, decl)"
	DefaultArithmeticRule = "join(left, right)"
)

// Builder collects a qualifier hierarchy. The zero value is not usable, see NewBuilder
type Builder struct {
	qualifiers     []Qualifier
	edges          []util.Pair[Qualifier, Qualifier]
	combineRule    string
	arithmeticRule string
}

func NewBuilder() *Builder {
	return &Builder{
		combineRule:    DefaultCombineRule,
		arithmeticRule: DefaultArithmeticRule,
	}
}

// Qualifier declares qualifiers. Declaration order decides their ordinals
func (b *Builder) Qualifier(names ...Qualifier) *Builder {
	b.qualifiers = append(b.qualifiers, names...)
	return b
}

// Subtype declares sub <: super. The relation is closed transitively on Build
func (b *Builder) Subtype(sub, super Qualifier) *Builder {
	b.edges = append(b.edges, util.NewPair(sub, super))
	return b
}

// CombineRule sets the viewpoint adaptation rule, an expression over target and decl.
//
// Expressions may call join(a, b), meet(a, b) and isSubtype(a, b), and refer to top and bottom.
// For example, a rule where a read-only receiver makes every field read-only:
//
//	target == "ReadOnly" ? "ReadOnly" : decl
func (b *Builder) CombineRule(rule string) *Builder {
	if rule != "" {
		b.combineRule = rule
	}
	return b
}

// ArithmeticRule sets the rule giving the qualifier of an arithmetic result,
// an expression over left and right with the same helpers as CombineRule
func (b *Builder) ArithmeticRule(rule string) *Builder {
	if rule != "" {
		b.arithmeticRule = rule
	}
	return b
}

// Build checks the hierarchy is a bounded lattice and computes all of its tables
func (b *Builder) Build() (*Lattice, error) {
	n := len(b.qualifiers)
	if n == 0 {
		return nil, fmt.Errorf("lattice has no qualifiers")
	}
	mapBuilder := immutable.NewMapBuilder[Qualifier, int](qualifierHasher{})
	for i, q := range b.qualifiers {
		if q == "" {
			return nil, fmt.Errorf("qualifier %d has an empty name", i)
		}
		if slices.Contains(b.qualifiers[:i], q) {
			return nil, fmt.Errorf("qualifier '%s' declared twice", q)
		}
		mapBuilder.Set(q, i)
	}
	l := &Lattice{
		qualifiers: slices.Clone(b.qualifiers),
		index:      mapBuilder.Map(),
	}

	l.subtype = make([][]bool, n)
	for i := range l.subtype {
		l.subtype[i] = make([]bool, n)
		l.subtype[i][i] = true
	}
	for _, edge := range b.edges {
		sub, ok := l.Index(edge.Fst)
		if !ok {
			return nil, fmt.Errorf("subtype edge %s <: %s: unknown qualifier '%s'", edge.Fst, edge.Snd, edge.Fst)
		}
		super, ok := l.Index(edge.Snd)
		if !ok {
			return nil, fmt.Errorf("subtype edge %s <: %s: unknown qualifier '%s'", edge.Fst, edge.Snd, edge.Snd)
		}
		l.subtype[sub][super] = true
	}
	// Floyd-Warshall style transitive closure
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if !l.subtype[i][k] {
				continue
			}
			for j := 0; j < n; j++ {
				if l.subtype[k][j] {
					l.subtype[i][j] = true
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if l.subtype[i][j] && l.subtype[j][i] {
				return nil, fmt.Errorf("subtype cycle between '%s' and '%s'", l.qualifiers[i], l.qualifiers[j])
			}
		}
	}

	var err error
	if l.join, err = l.bounds(true); err != nil {
		return nil, err
	}
	if l.meet, err = l.bounds(false); err != nil {
		return nil, err
	}
	l.top, l.bottom = 0, 0
	for i := 1; i < n; i++ {
		l.top = l.join[l.top][i]
		l.bottom = l.meet[l.bottom][i]
	}

	if l.combine, err = l.ruleTable(b.combineRule, "target", "decl"); err != nil {
		return nil, fmt.Errorf("combine rule: %w", err)
	}
	if l.arithmetic, err = l.ruleTable(b.arithmeticRule, "left", "right"); err != nil {
		return nil, fmt.Errorf("arithmetic rule: %w", err)
	}
	logger.Debug("built lattice", "lattice", l.String(), "top", l.Top(), "bottom", l.Bottom())
	return l, nil
}

// bounds computes the join table when upper is true, and the meet table otherwise
func (l *Lattice) bounds(upper bool) ([][]int, error) {
	n := len(l.qualifiers)
	below := func(a, b int) bool {
		if upper {
			return l.subtype[a][b]
		}
		return l.subtype[b][a]
	}
	table := make([][]int, n)
	for a := 0; a < n; a++ {
		table[a] = make([]int, n)
		for b := 0; b < n; b++ {
			best := -1
			for c := 0; c < n; c++ {
				if !below(a, c) || !below(b, c) {
					continue
				}
				if best == -1 || below(c, best) {
					best = c
				}
			}
			if best == -1 {
				return nil, fmt.Errorf("'%s' and '%s' have no %s", l.qualifiers[a], l.qualifiers[b], boundName(upper))
			}
			for c := 0; c < n; c++ {
				if below(a, c) && below(b, c) && !below(best, c) {
					return nil, fmt.Errorf("'%s' and '%s' have no unique %s", l.qualifiers[a], l.qualifiers[b], boundName(upper))
				}
			}
			table[a][b] = best
		}
	}
	return table, nil
}

func boundName(upper bool) string {
	if upper {
		return "least upper bound"
	}
	return "greatest lower bound"
}

// ruleTable evaluates rule for every pair of qualifiers, binding them to fst and snd
func (l *Lattice) ruleTable(rule, fst, snd string) ([][]int, error) {
	n := len(l.qualifiers)
	program, err := expr.Compile(rule, expr.Env(l.ruleEnv(fst, snd, l.qualifiers[0], l.qualifiers[0])))
	if err != nil {
		return nil, err
	}
	table := make([][]int, n)
	for a := 0; a < n; a++ {
		table[a] = make([]int, n)
		for b := 0; b < n; b++ {
			result, err := l.runRule(program, l.ruleEnv(fst, snd, l.qualifiers[a], l.qualifiers[b]))
			if err != nil {
				return nil, fmt.Errorf("%s=%s, %s=%s: %w", fst, l.qualifiers[a], snd, l.qualifiers[b], err)
			}
			table[a][b] = result
		}
	}
	return table, nil
}

func (l *Lattice) runRule(program *vm.Program, env map[string]any) (int, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, err
	}
	var name Qualifier
	switch v := out.(type) {
	case string:
		name = Qualifier(v)
	case Qualifier:
		name = v
	default:
		return 0, fmt.Errorf("rule produced %v (%T), expected a qualifier name", out, out)
	}
	i, ok := l.Index(name)
	if !ok {
		return 0, fmt.Errorf("rule produced '%s', which is not a qualifier", name)
	}
	return i, nil
}

// ruleEnv exposes qualifiers to rule expressions as plain strings.
// It runs before top and bottom are needed by anything else, so it reads the tables directly
func (l *Lattice) ruleEnv(fst, snd string, a, b Qualifier) map[string]any {
	lookup := func(q string) int {
		i, ok := l.Index(Qualifier(q))
		if !ok {
			panic(fmt.Sprintf("unknown qualifier '%s'", q))
		}
		return i
	}
	return map[string]any{
		fst:      string(a),
		snd:      string(b),
		"top":    string(l.Top()),
		"bottom": string(l.Bottom()),
		"join": func(x, y string) string {
			return string(l.qualifiers[l.join[lookup(x)][lookup(y)]])
		},
		"meet": func(x, y string) string {
			return string(l.qualifiers[l.meet[lookup(x)][lookup(y)]])
		},
		"isSubtype": func(x, y string) bool {
			return l.subtype[lookup(x)][lookup(y)]
		},
	}
}

type qualifierHasher struct{}

func (qualifierHasher) Hash(q Qualifier) uint32 {
	var hash uint32
	for i := 0; i < len(q); i++ {
		hash = 31*hash + uint32(q[i])
	}
	return hash
}

func (qualifierHasher) Equal(a, b Qualifier) bool { return a == b }
