// Package mangle hosts Google Mangle programs: the rule engine backend
// that compiles translated rules into Datalog, and the fixed programs the
// structural reasoner runs.
package mangle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"owlrules/internal/logging"
)

// Config holds Mangle evaluation limits.
type Config struct {
	// DerivedFactLimit caps the facts one evaluation may create. Zero
	// disables the cap.
	DerivedFactLimit int `yaml:"derived_fact_limit"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{DerivedFactLimit: 500000}
}

// Fact is a Mangle fact whose arguments are all name constants. Args hold
// the name without its leading slash.
type Fact struct {
	Predicate string
	Args      []string
}

func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = "/" + a
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

func (f Fact) atom() (ast.Atom, error) {
	args := make([]ast.BaseTerm, len(f.Args))
	for i, a := range f.Args {
		c, err := ast.Name("/" + a)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("%s arg %d: %w", f.Predicate, i, err)
		}
		args[i] = c
	}
	return ast.Atom{Predicate: ast.PredicateSym{Symbol: f.Predicate, Arity: len(f.Args)}, Args: args}, nil
}

// Evaluator is a compiled Mangle program. It is immutable and may be
// evaluated any number of times over different fact sets.
type Evaluator struct {
	cfg         Config
	programInfo *analysis.ProgramInfo
	declared    map[ast.PredicateSym]bool
}

// NewEvaluator parses and analyzes the concatenation of sources.
func NewEvaluator(cfg Config, sources ...string) (*Evaluator, error) {
	var unit parse.SourceUnit
	for i, src := range sources {
		u, err := parse.Unit(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse program fragment %d: %w", i, err)
		}
		unit.Clauses = append(unit.Clauses, u.Clauses...)
		unit.Decls = append(unit.Decls, u.Decls...)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program: %w", err)
	}
	declared := make(map[ast.PredicateSym]bool, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		declared[sym] = true
	}
	return &Evaluator{cfg: cfg, programInfo: programInfo, declared: declared}, nil
}

// ErrUndeclared is returned when a fact's predicate is unknown to the program.
var ErrUndeclared = errors.New("predicate is not declared")

// Evaluate loads facts into a fresh store and runs the program to its
// fixpoint. Mangle evaluation cannot be interrupted, so ctx is checked
// before and after.
func (e *Evaluator) Evaluate(ctx context.Context, facts []Fact) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := factstore.NewSimpleInMemoryStore()
	store := factstore.NewConcurrentFactStore(base)
	for _, f := range facts {
		atom, err := f.atom()
		if err != nil {
			return nil, err
		}
		if !e.declared[atom.Predicate] {
			return nil, fmt.Errorf("%s/%d: %w", f.Predicate, len(f.Args), ErrUndeclared)
		}
		store.Add(atom)
	}

	limit := e.cfg.DerivedFactLimit
	if limit <= 0 {
		limit = math.MaxInt
	}
	timer := logging.StartTimer(logging.CategoryEngine, "mangle.Evaluate")
	stats, err := mengine.EvalProgramWithStats(e.programInfo, store, mengine.WithCreatedFactLimit(limit))
	wall := timer.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate program: %w", err)
	}

	var evalTime time.Duration
	for _, d := range stats.Duration {
		evalTime += d
	}
	logging.Get(logging.CategoryEngine).Debug("mangle: fixpoint reached - strata=%d, evalTime=%v, wallTime=%v, facts=%d",
		len(stats.Strata), evalTime, wall, store.EstimateFactCount())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{store: store}, nil
}

// Result is the fact store after evaluation.
type Result struct {
	store factstore.ConcurrentFactStore
}

// Facts returns every fact of predicate/arity, sorted by arguments.
// Non-name arguments are rejected.
func (r *Result) Facts(predicate string, arity int) ([]Fact, error) {
	var out []Fact
	err := r.store.GetFacts(ast.NewQuery(ast.PredicateSym{Symbol: predicate, Arity: arity}), func(a ast.Atom) error {
		f := Fact{Predicate: predicate, Args: make([]string, len(a.Args))}
		for i, arg := range a.Args {
			c, ok := arg.(ast.Constant)
			if !ok || c.Type != ast.NameType {
				return fmt.Errorf("%s arg %d: expected a name, got %v", predicate, i, arg)
			}
			f.Args[i] = strings.TrimPrefix(c.Symbol, "/")
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Args, out[j].Args
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return out, nil
}

// Count returns the number of facts in the store.
func (r *Result) Count() int { return r.store.EstimateFactCount() }
