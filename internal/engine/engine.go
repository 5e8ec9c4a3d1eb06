// Package engine defines the contract between the inference bridge and the
// rule engines that back it, together with the flat, ID-based forms that
// rules, queries and facts take on the way in.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"owlrules/internal/builtin"
	"owlrules/internal/result"
	"owlrules/internal/term"
)

var (
	// ErrNoRuleEngineConfigured is returned when no default engine is set.
	ErrNoRuleEngineConfigured = errors.New("no rule engine configured")
	// ErrUnsupported is wrapped by engines that cannot run a rule shape.
	ErrUnsupported = errors.New("not supported by this engine")
	// ErrDuplicateEngine is returned when two engines share a name.
	ErrDuplicateEngine = errors.New("rule engine already registered")
)

// Error is the failure type of RuleEngine.Execute.
type Error struct {
	Engine string
	// Rule is empty when the failure is not tied to one rule or query.
	Rule string
	Err  error
}

func (e *Error) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("engine %s: rule %s: %v", e.Engine, e.Rule, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fact is a translated assertion. Class facts carry one argument, property
// facts carry subject and object. Rule names the rule that derived the fact
// and is empty for input facts; it is not part of the fact's identity.
type Fact struct {
	Predicate term.ID
	Args      []term.ID
	Rule      string
}

// Key identifies the fact for set membership.
func (f Fact) Key() string {
	var b strings.Builder
	b.WriteString(string(f.Predicate))
	for _, a := range f.Args {
		b.WriteByte(0)
		b.WriteString(string(a))
	}
	return b.String()
}

func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = string(a)
	}
	return fmt.Sprintf("%s(%s)", f.Predicate, strings.Join(args, ", "))
}

// SortFacts orders facts by predicate, then arguments.
func SortFacts(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		return lessFact(facts[i], facts[j])
	})
}

func lessFact(a, b Fact) bool {
	if a.Predicate != b.Predicate {
		return a.Predicate < b.Predicate
	}
	if len(a.Args) != len(b.Args) {
		return len(a.Args) < len(b.Args)
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return a.Args[i] < b.Args[i]
		}
	}
	return false
}

// AtomKind tags translated atoms.
type AtomKind uint8

const (
	AtomClass AtomKind = iota + 1
	AtomProperty
	AtomBuiltIn
)

// Arg is a variable (Var set) or a constant (Value set).
type Arg struct {
	Var   string
	Value term.ID
}

// IsVar reports whether the argument is a variable.
func (a Arg) IsVar() bool { return a.Var != "" }

// Atom is a translated rule atom. Predicate is set for class and property
// atoms, BuiltIn for built-in atoms.
type Atom struct {
	Kind      AtomKind
	Predicate term.ID
	BuiltIn   string
	Args      []Arg
}

// Rule is a translated rule. Body is already in evaluation order.
type Rule struct {
	Name string
	Body []Atom
	Head []Atom
}

// HasBuiltIns reports whether any body atom is a built-in.
func (r Rule) HasBuiltIns() bool { return hasBuiltIns(r.Body) }

// Collector is a translated query head atom writing columns
// FirstColumn..FirstColumn+len(Args)-1.
type Collector struct {
	Name        string
	Args        []Arg
	FirstColumn int
}

// Query is a translated query.
type Query struct {
	Name       string
	Body       []Atom
	Collectors []Collector
	Columns    []result.Column
	Finish     result.Finish
}

// HasBuiltIns reports whether any body atom is a built-in.
func (q Query) HasBuiltIns() bool { return hasBuiltIns(q.Body) }

// NewTable returns an empty table with the query's columns.
func (q Query) NewTable() (*result.Table, error) {
	tbl := result.NewTable(q.Name)
	for _, c := range q.Columns {
		if err := tbl.AddColumnSpec(c); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func hasBuiltIns(atoms []Atom) bool {
	for _, a := range atoms {
		if a.Kind == AtomBuiltIn {
			return true
		}
	}
	return false
}

// Input is everything one Execute call sees. Resolver maps IDs back to
// terms for built-in evaluation and interns the values built-ins bind.
type Input struct {
	Facts    []Fact
	Rules    []Rule
	Queries  []Query
	Resolver *term.Resolver
	BuiltIns *builtin.Registry
}

// Diagnostic records a built-in error that aborted one binding attempt.
type Diagnostic struct {
	Rule    string
	BuiltIn string
	Kind    builtin.ErrorKind
	Message string
}

// DiagnosticFrom converts a built-in error. Errors of other types are
// reported as Internal.
func DiagnosticFrom(rule string, err error) Diagnostic {
	var be *builtin.Error
	if errors.As(err, &be) {
		r := be.Rule
		if r == "" {
			r = rule
		}
		return Diagnostic{Rule: r, BuiltIn: be.BuiltIn, Kind: be.Kind, Message: be.Message}
	}
	return Diagnostic{Rule: rule, Kind: builtin.Internal, Message: err.Error()}
}

func (d Diagnostic) String() string {
	if d.BuiltIn == "" {
		return fmt.Sprintf("%s: %s: %s", d.Rule, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %s", d.Rule, d.BuiltIn, d.Kind, d.Message)
}

// Output holds facts derived by the rules that were not part of the input,
// one finalized table per query, and any built-in diagnostics.
type Output struct {
	Derived     []Fact
	Tables      map[string]*result.Table
	Diagnostics []Diagnostic
}

// RuleEngine executes translated rules and queries over translated facts.
// Failures are returned as *Error.
type RuleEngine interface {
	Name() string
	Execute(ctx context.Context, in *Input) (*Output, error)
}

// Registry holds the available engines and names the default one.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]RuleEngine
	def     string
}

// NewRegistry returns an empty registry with no default.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]RuleEngine)}
}

// Register adds e. The first engine registered becomes the default.
func (r *Registry) Register(e RuleEngine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[e.Name()]; ok {
		return fmt.Errorf("%s: %w", e.Name(), ErrDuplicateEngine)
	}
	r.engines[e.Name()] = e
	if r.def == "" {
		r.def = e.Name()
	}
	return nil
}

// SetDefault selects the engine used by Default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[name]; !ok {
		return fmt.Errorf("unknown rule engine %q", name)
	}
	r.def = name
	return nil
}

// Default returns the default engine or ErrNoRuleEngineConfigured.
func (r *Registry) Default() (RuleEngine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.def == "" {
		return nil, ErrNoRuleEngineConfigured
	}
	return r.engines[r.def], nil
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (RuleEngine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
