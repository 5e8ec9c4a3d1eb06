// Package bridge connects an ontology store to a rule engine. It
// translates facts and rules into the engine's ID-based form, runs the
// engine, writes derived facts back, and repeats until a pass derives
// nothing new.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"owlrules/internal/builtin"
	"owlrules/internal/engine"
	"owlrules/internal/logging"
	"owlrules/internal/ontology"
	"owlrules/internal/reasoner"
	"owlrules/internal/result"
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

// DefaultMaxPasses bounds a run when Config.MaxPasses is not set.
const DefaultMaxPasses = 32

// State is the phase an inference run is in.
type State int32

const (
	StateIdle State = iota
	StateTranslating
	StateExecuting
	StateMaterializing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranslating:
		return "translating"
	case StateExecuting:
		return "executing"
	case StateMaterializing:
		return "materializing"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config wires a bridge to its collaborators. The registries are owned by
// the caller and may be shared between bridges.
type Config struct {
	Store    ontology.Store
	Engines  *engine.Registry
	BuiltIns *builtin.Registry
	// Reasoner contributes structural entailments each pass. Nil disables it.
	Reasoner  reasoner.Reasoner
	MaxPasses int
}

// Report summarizes a completed run.
type Report struct {
	RunID  string
	Passes int
	// NewFacts counts every fact asserted into the store during the run.
	NewFacts int
	// Tables holds the results of every active query, computed over the
	// final fact set.
	Tables      map[string]*result.Table
	Diagnostics []engine.Diagnostic
}

// Bridge runs rules and queries over a store. One run executes at a time.
type Bridge struct {
	cfg      Config
	resolver *term.Resolver
	state    atomic.Int32

	run sync.Mutex

	regMu   sync.RWMutex
	rules   []*rule.Rule
	queries []*rule.Query
	names   map[string]bool
}

// New returns a bridge. A store is required; a missing engine registry
// surfaces as engine.ErrNoRuleEngineConfigured when a run starts.
func New(cfg Config) (*Bridge, error) {
	if cfg.Store == nil {
		return nil, errors.New("bridge: a store is required")
	}
	if cfg.BuiltIns == nil {
		cfg.BuiltIns = builtin.NewRegistry()
	}
	if cfg.Reasoner == nil {
		cfg.Reasoner = reasoner.None{}
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	return &Bridge{cfg: cfg, resolver: term.NewResolver(), names: make(map[string]bool)}, nil
}

// State returns the current phase.
func (b *Bridge) State() State { return State(b.state.Load()) }

func (b *Bridge) setState(s State) { b.state.Store(int32(s)) }

// Resolver returns the resolver the bridge interns terms with.
func (b *Bridge) Resolver() *term.Resolver { return b.resolver }

// Reset invalidates every term ID minted so far. It waits for a running
// inference to finish.
func (b *Bridge) Reset() {
	b.run.Lock()
	defer b.run.Unlock()
	b.resolver.Reset()
	b.setState(StateIdle)
	logging.Get(logging.CategoryResolver).Debug("resolver reset to generation %d", b.resolver.Generation())
}

// AddRule registers r.
func (b *Bridge) AddRule(r *rule.Rule) error {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	if b.names[r.Name()] {
		return fmt.Errorf("%s: %w", r.Name(), ErrDuplicateName)
	}
	b.names[r.Name()] = true
	b.rules = append(b.rules, r)
	return nil
}

// AddQuery registers q.
func (b *Bridge) AddQuery(q *rule.Query) error {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	if b.names[q.Name()] {
		return fmt.Errorf("%s: %w", q.Name(), ErrDuplicateName)
	}
	b.names[q.Name()] = true
	b.queries = append(b.queries, q)
	return nil
}

// Remove unregisters the rule or query called name.
func (b *Bridge) Remove(name string) bool {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	if !b.names[name] {
		return false
	}
	delete(b.names, name)
	for i, r := range b.rules {
		if r.Name() == name {
			b.rules = append(b.rules[:i:i], b.rules[i+1:]...)
			return true
		}
	}
	for i, q := range b.queries {
		if q.Name() == name {
			b.queries = append(b.queries[:i:i], b.queries[i+1:]...)
			return true
		}
	}
	return true
}

// Rules returns the registered rules in registration order.
func (b *Bridge) Rules() []*rule.Rule {
	b.regMu.RLock()
	defer b.regMu.RUnlock()
	return append([]*rule.Rule(nil), b.rules...)
}

// Queries returns the registered queries in registration order.
func (b *Bridge) Queries() []*rule.Query {
	b.regMu.RLock()
	defer b.regMu.RUnlock()
	return append([]*rule.Query(nil), b.queries...)
}

// Query runs inference to the fixpoint and returns the table of the
// query called name.
func (b *Bridge) Query(ctx context.Context, name string) (*result.Table, error) {
	var q *rule.Query
	for _, cand := range b.Queries() {
		if cand.Name() == name {
			q = cand
		}
	}
	if q == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownQuery)
	}
	if !q.Active() {
		return nil, fmt.Errorf("%s: %w", name, ErrInactiveQuery)
	}
	rep, err := b.Infer(ctx)
	if err != nil {
		return nil, err
	}
	tbl, ok := rep.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrInactiveQuery)
	}
	return tbl, nil
}

// Infer runs passes until one adds no facts to the store. A cancelled
// pass is discarded whole: nothing it produced is asserted.
func (b *Bridge) Infer(ctx context.Context) (*Report, error) {
	b.run.Lock()
	defer b.run.Unlock()

	rep := &Report{RunID: uuid.NewString(), Tables: map[string]*result.Table{}}
	log := logging.WithRunID(logging.CategoryBridge, rep.RunID)
	timer := logging.StartTimer(logging.CategoryBridge, "Infer")
	defer timer.Stop()

	fail := func(pass int, rule string, err error) (*Report, error) {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			b.setState(StateIdle)
			log.Info("pass %d cancelled: %v", pass, err)
		} else {
			b.setState(StateFailed)
			log.Error("pass %d failed: %v", pass, err)
		}
		return nil, &RunError{RunID: rep.RunID, Pass: pass, Rule: rule, Err: err}
	}

	if b.cfg.Engines == nil {
		return fail(0, "", engine.ErrNoRuleEngineConfigured)
	}
	eng, err := b.cfg.Engines.Default()
	if err != nil {
		return fail(0, "", err)
	}
	rules, queries := b.Rules(), b.Queries()
	log.Info("starting run: engine=%s rules=%d queries=%d", eng.Name(), len(rules), len(queries))

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return fail(pass, "", err)
		}
		if pass > b.cfg.MaxPasses {
			return fail(pass, "", &NonTerminationError{MaxPasses: b.cfg.MaxPasses, NewFacts: rep.NewFacts})
		}

		b.setState(StateTranslating)
		facts, err := b.cfg.Store.ListFacts(ctx)
		if err != nil {
			return fail(pass, "", err)
		}
		entailed, err := b.cfg.Reasoner.Entail(ctx, facts)
		if err != nil {
			return fail(pass, "", fmt.Errorf("structural reasoner: %w", err))
		}
		in := b.translate(append(facts, entailed...), rules, queries)

		if err := ctx.Err(); err != nil {
			return fail(pass, "", err)
		}
		b.setState(StateExecuting)
		out, err := eng.Execute(ctx, in)
		if err != nil {
			var ee *engine.Error
			if errors.As(err, &ee) {
				return fail(pass, ee.Rule, err)
			}
			return fail(pass, "", &engine.Error{Engine: eng.Name(), Err: err})
		}
		if err := ctx.Err(); err != nil {
			return fail(pass, "", err)
		}

		b.setState(StateMaterializing)
		derived, culprit, err := b.materialize(out.Derived)
		if err != nil {
			return fail(pass, culprit, err)
		}
		added := 0
		// Materialization is not interrupted once it starts.
		mctx := context.WithoutCancel(ctx)
		for _, f := range append(entailed, derived...) {
			ok, err := b.cfg.Store.AssertFact(mctx, f)
			if err != nil {
				return fail(pass, "", err)
			}
			if ok {
				added++
			}
		}

		rep.Passes = pass
		rep.NewFacts += added
		// Every pass re-evaluates every rule over a superset of the previous
		// facts, so the last pass's tables and diagnostics cover the run.
		rep.Tables = out.Tables
		rep.Diagnostics = out.Diagnostics
		log.Info("pass %d: %d entailed, %d derived, %d new", pass, len(entailed), len(derived), added)
		if added == 0 {
			b.setState(StateIdle)
			log.Info("fixpoint after %d passes, %d facts added", rep.Passes, rep.NewFacts)
			return rep, nil
		}
	}
}

// translate interns class and property assertions and the active rules
// and queries. Other axioms are only consumed by the reasoner.
func (b *Bridge) translate(facts []ontology.Fact, rules []*rule.Rule, queries []*rule.Query) *engine.Input {
	in := &engine.Input{Resolver: b.resolver, BuiltIns: b.cfg.BuiltIns}
	for _, f := range facts {
		switch f.Kind {
		case ontology.ClassAssertion:
			in.Facts = append(in.Facts, engine.Fact{
				Predicate: b.resolver.Intern(engine.PredicateTerm(f.Object)),
				Args:      []term.ID{b.resolver.Intern(f.Subject)},
			})
		case ontology.PropertyAssertion:
			in.Facts = append(in.Facts, engine.Fact{
				Predicate: b.resolver.Intern(engine.PredicateTerm(f.Predicate)),
				Args:      []term.ID{b.resolver.Intern(f.Subject), b.resolver.Intern(f.Object)},
			})
		}
	}
	for _, r := range rules {
		if r.Active() {
			in.Rules = append(in.Rules, engine.TranslateRule(r, b.resolver))
		}
	}
	for _, q := range queries {
		if q.Active() {
			in.Queries = append(in.Queries, engine.TranslateQuery(q, b.resolver))
		}
	}
	logging.Get(logging.CategoryResolver).Debug("translated %d facts, %d terms interned", len(in.Facts), b.resolver.Len())
	return in
}

// materialize resolves derived engine facts back into ontology facts. On
// failure it also returns the name of the rule that derived the bad fact.
func (b *Bridge) materialize(derived []engine.Fact) ([]ontology.Fact, string, error) {
	out := make([]ontology.Fact, 0, len(derived))
	for _, d := range derived {
		pred, err := b.resolver.Resolve(d.Predicate)
		if err != nil {
			return nil, d.Rule, err
		}
		args := make([]term.Term, len(d.Args))
		for i, id := range d.Args {
			if args[i], err = b.resolver.Resolve(id); err != nil {
				return nil, d.Rule, err
			}
		}
		var f ontology.Fact
		switch {
		case pred.Kind == term.KindClass && len(args) == 1:
			f = ontology.MemberOf(pred, args[0])
		case pred.Kind.IsProperty() && len(args) == 2:
			f = ontology.Holds(pred, args[0], args[1])
		default:
			return nil, d.Rule, fmt.Errorf("derived fact %s has predicate %s of kind %s with %d arguments", d, pred, pred.Kind, len(args))
		}
		if err := f.Validate(); err != nil {
			return nil, d.Rule, err
		}
		out = append(out, f)
	}
	return out, "", nil
}
