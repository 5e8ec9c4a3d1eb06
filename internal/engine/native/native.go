// Package native is a small forward-chaining rule engine. Each Execute call
// runs one round: every rule is matched against the input facts only, and
// the bridge drives further rounds until nothing new is derived.
package native

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"owlrules/internal/builtin"
	"owlrules/internal/engine"
	"owlrules/internal/logging"
	"owlrules/internal/result"
	"owlrules/internal/term"
)

// Name is the registry name of this engine.
const Name = "native"

// Engine evaluates rules by backtracking joins over indexed facts.
type Engine struct{}

// New returns a native engine.
func New() *Engine { return &Engine{} }

func (*Engine) Name() string { return Name }

// Execute runs every rule once over in.Facts and evaluates every query.
func (e *Engine) Execute(ctx context.Context, in *engine.Input) (*engine.Output, error) {
	if in.Resolver == nil {
		return nil, &engine.Error{Engine: Name, Err: errors.New("input has no resolver")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &engine.Error{Engine: Name, Err: err}
	}
	timer := logging.StartTimer(logging.CategoryEngine, "native.Execute")
	defer timer.Stop()

	x := newRun(ctx, in)
	for _, r := range in.Rules {
		if err := ctx.Err(); err != nil {
			return nil, &engine.Error{Engine: Name, Rule: r.Name, Err: err}
		}
		if err := x.rule(r); err != nil {
			return nil, &engine.Error{Engine: Name, Rule: r.Name, Err: err}
		}
	}

	out := &engine.Output{Tables: make(map[string]*result.Table, len(in.Queries))}
	for _, q := range in.Queries {
		if err := ctx.Err(); err != nil {
			return nil, &engine.Error{Engine: Name, Rule: q.Name, Err: err}
		}
		tbl, err := x.query(q)
		if err != nil {
			return nil, &engine.Error{Engine: Name, Rule: q.Name, Err: err}
		}
		out.Tables[q.Name] = tbl
	}

	engine.SortFacts(x.derived)
	out.Derived = x.derived
	out.Diagnostics = x.diags
	logging.Get(logging.CategoryEngine).Debug("native: %d facts in, %d derived, %d tables, %d diagnostics",
		len(in.Facts), len(out.Derived), len(out.Tables), len(out.Diagnostics))
	return out, nil
}

// env maps variable names to term IDs. It is copied on extension so a
// failed branch never leaks bindings into its siblings.
type env map[string]term.ID

func (b env) with(name string, id term.ID) env {
	out := make(env, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = id
	return out
}

type run struct {
	ctx     context.Context
	res     *term.Resolver
	reg     *builtin.Registry
	index   map[term.ID][]engine.Fact
	known   map[string]bool
	derived []engine.Fact
	diags   []engine.Diagnostic
}

func newRun(ctx context.Context, in *engine.Input) *run {
	reg := in.BuiltIns
	if reg == nil {
		reg = builtin.NewRegistry()
	}
	x := &run{
		ctx:   ctx,
		res:   in.Resolver,
		reg:   reg,
		index: make(map[term.ID][]engine.Fact),
		known: make(map[string]bool, len(in.Facts)),
	}
	for _, f := range in.Facts {
		if x.known[f.Key()] {
			continue
		}
		x.known[f.Key()] = true
		x.index[f.Predicate] = append(x.index[f.Predicate], f)
	}
	return x
}

func (x *run) diagnose(d engine.Diagnostic) {
	logging.Get(logging.CategoryEngine).Debug("native: %s", d)
	x.diags = append(x.diags, d)
}

// solve matches body left to right and calls emit once per complete binding.
func (x *run) solve(name string, body []engine.Atom, b env, emit func(env) error) error {
	if len(body) == 0 {
		return emit(b)
	}
	if err := x.ctx.Err(); err != nil {
		return err
	}
	a, rest := body[0], body[1:]
	next := func(nb env) error { return x.solve(name, rest, nb, emit) }
	if a.Kind == engine.AtomBuiltIn {
		return x.builtIn(name, a, b, next)
	}
	for _, f := range x.index[a.Predicate] {
		nb, ok := match(a.Args, f.Args, b)
		if !ok {
			continue
		}
		if err := next(nb); err != nil {
			return err
		}
	}
	return nil
}

func match(pattern []engine.Arg, args []term.ID, b env) (env, bool) {
	if len(pattern) != len(args) {
		return nil, false
	}
	out := b
	for i, p := range pattern {
		if !p.IsVar() {
			if p.Value != args[i] {
				return nil, false
			}
			continue
		}
		if id, bound := out[p.Var]; bound {
			if id != args[i] {
				return nil, false
			}
			continue
		}
		out = out.with(p.Var, args[i])
	}
	return out, true
}

// arguments resolves bound arguments to terms. It also returns the
// bindings of the atom's bound variables, which Evaluate checks proposed
// bindings against.
func (x *run) arguments(args []engine.Arg, b env) ([]builtin.Argument, builtin.Bindings, error) {
	out := make([]builtin.Argument, len(args))
	bound := builtin.Bindings{}
	for i, a := range args {
		id := a.Value
		if a.IsVar() {
			v, ok := b[a.Var]
			if !ok {
				out[i] = builtin.Variable{Name: a.Var}
				continue
			}
			id = v
		}
		t, err := x.res.Resolve(id)
		if err != nil {
			return nil, nil, err
		}
		out[i] = builtin.Bound{Value: t}
		if a.IsVar() {
			bound[a.Var] = t
		}
	}
	return out, bound, nil
}

func (x *run) extend(b env, add builtin.Bindings) env {
	names := make([]string, 0, len(add))
	for name := range add {
		names = append(names, name)
	}
	sort.Strings(names)
	out := b
	for _, name := range names {
		out = out.with(name, x.res.Intern(add[name]))
	}
	return out
}

// builtIn evaluates one built-in atom. Failed and Error outcomes end the
// attempt; errors are recorded as diagnostics and do not fail the run.
func (x *run) builtIn(name string, a engine.Atom, b env, next func(env) error) error {
	args, bound, err := x.arguments(a.Args, b)
	if err != nil {
		return err
	}
	out := builtin.Evaluate(x.ctx, x.reg, a.BuiltIn, args, bound, builtin.ForRule(name))
	switch out.Kind() {
	case builtin.OutcomeSatisfied:
		return next(b)
	case builtin.OutcomeBindings:
		return next(x.extend(b, out.Bindings()))
	case builtin.OutcomeMultivalued:
		seq := out.Sequence()
		for {
			bs, ok, err := seq.Next(x.ctx)
			if err != nil {
				if cerr := x.ctx.Err(); cerr != nil {
					return cerr
				}
				x.diagnose(engine.DiagnosticFrom(name, err))
				if ok {
					continue
				}
				return nil
			}
			if !ok {
				return nil
			}
			if err := next(x.extend(b, bs)); err != nil {
				return err
			}
		}
	case builtin.OutcomeError:
		x.diagnose(engine.DiagnosticFrom(name, out.Err()))
	}
	return nil
}

func (x *run) rule(r engine.Rule) error {
	return x.solve(r.Name, r.Body, env{}, func(b env) error {
		facts := make([]engine.Fact, 0, len(r.Head))
		for _, h := range r.Head {
			f, missing := instantiate(h, b)
			if missing != "" {
				x.diagnose(engine.Diagnostic{
					Rule:    r.Name,
					Kind:    builtin.Internal,
					Message: fmt.Sprintf("head variable ?%s is unbound", missing),
				})
				return nil
			}
			f.Rule = r.Name
			facts = append(facts, f)
		}
		for _, f := range facts {
			if x.known[f.Key()] {
				continue
			}
			x.known[f.Key()] = true
			x.derived = append(x.derived, f)
		}
		return nil
	})
}

func instantiate(a engine.Atom, b env) (engine.Fact, string) {
	f := engine.Fact{Predicate: a.Predicate, Args: make([]term.ID, len(a.Args))}
	for i, arg := range a.Args {
		if !arg.IsVar() {
			f.Args[i] = arg.Value
			continue
		}
		id, ok := b[arg.Var]
		if !ok {
			return engine.Fact{}, arg.Var
		}
		f.Args[i] = id
	}
	return f, ""
}

// spanWriter places collector output at its columns of the row.
type spanWriter struct {
	row   []term.Term
	first int
}

func (w spanWriter) Write(values []term.Term) error {
	if w.first+len(values) > len(w.row) {
		return fmt.Errorf("collector writes %d values at column %d of %d", len(values), w.first, len(w.row))
	}
	copy(w.row[w.first:], values)
	return nil
}

func (x *run) query(q engine.Query) (*result.Table, error) {
	tbl, err := q.NewTable()
	if err != nil {
		return nil, err
	}
	err = x.solve(q.Name, q.Body, env{}, func(b env) error {
		row := make([]term.Term, len(q.Columns))
		for _, c := range q.Collectors {
			args, bound, err := x.arguments(c.Args, b)
			if err != nil {
				return err
			}
			out := builtin.Evaluate(x.ctx, x.reg, c.Name, args, bound,
				builtin.ForRule(q.Name), builtin.WithRow(spanWriter{row: row, first: c.FirstColumn}))
			if out.Kind() == builtin.OutcomeError {
				x.diagnose(engine.DiagnosticFrom(q.Name, out.Err()))
				return nil
			}
			if !out.Holds() {
				return nil
			}
		}
		if err := tbl.AddRow(row); err != nil {
			x.diagnose(engine.Diagnostic{Rule: q.Name, Kind: builtin.ArityOrType, Message: err.Error()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tbl.Finalize(q.Finish); err != nil {
		return nil, err
	}
	return tbl, nil
}
