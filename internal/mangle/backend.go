package mangle

import (
	"context"
	"fmt"
	"strings"

	"owlrules/internal/builtin"
	"owlrules/internal/engine"
	"owlrules/internal/logging"
	"owlrules/internal/result"
	"owlrules/internal/term"
)

// Name is the registry name of the Mangle backend.
const Name = "mangle"

// Predicates of the compiled rule program.
const (
	ClassAssertion    = "class_assertion"
	PropertyAssertion = "property_assertion"
)

const assertionDecls = `
Decl class_assertion(Class, Individual).
Decl property_assertion(Property, Subject, Object).
`

// Backend compiles translated rules into a Mangle program and runs it to
// its fixpoint in a single Execute call. Built-in body atoms cannot be
// expressed in the compiled program; rules and queries using them fail
// with engine.ErrUnsupported.
type Backend struct {
	cfg Config
}

// NewBackend returns a Mangle backend.
func NewBackend(cfg Config) *Backend { return &Backend{cfg: cfg} }

func (*Backend) Name() string { return Name }

// Execute implements engine.RuleEngine.
func (b *Backend) Execute(ctx context.Context, in *engine.Input) (*engine.Output, error) {
	fail := func(rule string, err error) (*engine.Output, error) {
		return nil, &engine.Error{Engine: Name, Rule: rule, Err: err}
	}
	if in.Resolver == nil {
		return fail("", fmt.Errorf("input has no resolver"))
	}
	for _, r := range in.Rules {
		if r.HasBuiltIns() {
			return fail(r.Name, fmt.Errorf("built-in body atoms: %w", engine.ErrUnsupported))
		}
	}
	for _, q := range in.Queries {
		if q.HasBuiltIns() {
			return fail(q.Name, fmt.Errorf("built-in body atoms: %w", engine.ErrUnsupported))
		}
	}

	prog, queryVars := compile(in.Rules, in.Queries)
	logging.Get(logging.CategoryEngine).Debug("mangle: compiled %d rules and %d queries:\n%s",
		len(in.Rules), len(in.Queries), prog)

	eval, err := NewEvaluator(b.cfg, assertionDecls, prog)
	if err != nil {
		return fail("", err)
	}
	facts := make([]Fact, len(in.Facts))
	for i, f := range in.Facts {
		facts[i] = toMangle(f)
	}
	res, err := eval.Evaluate(ctx, facts)
	if err != nil {
		return fail("", err)
	}

	out := &engine.Output{Tables: make(map[string]*result.Table, len(in.Queries))}
	if out.Derived, err = derived(res, in); err != nil {
		return fail("", err)
	}
	for i, q := range in.Queries {
		tbl, diags, err := table(ctx, res, in, q, queryPredicate(i), queryVars[i])
		if err != nil {
			return fail(q.Name, err)
		}
		out.Tables[q.Name] = tbl
		out.Diagnostics = append(out.Diagnostics, diags...)
	}
	return out, nil
}

func toMangle(f engine.Fact) Fact {
	args := make([]string, 0, len(f.Args)+1)
	args = append(args, string(f.Predicate))
	for _, a := range f.Args {
		args = append(args, string(a))
	}
	if len(f.Args) == 1 {
		return Fact{Predicate: ClassAssertion, Args: args}
	}
	return Fact{Predicate: PropertyAssertion, Args: args}
}

func fromMangle(f Fact) engine.Fact {
	args := make([]term.ID, len(f.Args)-1)
	for i, a := range f.Args[1:] {
		args[i] = term.ID(a)
	}
	return engine.Fact{Predicate: term.ID(f.Args[0]), Args: args}
}

// derived returns the closure facts missing from the input. Each is
// attributed to the first rule whose head can produce its predicate.
func derived(res *Result, in *engine.Input) ([]engine.Fact, error) {
	known := make(map[string]bool, len(in.Facts))
	for _, f := range in.Facts {
		known[f.Key()] = true
	}
	producer := make(map[term.ID]string)
	for _, r := range in.Rules {
		for _, h := range r.Head {
			if _, ok := producer[h.Predicate]; !ok {
				producer[h.Predicate] = r.Name
			}
		}
	}
	var out []engine.Fact
	for _, p := range []struct {
		name  string
		arity int
	}{{ClassAssertion, 2}, {PropertyAssertion, 3}} {
		facts, err := res.Facts(p.name, p.arity)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			ef := fromMangle(f)
			ef.Rule = producer[ef.Predicate]
			if !known[ef.Key()] {
				out = append(out, ef)
			}
		}
	}
	engine.SortFacts(out)
	return out, nil
}

func queryPredicate(i int) string { return fmt.Sprintf("owlrules_query_%d", i) }

// compile renders rules and queries as Mangle clauses. Every query gets a
// derived predicate whose first argument is a constant marker followed by
// all its body variables; queryVars lists those variables per query.
func compile(rules []engine.Rule, queries []engine.Query) (string, [][]string) {
	var b strings.Builder
	for _, r := range rules {
		vars := variableNames(r.Body, r.Head)
		fmt.Fprintf(&b, "# %s\n", comment(r.Name))
		for _, h := range r.Head {
			b.WriteString(atomText(h, vars))
			if len(r.Body) > 0 {
				b.WriteString(" :- ")
				b.WriteString(bodyText(r.Body, vars))
			}
			b.WriteString(".\n")
		}
	}
	queryVars := make([][]string, len(queries))
	for i, q := range queries {
		vars := variableNames(q.Body, nil)
		ordered := make([]string, len(vars))
		for name, v := range vars {
			ordered[v.index] = name
		}
		queryVars[i] = ordered

		head := []string{"/row"}
		for _, name := range ordered {
			head = append(head, vars[name].text)
		}
		fmt.Fprintf(&b, "# %s\n%s(%s)", comment(q.Name), queryPredicate(i), strings.Join(head, ", "))
		if len(q.Body) > 0 {
			b.WriteString(" :- ")
			b.WriteString(bodyText(q.Body, vars))
		}
		b.WriteString(".\n")
	}
	return b.String(), queryVars
}

func comment(s string) string { return strings.NewReplacer("\n", " ", "\r", " ").Replace(s) }

type mangleVar struct {
	index int
	text  string
}

// variableNames maps rule variables to Mangle variables V0, V1, ... in
// order of first appearance.
func variableNames(body, head []engine.Atom) map[string]mangleVar {
	vars := make(map[string]mangleVar)
	for _, atoms := range [][]engine.Atom{body, head} {
		for _, a := range atoms {
			for _, arg := range a.Args {
				if arg.IsVar() {
					if _, ok := vars[arg.Var]; !ok {
						n := len(vars)
						vars[arg.Var] = mangleVar{index: n, text: fmt.Sprintf("V%d", n)}
					}
				}
			}
		}
	}
	return vars
}

func atomText(a engine.Atom, vars map[string]mangleVar) string {
	args := []string{"/" + string(a.Predicate)}
	for _, arg := range a.Args {
		if arg.IsVar() {
			args = append(args, vars[arg.Var].text)
			continue
		}
		args = append(args, "/"+string(arg.Value))
	}
	pred := PropertyAssertion
	if a.Kind == engine.AtomClass {
		pred = ClassAssertion
	}
	return pred + "(" + strings.Join(args, ", ") + ")"
}

func bodyText(body []engine.Atom, vars map[string]mangleVar) string {
	parts := make([]string, len(body))
	for i, a := range body {
		parts[i] = atomText(a, vars)
	}
	return strings.Join(parts, ", ")
}

// rowWriter places collector output at its columns of the row.
type rowWriter struct {
	row   []term.Term
	first int
}

func (w rowWriter) Write(values []term.Term) error {
	if w.first+len(values) > len(w.row) {
		return fmt.Errorf("collector writes %d values at column %d of %d", len(values), w.first, len(w.row))
	}
	copy(w.row[w.first:], values)
	return nil
}

// table builds a query's result table from the derived query facts. The
// head collectors are still run through the built-in registry so they
// behave exactly as under any other engine.
func table(ctx context.Context, res *Result, in *engine.Input, q engine.Query, pred string, vars []string) (*result.Table, []engine.Diagnostic, error) {
	tbl, err := q.NewTable()
	if err != nil {
		return nil, nil, err
	}
	reg := in.BuiltIns
	if reg == nil {
		reg = builtin.NewRegistry()
	}
	facts, err := res.Facts(pred, len(vars)+1)
	if err != nil {
		return nil, nil, err
	}
	var diags []engine.Diagnostic
	for _, f := range facts {
		bound := make(builtin.Bindings, len(vars))
		for i, name := range vars {
			t, err := in.Resolver.Resolve(term.ID(f.Args[i+1]))
			if err != nil {
				return nil, nil, err
			}
			bound[name] = t
		}
		row := make([]term.Term, len(q.Columns))
		keep := true
		for _, c := range q.Collectors {
			args := make([]builtin.Argument, len(c.Args))
			for i, a := range c.Args {
				if a.IsVar() {
					args[i] = builtin.Bound{Value: bound[a.Var]}
					continue
				}
				t, err := in.Resolver.Resolve(a.Value)
				if err != nil {
					return nil, nil, err
				}
				args[i] = builtin.Bound{Value: t}
			}
			out := builtin.Evaluate(ctx, reg, c.Name, args, bound,
				builtin.ForRule(q.Name), builtin.WithRow(rowWriter{row: row, first: c.FirstColumn}))
			if out.Kind() == builtin.OutcomeError {
				diags = append(diags, engine.DiagnosticFrom(q.Name, out.Err()))
			}
			if !out.Holds() {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		if err := tbl.AddRow(row); err != nil {
			diags = append(diags, engine.Diagnostic{Rule: q.Name, Kind: builtin.ArityOrType, Message: err.Error()})
		}
	}
	if err := tbl.Finalize(q.Finish); err != nil {
		return nil, nil, err
	}
	return tbl, diags, nil
}
