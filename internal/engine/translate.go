package engine

import (
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

// PredicateTerm returns the term a predicate is interned under. Object and
// data properties with the same IRI share one predicate, so a rule parsed
// without vocabulary still matches facts about either.
func PredicateTerm(t term.Term) term.Term {
	if t.Kind.IsProperty() {
		return term.ObjectProperty(t.IRI)
	}
	return t
}

// TranslateAtom interns the predicate and constant arguments of a.
func TranslateAtom(a rule.Atom, res *term.Resolver) Atom {
	out := Atom{Args: translateArgs(a.Args(), res)}
	switch a.Kind() {
	case rule.AtomClass:
		out.Kind = AtomClass
		out.Predicate = res.Intern(PredicateTerm(a.Predicate()))
	case rule.AtomProperty:
		out.Kind = AtomProperty
		out.Predicate = res.Intern(PredicateTerm(a.Predicate()))
	case rule.AtomBuiltIn:
		out.Kind = AtomBuiltIn
		out.BuiltIn = a.BuiltIn()
	}
	return out
}

func translateArgs(args []rule.Arg, res *term.Resolver) []Arg {
	out := make([]Arg, len(args))
	for i, a := range args {
		if a.IsVariable() {
			out[i] = Arg{Var: a.Variable()}
			continue
		}
		out[i] = Arg{Value: res.Intern(a.Term())}
	}
	return out
}

func translateAtoms(atoms []rule.Atom, res *term.Resolver) []Atom {
	out := make([]Atom, len(atoms))
	for i, a := range atoms {
		out[i] = TranslateAtom(a, res)
	}
	return out
}

// TranslateRule translates r with its body in evaluation order.
func TranslateRule(r *rule.Rule, res *term.Resolver) Rule {
	return Rule{
		Name: r.Name(),
		Body: translateAtoms(r.EvaluationOrder(), res),
		Head: translateAtoms(r.Head(), res),
	}
}

// TranslateQuery translates q, keeping its column layout and finish settings.
func TranslateQuery(q *rule.Query, res *term.Resolver) Query {
	spans := q.Collectors()
	out := Query{
		Name:       q.Name(),
		Body:       translateAtoms(q.EvaluationOrder(), res),
		Collectors: make([]Collector, len(spans)),
		Columns:    q.Columns(),
		Finish:     q.Finish(),
	}
	for i, s := range spans {
		out.Collectors[i] = Collector{
			Name:        s.Atom.BuiltIn(),
			Args:        translateArgs(s.Atom.Args(), res),
			FirstColumn: s.FirstColumn,
		}
	}
	return out
}
