// Package rule holds the immutable atom, rule and query model the bridge
// translates into engine form, plus a parser and renderer for the
// human-readable SWRL/SQWRL syntax.
package rule

import (
	"errors"
	"fmt"
	"strings"

	"owlrules/internal/term"
)

var (
	// ErrNoArguments is returned when an atom is constructed without arguments.
	ErrNoArguments = errors.New("atom has no arguments")
	// ErrPredicateKind is returned when a class or property atom is built
	// over a term of the wrong kind.
	ErrPredicateKind = errors.New("predicate has the wrong kind")
)

// Arg is a rule-level argument: a variable or a constant term.
type Arg struct {
	variable string
	value    term.Term
}

// Var returns a variable argument. A leading '?' is stripped.
func Var(name string) Arg {
	return Arg{variable: strings.TrimPrefix(name, "?")}
}

// Const returns a constant argument holding an entity or literal.
func Const(t term.Term) Arg {
	return Arg{value: t}
}

// IsVariable reports whether a is a variable.
func (a Arg) IsVariable() bool { return a.variable != "" }

// Variable returns the variable name, or "" for constants.
func (a Arg) Variable() string { return a.variable }

// Term returns the constant, or the zero Term for variables.
func (a Arg) Term() term.Term { return a.value }

func (a Arg) render(p *term.Prefixes) string {
	if a.IsVariable() {
		return "?" + a.variable
	}
	return renderTerm(a.value, p)
}

func (a Arg) String() string { return a.render(nil) }

// AtomKind discriminates the atom variants.
type AtomKind uint8

const (
	AtomClass AtomKind = iota + 1
	AtomProperty
	AtomBuiltIn
)

func (k AtomKind) String() string {
	switch k {
	case AtomClass:
		return "class"
	case AtomProperty:
		return "property"
	case AtomBuiltIn:
		return "builtin"
	default:
		return "unknown"
	}
}

// Atom is a predicate application: a class atom C(?x), a property atom
// p(?x, ?y), or a built-in atom b(args...). Atoms are immutable.
type Atom struct {
	kind      AtomKind
	predicate term.Term
	builtin   string
	args      []Arg
}

// NewClassAtom builds C(arg).
func NewClassAtom(class term.Term, arg Arg) (Atom, error) {
	if class.Kind != term.KindClass {
		return Atom{}, fmt.Errorf("class atom over %s: %w", class, ErrPredicateKind)
	}
	if !arg.IsVariable() && arg.Term().IsZero() {
		return Atom{}, fmt.Errorf("class atom %s: %w", class, ErrNoArguments)
	}
	if !arg.IsVariable() && arg.Term().IsLiteral() {
		return Atom{}, fmt.Errorf("class atom %s: literal argument %s", class, arg)
	}
	return Atom{kind: AtomClass, predicate: class, args: []Arg{arg}}, nil
}

// NewPropertyAtom builds p(subject, object). Object properties reject
// literal objects; no property accepts a literal subject.
func NewPropertyAtom(property term.Term, subject, object Arg) (Atom, error) {
	if !property.Kind.IsProperty() {
		return Atom{}, fmt.Errorf("property atom over %s: %w", property, ErrPredicateKind)
	}
	for _, a := range []Arg{subject, object} {
		if !a.IsVariable() && a.Term().IsZero() {
			return Atom{}, fmt.Errorf("property atom %s: %w", property, ErrNoArguments)
		}
	}
	if !subject.IsVariable() && subject.Term().IsLiteral() {
		return Atom{}, fmt.Errorf("property atom %s: literal subject %s", property, subject)
	}
	if property.Kind == term.KindObjectProperty && !object.IsVariable() && object.Term().IsLiteral() {
		return Atom{}, fmt.Errorf("object property atom %s: literal object %s", property, object)
	}
	return Atom{kind: AtomProperty, predicate: property, args: []Arg{subject, object}}, nil
}

// NewBuiltInAtom builds name(args...). Whether name is registered is
// checked when the atom is first executed, not here.
func NewBuiltInAtom(name string, args ...Arg) (Atom, error) {
	if name == "" {
		return Atom{}, errors.New("built-in atom has no name")
	}
	if len(args) == 0 {
		return Atom{}, fmt.Errorf("built-in %s: %w", name, ErrNoArguments)
	}
	cp := make([]Arg, len(args))
	copy(cp, args)
	return Atom{kind: AtomBuiltIn, builtin: name, args: cp}, nil
}

// MustAtom panics if err is non-nil. Intended for tests and static tables.
func MustAtom(a Atom, err error) Atom {
	if err != nil {
		panic(err)
	}
	return a
}

func (a Atom) Kind() AtomKind { return a.kind }

// Predicate returns the class or property of a non-built-in atom.
func (a Atom) Predicate() term.Term { return a.predicate }

// BuiltIn returns the built-in name of a built-in atom.
func (a Atom) BuiltIn() string { return a.builtin }

// IsBuiltIn reports whether a is a built-in atom.
func (a Atom) IsBuiltIn() bool { return a.kind == AtomBuiltIn }

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.args) }

// Arg returns the i-th argument.
func (a Atom) Arg(i int) Arg { return a.args[i] }

// Args returns a copy of the arguments.
func (a Atom) Args() []Arg {
	cp := make([]Arg, len(a.args))
	copy(cp, a.args)
	return cp
}

// Variables returns the distinct variable names in argument order.
func (a Atom) Variables() []string {
	var out []string
	seen := make(map[string]bool)
	for _, arg := range a.args {
		if arg.IsVariable() && !seen[arg.variable] {
			seen[arg.variable] = true
			out = append(out, arg.variable)
		}
	}
	return out
}

// Render formats the atom in SWRL syntax using p for short forms.
func (a Atom) Render(p *term.Prefixes) string {
	var name string
	if a.kind == AtomBuiltIn {
		name = renderIRI(a.builtin, p)
	} else {
		name = renderIRI(a.predicate.IRI, p)
	}
	args := make([]string, len(a.args))
	for i, arg := range a.args {
		args[i] = arg.render(p)
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

func (a Atom) String() string { return a.Render(nil) }

func renderIRI(iri string, p *term.Prefixes) string {
	if p == nil {
		return "<" + iri + ">"
	}
	return p.ShortForm(iri)
}

func renderTerm(t term.Term, p *term.Prefixes) string {
	if t.IsEntity() {
		return renderIRI(t.IRI, p)
	}
	switch {
	case t.IsInteger() && t.Datatype == term.XSDInteger,
		t.IsDecimal() && t.Datatype == term.XSDDecimal && strings.Contains(t.Lexical, "."):
		return t.Lexical
	case t.IsBoolean():
		return t.Lexical
	case t.IsString():
		return fmt.Sprintf("%q", t.Lexical)
	}
	return fmt.Sprintf("%q^^%s", t.Lexical, renderIRI(t.Datatype, p))
}

func renderAtoms(atoms []Atom, p *term.Prefixes) string {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = a.Render(p)
	}
	return strings.Join(parts, " ^ ")
}

// collectVariables returns the distinct variables of atoms in order.
func collectVariables(atoms []Atom) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range atoms {
		for _, v := range a.Variables() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// evaluationOrder puts class and property atoms before built-ins while
// keeping declared order within each group.
func evaluationOrder(atoms []Atom) []Atom {
	out := make([]Atom, 0, len(atoms))
	for _, a := range atoms {
		if !a.IsBuiltIn() {
			out = append(out, a)
		}
	}
	for _, a := range atoms {
		if a.IsBuiltIn() {
			out = append(out, a)
		}
	}
	return out
}
