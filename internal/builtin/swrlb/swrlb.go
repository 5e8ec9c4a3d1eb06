// Package swrlb provides the standard SWRL built-in library (comparison,
// math and string built-ins), the swrlx individual-minting built-in and the
// SQWRL result collectors. Callers register it into their own registry.
package swrlb

import (
	"owlrules/internal/builtin"
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

// Built-in names.
const (
	Equal              = term.NamespaceSWRLB + "equal"
	NotEqual           = term.NamespaceSWRLB + "notEqual"
	LessThan           = term.NamespaceSWRLB + "lessThan"
	LessThanOrEqual    = term.NamespaceSWRLB + "lessThanOrEqual"
	GreaterThan        = term.NamespaceSWRLB + "greaterThan"
	GreaterThanOrEqual = term.NamespaceSWRLB + "greaterThanOrEqual"

	Add      = term.NamespaceSWRLB + "add"
	Subtract = term.NamespaceSWRLB + "subtract"
	Multiply = term.NamespaceSWRLB + "multiply"
	Divide   = term.NamespaceSWRLB + "divide"
	Mod      = term.NamespaceSWRLB + "mod"
	Abs      = term.NamespaceSWRLB + "abs"

	StringConcat = term.NamespaceSWRLB + "stringConcat"
	StringLength = term.NamespaceSWRLB + "stringLength"
	UpperCase    = term.NamespaceSWRLB + "upperCase"
	LowerCase    = term.NamespaceSWRLB + "lowerCase"
	Contains     = term.NamespaceSWRLB + "contains"
	StartsWith   = term.NamespaceSWRLB + "startsWith"
	EndsWith     = term.NamespaceSWRLB + "endsWith"
	Matches      = term.NamespaceSWRLB + "matches"
	Tokenize     = term.NamespaceSWRLB + "tokenize"

	MakeIndividual = term.NamespaceSWRLX + "makeIndividual"
)

// DefaultIndividualNamespace prefixes individuals minted by makeIndividual.
const DefaultIndividualNamespace = "urn:owlrules:individual:"

// Option configures the library.
type Option func(*library)

// WithIndividualNamespace sets the IRI prefix of minted individuals.
func WithIndividualNamespace(ns string) Option {
	return func(l *library) { l.individualNS = ns }
}

type library struct {
	individualNS string
}

// Register adds every built-in of the library to reg.
func Register(reg *builtin.Registry, opts ...Option) error {
	l := &library{individualNS: DefaultIndividualNamespace}
	for _, opt := range opts {
		opt(l)
	}
	for _, b := range l.builtIns() {
		if err := reg.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the whole library.
func NewRegistry(opts ...Option) *builtin.Registry {
	reg := builtin.NewRegistry()
	if err := Register(reg, opts...); err != nil {
		panic(err)
	}
	return reg
}

func (l *library) builtIns() []builtin.BuiltIn {
	fixed := builtin.Fixed
	variadic := builtin.Variadic
	return []builtin.BuiltIn{
		{Name: Equal, Arity: fixed(2), Func: equal},
		{Name: NotEqual, Arity: fixed(2), Func: compareWith(func(c int) bool { return c != 0 })},
		{Name: LessThan, Arity: fixed(2), Func: compareWith(func(c int) bool { return c < 0 })},
		{Name: LessThanOrEqual, Arity: fixed(2), Func: compareWith(func(c int) bool { return c <= 0 })},
		{Name: GreaterThan, Arity: fixed(2), Func: compareWith(func(c int) bool { return c > 0 })},
		{Name: GreaterThanOrEqual, Arity: fixed(2), Func: compareWith(func(c int) bool { return c >= 0 })},

		{Name: Add, Arity: variadic(2), Func: add},
		{Name: Subtract, Arity: fixed(3), Func: subtract},
		{Name: Multiply, Arity: variadic(2), Func: multiply},
		{Name: Divide, Arity: fixed(3), Func: divide},
		{Name: Mod, Arity: fixed(3), Func: mod},
		{Name: Abs, Arity: fixed(2), Func: abs},

		{Name: StringConcat, Arity: variadic(1), Func: stringConcat},
		{Name: StringLength, Arity: fixed(2), Func: stringLength},
		{Name: UpperCase, Arity: fixed(2), Func: upperCase},
		{Name: LowerCase, Arity: fixed(2), Func: lowerCase},
		{Name: Contains, Arity: fixed(2), Func: stringTest(containsTest)},
		{Name: StartsWith, Arity: fixed(2), Func: stringTest(startsWithTest)},
		{Name: EndsWith, Arity: fixed(2), Func: stringTest(endsWithTest)},
		{Name: Matches, Arity: fixed(2), Func: matches},
		{Name: Tokenize, Arity: fixed(3), Func: tokenize},

		{Name: MakeIndividual, Arity: variadic(1), Func: l.makeIndividual},

		builtin.Collector(rule.Select),
		builtin.Collector(rule.SelectDistinct),
		builtin.Collector(rule.Count),
		builtin.Collector(rule.CountDistinct),
		builtin.Collector(rule.Sum),
		builtin.Collector(rule.Min),
		builtin.Collector(rule.Max),
		builtin.Collector(rule.Avg),
	}
}
