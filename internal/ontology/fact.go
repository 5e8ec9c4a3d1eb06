// Package ontology models the asserted facts of an ontology and the store
// the inference bridge reads from and writes back to.
package ontology

import (
	"fmt"
	"sort"
	"strings"

	"owlrules/internal/term"
)

// FactKind tags an ontology fact.
type FactKind uint8

const (
	// Declaration introduces Subject as an entity of its kind.
	Declaration FactKind = iota + 1
	// ClassAssertion states that individual Subject is a member of class Object.
	ClassAssertion
	// PropertyAssertion states Predicate(Subject, Object).
	PropertyAssertion
	// SubClassOf states that class Subject is a subclass of class Object.
	SubClassOf
	// SubPropertyOf states that property Subject is a subproperty of Object.
	SubPropertyOf
	// Domain states that subjects of property Subject are members of class Object.
	Domain
	// Range states that individual objects of property Subject are members of class Object.
	Range
	// InverseOf states that property Subject is the inverse of property Object.
	InverseOf
	Transitive
	Symmetric
)

var kindNames = map[FactKind]string{
	Declaration:       "declaration",
	ClassAssertion:    "class_assertion",
	PropertyAssertion: "property_assertion",
	SubClassOf:        "subclass_of",
	SubPropertyOf:     "subproperty_of",
	Domain:            "domain",
	Range:             "range",
	InverseOf:         "inverse_of",
	Transitive:        "transitive",
	Symmetric:         "symmetric",
}

func (k FactKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("fact_kind(%d)", uint8(k))
}

// ParseFactKind is the inverse of FactKind.String.
func ParseFactKind(s string) (FactKind, bool) {
	for k, n := range kindNames {
		if n == s {
			return k, true
		}
	}
	return 0, false
}

// Fact is one asserted axiom. Which fields are set depends on Kind; use
// the constructors.
type Fact struct {
	Kind      FactKind
	Subject   term.Term
	Predicate term.Term
	Object    term.Term
}

// Declare returns a declaration of entity e.
func Declare(e term.Term) Fact { return Fact{Kind: Declaration, Subject: e} }

// MemberOf returns the assertion that ind is a member of class.
func MemberOf(class, ind term.Term) Fact {
	return Fact{Kind: ClassAssertion, Subject: ind, Object: class}
}

// Holds returns the assertion p(s, o). The property kind follows the
// object: a literal object makes p a data property.
func Holds(p, s, o term.Term) Fact {
	if o.IsLiteral() {
		p = term.DataProperty(p.IRI)
	} else {
		p = term.ObjectProperty(p.IRI)
	}
	return Fact{Kind: PropertyAssertion, Subject: s, Predicate: p, Object: o}
}

// Axiom returns a binary axiom such as SubClassOf(sub, super) or
// Domain(property, class).
func Axiom(kind FactKind, subject, object term.Term) Fact {
	return Fact{Kind: kind, Subject: subject, Object: object}
}

// Characteristic returns Transitive(p) or Symmetric(p).
func Characteristic(kind FactKind, p term.Term) Fact {
	return Fact{Kind: kind, Subject: p}
}

// Key identifies the fact for set membership.
func (f Fact) Key() string {
	return fmt.Sprintf("%d\x1f%s\x1f%s\x1f%s", f.Kind, termKey(f.Subject), termKey(f.Predicate), termKey(f.Object))
}

func termKey(t term.Term) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d|%s|%s|%s", t.Kind, t.IRI, t.Lexical, t.Datatype)
}

// Terms returns the non-empty terms of f.
func (f Fact) Terms() []term.Term {
	var out []term.Term
	for _, t := range []term.Term{f.Subject, f.Predicate, f.Object} {
		if !t.IsZero() {
			out = append(out, t)
		}
	}
	return out
}

func (f Fact) String() string {
	switch f.Kind {
	case ClassAssertion:
		return fmt.Sprintf("%s(%s)", f.Object, f.Subject)
	case PropertyAssertion:
		return fmt.Sprintf("%s(%s, %s)", f.Predicate, f.Subject, f.Object)
	case Declaration, Transitive, Symmetric:
		return fmt.Sprintf("%s(%s)", f.Kind, f.Subject)
	default:
		return fmt.Sprintf("%s(%s, %s)", f.Kind, f.Subject, f.Object)
	}
}

// InvalidFactError reports a fact whose terms do not fit its kind.
type InvalidFactError struct {
	Fact   Fact
	Reason string
}

func (e *InvalidFactError) Error() string {
	return fmt.Sprintf("invalid %s fact %s: %s", e.Fact.Kind, e.Fact, e.Reason)
}

// Validate checks that f's terms have the kinds its Kind requires.
func (f Fact) Validate() error {
	bad := func(format string, args ...any) error {
		return &InvalidFactError{Fact: f, Reason: fmt.Sprintf(format, args...)}
	}
	want := func(t term.Term, role string, kinds ...term.Kind) error {
		for _, k := range kinds {
			if t.Kind == k {
				return nil
			}
		}
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return bad("%s must be %s, got %s", role, strings.Join(names, " or "), t.Kind)
	}
	switch f.Kind {
	case Declaration:
		if !f.Subject.IsEntity() {
			return bad("only entities can be declared")
		}
		return nil
	case ClassAssertion:
		if err := want(f.Object, "class", term.KindClass); err != nil {
			return err
		}
		return want(f.Subject, "member", term.KindIndividual)
	case PropertyAssertion:
		if err := want(f.Subject, "subject", term.KindIndividual); err != nil {
			return err
		}
		if f.Predicate.Kind == term.KindDataProperty {
			if !f.Object.IsLiteral() {
				return bad("data property object must be a literal")
			}
			return nil
		}
		if err := want(f.Predicate, "predicate", term.KindObjectProperty); err != nil {
			return err
		}
		return want(f.Object, "object", term.KindIndividual)
	case SubClassOf:
		if err := want(f.Subject, "subclass", term.KindClass); err != nil {
			return err
		}
		return want(f.Object, "superclass", term.KindClass)
	case SubPropertyOf, InverseOf:
		if err := want(f.Subject, "property", term.KindObjectProperty, term.KindDataProperty); err != nil {
			return err
		}
		return want(f.Object, "property", term.KindObjectProperty, term.KindDataProperty)
	case Domain, Range:
		if err := want(f.Subject, "property", term.KindObjectProperty, term.KindDataProperty); err != nil {
			return err
		}
		return want(f.Object, "class", term.KindClass)
	case Transitive, Symmetric:
		return want(f.Subject, "property", term.KindObjectProperty)
	}
	return bad("unknown fact kind")
}

// SortFacts orders facts by kind and then by key.
func SortFacts(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Kind != facts[j].Kind {
			return facts[i].Kind < facts[j].Kind
		}
		return facts[i].Key() < facts[j].Key()
	})
}
