// Package reasoner computes structural entailments of an ontology, the
// facts that follow from class and property axioms alone.
package reasoner

import (
	"context"
	"fmt"

	"owlrules/internal/logging"
	"owlrules/internal/mangle"
	"owlrules/internal/ontology"
	"owlrules/internal/term"
)

// Reasoner returns the class and property assertions entailed by facts
// that are not already among them.
type Reasoner interface {
	Entail(ctx context.Context, facts []ontology.Fact) ([]ontology.Fact, error)
}

// None entails nothing.
type None struct{}

func (None) Entail(context.Context, []ontology.Fact) ([]ontology.Fact, error) { return nil, nil }

// rlProgram covers the subset of OWL 2 RL the bridge relies on: class and
// property hierarchies, domain and range, inverse, symmetric and
// transitive properties.
const rlProgram = `
Decl individual(I).
Decl class_assertion(C, I).
Decl property_assertion(P, S, O).
Decl subclass_of(C, D).
Decl subproperty_of(P, Q).
Decl domain(P, C).
Decl range(P, C).
Decl inverse_of(P, Q).
Decl transitive(P).
Decl symmetric(P).

superclass(C, D) :- subclass_of(C, D).
superclass(C, E) :- subclass_of(C, D), superclass(D, E).

superproperty(P, Q) :- subproperty_of(P, Q).
superproperty(P, R) :- subproperty_of(P, Q), superproperty(Q, R).

holds(P, S, O) :- property_assertion(P, S, O).
holds(Q, S, O) :- holds(P, S, O), superproperty(P, Q).
holds(P, O, S) :- holds(P, S, O), symmetric(P), individual(O).
holds(Q, O, S) :- holds(P, S, O), inverse_of(P, Q), individual(O).
holds(P, O, S) :- holds(Q, S, O), inverse_of(P, Q), individual(O).
holds(P, S, U) :- holds(P, S, O), holds(P, O, U), transitive(P).

member(C, I) :- class_assertion(C, I).
member(D, I) :- member(C, I), superclass(C, D).
member(C, S) :- holds(P, S, O), domain(P, C).
member(C, O) :- holds(P, S, O), range(P, C), individual(O).
`

// RL is a Reasoner backed by a fixed Mangle program.
type RL struct {
	eval *mangle.Evaluator
}

// NewRL compiles the RL program.
func NewRL(cfg mangle.Config) (*RL, error) {
	eval, err := mangle.NewEvaluator(cfg, rlProgram)
	if err != nil {
		return nil, fmt.Errorf("compile rl program: %w", err)
	}
	return &RL{eval: eval}, nil
}

// Entail runs the RL program over facts. Terms are interned into a
// resolver private to the call.
func (r *RL) Entail(ctx context.Context, facts []ontology.Fact) ([]ontology.Fact, error) {
	log := logging.Get(logging.CategoryReasoner)
	timer := logging.StartTimer(logging.CategoryReasoner, "rl.Entail")
	defer timer.Stop()

	res := term.NewResolver()
	id := func(t term.Term) string {
		// Properties are interned by IRI alone so data and object uses of
		// one property meet in the same predicate.
		if t.Kind.IsProperty() {
			t = term.ObjectProperty(t.IRI)
		}
		return string(res.Intern(t))
	}

	known := make(map[string]bool, len(facts))
	individuals := make(map[string]bool)
	in := make([]mangle.Fact, 0, len(facts))
	add := func(pred string, args ...string) {
		in = append(in, mangle.Fact{Predicate: pred, Args: args})
	}
	for _, f := range facts {
		known[f.Key()] = true
		for _, t := range f.Terms() {
			if t.Kind == term.KindIndividual && !individuals[t.IRI] {
				individuals[t.IRI] = true
				add("individual", id(t))
			}
		}
		switch f.Kind {
		case ontology.ClassAssertion:
			add("class_assertion", id(f.Object), id(f.Subject))
		case ontology.PropertyAssertion:
			add("property_assertion", id(f.Predicate), id(f.Subject), id(f.Object))
		case ontology.SubClassOf:
			add("subclass_of", id(f.Subject), id(f.Object))
		case ontology.SubPropertyOf:
			add("subproperty_of", id(f.Subject), id(f.Object))
		case ontology.Domain:
			add("domain", id(f.Subject), id(f.Object))
		case ontology.Range:
			add("range", id(f.Subject), id(f.Object))
		case ontology.InverseOf:
			add("inverse_of", id(f.Subject), id(f.Object))
		case ontology.Transitive:
			add("transitive", id(f.Subject))
		case ontology.Symmetric:
			add("symmetric", id(f.Subject))
		}
	}

	result, err := r.eval.Evaluate(ctx, in)
	if err != nil {
		return nil, err
	}
	resolve := func(s string) (term.Term, error) { return res.Resolve(term.ID(s)) }

	var out []ontology.Fact
	emit := func(f ontology.Fact) {
		if known[f.Key()] || f.Validate() != nil {
			return
		}
		known[f.Key()] = true
		out = append(out, f)
	}

	members, err := result.Facts("member", 2)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		c, err := resolve(m.Args[0])
		if err != nil {
			return nil, err
		}
		i, err := resolve(m.Args[1])
		if err != nil {
			return nil, err
		}
		emit(ontology.MemberOf(c, i))
	}

	holds, err := result.Facts("holds", 3)
	if err != nil {
		return nil, err
	}
	for _, h := range holds {
		var ts [3]term.Term
		for k, a := range h.Args {
			if ts[k], err = resolve(a); err != nil {
				return nil, err
			}
		}
		emit(ontology.Holds(ts[0], ts[1], ts[2]))
	}

	ontology.SortFacts(out)
	log.Debug("rl: %d facts in, %d entailed", len(facts), len(out))
	return out, nil
}
