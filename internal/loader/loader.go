package loader

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"owlrules/internal/logging"
	"owlrules/internal/ontology"
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

// ErrNotGround is returned for a fact that mentions a variable.
var ErrNotGround = errors.New("facts must be ground")

// Registrar accepts parsed rules and queries. *bridge.Bridge is one.
type Registrar interface {
	AddRule(r *rule.Rule) error
	AddQuery(q *rule.Query) error
}

type labeler interface {
	SetLabel(iri, label string) error
}

// Summary counts what a load added.
type Summary struct {
	Documents int
	// Facts counts facts new to the store.
	Facts   int
	Rules   int
	Queries int
}

func (s *Summary) add(o Summary) {
	s.Documents += o.Documents
	s.Facts += o.Facts
	s.Rules += o.Rules
	s.Queries += o.Queries
}

// Loader applies documents to a store and a rule registrar. Prefix
// declarations accumulate in the shared prefix table across documents.
type Loader struct {
	store    ontology.Store
	prefixes *term.Prefixes
	target   Registrar
}

// New returns a loader. target may be nil when documents carry no rules
// or queries.
func New(store ontology.Store, prefixes *term.Prefixes, target Registrar) *Loader {
	return &Loader{store: store, prefixes: prefixes, target: target}
}

// LoadFile reads and applies one file.
func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	return l.Load(ctx, doc)
}

// LoadAll decodes paths concurrently, then applies them one at a time in
// the order given, so later documents see earlier prefixes and vocabulary.
func (l *Loader) LoadAll(ctx context.Context, paths ...string) (Summary, error) {
	timer := logging.StartTimer(logging.CategoryLoader, "LoadAll")
	defer timer.Stop()

	docs := make([]*Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := ReadFile(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var total Summary
	for _, doc := range docs {
		s, err := l.Load(ctx, doc)
		total.add(s)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Load applies doc: prefixes, declarations, labels, facts, axioms, then
// rules and queries. It stops at the first error; what was applied before
// it stays applied.
func (l *Loader) Load(ctx context.Context, doc *Document) (Summary, error) {
	sum := Summary{Documents: 1}
	where := doc.Path
	if where == "" {
		where = "document"
	}
	wrap := func(err error) (Summary, error) { return sum, fmt.Errorf("%s: %w", where, err) }

	for prefix, ns := range doc.Prefixes {
		l.prefixes.Set(prefix, ns)
	}

	assert := func(f ontology.Fact) error {
		added, err := l.store.AssertFact(ctx, f)
		if added {
			sum.Facts++
		}
		return err
	}

	decls := []struct {
		names []string
		mk    func(string) term.Term
	}{
		{doc.Classes, term.Class},
		{doc.ObjectProperties, term.ObjectProperty},
		{doc.DataProperties, term.DataProperty},
		{doc.Individuals, term.Individual},
	}
	for _, d := range decls {
		for _, name := range d.names {
			iri, err := l.prefixes.Expand(name)
			if err != nil {
				return wrap(err)
			}
			if err := assert(ontology.Declare(d.mk(iri))); err != nil {
				return wrap(err)
			}
		}
	}

	if lb, ok := l.store.(labeler); ok {
		for name, label := range doc.Labels {
			iri, err := l.prefixes.Expand(name)
			if err != nil {
				return wrap(err)
			}
			if err := lb.SetLabel(iri, label); err != nil {
				return wrap(err)
			}
		}
	} else if len(doc.Labels) > 0 {
		logging.Get(logging.CategoryLoader).Warn("%s: store does not keep labels, %d ignored", where, len(doc.Labels))
	}

	vocab := ontology.VocabularyOf(ctx, l.store)
	for _, text := range doc.Facts {
		f, err := l.fact(text, vocab)
		if err != nil {
			return wrap(err)
		}
		if err := assert(f); err != nil {
			return wrap(err)
		}
	}

	for _, spec := range doc.Axioms {
		f, err := l.axiom(spec, vocab)
		if err != nil {
			return wrap(err)
		}
		if err := assert(f); err != nil {
			return wrap(err)
		}
	}

	if (len(doc.Rules) > 0 || len(doc.Queries) > 0) && l.target == nil {
		return wrap(errors.New("document has rules or queries but the loader has no registrar"))
	}
	for _, spec := range doc.Rules {
		r, err := rule.Parse(spec.Name, spec.Text, l.prefixes, vocab, specOptions(spec)...)
		if err != nil {
			return wrap(err)
		}
		if err := l.target.AddRule(r); err != nil {
			return wrap(err)
		}
		sum.Rules++
	}
	for _, spec := range doc.Queries {
		q, err := rule.ParseQuery(spec.Name, spec.Text, l.prefixes, vocab, specOptions(spec)...)
		if err != nil {
			return wrap(err)
		}
		if err := l.target.AddQuery(q); err != nil {
			return wrap(err)
		}
		sum.Queries++
	}

	logging.Get(logging.CategoryLoader).Info("%s: %d facts added, %d rules, %d queries", where, sum.Facts, sum.Rules, sum.Queries)
	return sum, nil
}

func specOptions(spec RuleSpec) []rule.Option {
	var opts []rule.Option
	if spec.Comment != "" {
		opts = append(opts, rule.WithComment(spec.Comment))
	}
	if !spec.IsActive() {
		opts = append(opts, rule.Inactive())
	}
	return opts
}

// fact parses a ground class or property atom.
func (l *Loader) fact(text string, vocab rule.Vocabulary) (ontology.Fact, error) {
	a, err := rule.ParseAtom(text, l.prefixes, vocab)
	if err != nil {
		return ontology.Fact{}, fmt.Errorf("fact %q: %w", text, err)
	}
	if len(a.Variables()) > 0 {
		return ontology.Fact{}, fmt.Errorf("fact %q: %w", text, ErrNotGround)
	}
	switch a.Kind() {
	case rule.AtomClass:
		return ontology.MemberOf(a.Predicate(), a.Arg(0).Term()), nil
	case rule.AtomProperty:
		return ontology.Holds(a.Predicate(), a.Arg(0).Term(), a.Arg(1).Term()), nil
	}
	return ontology.Fact{}, fmt.Errorf("fact %q: built-in atoms cannot be asserted", text)
}

func (l *Loader) axiom(spec AxiomSpec, vocab rule.Vocabulary) (ontology.Fact, error) {
	kind, ok := ontology.ParseFactKind(spec.Kind)
	if !ok {
		return ontology.Fact{}, fmt.Errorf("axiom: unknown kind %q", spec.Kind)
	}
	class := func(name string) (term.Term, error) {
		iri, err := l.prefixes.Expand(name)
		return term.Class(iri), err
	}
	property := func(name string) (term.Term, error) {
		iri, err := l.prefixes.Expand(name)
		if err != nil {
			return term.Term{}, err
		}
		if k, ok := vocab.KindOf(iri); ok && k == term.KindDataProperty {
			return term.DataProperty(iri), nil
		}
		return term.ObjectProperty(iri), nil
	}

	var subject, object func(string) (term.Term, error)
	switch kind {
	case ontology.SubClassOf:
		subject, object = class, class
	case ontology.SubPropertyOf, ontology.InverseOf:
		subject, object = property, property
	case ontology.Domain, ontology.Range:
		subject, object = property, class
	case ontology.Transitive, ontology.Symmetric:
		p, err := property(spec.Subject)
		if err != nil {
			return ontology.Fact{}, fmt.Errorf("axiom %s: %w", spec.Kind, err)
		}
		return ontology.Characteristic(kind, p), nil
	default:
		return ontology.Fact{}, fmt.Errorf("axiom: %s is not an axiom kind, write it under facts or declarations", spec.Kind)
	}
	s, err := subject(spec.Subject)
	if err != nil {
		return ontology.Fact{}, fmt.Errorf("axiom %s: %w", spec.Kind, err)
	}
	o, err := object(spec.Object)
	if err != nil {
		return ontology.Fact{}, fmt.Errorf("axiom %s: %w", spec.Kind, err)
	}
	return ontology.Axiom(kind, s, o), nil
}
