package ontology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/term"
)

const ex = "http://example.org/family#"

var (
	person    = term.Class(ex + "Person")
	hasParent = term.ObjectProperty(ex + "hasParent")
	hasAge    = term.DataProperty(ex + "hasAge")
	fred      = term.Individual(ex + "fred")
	nancy     = term.Individual(ex + "nancy")
)

func TestAssertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	added, err := s.AssertFact(ctx, MemberOf(person, fred))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AssertFact(ctx, MemberOf(person, fred))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, s.Len())
}

func TestListFactsKeepsAssertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	facts := []Fact{
		Holds(hasParent, fred, nancy),
		MemberOf(person, nancy),
		Holds(hasAge, fred, term.Integer(40)),
	}
	for _, f := range facts {
		_, err := s.AssertFact(ctx, f)
		require.NoError(t, err)
	}
	got, err := s.ListFacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, facts, got)

	got[0] = Fact{}
	again, _ := s.ListFacts(ctx)
	assert.Equal(t, facts[0], again[0], "ListFacts returns a snapshot")
}

func TestHoldsPicksPropertyKindFromObject(t *testing.T) {
	f := Holds(term.ObjectProperty(ex+"hasAge"), fred, term.Integer(3))
	assert.Equal(t, term.KindDataProperty, f.Predicate.Kind)
	f = Holds(term.DataProperty(ex+"hasParent"), fred, nancy)
	assert.Equal(t, term.KindObjectProperty, f.Predicate.Kind)
}

func TestValidateRejectsIllKindedFacts(t *testing.T) {
	tests := []struct {
		name string
		fact Fact
	}{
		{"class assertion of a literal", MemberOf(person, term.String("x"))},
		{"class assertion into an individual", MemberOf(fred, nancy)},
		{"data property with individual object", Fact{Kind: PropertyAssertion, Subject: fred, Predicate: hasAge, Object: nancy}},
		{"literal subject", Holds(hasParent, term.String("x"), nancy)},
		{"subclass of a property", Axiom(SubClassOf, person, hasParent)},
		{"transitive data property", Characteristic(Transitive, hasAge)},
		{"declaring a literal", Declare(term.Integer(1))},
		{"unknown kind", Fact{Kind: 99, Subject: fred}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fact.Validate()
			var ife *InvalidFactError
			assert.ErrorAs(t, err, &ife)
		})
	}

	_, err := NewMemoryStore().AssertFact(context.Background(), MemberOf(fred, nancy))
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.ResolveTermMetadata(ctx, fred.IRI)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, _ = s.AssertFact(ctx, MemberOf(person, fred))
	_, _ = s.AssertFact(ctx, Declare(person))
	require.NoError(t, s.SetLabel(fred.IRI, "Fred"))
	assert.ErrorIs(t, s.SetLabel(ex+"nobody", "x"), ErrUnknownEntity)

	m, err := s.ResolveTermMetadata(ctx, fred.IRI)
	require.NoError(t, err)
	assert.Equal(t, Metadata{IRI: fred.IRI, Kind: term.KindIndividual, Label: "Fred"}, m)

	m, _ = s.ResolveTermMetadata(ctx, person.IRI)
	assert.True(t, m.Declared)

	kind, ok := VocabularyOf(ctx, s)(person.IRI)
	assert.True(t, ok)
	assert.Equal(t, term.KindClass, kind)
	kind, ok = s.KindOf(fred.IRI)
	assert.True(t, ok)
	assert.Equal(t, term.KindIndividual, kind)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	_, err := s.AssertFact(ctx, MemberOf(person, fred))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListFacts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFactKind(t *testing.T) {
	for k := Declaration; k <= Symmetric; k++ {
		got, ok := ParseFactKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseFactKind("nope")
	assert.False(t, ok)
}

func TestSortFacts(t *testing.T) {
	facts := []Fact{Holds(hasParent, fred, nancy), MemberOf(person, nancy), MemberOf(person, fred)}
	SortFacts(facts)
	assert.Equal(t, ClassAssertion, facts[0].Kind)
	assert.Equal(t, fred, facts[0].Subject)
	assert.Equal(t, PropertyAssertion, facts[2].Kind)
}
