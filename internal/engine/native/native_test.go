package native

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/builtin"
	"owlrules/internal/builtin/swrlb"
	"owlrules/internal/engine"
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

const ex = "http://example.org/family#"

type fixture struct {
	t        *testing.T
	res      *term.Resolver
	prefixes *term.Prefixes
	facts    []engine.Fact
	rules    []engine.Rule
	queries  []engine.Query
}

func newFixture(t *testing.T) *fixture {
	p := term.NewPrefixes()
	p.SetDefault(ex)
	return &fixture{t: t, res: term.NewResolver(), prefixes: p}
}

func (f *fixture) class(c, ind string) {
	f.facts = append(f.facts, engine.Fact{
		Predicate: f.res.Intern(term.Class(ex + c)),
		Args:      []term.ID{f.res.Intern(term.Individual(ex + ind))},
	})
}

func (f *fixture) prop(p, s string, o term.Term) {
	f.facts = append(f.facts, engine.Fact{
		Predicate: f.res.Intern(term.ObjectProperty(ex + p)),
		Args:      []term.ID{f.res.Intern(term.Individual(ex + s)), f.res.Intern(o)},
	})
}

func (f *fixture) rule(name, text string) {
	r, err := rule.Parse(name, text, f.prefixes, nil)
	require.NoError(f.t, err)
	f.rules = append(f.rules, engine.TranslateRule(r, f.res))
}

func (f *fixture) query(name, text string) {
	q, err := rule.ParseQuery(name, text, f.prefixes, nil)
	require.NoError(f.t, err)
	f.queries = append(f.queries, engine.TranslateQuery(q, f.res))
}

func (f *fixture) execute(ctx context.Context) (*engine.Output, error) {
	return New().Execute(ctx, &engine.Input{
		Facts:    f.facts,
		Rules:    f.rules,
		Queries:  f.queries,
		Resolver: f.res,
		BuiltIns: swrlb.NewRegistry(),
	})
}

func (f *fixture) render(facts []engine.Fact) []string {
	out := make([]string, len(facts))
	for i, fact := range facts {
		parts := []string{f.short(fact.Predicate)}
		for _, a := range fact.Args {
			parts = append(parts, f.short(a))
		}
		out[i] = parts[0] + "(" + strings.Join(parts[1:], ", ") + ")"
	}
	return out
}

func (f *fixture) short(id term.ID) string {
	t, err := f.res.Resolve(id)
	require.NoError(f.t, err)
	if t.IsLiteral() {
		return t.Lexical
	}
	return strings.TrimPrefix(t.IRI, ex)
}

func ind(name string) term.Term { return term.Individual(ex + name) }

func TestGrandparent(t *testing.T) {
	f := newFixture(t)
	f.prop("hasParent", "fred", ind("nancy"))
	f.prop("hasParent", "nancy", ind("bob"))
	f.rule("grandparent", "hasParent(?x, ?y) ^ hasParent(?y, ?z) -> hasGrandparent(?x, ?z)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hasGrandparent(fred, bob)"}, f.render(out.Derived))
	assert.Equal(t, "grandparent", out.Derived[0].Rule)
	assert.Empty(t, out.Diagnostics)
}

func TestOneRoundOnly(t *testing.T) {
	f := newFixture(t)
	f.prop("hasAncestor", "a", ind("b"))
	f.prop("hasAncestor", "b", ind("c"))
	f.prop("hasAncestor", "c", ind("d"))
	f.rule("trans", "hasAncestor(?x, ?y) ^ hasAncestor(?y, ?z) -> hasAncestor(?x, ?z)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hasAncestor(a, c)", "hasAncestor(b, d)"}, f.render(out.Derived))
}

func TestExistingFactsAreNotDerived(t *testing.T) {
	f := newFixture(t)
	f.class("Person", "fred")
	f.class("Adult", "fred")
	f.rule("adult", "Person(?p) -> Adult(?p)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Derived)
}

func TestBuiltInBindsAndFilters(t *testing.T) {
	f := newFixture(t)
	f.prop("hasAge", "fred", term.Integer(40))
	f.prop("hasAge", "tim", term.Integer(8))
	f.rule("adult", "hasAge(?p, ?a) ^ swrlb:greaterThan(?a, 17) -> Adult(?p)")
	f.rule("nextAge", "hasAge(?p, ?a) ^ swrlb:add(?n, ?a, 1) -> hasNextAge(?p, ?n)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Adult(fred)",
		"hasNextAge(fred, 41)",
		"hasNextAge(tim, 9)",
	}, f.render(out.Derived))
}

func TestMultivaluedBuiltIn(t *testing.T) {
	f := newFixture(t)
	f.prop("hasTags", "fred", term.String("red blue"))
	f.rule("tags", `hasTags(?p, ?s) ^ swrlb:tokenize(?t, ?s, " ") -> hasTag(?p, ?t)`)

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hasTag(fred, red)", "hasTag(fred, blue)"}, f.render(out.Derived))
}

func TestBuiltInErrorsBecomeDiagnostics(t *testing.T) {
	f := newFixture(t)
	f.prop("hasName", "fred", term.String("Fred"))
	f.prop("hasAge", "tim", term.Integer(8))
	f.rule("bad", "hasName(?p, ?n) ^ swrlb:lessThan(?n, 3) -> Odd(?p)")
	f.rule("unknown", "hasAge(?p, ?a) ^ swrlb:noSuchThing(?a) -> Odd(?p)")
	f.rule("ok", "hasAge(?p, ?a) -> Aged(?p)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aged(tim)"}, f.render(out.Derived))
	require.Len(t, out.Diagnostics, 2)
	assert.Equal(t, "bad", out.Diagnostics[0].Rule)
	assert.Equal(t, builtin.ArityOrType, out.Diagnostics[0].Kind)
	assert.Equal(t, builtin.UnknownBuiltIn, out.Diagnostics[1].Kind)
	assert.Equal(t, term.NamespaceSWRLB+"noSuchThing", out.Diagnostics[1].BuiltIn)
}

func TestQueryCount(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"fred", "nancy", "bob"} {
		f.class("Person", p)
	}
	f.class("Dog", "rex")
	f.query("people", "Person(?p) -> sqwrl:count(?p)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	tbl := out.Tables["people"]
	require.NotNil(t, tbl)
	require.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, term.Integer(3), tbl.Value(0, 0))
	assert.True(t, tbl.IsFinalized())
}

func TestQuerySelectOrdered(t *testing.T) {
	f := newFixture(t)
	f.prop("hasAge", "fred", term.Integer(40))
	f.prop("hasAge", "tim", term.Integer(8))
	f.prop("hasAge", "nancy", term.Integer(35))
	f.query("ages", "hasAge(?p, ?a) ^ swrlb:greaterThan(?a, 10) -> sqwrl:select(?p, ?a) ^ sqwrl:orderBy(?a)")

	out, err := f.execute(context.Background())
	require.NoError(t, err)
	tbl := out.Tables["ages"]
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, ind("nancy"), tbl.Value(0, 0))
	assert.Equal(t, ind("fred"), tbl.Value(1, 0))
}

func TestCancelledExecute(t *testing.T) {
	f := newFixture(t)
	f.class("Person", "fred")
	f.rule("adult", "Person(?p) -> Adult(?p)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.execute(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var ee *engine.Error
	assert.ErrorAs(t, err, &ee)
}

func TestMissingResolver(t *testing.T) {
	_, err := New().Execute(context.Background(), &engine.Input{})
	var ee *engine.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Name, ee.Engine)
}
