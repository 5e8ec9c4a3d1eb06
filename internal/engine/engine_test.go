package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/builtin"
	"owlrules/internal/rule"
	"owlrules/internal/term"
)

type stubEngine struct{ name string }

func (s stubEngine) Name() string { return s.name }

func (s stubEngine) Execute(context.Context, *Input) (*Output, error) { return &Output{}, nil }

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Default()
	require.ErrorIs(t, err, ErrNoRuleEngineConfigured)

	require.NoError(t, reg.Register(stubEngine{"a"}))
	require.NoError(t, reg.Register(stubEngine{"b"}))
	assert.ErrorIs(t, reg.Register(stubEngine{"a"}), ErrDuplicateEngine)

	def, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "a", def.Name(), "first registered engine is the default")

	require.NoError(t, reg.SetDefault("b"))
	def, _ = reg.Default()
	assert.Equal(t, "b", def.Name())
	assert.Error(t, reg.SetDefault("missing"))

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	_, ok := reg.Lookup("b")
	assert.True(t, ok)
}

func TestErrorUnwraps(t *testing.T) {
	err := error(&Error{Engine: "mangle", Rule: "r1", Err: ErrUnsupported})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "rule r1")

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "mangle", ee.Engine)
}

func TestSortFacts(t *testing.T) {
	facts := []Fact{
		{Predicate: "t1_2", Args: []term.ID{"t1_4", "t1_3"}},
		{Predicate: "t1_1", Args: []term.ID{"t1_9"}},
		{Predicate: "t1_2", Args: []term.ID{"t1_3", "t1_5"}},
	}
	SortFacts(facts)
	want := []Fact{
		{Predicate: "t1_1", Args: []term.ID{"t1_9"}},
		{Predicate: "t1_2", Args: []term.ID{"t1_3", "t1_5"}},
		{Predicate: "t1_2", Args: []term.ID{"t1_4", "t1_3"}},
	}
	if diff := cmp.Diff(want, facts); diff != "" {
		t.Errorf("SortFacts mismatch (-want +got):\n%s", diff)
	}
	assert.NotEqual(t, facts[1].Key(), facts[2].Key())
}

func TestDiagnosticFrom(t *testing.T) {
	d := DiagnosticFrom("r", &builtin.Error{Kind: builtin.ArityOrType, BuiltIn: "b", Message: "bad"})
	assert.Equal(t, Diagnostic{Rule: "r", BuiltIn: "b", Kind: builtin.ArityOrType, Message: "bad"}, d)

	d = DiagnosticFrom("r", errors.New("boom"))
	assert.Equal(t, builtin.Internal, d.Kind)
	assert.Equal(t, "boom", d.Message)
}

func TestTranslateRuleSharesPropertyPredicates(t *testing.T) {
	res := term.NewResolver()
	ex := "http://example.org/#"
	hasAge := term.DataProperty(ex + "hasAge")
	adult := term.Class(ex + "Adult")

	body := []rule.Atom{
		rule.MustAtom(rule.NewBuiltInAtom(term.NamespaceSWRLB+"greaterThan", rule.Var("a"), rule.Const(term.Integer(17)))),
		rule.MustAtom(rule.NewPropertyAtom(hasAge, rule.Var("p"), rule.Var("a"))),
	}
	head := []rule.Atom{rule.MustAtom(rule.NewClassAtom(adult, rule.Var("p")))}
	r, err := rule.New("adults", body, head)
	require.NoError(t, err)

	tr := TranslateRule(r, res)
	require.Len(t, tr.Body, 2)
	assert.Equal(t, AtomProperty, tr.Body[0].Kind, "relational atoms come first")
	assert.Equal(t, res.Intern(term.ObjectProperty(ex+"hasAge")), tr.Body[0].Predicate)
	assert.Equal(t, AtomBuiltIn, tr.Body[1].Kind)
	assert.Equal(t, res.Intern(term.Integer(17)), tr.Body[1].Args[1].Value)
	assert.True(t, tr.HasBuiltIns())
	assert.Equal(t, []Arg{{Var: "p"}}, tr.Head[0].Args)
}

func TestTranslateQueryKeepsLayout(t *testing.T) {
	res := term.NewResolver()
	p := term.NewPrefixes()
	p.SetDefault("http://example.org/#")
	q, err := rule.ParseQuery("q", "Person(?p) ^ hasAge(?p, ?a) -> sqwrl:select(?p) ^ sqwrl:avg(?a) ^ sqwrl:limit(5)", p, nil)
	require.NoError(t, err)

	tq := TranslateQuery(q, res)
	require.Len(t, tq.Collectors, 2)
	assert.Equal(t, rule.Select, tq.Collectors[0].Name)
	assert.Equal(t, 1, tq.Collectors[1].FirstColumn)
	assert.Equal(t, 5, tq.Finish.Limit)
	assert.False(t, tq.HasBuiltIns())

	tbl, err := tq.NewTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "avg(a)"}, tbl.ColumnNames())
}
