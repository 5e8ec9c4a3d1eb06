package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/result"
	"owlrules/internal/term"
)

const fam = "http://example.org/family#"

func familyPrefixes() *term.Prefixes {
	p := term.NewPrefixes()
	p.SetDefault(fam)
	return p
}

var familyVocab = VocabularyFunc(func(iri string) (term.Kind, bool) {
	switch iri {
	case fam + "Person":
		return term.KindClass, true
	case fam + "hasParent", fam + "hasGrandparent":
		return term.KindObjectProperty, true
	case fam + "hasAge":
		return term.KindDataProperty, true
	}
	return 0, false
})

func hasParent(x, y Arg) Atom {
	return MustAtom(NewPropertyAtom(term.ObjectProperty(fam+"hasParent"), x, y))
}

func TestAtomConstructionRejectsZeroArguments(t *testing.T) {
	_, err := NewBuiltInAtom(term.NamespaceSWRLB + "add")
	assert.ErrorIs(t, err, ErrNoArguments)

	_, err = NewClassAtom(term.Class(fam+"Person"), Const(term.Term{}))
	assert.ErrorIs(t, err, ErrNoArguments)
}

func TestAtomConstructionChecksPredicateKind(t *testing.T) {
	_, err := NewClassAtom(term.Individual(fam+"fred"), Var("x"))
	assert.ErrorIs(t, err, ErrPredicateKind)

	_, err = NewPropertyAtom(term.ObjectProperty(fam+"hasParent"), Var("x"), Const(term.Integer(3)))
	assert.Error(t, err)

	_, err = NewPropertyAtom(term.DataProperty(fam+"hasAge"), Var("x"), Const(term.Integer(3)))
	assert.NoError(t, err)
}

func TestUnknownBuiltInNameIsAcceptedAtConstruction(t *testing.T) {
	_, err := NewBuiltInAtom("urn:nowhere#frobnicate", Var("x"))
	assert.NoError(t, err)
}

func TestSafetyRejection(t *testing.T) {
	body := []Atom{hasParent(Var("x"), Var("y"))}
	head := []Atom{MustAtom(NewPropertyAtom(term.ObjectProperty(fam+"hasGrandparent"), Var("x"), Var("z")))}

	_, err := New("unsafe", body, head)
	var unsafe *UnsafeRuleError
	require.ErrorAs(t, err, &unsafe)
	assert.Equal(t, []string{"z"}, unsafe.Variables)
	assert.Equal(t, "unsafe", unsafe.Rule)
}

func TestBuiltInInHeadRejected(t *testing.T) {
	body := []Atom{hasParent(Var("x"), Var("y"))}
	head := []Atom{MustAtom(NewBuiltInAtom(term.NamespaceSWRLB+"equal", Var("x"), Var("y")))}
	_, err := New("r", body, head)
	assert.ErrorIs(t, err, ErrBuiltInInHead)
}

func TestRuleAccessorsReturnCopies(t *testing.T) {
	r, err := New("r", []Atom{hasParent(Var("x"), Var("y"))}, []Atom{hasParent(Var("y"), Var("x"))})
	require.NoError(t, err)

	body := r.Body()
	body[0] = hasParent(Var("a"), Var("b"))
	assert.Equal(t, []string{"x", "y"}, r.Body()[0].Variables())
	assert.Equal(t, []string{"x", "y"}, r.Variables())

	assert.True(t, r.Active())
	r.SetActive(false)
	assert.False(t, r.Active())
}

func TestParseAndRenderGrandparentRule(t *testing.T) {
	p := familyPrefixes()
	text := "hasParent(?x, ?y) ^ hasParent(?y, ?z) -> hasGrandparent(?x, ?z)"
	r, err := Parse("grandparent", text, p, familyVocab)
	require.NoError(t, err)

	require.Len(t, r.Body(), 2)
	assert.Equal(t, AtomProperty, r.Body()[0].Kind())
	assert.Equal(t, term.ObjectProperty(fam+"hasGrandparent"), r.Head()[0].Predicate())
	assert.Equal(t, text, r.Render(p))
}

func TestParseOrdersBuiltInsLast(t *testing.T) {
	p := familyPrefixes()
	r, err := Parse("adult", "swrlb:greaterThan(?a, 17) ^ hasAge(?p, ?a) -> Person(?p)", p, familyVocab)
	require.NoError(t, err)

	order := r.EvaluationOrder()
	require.Len(t, order, 2)
	assert.False(t, order[0].IsBuiltIn())
	assert.True(t, order[1].IsBuiltIn())
	assert.Equal(t, term.NamespaceSWRLB+"greaterThan", order[1].BuiltIn())
	assert.Equal(t, term.Integer(17), order[1].Arg(1).Term())
	assert.Equal(t, []string{term.NamespaceSWRLB + "greaterThan"}, r.BuiltIns())
}

func TestParseLiterals(t *testing.T) {
	p := familyPrefixes()
	a, err := ParseAtom(`hasAge(fred, "42"^^xsd:int)`, p, familyVocab)
	require.NoError(t, err)
	assert.Equal(t, term.Literal("42", term.XSDInt), a.Arg(1).Term())
	assert.Equal(t, term.Individual(fam+"fred"), a.Arg(0).Term())

	a, err = ParseAtom(`swrlb:stringConcat(?s, "a \"b\"", 2.5, -3, true)`, p, familyVocab)
	require.NoError(t, err)
	assert.Equal(t, term.String(`a "b"`), a.Arg(1).Term())
	assert.Equal(t, term.Literal("2.5", term.XSDDecimal), a.Arg(2).Term())
	assert.Equal(t, term.Integer(-3), a.Arg(3).Term())
	assert.Equal(t, term.Boolean(true), a.Arg(4).Term())
}

func TestParseInfersDataPropertyFromLiteral(t *testing.T) {
	p := familyPrefixes()
	a, err := ParseAtom(`hasName(fred, "Fred")`, p, nil)
	require.NoError(t, err)
	assert.Equal(t, term.KindDataProperty, a.Predicate().Kind)

	a, err = ParseAtom(`knows(fred, bob)`, p, nil)
	require.NoError(t, err)
	assert.Equal(t, term.KindObjectProperty, a.Predicate().Kind)
}

func TestParseErrors(t *testing.T) {
	p := familyPrefixes()
	for _, text := range []string{
		"hasParent(?x, ?y)",
		"hasParent(?x ?y) -> Person(?x)",
		"hasParent(?x, ?y) -> Person(?x) junk",
		`Person("unterminated) -> Person(?x)`,
		"Person(?x) -> hasParent(?x)",
		"a(?x, ?y, ?z) -> Person(?x)",
	} {
		_, err := Parse("bad", text, p, familyVocab)
		assert.Error(t, err, text)
	}

	var syn *SyntaxError
	_, err := Parse("bad", "Person(?x) -> @", p, familyVocab)
	assert.ErrorAs(t, err, &syn)
}

func TestParseWithoutDefaultPrefix(t *testing.T) {
	_, err := Parse("r", "Person(?x) -> Person(?x)", term.NewPrefixes(), nil)
	assert.ErrorIs(t, err, term.ErrNoDefaultPrefix)
}

func TestParseQueryColumns(t *testing.T) {
	p := familyPrefixes()
	q, err := ParseQuery("ages",
		"hasAge(?p, ?a) -> sqwrl:select(?p, ?a) ^ sqwrl:orderByDescending(?a) ^ sqwrl:limit(2) ^ sqwrl:columnNames(\"person\", \"age\")",
		p, familyVocab)
	require.NoError(t, err)

	cols := q.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "person", cols[0].Name)
	assert.Equal(t, "age", cols[1].Name)
	assert.Equal(t, result.TypeUntyped, cols[1].Type)

	f := q.Finish()
	assert.Equal(t, []result.Order{{Column: 1, Ascending: false}}, f.Order)
	assert.Equal(t, 2, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.False(t, f.Distinct)
	require.Len(t, q.Head(), 1)
}

func TestQueryAggregateColumns(t *testing.T) {
	p := familyPrefixes()
	q, err := ParseQuery("children", "hasParent(?c, ?p) -> sqwrl:select(?p) ^ sqwrl:countDistinct(?c)", p, familyVocab)
	require.NoError(t, err)

	cols := q.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "p", cols[0].Name)
	assert.Equal(t, "countDistinct(c)", cols[1].Name)
	assert.Equal(t, result.AggregateCount, cols[1].Aggregate)
	assert.True(t, cols[1].Distinct)

	spans := q.Collectors()
	require.Len(t, spans, 2)
	assert.Equal(t, 0, spans[0].FirstColumn)
	assert.Equal(t, 1, spans[1].FirstColumn)

	tbl, err := q.NewTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "countDistinct(c)"}, tbl.ColumnNames())
}

func TestSelectDistinctMarksFinish(t *testing.T) {
	p := familyPrefixes()
	q, err := ParseQuery("parents", "hasParent(?c, ?p) -> sqwrl:selectDistinct(?p)", p, familyVocab)
	require.NoError(t, err)
	assert.True(t, q.Finish().Distinct)
}

func TestQueryValidation(t *testing.T) {
	p := familyPrefixes()
	tests := map[string]string{
		"non-collector head": "hasParent(?c, ?p) -> Person(?p)",
		"unbound collector":  "hasParent(?c, ?p) -> sqwrl:select(?q)",
		"order by unknown":   "hasParent(?c, ?p) -> sqwrl:select(?p) ^ sqwrl:orderBy(?c)",
		"negative limit":     "hasParent(?c, ?p) -> sqwrl:select(?p) ^ sqwrl:limit(-1)",
		"modifiers only":     "hasParent(?c, ?p) -> sqwrl:limit(1)",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery("q", text, p, familyVocab)
			assert.Error(t, err)
		})
	}

	_, err := ParseQuery("q", "hasParent(?c, ?p) -> sqwrl:select(?q)", p, familyVocab)
	var unsafe *UnsafeRuleError
	assert.ErrorAs(t, err, &unsafe)
}

func TestQueryRenderKeepsModifiers(t *testing.T) {
	p := familyPrefixes()
	text := "hasParent(?c, ?p) -> sqwrl:select(?p) ^ sqwrl:orderBy(?p)"
	q, err := ParseQuery("q", text, p, familyVocab)
	require.NoError(t, err)
	assert.Equal(t, text, q.Render(p))
	assert.True(t, IsQueryText(text, p, familyVocab))
	assert.False(t, IsQueryText("hasParent(?c, ?p) -> Person(?p)", p, familyVocab))
}
