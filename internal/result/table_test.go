package result

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/term"
)

const ns = "http://example.org/family#"

func ind(name string) term.Term { return term.Individual(ns + name) }

func texts(tbl *Table) [][]string {
	out := make([][]string, tbl.NumRows())
	for i, row := range tbl.Rows() {
		for _, v := range row {
			out[i] = append(out[i], v.Text())
		}
	}
	return out
}

func TestAddRowArityMismatch(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("p", TypeEntity, AggregateNone))
	require.NoError(t, tbl.AddColumn("a", TypeInteger, AggregateNone))

	err := tbl.AddRow([]term.Term{ind("fred")})
	var arity *ColumnArityMismatchError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 2, arity.Want)
	assert.Equal(t, 1, arity.Got)
}

func TestAddRowTypeMismatch(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("a", TypeInteger, AggregateNone))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, tbl.AddRow([]term.Term{term.String("x")}), &mismatch)
	assert.Equal(t, "a", mismatch.Column)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestUntypedColumnFixedByFirstValue(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("v", TypeUntyped, AggregateNone))
	require.NoError(t, tbl.AddRow([]term.Term{term.Integer(1)}))
	assert.Equal(t, TypeInteger, tbl.Column(0).Type)

	var mismatch *TypeMismatchError
	assert.ErrorAs(t, tbl.AddRow([]term.Term{ind("fred")}), &mismatch)
}

func TestInferredIntegerColumnWidensToDecimal(t *testing.T) {
	tests := []struct {
		name   string
		values []term.Term
	}{
		{"integer first", []term.Term{term.Integer(40), term.Decimal(2.5)}},
		{"decimal first", []term.Term{term.Decimal(2.5), term.Integer(40)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable("q")
			require.NoError(t, tbl.AddColumn("a", TypeUntyped, AggregateSum))
			for _, v := range tt.values {
				require.NoError(t, tbl.AddRow([]term.Term{v}))
			}
			assert.Equal(t, TypeDecimal, tbl.Column(0).Type)
			require.NoError(t, tbl.Finalize(Finish{Limit: -1}))
			assert.Equal(t, [][]string{{"42.5"}}, texts(tbl))
		})
	}
}

func TestDeclaredIntegerColumnDoesNotWiden(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("a", TypeInteger, AggregateNone))
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, tbl.AddRow([]term.Term{term.Decimal(2.5)}), &mismatch)
	assert.Equal(t, TypeInteger, tbl.Column(0).Type)
}

func TestDecimalColumnAcceptsIntegers(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("v", TypeDecimal, AggregateNone))
	assert.NoError(t, tbl.AddRow([]term.Term{term.Integer(3)}))
	assert.NoError(t, tbl.AddRow([]term.Term{term.Decimal(2.5)}))
}

func TestOptionalColumnAllowsAbsent(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumnSpec(Column{Name: "v", Type: TypeString, Optional: true}))
	require.NoError(t, tbl.AddColumn("w", TypeString, AggregateNone))

	assert.NoError(t, tbl.AddRow([]term.Term{{}, term.String("x")}))
	assert.Error(t, tbl.AddRow([]term.Term{term.String("x"), {}}))
}

func TestDistinctKeepsFirstOccurrence(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("p", TypeEntity, AggregateNone))
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
	for _, r := range [][]term.Term{
		{ind("b"), term.Integer(2)},
		{ind("a"), term.Integer(1)},
		{ind("b"), term.Integer(2)},
		{ind("a"), term.Integer(3)},
	} {
		require.NoError(t, tbl.AddRow(r))
	}
	require.NoError(t, tbl.ApplyDistinct())

	want := [][]string{{ns + "b", "2"}, {ns + "a", "1"}, {ns + "a", "3"}}
	if diff := cmp.Diff(want, texts(tbl)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderByIsStable(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
	require.NoError(t, tbl.AddColumn("tag", TypeString, AggregateNone))
	for _, r := range [][]term.Term{
		{term.Integer(2), term.String("first")},
		{term.Integer(1), term.String("x")},
		{term.Integer(2), term.String("second")},
		{term.Integer(10), term.String("y")},
	} {
		require.NoError(t, tbl.AddRow(r))
	}
	require.NoError(t, tbl.ApplyOrderBy([]Order{{Column: 0, Ascending: true}}))

	want := [][]string{{"1", "x"}, {"2", "first"}, {"2", "second"}, {"10", "y"}}
	assert.Equal(t, want, texts(tbl))

	require.NoError(t, tbl.ApplyOrderBy([]Order{{Column: 0, Ascending: false}}))
	want = [][]string{{"10", "y"}, {"2", "first"}, {"2", "second"}, {"1", "x"}}
	assert.Equal(t, want, texts(tbl))
}

func TestDistinctOrderComposition(t *testing.T) {
	build := func() *Table {
		tbl := NewTable("q")
		require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
		for _, n := range []int64{3, 1, 3, 2, 1, 2} {
			require.NoError(t, tbl.AddRow([]term.Term{term.Integer(n)}))
		}
		return tbl
	}
	asc := []Order{{Column: 0, Ascending: true}}

	a := build()
	require.NoError(t, a.ApplyDistinct())
	require.NoError(t, a.ApplyOrderBy(asc))

	b := build()
	require.NoError(t, b.ApplyOrderBy(asc))
	require.NoError(t, b.ApplyDistinct())

	assert.Equal(t, texts(a), texts(b))
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, texts(a))
}

func TestOffsetAndLimit(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, tbl.AddRow([]term.Term{term.Integer(i)}))
	}
	require.NoError(t, tbl.Finalize(Finish{Offset: 1, Limit: 2}))
	assert.Equal(t, [][]string{{"2"}, {"3"}}, texts(tbl))
	assert.True(t, tbl.IsFinalized())
	assert.ErrorIs(t, tbl.AddRow([]term.Term{term.Integer(9)}), ErrFinalized)
	assert.ErrorIs(t, tbl.ApplyLimit(1), ErrFinalized)
}

func TestOffsetPastEnd(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
	require.NoError(t, tbl.AddRow([]term.Term{term.Integer(1)}))
	require.NoError(t, tbl.Finalize(Finish{Offset: 4, Limit: -1}))
	assert.Equal(t, 0, tbl.NumRows())
}

func ageTable(t *testing.T, agg Aggregate) *Table {
	t.Helper()
	tbl := NewTable("ages")
	require.NoError(t, tbl.AddColumn("family", TypeString, AggregateNone))
	require.NoError(t, tbl.AddColumn("age", TypeInteger, agg))
	for _, r := range []struct {
		family string
		age    int64
	}{
		{"smith", 40}, {"jones", 12}, {"smith", 8}, {"smith", 8}, {"jones", 30},
	} {
		require.NoError(t, tbl.AddRow([]term.Term{term.String(r.family), term.Integer(r.age)}))
	}
	return tbl
}

func TestAggregation(t *testing.T) {
	tests := []struct {
		agg  Aggregate
		want [][]string
		typ  ColumnType
	}{
		{AggregateCount, [][]string{{"smith", "3"}, {"jones", "2"}}, TypeInteger},
		{AggregateSum, [][]string{{"smith", "56"}, {"jones", "42"}}, TypeInteger},
		{AggregateMin, [][]string{{"smith", "8"}, {"jones", "12"}}, TypeInteger},
		{AggregateMax, [][]string{{"smith", "40"}, {"jones", "30"}}, TypeInteger},
		{AggregateAvg, [][]string{{"smith", "18.666666666666668"}, {"jones", "21"}}, TypeDecimal},
	}
	for _, tt := range tests {
		t.Run(tt.agg.String(), func(t *testing.T) {
			tbl := ageTable(t, tt.agg)
			require.NoError(t, tbl.Finalize(Finish{Limit: -1}))
			assert.Equal(t, tt.want, texts(tbl))
			assert.Equal(t, tt.typ, tbl.Column(1).Type)
		})
	}
}

func TestCountDistinct(t *testing.T) {
	tbl := NewTable("ages")
	require.NoError(t, tbl.AddColumn("family", TypeString, AggregateNone))
	require.NoError(t, tbl.AddColumnSpec(Column{Name: "age", Type: TypeInteger, Aggregate: AggregateCount, Distinct: true}))
	for _, r := range [][]term.Term{
		{term.String("smith"), term.Integer(8)},
		{term.String("smith"), term.Integer(8)},
		{term.String("smith"), term.Integer(40)},
	} {
		require.NoError(t, tbl.AddRow(r))
	}
	require.NoError(t, tbl.Finalize(Finish{Limit: -1}))
	assert.Equal(t, [][]string{{"smith", "2"}}, texts(tbl))
}

func TestSumRequiresNumericColumn(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("name", TypeString, AggregateSum))
	require.NoError(t, tbl.AddRow([]term.Term{term.String("x")}))

	var mismatch *TypeMismatchError
	require.ErrorAs(t, tbl.Finalize(Finish{Limit: -1}), &mismatch)
	assert.Equal(t, "name", mismatch.Column)
}

func TestMinOverStringsIsLexicographic(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("name", TypeString, AggregateMin))
	for _, s := range []string{"pear", "apple", "fig"} {
		require.NoError(t, tbl.AddRow([]term.Term{term.String(s)}))
	}
	require.NoError(t, tbl.Finalize(Finish{Limit: -1}))
	assert.Equal(t, [][]string{{"apple"}}, texts(tbl))
}

func TestAggregateOverEmptyTable(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateCount))
	require.NoError(t, tbl.Finalize(Finish{Limit: -1}))
	assert.Equal(t, 0, tbl.NumRows())
}

func TestOrderAfterAggregation(t *testing.T) {
	tbl := ageTable(t, AggregateSum)
	require.NoError(t, tbl.Finalize(Finish{Order: []Order{{Column: 1, Ascending: true}}, Limit: -1}))
	assert.Equal(t, [][]string{{"jones", "42"}, {"smith", "56"}}, texts(tbl))
}

func TestColumnsCannotFollowRows(t *testing.T) {
	tbl := NewTable("q")
	require.NoError(t, tbl.AddColumn("n", TypeInteger, AggregateNone))
	require.NoError(t, tbl.AddRow([]term.Term{term.Integer(1)}))
	assert.ErrorIs(t, tbl.AddColumn("m", TypeInteger, AggregateNone), ErrRowsPresent)
}
