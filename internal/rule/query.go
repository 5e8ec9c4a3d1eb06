package rule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"owlrules/internal/result"
	"owlrules/internal/term"
)

// Query head vocabulary. Collectors add columns; modifiers shape the table
// and are consumed at construction.
const (
	Select         = term.NamespaceSQWRL + "select"
	SelectDistinct = term.NamespaceSQWRL + "selectDistinct"
	Count          = term.NamespaceSQWRL + "count"
	CountDistinct  = term.NamespaceSQWRL + "countDistinct"
	Sum            = term.NamespaceSQWRL + "sum"
	Min            = term.NamespaceSQWRL + "min"
	Max            = term.NamespaceSQWRL + "max"
	Avg            = term.NamespaceSQWRL + "avg"
	OrderBy        = term.NamespaceSQWRL + "orderBy"
	OrderByDesc    = term.NamespaceSQWRL + "orderByDescending"
	Limit          = term.NamespaceSQWRL + "limit"
	Offset         = term.NamespaceSQWRL + "offset"
	ColumnNames    = term.NamespaceSQWRL + "columnNames"
)

type collectorSpec struct {
	agg      result.Aggregate
	distinct bool
}

var collectors = map[string]collectorSpec{
	Select:         {result.AggregateNone, false},
	SelectDistinct: {result.AggregateNone, true},
	Count:          {result.AggregateCount, false},
	CountDistinct:  {result.AggregateCount, true},
	Sum:            {result.AggregateSum, false},
	Min:            {result.AggregateMin, false},
	Max:            {result.AggregateMax, false},
	Avg:            {result.AggregateAvg, false},
}

var modifiers = map[string]bool{
	OrderBy:     true,
	OrderByDesc: true,
	Limit:       true,
	Offset:      true,
	ColumnNames: true,
}

// IsCollector reports whether name is a result collector built-in.
func IsCollector(name string) bool {
	_, ok := collectors[name]
	return ok
}

// IsModifier reports whether name is a query modifier built-in.
func IsModifier(name string) bool { return modifiers[name] }

// ErrNotCollector is returned when a query head holds something other than
// collector or modifier built-ins.
var ErrNotCollector = errors.New("query head atoms must be result collectors")

// CollectorSpan ties one collector head atom to its contiguous column range.
type CollectorSpan struct {
	Atom        Atom
	FirstColumn int
}

// Query is a named rule whose head consists of result collectors. Each
// collector argument becomes one result column in head order.
type Query struct {
	name      string
	body      []Atom
	head      []Atom
	modifiers []Atom
	spans     []CollectorSpan
	columns   []result.Column
	finish    result.Finish
	active    bool
	comment   string
}

// NewQuery builds a query. Modifier atoms in head (order-by, limit, offset,
// column names) are applied to the table layout and not executed.
func NewQuery(name string, body, head []Atom, opts ...Option) (*Query, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("query name is required")
	}
	q := &Query{name: name, body: cloneAtoms(body), finish: result.Finish{Limit: -1}}

	var mods []Atom
	for _, a := range head {
		switch {
		case !a.IsBuiltIn():
			return nil, fmt.Errorf("query %q: %s: %w", name, a, ErrNotCollector)
		case IsCollector(a.builtin):
			q.head = append(q.head, a)
		case IsModifier(a.builtin):
			mods = append(mods, a)
		default:
			return nil, fmt.Errorf("query %q: %s: %w", name, a.builtin, ErrNotCollector)
		}
	}
	if len(q.head) == 0 {
		return nil, fmt.Errorf("query %q selects no columns", name)
	}
	if unbound := unboundHeadVariables(body, q.head); len(unbound) > 0 {
		return nil, &UnsafeRuleError{Rule: name, Variables: unbound}
	}

	for _, a := range q.head {
		spec := collectors[a.builtin]
		q.spans = append(q.spans, CollectorSpan{Atom: a, FirstColumn: len(q.columns)})
		for _, arg := range a.args {
			q.columns = append(q.columns, result.Column{
				Name:      columnName(a.builtin, spec, arg, len(q.columns)),
				Type:      result.TypeUntyped,
				Aggregate: spec.agg,
				Distinct:  spec.distinct,
			})
			if spec.distinct && spec.agg == result.AggregateNone {
				q.finish.Distinct = true
			}
		}
	}
	if err := q.applyModifiers(mods); err != nil {
		return nil, err
	}
	q.modifiers = mods

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	q.active = !o.inactive
	q.comment = o.comment
	return q, nil
}

func (q *Query) applyModifiers(mods []Atom) error {
	for _, m := range mods {
		switch m.builtin {
		case OrderBy, OrderByDesc:
			for _, arg := range m.args {
				col, ok := q.columnOf(arg)
				if !ok {
					return fmt.Errorf("query %q: order-by %s is not a selected column", q.name, arg)
				}
				q.finish.Order = append(q.finish.Order, result.Order{Column: col, Ascending: m.builtin == OrderBy})
			}
		case Limit, Offset:
			if len(m.args) != 1 {
				return fmt.Errorf("query %q: %s takes one argument", q.name, m.builtin)
			}
			n, ok := m.args[0].value.Int()
			if m.args[0].IsVariable() || !ok || n < 0 {
				return fmt.Errorf("query %q: %s needs a non-negative integer, got %s", q.name, m.builtin, m.args[0])
			}
			if m.builtin == Limit {
				q.finish.Limit = int(n)
			} else {
				q.finish.Offset = int(n)
			}
		case ColumnNames:
			if len(m.args) > len(q.columns) {
				return fmt.Errorf("query %q: %d column names for %d columns", q.name, len(m.args), len(q.columns))
			}
			for i, arg := range m.args {
				if arg.IsVariable() || !arg.value.IsLiteral() {
					return fmt.Errorf("query %q: column name %s is not a literal", q.name, arg)
				}
				q.columns[i].Name = arg.value.Lexical
			}
		}
	}
	seen := make(map[string]bool, len(q.columns))
	for _, c := range q.columns {
		if seen[c.Name] {
			return fmt.Errorf("query %q: duplicate column name %q", q.name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// columnOf finds the first column selected from the same variable or constant.
func (q *Query) columnOf(arg Arg) (int, bool) {
	for _, s := range q.spans {
		for i, a := range s.Atom.args {
			if a == arg {
				return s.FirstColumn + i, true
			}
		}
	}
	return -1, false
}

// columnName names a column after its variable; aggregated columns are
// wrapped in the collector name, e.g. count(c).
func columnName(collector string, spec collectorSpec, arg Arg, i int) string {
	var name string
	switch {
	case arg.IsVariable():
		name = arg.variable
	case arg.value.IsLiteral():
		name = arg.value.Lexical
	default:
		name = "c" + strconv.Itoa(i+1)
	}
	if spec.agg == result.AggregateNone {
		return name
	}
	return strings.TrimPrefix(collector, term.NamespaceSQWRL) + "(" + name + ")"
}

func (q *Query) Name() string    { return q.name }
func (q *Query) Comment() string { return q.comment }
func (q *Query) Active() bool    { return q.active }

// SetActive enables or disables the query.
func (q *Query) SetActive(active bool) { q.active = active }

// Body returns a copy of the body atoms.
func (q *Query) Body() []Atom { return cloneAtoms(q.body) }

// Head returns the collector atoms in column order.
func (q *Query) Head() []Atom { return cloneAtoms(q.head) }

// EvaluationOrder returns the body with class and property atoms first.
func (q *Query) EvaluationOrder() []Atom { return evaluationOrder(q.body) }

// Collectors returns each collector with the index of its first column.
func (q *Query) Collectors() []CollectorSpan {
	out := make([]CollectorSpan, len(q.spans))
	copy(out, q.spans)
	return out
}

// Columns returns the selected columns.
func (q *Query) Columns() []result.Column {
	out := make([]result.Column, len(q.columns))
	copy(out, q.columns)
	return out
}

// Finish returns the distinct, order, offset and limit settings.
func (q *Query) Finish() result.Finish {
	f := q.finish
	f.Order = append([]result.Order(nil), q.finish.Order...)
	return f
}

// Variables returns every variable of the query, body first.
func (q *Query) Variables() []string {
	return collectVariables(append(cloneAtoms(q.body), q.head...))
}

// BuiltIns returns the distinct built-in names referenced by the body.
func (q *Query) BuiltIns() []string { return builtInNames(q.body) }

// NewTable returns an empty result table laid out for this query.
func (q *Query) NewTable() (*result.Table, error) {
	tbl := result.NewTable(q.name)
	for _, c := range q.columns {
		if err := tbl.AddColumnSpec(c); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// Render formats the query in SQWRL syntax using p for short forms.
func (q *Query) Render(p *term.Prefixes) string {
	head := append(cloneAtoms(q.head), q.modifiers...)
	return renderAtoms(q.body, p) + " -> " + renderAtoms(head, p)
}

func (q *Query) String() string { return q.name + ": " + q.Render(nil) }
