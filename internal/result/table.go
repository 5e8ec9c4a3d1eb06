package result

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"owlrules/internal/term"
)

var (
	// ErrFinalized is returned by mutators once a table has been finalized.
	ErrFinalized = errors.New("result table is finalized")
	// ErrRowsPresent is returned when a column is added after rows.
	ErrRowsPresent = errors.New("columns cannot be added once rows exist")
)

// Order is one order-by key: a column index and a direction.
type Order struct {
	Column    int
	Ascending bool
}

// Finish selects the post-processing applied by Finalize. Negative Limit
// means unlimited.
type Finish struct {
	Distinct bool
	Order    []Order
	Offset   int
	Limit    int
}

// Table is a typed result table. Rows hold one term per column; an absent
// cell is the zero term and is only allowed in optional columns.
type Table struct {
	name      string
	columns   []Column
	inferred  []bool // column type fixed by the first value, not declared
	rows      [][]term.Term
	finalized bool
}

// NewTable returns an empty table.
func NewTable(name string) *Table {
	return &Table{name: name}
}

func (t *Table) Name() string { return t.name }

// AddColumn declares a column. Columns must be declared before any row.
func (t *Table) AddColumn(name string, typ ColumnType, agg Aggregate) error {
	return t.AddColumnSpec(Column{Name: name, Type: typ, Aggregate: agg})
}

// AddColumnSpec declares a fully specified column.
func (t *Table) AddColumnSpec(c Column) error {
	if t.finalized {
		return ErrFinalized
	}
	if len(t.rows) > 0 {
		return fmt.Errorf("table %q column %q: %w", t.name, c.Name, ErrRowsPresent)
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("c%d", len(t.columns)+1)
	}
	for _, existing := range t.columns {
		if existing.Name == c.Name {
			return fmt.Errorf("table %q: duplicate column %q", t.name, c.Name)
		}
	}
	t.columns = append(t.columns, c)
	t.inferred = append(t.inferred, c.Type == TypeUntyped)
	return nil
}

// AddRow appends a row of values ordered by column.
func (t *Table) AddRow(values []term.Term) error {
	if t.finalized {
		return ErrFinalized
	}
	if len(values) != len(t.columns) {
		return &ColumnArityMismatchError{Table: t.name, Want: len(t.columns), Got: len(values)}
	}
	for i, v := range values {
		col := &t.columns[i]
		if v.IsZero() {
			if !col.Optional {
				return &TypeMismatchError{Table: t.name, Column: col.Name, Want: col.Type, Reason: "absent value in required column"}
			}
			continue
		}
		if col.Type == TypeUntyped {
			continue
		}
		if !col.Type.accepts(v) && !t.widens(i, v) {
			return &TypeMismatchError{Table: t.name, Column: col.Name, Want: col.Type, Got: TypeOf(v)}
		}
	}
	// Untyped columns are fixed only after the whole row validated.
	for i, v := range values {
		switch {
		case v.IsZero():
		case t.columns[i].Type == TypeUntyped:
			t.columns[i].Type = TypeOf(v)
		case t.widens(i, v):
			t.columns[i].Type = TypeDecimal
		}
	}
	row := make([]term.Term, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// widens reports whether an inferred integer column must become decimal to
// hold v. Declared column types never change.
func (t *Table) widens(i int, v term.Term) bool {
	return t.inferred[i] && t.columns[i].Type == TypeInteger && TypeOf(v) == TypeDecimal
}

// ApplyDistinct removes duplicate rows under full-row equality, keeping the
// first occurrence.
func (t *Table) ApplyDistinct() error {
	if t.finalized {
		return ErrFinalized
	}
	seen := make(map[string]bool, len(t.rows))
	out := t.rows[:0]
	for _, row := range t.rows {
		k := rowKey(row)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	t.rows = out
	return nil
}

// ApplyOrderBy stable-sorts rows by the given keys. Ties keep insertion order.
func (t *Table) ApplyOrderBy(keys []Order) error {
	if t.finalized {
		return ErrFinalized
	}
	for _, k := range keys {
		if k.Column < 0 || k.Column >= len(t.columns) {
			return fmt.Errorf("table %q: order-by column %d out of range", t.name, k.Column)
		}
	}
	sort.SliceStable(t.rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareCells(t.rows[i][k.Column], t.rows[j][k.Column])
			if c == 0 {
				continue
			}
			if k.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return nil
}

// ApplyOffset drops the first n rows.
func (t *Table) ApplyOffset(n int) error {
	if t.finalized {
		return ErrFinalized
	}
	if n < 0 {
		return fmt.Errorf("table %q: negative offset %d", t.name, n)
	}
	if n >= len(t.rows) {
		t.rows = nil
		return nil
	}
	t.rows = t.rows[n:]
	return nil
}

// ApplyLimit keeps at most n rows.
func (t *Table) ApplyLimit(n int) error {
	if t.finalized {
		return ErrFinalized
	}
	if n < 0 {
		return fmt.Errorf("table %q: negative limit %d", t.name, n)
	}
	if n < len(t.rows) {
		t.rows = t.rows[:n]
	}
	return nil
}

// Finalize folds aggregation columns, then applies distinct, ordering,
// offset and limit, and freezes the table.
func (t *Table) Finalize(f Finish) error {
	if t.finalized {
		return ErrFinalized
	}
	if err := t.aggregate(); err != nil {
		return err
	}
	distinct := f.Distinct
	for _, c := range t.columns {
		if c.Distinct && c.Aggregate == AggregateNone {
			distinct = true
		}
	}
	if distinct {
		if err := t.ApplyDistinct(); err != nil {
			return err
		}
	}
	if len(f.Order) > 0 {
		if err := t.ApplyOrderBy(f.Order); err != nil {
			return err
		}
	}
	if f.Offset > 0 {
		if err := t.ApplyOffset(f.Offset); err != nil {
			return err
		}
	}
	if f.Limit >= 0 {
		if err := t.ApplyLimit(f.Limit); err != nil {
			return err
		}
	}
	t.finalized = true
	return nil
}

// IsFinalized reports whether Finalize has run.
func (t *Table) IsFinalized() bool { return t.finalized }

// Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	cp := make([]Column, len(t.columns))
	copy(cp, t.columns)
	return cp
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the index of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns a copy of row i.
func (t *Table) Row(i int) []term.Term {
	cp := make([]term.Term, len(t.rows[i]))
	copy(cp, t.rows[i])
	return cp
}

// Rows returns a deep copy of all rows.
func (t *Table) Rows() [][]term.Term {
	out := make([][]term.Term, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Value returns the cell at row r, column c.
func (t *Table) Value(r, c int) term.Term { return t.rows[r][c] }

func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.ColumnNames(), "\t"))
	for _, row := range t.rows {
		sb.WriteString("\n")
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.Text()
		}
		sb.WriteString(strings.Join(cells, "\t"))
	}
	return sb.String()
}

// compareCells orders absent cells first, then by natural ordering, and
// falls back to type rank and text for incomparable values.
func compareCells(a, b term.Term) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return -1
	case b.IsZero():
		return 1
	}
	if c, err := term.Compare(a, b); err == nil {
		return c
	}
	if ta, tb := TypeOf(a), TypeOf(b); ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Text(), b.Text())
}

func rowKey(row []term.Term) string {
	var sb strings.Builder
	for _, v := range row {
		sb.WriteString(cellKey(v))
		sb.WriteByte(0)
	}
	return sb.String()
}

func cellKey(v term.Term) string {
	return fmt.Sprintf("%d\x1f%s\x1f%s\x1f%s", v.Kind, v.IRI, v.Lexical, v.Datatype)
}

// Column returns the descriptor of column i.
func (t *Table) Column(i int) Column { return t.columns[i] }
