// Package result implements typed, orderable query result tables with
// SQWRL-style aggregation, distinct, ordering, offset and limit.
package result

import (
	"fmt"

	"owlrules/internal/term"
)

// Aggregate is the aggregation operator attached to a column.
type Aggregate uint8

const (
	AggregateNone Aggregate = iota
	AggregateCount
	AggregateSum
	AggregateMin
	AggregateMax
	AggregateAvg
)

func (a Aggregate) String() string {
	switch a {
	case AggregateNone:
		return "none"
	case AggregateCount:
		return "count"
	case AggregateSum:
		return "sum"
	case AggregateMin:
		return "min"
	case AggregateMax:
		return "max"
	case AggregateAvg:
		return "avg"
	default:
		return fmt.Sprintf("aggregate(%d)", uint8(a))
	}
}

// ColumnType is the value type fixed for every cell of a column.
type ColumnType uint8

const (
	// TypeUntyped columns take the type of the first value appended.
	TypeUntyped ColumnType = iota
	TypeEntity
	TypeString
	TypeInteger
	TypeDecimal
	TypeBoolean
	TypeDateTime
	// TypeLiteral covers literals of any other datatype.
	TypeLiteral
)

func (c ColumnType) String() string {
	switch c {
	case TypeUntyped:
		return "untyped"
	case TypeEntity:
		return "entity"
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "datetime"
	case TypeLiteral:
		return "literal"
	default:
		return fmt.Sprintf("type(%d)", uint8(c))
	}
}

// Numeric reports whether the type supports sum and avg.
func (c ColumnType) Numeric() bool { return c == TypeInteger || c == TypeDecimal }

// TypeOf returns the column type a value belongs to.
func TypeOf(v term.Term) ColumnType {
	switch {
	case v.IsEntity():
		return TypeEntity
	case v.IsInteger():
		return TypeInteger
	case v.IsDecimal():
		return TypeDecimal
	case v.IsString():
		return TypeString
	case v.IsBoolean():
		return TypeBoolean
	case v.IsTemporal():
		return TypeDateTime
	case v.IsLiteral():
		return TypeLiteral
	default:
		return TypeUntyped
	}
}

// accepts reports whether v may be stored in a column of type c. Integer
// values widen into decimal columns.
func (c ColumnType) accepts(v term.Term) bool {
	got := TypeOf(v)
	if got == c {
		return true
	}
	return c == TypeDecimal && got == TypeInteger
}

// Column describes one table column.
type Column struct {
	Name      string
	Type      ColumnType
	Aggregate Aggregate
	// Distinct on a plain column requests row-level distinct; on an
	// aggregated column it folds only distinct values (e.g. countDistinct).
	Distinct bool
	// Optional columns may hold absent cells.
	Optional bool
}

// ColumnArityMismatchError is returned when a row's width differs from the
// number of declared columns.
type ColumnArityMismatchError struct {
	Table string
	Want  int
	Got   int
}

func (e *ColumnArityMismatchError) Error() string {
	return fmt.Sprintf("table %q: row has %d values, want %d", e.Table, e.Got, e.Want)
}

// TypeMismatchError is returned when a value disagrees with its column type
// or an aggregation is applied to a column it cannot fold.
type TypeMismatchError struct {
	Table  string
	Column string
	Want   ColumnType
	Got    ColumnType
	Reason string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("table %q column %q: value of type %s in %s column", e.Table, e.Column, e.Got, e.Want)
}
