package result

import (
	"math"

	"owlrules/internal/term"
)

// aggregate folds aggregated columns per group, where a group is the tuple
// of non-aggregated values. Groups keep first-occurrence order. An empty
// table stays empty.
func (t *Table) aggregate() error {
	var aggCols []int
	for i, c := range t.columns {
		if c.Aggregate != AggregateNone {
			aggCols = append(aggCols, i)
		}
	}
	if len(aggCols) == 0 {
		return nil
	}
	for _, i := range aggCols {
		c := t.columns[i]
		if (c.Aggregate == AggregateSum || c.Aggregate == AggregateAvg) && c.Type != TypeUntyped && !c.Type.Numeric() {
			return &TypeMismatchError{
				Table:  t.name,
				Column: c.Name,
				Want:   TypeDecimal,
				Got:    c.Type,
				Reason: c.Aggregate.String() + " requires a numeric column, got " + c.Type.String(),
			}
		}
	}

	type group struct {
		key    []term.Term
		values [][]term.Term
	}
	isAgg := make([]bool, len(t.columns))
	for _, i := range aggCols {
		isAgg[i] = true
	}
	var groups []*group
	index := make(map[string]*group)
	for _, row := range t.rows {
		var sb []term.Term
		for i, v := range row {
			if !isAgg[i] {
				sb = append(sb, v)
			}
		}
		k := rowKey(sb)
		g, ok := index[k]
		if !ok {
			g = &group{key: row, values: make([][]term.Term, len(t.columns))}
			index[k] = g
			groups = append(groups, g)
		}
		for _, i := range aggCols {
			if !row[i].IsZero() {
				g.values[i] = append(g.values[i], row[i])
			}
		}
	}

	rows := make([][]term.Term, 0, len(groups))
	for _, g := range groups {
		out := make([]term.Term, len(t.columns))
		for i := range t.columns {
			if !isAgg[i] {
				out[i] = g.key[i]
				continue
			}
			c := t.columns[i]
			vals := g.values[i]
			if c.Distinct {
				vals = distinctValues(vals)
			}
			v, err := fold(t.name, c, vals)
			if err != nil {
				return err
			}
			out[i] = v
		}
		rows = append(rows, out)
	}
	t.rows = rows

	for _, i := range aggCols {
		c := &t.columns[i]
		switch c.Aggregate {
		case AggregateCount:
			c.Type = TypeInteger
		case AggregateAvg:
			c.Type = TypeDecimal
		}
		if c.Aggregate != AggregateCount {
			// Groups with only absent values fold to an absent result.
			c.Optional = true
		}
		// Distinct on an aggregated column has been consumed by the fold.
		c.Distinct = false
	}
	return nil
}

func fold(table string, c Column, vals []term.Term) (term.Term, error) {
	switch c.Aggregate {
	case AggregateCount:
		return term.Integer(int64(len(vals))), nil
	case AggregateMin, AggregateMax:
		if len(vals) == 0 {
			return term.Term{}, nil
		}
		best := vals[0]
		for _, v := range vals[1:] {
			cmp := compareCells(v, best)
			if (c.Aggregate == AggregateMin && cmp < 0) || (c.Aggregate == AggregateMax && cmp > 0) {
				best = v
			}
		}
		return best, nil
	case AggregateSum, AggregateAvg:
		if len(vals) == 0 {
			return term.Term{}, nil
		}
		allInt := true
		var isum int64
		var fsum float64
		for _, v := range vals {
			f, ok := v.Float()
			if !ok {
				return term.Term{}, &TypeMismatchError{
					Table:  table,
					Column: c.Name,
					Want:   TypeDecimal,
					Got:    TypeOf(v),
					Reason: c.Aggregate.String() + " over non-numeric value " + v.String(),
				}
			}
			fsum += f
			if n, ok := v.Int(); ok && allInt {
				isum += n
			} else {
				allInt = false
			}
		}
		if c.Aggregate == AggregateAvg {
			return term.Decimal(fsum / float64(len(vals))), nil
		}
		if allInt && c.Type != TypeDecimal && math.Abs(fsum) < 1<<62 {
			return term.Integer(isum), nil
		}
		return term.Decimal(fsum), nil
	}
	return term.Term{}, nil
}

func distinctValues(vals []term.Term) []term.Term {
	seen := make(map[string]bool, len(vals))
	out := make([]term.Term, 0, len(vals))
	for _, v := range vals {
		k := cellKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
