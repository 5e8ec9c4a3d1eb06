package swrlb

import (
	"math"

	"owlrules/internal/builtin"
	"owlrules/internal/term"
)

// operands returns the numeric values of args[1:]. Results are integers
// when every operand is an integer.
func operands(args []builtin.Argument) ([]term.Term, bool, builtin.Outcome) {
	vals, i, ok := builtin.Values(args, 1)
	if !ok {
		return nil, false, builtin.Errorf(builtin.ArityOrType, "argument %d must be bound", i+1)
	}
	allInt := true
	for i, v := range vals {
		if !v.IsNumeric() {
			return nil, false, builtin.Errorf(builtin.ArityOrType, "argument %d is not numeric: %s", i+2, v)
		}
		if _, ok := v.Int(); !ok {
			allInt = false
		}
	}
	return vals, allInt, builtin.Outcome{}
}

func overflow() builtin.Outcome { return builtin.Errorf(builtin.ArityOrType, "integer overflow") }

func addInt(a, b int64) (int64, bool) {
	s := a + b
	return s, (s > a) == (b > 0)
}

func subInt(a, b int64) (int64, bool) {
	d := a - b
	return d, (d < a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || p/b != a {
		return p, false
	}
	return p, true
}

func floats(vals []term.Term) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i], _ = v.Float()
	}
	return out
}

func ints(vals []term.Term) []int64 {
	out := make([]int64, len(vals))
	for i, v := range vals {
		out[i], _ = v.Int()
	}
	return out
}

func add(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	if allInt {
		var sum int64
		for _, n := range ints(vals) {
			var ok bool
			if sum, ok = addInt(sum, n); !ok {
				return overflow()
			}
		}
		return builtin.Unify(args, term.Integer(sum))
	}
	var sum float64
	for _, f := range floats(vals) {
		sum += f
	}
	return builtin.Unify(args, term.Decimal(sum))
}

func multiply(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	if allInt {
		prod := int64(1)
		for _, n := range ints(vals) {
			var ok bool
			if prod, ok = mulInt(prod, n); !ok {
				return overflow()
			}
		}
		return builtin.Unify(args, term.Integer(prod))
	}
	prod := 1.0
	for _, f := range floats(vals) {
		prod *= f
	}
	return builtin.Unify(args, term.Decimal(prod))
}

func subtract(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	if allInt {
		n := ints(vals)
		diff, ok := subInt(n[0], n[1])
		if !ok {
			return overflow()
		}
		return builtin.Unify(args, term.Integer(diff))
	}
	f := floats(vals)
	return builtin.Unify(args, term.Decimal(f[0]-f[1]))
}

func divide(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	f := floats(vals)
	if f[1] == 0 {
		return builtin.Errorf(builtin.ArityOrType, "division by zero")
	}
	if allInt {
		n := ints(vals)
		if n[0] == math.MinInt64 && n[1] == -1 {
			return overflow()
		}
		if n[0]%n[1] == 0 {
			return builtin.Unify(args, term.Integer(n[0]/n[1]))
		}
	}
	return builtin.Unify(args, term.Decimal(f[0]/f[1]))
}

func mod(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	f := floats(vals)
	if f[1] == 0 {
		return builtin.Errorf(builtin.ArityOrType, "modulus by zero")
	}
	if allInt {
		n := ints(vals)
		return builtin.Unify(args, term.Integer(n[0]%n[1]))
	}
	return builtin.Unify(args, term.Decimal(math.Mod(f[0], f[1])))
}

func abs(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	vals, allInt, bad := operands(args)
	if vals == nil {
		return bad
	}
	if allInt {
		n := ints(vals)[0]
		if n == math.MinInt64 {
			return overflow()
		}
		if n < 0 {
			n = -n
		}
		return builtin.Unify(args, term.Integer(n))
	}
	return builtin.Unify(args, term.Decimal(math.Abs(floats(vals)[0])))
}
