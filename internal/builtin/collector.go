package builtin

import (
	"owlrules/internal/term"
)

// Collect is the implementation shared by every result collector: it
// writes its bound argument values into the current row. Aggregation
// happens when the result table is finalized, not here.
func Collect(bctx Context, args []Argument) Outcome {
	values := make([]term.Term, len(args))
	for i, a := range args {
		b, ok := a.(Bound)
		if !ok {
			return Errorf(ArityOrType, "argument %d (%s) is unbound", i+1, a)
		}
		values[i] = b.Value
	}
	if err := bctx.Row.Write(values); err != nil {
		return Errorf(ArityOrType, "%v", err)
	}
	return Satisfied()
}

// Collector returns a collector built-in registered under name.
func Collector(name string) BuiltIn {
	return BuiltIn{Name: name, Arity: Variadic(1), Func: Collect, Collector: true}
}

// Value returns the bound value of args[i].
func Value(args []Argument, i int) (term.Term, bool) {
	if i < 0 || i >= len(args) {
		return term.Term{}, false
	}
	b, ok := args[i].(Bound)
	return b.Value, ok
}

// VariableName returns the variable name of args[i] if it is unbound.
func VariableName(args []Argument, i int) (string, bool) {
	if i < 0 || i >= len(args) {
		return "", false
	}
	v, ok := args[i].(Variable)
	return v.Name, ok
}

// Values returns the values of args[from:], failing on the first unbound
// argument with its index.
func Values(args []Argument, from int) ([]term.Term, int, bool) {
	out := make([]term.Term, 0, len(args))
	for i := from; i < len(args); i++ {
		switch a := args[i].(type) {
		case Bound:
			out = append(out, a.Value)
		case Variable:
			return nil, i, false
		}
	}
	return out, -1, true
}

// Unify binds args[0] to v if it is unbound, or compares it with v if it is
// bound. Most swrlb built-ins put their result in the first argument.
func Unify(args []Argument, v term.Term) Outcome {
	switch a := args[0].(type) {
	case Variable:
		return WithBindings(Bindings{a.Name: v})
	case Bound:
		if term.Equal(a.Value, v) {
			return Satisfied()
		}
	}
	return Failed()
}
