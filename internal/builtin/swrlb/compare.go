package swrlb

import (
	"errors"

	"owlrules/internal/builtin"
	"owlrules/internal/term"
)

// equal binds its first argument when it is unbound, otherwise it tests
// value equality.
func equal(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	v, ok := builtin.Value(args, 1)
	if !ok {
		return builtin.Errorf(builtin.ArityOrType, "second argument must be bound")
	}
	return builtin.Unify(args, v)
}

func compareWith(test func(int) bool) builtin.Func {
	return func(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
		vals, i, ok := builtin.Values(args, 0)
		if !ok {
			return builtin.Errorf(builtin.ArityOrType, "argument %d must be bound", i+1)
		}
		c, err := term.Compare(vals[0], vals[1])
		if errors.Is(err, term.ErrIncomparable) {
			// Entities of different kinds or unrelated literals are simply
			// unequal; ordering them is a type error.
			if test(1) && test(-1) && !test(0) {
				return builtin.Satisfied()
			}
			return builtin.Errorf(builtin.ArityOrType, "%v", err)
		}
		if err != nil {
			return builtin.Errorf(builtin.ArityOrType, "%v", err)
		}
		if test(c) {
			return builtin.Satisfied()
		}
		return builtin.Failed()
	}
}
