package swrlb

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"owlrules/internal/builtin"
	"owlrules/internal/term"
)

// texts returns the lexical forms of the literal arguments args[from:].
func texts(args []builtin.Argument, from int) ([]string, builtin.Outcome, bool) {
	vals, i, ok := builtin.Values(args, from)
	if !ok {
		return nil, builtin.Errorf(builtin.ArityOrType, "argument %d must be bound", i+1), false
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if !v.IsLiteral() {
			return nil, builtin.Errorf(builtin.ArityOrType, "argument %d is not a literal: %s", from+i+1, v), false
		}
		out[i] = v.Lexical
	}
	return out, builtin.Outcome{}, true
}

func stringConcat(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	parts, bad, ok := texts(args, 1)
	if !ok {
		return bad
	}
	return builtin.Unify(args, term.String(strings.Join(parts, "")))
}

func stringLength(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	s, bad, ok := texts(args, 1)
	if !ok {
		return bad
	}
	return builtin.Unify(args, term.Integer(int64(utf8.RuneCountInString(s[0]))))
}

func upperCase(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	s, bad, ok := texts(args, 1)
	if !ok {
		return bad
	}
	return builtin.Unify(args, term.String(strings.ToUpper(s[0])))
}

func lowerCase(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	s, bad, ok := texts(args, 1)
	if !ok {
		return bad
	}
	return builtin.Unify(args, term.String(strings.ToLower(s[0])))
}

func containsTest(s, sub string) bool   { return strings.Contains(s, sub) }
func startsWithTest(s, sub string) bool { return strings.HasPrefix(s, sub) }
func endsWithTest(s, sub string) bool   { return strings.HasSuffix(s, sub) }

func stringTest(test func(s, arg string) bool) builtin.Func {
	return func(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
		s, bad, ok := texts(args, 0)
		if !ok {
			return bad
		}
		if test(s[0], s[1]) {
			return builtin.Satisfied()
		}
		return builtin.Failed()
	}
}

func matches(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	s, bad, ok := texts(args, 0)
	if !ok {
		return bad
	}
	re, err := regexp.Compile(s[1])
	if err != nil {
		return builtin.Errorf(builtin.ArityOrType, "bad pattern %q: %v", s[1], err)
	}
	if re.MatchString(s[0]) {
		return builtin.Satisfied()
	}
	return builtin.Failed()
}

// tokenize(?token, input, delimiters) yields one binding per token. A bound
// first argument tests membership instead.
func tokenize(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	s, bad, ok := texts(args, 1)
	if !ok {
		return bad
	}
	input, delims := s[0], s[1]
	tokens := strings.FieldsFunc(input, func(r rune) bool { return strings.ContainsRune(delims, r) })

	name, unbound := builtin.VariableName(args, 0)
	if !unbound {
		want, _ := builtin.Value(args, 0)
		for _, tok := range tokens {
			if term.Equal(term.String(tok), want) {
				return builtin.Satisfied()
			}
		}
		return builtin.Failed()
	}
	i := 0
	return builtin.Multivalued(builtin.SequenceFunc(func(ctx context.Context) (builtin.Bindings, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, fmt.Errorf("tokenize: %w", err)
		}
		if i >= len(tokens) {
			return nil, false, nil
		}
		tok := tokens[i]
		i++
		return builtin.Bindings{name: term.String(tok)}, true, nil
	}))
}
