package builtin

import (
	"context"
	"fmt"
)

// OutcomeKind discriminates built-in results.
type OutcomeKind uint8

const (
	OutcomeSatisfied OutcomeKind = iota + 1
	OutcomeBindings
	OutcomeMultivalued
	OutcomeFailed
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSatisfied:
		return "satisfied"
	case OutcomeBindings:
		return "satisfied_with_bindings"
	case OutcomeMultivalued:
		return "multivalued"
	case OutcomeFailed:
		return "failed"
	case OutcomeError:
		return "error"
	}
	return fmt.Sprintf("outcome(%d)", uint8(k))
}

// Outcome is the result of one built-in invocation. Failed is ordinary
// control flow; Error aborts the current binding attempt only.
type Outcome struct {
	kind     OutcomeKind
	bindings Bindings
	seq      Sequence
	err      *Error
}

// Satisfied reports the built-in holds with no new bindings.
func Satisfied() Outcome { return Outcome{kind: OutcomeSatisfied} }

// WithBindings reports the built-in holds after binding variables.
func WithBindings(b Bindings) Outcome { return Outcome{kind: OutcomeBindings, bindings: b} }

// Multivalued reports the built-in holds once per element of seq.
func Multivalued(seq Sequence) Outcome { return Outcome{kind: OutcomeMultivalued, seq: seq} }

// Failed reports the built-in does not hold.
func Failed() Outcome { return Outcome{kind: OutcomeFailed} }

// Errorf reports a built-in error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) Outcome {
	return Outcome{kind: OutcomeError, err: &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

func (o Outcome) Kind() OutcomeKind { return o.kind }

// Bindings returns the bindings of an OutcomeBindings outcome.
func (o Outcome) Bindings() Bindings { return o.bindings }

// Sequence returns the sequence of an OutcomeMultivalued outcome.
func (o Outcome) Sequence() Sequence { return o.seq }

// Holds reports whether the outcome is any of the satisfied kinds.
func (o Outcome) Holds() bool {
	return o.kind == OutcomeSatisfied || o.kind == OutcomeBindings || o.kind == OutcomeMultivalued
}

// Err returns the error of an OutcomeError outcome, or nil.
func (o Outcome) Err() error {
	if o.kind != OutcomeError || o.err == nil {
		return nil
	}
	return o.err
}

// Sequence is a finite, pull-based stream of alternative bindings. It can
// be consumed once; restarting means invoking the built-in again.
type Sequence interface {
	Next(ctx context.Context) (Bindings, bool, error)
}

// SequenceFunc adapts a function to Sequence.
type SequenceFunc func(ctx context.Context) (Bindings, bool, error)

func (f SequenceFunc) Next(ctx context.Context) (Bindings, bool, error) { return f(ctx) }

// SliceSequence yields the given bindings in order.
func SliceSequence(items ...Bindings) Sequence {
	i := 0
	return SequenceFunc(func(ctx context.Context) (Bindings, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if i >= len(items) {
			return nil, false, nil
		}
		b := items[i]
		i++
		return b, true, nil
	})
}

// Drain pulls every remaining element of seq.
func Drain(ctx context.Context, seq Sequence) ([]Bindings, error) {
	var out []Bindings
	for {
		b, ok, err := seq.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, b)
	}
}
