package builtin

import (
	"context"
	"errors"
	"fmt"

	"owlrules/internal/logging"
	"owlrules/internal/term"
)

// CallOption configures one Evaluate call.
type CallOption func(*Context)

// ForRule records the rule or query name on errors.
func ForRule(name string) CallOption { return func(c *Context) { c.Rule = name } }

// WithRow attaches the row a collector writes into.
func WithRow(w RowWriter) CallOption { return func(c *Context) { c.Row = w } }

// Evaluate invokes the built-in registered under name. The registry is
// consulted at call time. Every binding the built-in proposes is checked
// against env here, so a conflicting rebinding surfaces as a Conflict error
// regardless of how the built-in is written.
func Evaluate(ctx context.Context, reg *Registry, name string, args []Argument, env Bindings, opts ...CallOption) Outcome {
	bctx := Context{Context: ctx, Name: name, Env: env}
	for _, opt := range opts {
		opt(&bctx)
	}

	b, ok := reg.Lookup(name)
	if !ok {
		logging.Get(logging.CategoryBuiltin).Debug("unknown built-in %s in %s", name, bctx.Rule)
		return stamp(Errorf(UnknownBuiltIn, "no built-in registered under this name"), bctx)
	}
	if !b.Arity.Accepts(len(args)) {
		return stamp(Errorf(ArityOrType, "got %d arguments, want %s", len(args), b.Arity), bctx)
	}
	if b.Collector && bctx.Row == nil {
		return stamp(Errorf(ArityOrType, "result collectors are only allowed in query heads"), bctx)
	}

	out := call(b, bctx, args)
	switch out.kind {
	case OutcomeBindings:
		if err := checkBindings(args, env, out.bindings); err != nil {
			return stamp(Outcome{kind: OutcomeError, err: err}, bctx)
		}
	case OutcomeMultivalued:
		if out.seq == nil {
			return stamp(Errorf(Internal, "multivalued outcome without a sequence"), bctx)
		}
		out.seq = &checkedSequence{inner: out.seq, args: args, env: env, bctx: bctx}
	case OutcomeError:
		return stamp(out, bctx)
	case OutcomeSatisfied, OutcomeFailed:
	default:
		return stamp(Errorf(Internal, "invalid outcome kind %d", out.kind), bctx)
	}
	return out
}

func call(b BuiltIn, bctx Context, args []Argument) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryBuiltin).Error("built-in %s panicked: %v", b.Name, r)
			out = Errorf(Internal, "panic: %v", r)
		}
	}()
	return b.Func(bctx, args)
}

func stamp(o Outcome, bctx Context) Outcome {
	if o.err == nil {
		o.err = &Error{Kind: Internal}
	}
	e := *o.err
	e.Rule, e.BuiltIn = bctx.Rule, bctx.Name
	o.err = &e
	return o
}

// checkBindings rejects bindings for names that are not variable arguments
// and rebinding of variables already bound in env.
func checkBindings(args []Argument, env, proposed Bindings) *Error {
	vars := make(map[string]bool)
	for _, a := range args {
		if v, ok := a.(Variable); ok {
			vars[v.Name] = true
		}
	}
	for _, name := range sortedKeys(proposed) {
		val := proposed[name]
		if val.IsZero() {
			return &Error{Kind: Internal, Message: fmt.Sprintf("bound ?%s to no value", name)}
		}
		if old, bound := env[name]; bound {
			if !term.Equal(old, val) {
				return &Error{Kind: Conflict, Message: fmt.Sprintf("?%s is bound to %s, cannot rebind to %s", name, old, val)}
			}
			continue
		}
		if !vars[name] {
			return &Error{Kind: Internal, Message: fmt.Sprintf("bound ?%s which is not a variable argument", name)}
		}
	}
	return nil
}

type checkedSequence struct {
	inner Sequence
	args  []Argument
	env   Bindings
	bctx  Context
}

// Next returns an *Error with ok == true for an invalid element, so callers
// can record it and keep pulling. An error with ok == false ends the stream.
func (s *checkedSequence) Next(ctx context.Context) (Bindings, bool, error) {
	b, ok, err := s.inner.Next(ctx)
	if err != nil || !ok {
		var be *Error
		if errors.As(err, &be) {
			e := *be
			e.Rule, e.BuiltIn = s.bctx.Rule, s.bctx.Name
			return nil, false, &e
		}
		return b, ok, err
	}
	if e := checkBindings(s.args, s.env, b); e != nil {
		e.Rule, e.BuiltIn = s.bctx.Rule, s.bctx.Name
		return nil, true, e
	}
	return b, true, nil
}
