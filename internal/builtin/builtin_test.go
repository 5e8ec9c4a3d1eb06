package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlrules/internal/term"
)

const testNS = "urn:test#"

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(
		BuiltIn{Name: testNS + "double", Arity: Fixed(2), Func: func(_ Context, args []Argument) Outcome {
			v, ok := Value(args, 1)
			if !ok {
				return Errorf(ArityOrType, "second argument must be bound")
			}
			n, ok := v.Int()
			if !ok {
				return Errorf(ArityOrType, "not an integer: %s", v)
			}
			return Unify(args, term.Integer(2*n))
		}},
		BuiltIn{Name: testNS + "seven", Arity: Fixed(1), Func: func(_ Context, args []Argument) Outcome {
			// Always binds by name, ignoring whether the argument is bound.
			return WithBindings(Bindings{"x": term.Integer(7)})
		}},
		BuiltIn{Name: testNS + "upto", Arity: Fixed(2), Func: func(_ Context, args []Argument) Outcome {
			name, ok := VariableName(args, 0)
			if !ok {
				return Errorf(ArityOrType, "first argument must be unbound")
			}
			limit, _ := Value(args, 1)
			n, _ := limit.Int()
			var items []Bindings
			for i := int64(1); i <= n; i++ {
				items = append(items, Bindings{name: term.Integer(i)})
			}
			return Multivalued(SliceSequence(items...))
		}},
		BuiltIn{Name: testNS + "panics", Arity: Variadic(0), Func: func(Context, []Argument) Outcome {
			panic("boom")
		}},
		Collector(testNS + "select"),
	)
	return reg
}

func TestEvaluateUnknownBuiltIn(t *testing.T) {
	out := Evaluate(context.Background(), NewRegistry(), testNS+"missing", []Argument{Variable{"x"}}, nil, ForRule("r1"))
	require.Equal(t, OutcomeError, out.Kind())

	var be *Error
	require.ErrorAs(t, out.Err(), &be)
	assert.Equal(t, UnknownBuiltIn, be.Kind)
	assert.Equal(t, "r1", be.Rule)
	assert.Equal(t, testNS+"missing", be.BuiltIn)
	assert.True(t, errors.Is(out.Err(), &Error{Kind: UnknownBuiltIn}))
}

func TestEvaluateArity(t *testing.T) {
	reg := testRegistry(t)
	out := Evaluate(context.Background(), reg, testNS+"double", []Argument{Variable{"x"}}, nil)
	require.Equal(t, OutcomeError, out.Kind())
	assert.ErrorIs(t, out.Err(), &Error{Kind: ArityOrType})
}

func TestEvaluateBindsAndChecks(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	out := Evaluate(ctx, reg, testNS+"double", []Argument{Variable{"y"}, Bound{term.Integer(4)}}, Bindings{})
	require.Equal(t, OutcomeBindings, out.Kind())
	assert.Equal(t, term.Integer(8), out.Bindings()["y"])

	out = Evaluate(ctx, reg, testNS+"double", []Argument{Bound{term.Integer(8)}, Bound{term.Integer(4)}}, nil)
	assert.Equal(t, OutcomeSatisfied, out.Kind())

	out = Evaluate(ctx, reg, testNS+"double", []Argument{Bound{term.Integer(9)}, Bound{term.Integer(4)}}, nil)
	assert.Equal(t, OutcomeFailed, out.Kind())
	assert.NoError(t, out.Err())
}

func TestEvaluateRejectsConflictingRebinding(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	out := Evaluate(ctx, reg, testNS+"seven", []Argument{Variable{"x"}}, Bindings{"x": term.Integer(3)})
	require.Equal(t, OutcomeError, out.Kind())
	assert.ErrorIs(t, out.Err(), &Error{Kind: Conflict})

	out = Evaluate(ctx, reg, testNS+"seven", []Argument{Variable{"x"}}, Bindings{"x": term.Literal("7.0", term.XSDDecimal)})
	assert.Equal(t, OutcomeBindings, out.Kind(), "numerically equal rebinding is not a conflict")

	out = Evaluate(ctx, reg, testNS+"seven", []Argument{Variable{"y"}}, Bindings{})
	assert.ErrorIs(t, out.Err(), &Error{Kind: Internal})
}

func TestEvaluateMultivalued(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	out := Evaluate(ctx, reg, testNS+"upto", []Argument{Variable{"i"}, Bound{term.Integer(3)}}, Bindings{})
	require.Equal(t, OutcomeMultivalued, out.Kind())
	all, err := Drain(ctx, out.Sequence())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, term.Integer(3), all[2]["i"])

	// Pulling again yields nothing: sequences are single-use.
	_, ok, err := out.Sequence().Next(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMultivaluedConflictsAreReportedPerElement(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	out := Evaluate(ctx, reg, testNS+"upto", []Argument{Variable{"i"}, Bound{term.Integer(3)}}, Bindings{"i": term.Integer(2)})
	require.Equal(t, OutcomeMultivalued, out.Kind())

	var kept, rejected int
	for {
		b, ok, err := out.Sequence().Next(ctx)
		if !ok {
			require.NoError(t, err)
			break
		}
		if err != nil {
			assert.ErrorIs(t, err, &Error{Kind: Conflict})
			rejected++
			continue
		}
		assert.Equal(t, term.Integer(2), b["i"])
		kept++
	}
	assert.Equal(t, 1, kept)
	assert.Equal(t, 2, rejected)
}

func TestSequenceHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := SliceSequence(Bindings{}).Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateRecoversPanics(t *testing.T) {
	out := Evaluate(context.Background(), testRegistry(t), testNS+"panics", nil, nil)
	require.Equal(t, OutcomeError, out.Kind())
	assert.ErrorIs(t, out.Err(), &Error{Kind: Internal})
}

type rowRecorder struct{ values []term.Term }

func (r *rowRecorder) Write(values []term.Term) error {
	r.values = append(r.values, values...)
	return nil
}

func TestCollectorWritesRow(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()
	args := []Argument{Bound{term.Individual(testNS + "fred")}, Bound{term.Integer(3)}}

	out := Evaluate(ctx, reg, testNS+"select", args, nil)
	assert.ErrorIs(t, out.Err(), &Error{Kind: ArityOrType}, "collectors need a row")

	row := &rowRecorder{}
	out = Evaluate(ctx, reg, testNS+"select", args, nil, WithRow(row))
	require.Equal(t, OutcomeSatisfied, out.Kind())
	assert.Equal(t, []term.Term{term.Individual(testNS + "fred"), term.Integer(3)}, row.values)

	out = Evaluate(ctx, reg, testNS+"select", []Argument{Variable{"x"}}, nil, WithRow(row))
	assert.ErrorIs(t, out.Err(), &Error{Kind: ArityOrType})
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := testRegistry(t)
	err := reg.Register(Collector(testNS + "select"))
	assert.ErrorIs(t, err, ErrDuplicateBuiltIn)
	assert.Contains(t, reg.Names(), testNS+"double")
	assert.Equal(t, 5, reg.Len())
}

func TestBindingsExtend(t *testing.T) {
	base := Bindings{"x": term.Integer(1)}
	ext, _, ok := base.Extend(Bindings{"y": term.Integer(2)})
	require.True(t, ok)
	assert.Len(t, ext, 2)
	assert.Len(t, base, 1)

	_, name, ok := base.Extend(Bindings{"x": term.Integer(5)})
	assert.False(t, ok)
	assert.Equal(t, "x", name)
}
