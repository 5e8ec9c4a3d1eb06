// Package builtin defines the protocol between rule engines and built-in
// predicates: arguments, outcomes, lazy result sequences, the registry and
// the Evaluate entry point that enforces binding consistency.
package builtin

import (
	"fmt"
	"sort"
	"strings"

	"owlrules/internal/term"
)

// Argument is a built-in call argument: either an unbound Variable or a
// Bound term. The set of implementations is closed.
type Argument interface {
	isArgument()
	String() string
}

// Variable is an argument whose value the built-in may bind.
type Variable struct{ Name string }

// Bound is an argument with a known value.
type Bound struct{ Value term.Term }

func (Variable) isArgument() {}
func (Bound) isArgument()    {}

func (v Variable) String() string { return "?" + v.Name }
func (b Bound) String() string    { return b.Value.String() }

// Bindings maps variable names to values. A Bindings value belongs to one
// evaluation attempt.
type Bindings map[string]term.Term

// Clone returns an independent copy.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Extend returns a copy of b with add applied. It reports the first
// variable whose new value conflicts with an existing one.
func (b Bindings) Extend(add Bindings) (Bindings, string, bool) {
	out := b.Clone()
	for _, k := range sortedKeys(add) {
		v := add[k]
		if old, ok := out[k]; ok && !term.Equal(old, v) {
			return nil, k, false
		}
		out[k] = v
	}
	return out, "", true
}

func (b Bindings) String() string {
	parts := make([]string, 0, len(b))
	for _, k := range sortedKeys(b) {
		parts = append(parts, fmt.Sprintf("?%s=%s", k, b[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys(b Bindings) []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
