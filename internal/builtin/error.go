package builtin

import "fmt"

// ErrorKind classifies built-in errors.
type ErrorKind uint8

const (
	// UnknownBuiltIn means no built-in is registered under the name.
	UnknownBuiltIn ErrorKind = iota + 1
	// ArityOrType means the arguments have the wrong count, type or
	// binding state.
	ArityOrType
	// Conflict means a built-in tried to rebind a bound variable to a
	// different value.
	Conflict
	// Internal covers failures inside a built-in implementation.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownBuiltIn:
		return "unknown_builtin"
	case ArityOrType:
		return "arity_or_type"
	case Conflict:
		return "binding_conflict"
	case Internal:
		return "internal"
	}
	return fmt.Sprintf("error_kind(%d)", uint8(k))
}

// Error is a built-in error outcome. It aborts the binding attempt that
// raised it, never the whole run.
type Error struct {
	Kind    ErrorKind
	Rule    string
	BuiltIn string
	Message string
}

func (e *Error) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: rule %q: built-in %s: %s", e.Kind, e.Rule, e.BuiltIn, e.Message)
	}
	return fmt.Sprintf("%s: built-in %s: %s", e.Kind, e.BuiltIn, e.Message)
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: Conflict})
// works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.BuiltIn == "" || t.BuiltIn == e.BuiltIn)
}
