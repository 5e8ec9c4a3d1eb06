package builtin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"owlrules/internal/term"
)

// Arity bounds the argument count of a built-in. Max < 0 means unbounded.
type Arity struct {
	Min int
	Max int
}

// Fixed returns an arity of exactly n arguments.
func Fixed(n int) Arity { return Arity{Min: n, Max: n} }

// Variadic returns an arity of at least min arguments.
func Variadic(min int) Arity { return Arity{Min: min, Max: -1} }

// Accepts reports whether n arguments are allowed.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && (a.Max < 0 || n <= a.Max)
}

func (a Arity) String() string {
	switch {
	case a.Max < 0:
		return fmt.Sprintf("at least %d", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	}
	return fmt.Sprintf("%d to %d", a.Min, a.Max)
}

// RowWriter receives the values a result collector selects for the row
// being built.
type RowWriter interface {
	Write(values []term.Term) error
}

// Context carries evaluator state into a built-in call.
type Context struct {
	Context context.Context
	// Rule names the rule or query whose atom is being evaluated.
	Rule string
	// Name is the built-in name as invoked.
	Name string
	// Env holds the bindings in force. It must not be modified.
	Env Bindings
	// Row is set only while evaluating query head collectors.
	Row RowWriter
}

// Func implements a built-in. It must not mutate args or Env.
type Func func(bctx Context, args []Argument) Outcome

// BuiltIn is a registered built-in predicate.
type BuiltIn struct {
	Name  string
	Arity Arity
	Func  Func
	// Collector marks query head result collectors.
	Collector bool
}

// ErrDuplicateBuiltIn is returned when a name is registered twice.
var ErrDuplicateBuiltIn = errors.New("built-in already registered")

// Registry maps built-in names to implementations. It is built by the
// caller; there is no global registry.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]BuiltIn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]BuiltIn)}
}

// Register adds b. Names must be unique.
func (r *Registry) Register(b BuiltIn) error {
	if b.Name == "" || b.Func == nil {
		return fmt.Errorf("built-in registration needs a name and a func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fns[b.Name]; ok {
		return fmt.Errorf("%s: %w", b.Name, ErrDuplicateBuiltIn)
	}
	r.fns[b.Name] = b
	return nil
}

// MustRegister registers every b and panics on error.
func (r *Registry) MustRegister(bs ...BuiltIn) {
	for _, b := range bs {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the built-in registered under name.
func (r *Registry) Lookup(name string) (BuiltIn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.fns[name]
	return b, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fns))
	for k := range r.fns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered built-ins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fns)
}
