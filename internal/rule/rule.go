package rule

import (
	"errors"
	"fmt"
	"strings"

	"owlrules/internal/term"
)

// ErrBuiltInInHead is returned when a rule head contains a built-in atom.
// Built-ins in heads are reserved for query result collectors.
var ErrBuiltInInHead = errors.New("built-in atoms are not allowed in rule heads")

// UnsafeRuleError reports head variables that no body atom binds.
type UnsafeRuleError struct {
	Rule      string
	Variables []string
}

func (e *UnsafeRuleError) Error() string {
	vars := make([]string, len(e.Variables))
	for i, v := range e.Variables {
		vars[i] = "?" + v
	}
	return fmt.Sprintf("rule %q is unsafe: head variable(s) %s not bound in body", e.Rule, strings.Join(vars, ", "))
}

// Option configures a Rule or Query at construction.
type Option func(*options)

type options struct {
	comment  string
	inactive bool
}

// WithComment attaches a free-text comment.
func WithComment(c string) Option { return func(o *options) { o.comment = c } }

// Inactive constructs the rule or query disabled.
func Inactive() Option { return func(o *options) { o.inactive = true } }

// Rule is a named Horn rule. Body and head are immutable after
// construction; only the active flag changes.
type Rule struct {
	name    string
	body    []Atom
	head    []Atom
	active  bool
	comment string
}

// New builds a rule and enforces safety: every head variable must occur in
// some body atom.
func New(name string, body, head []Atom, opts ...Option) (*Rule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("rule name is required")
	}
	if len(head) == 0 {
		return nil, fmt.Errorf("rule %q has an empty head", name)
	}
	for _, a := range head {
		if a.IsBuiltIn() {
			return nil, fmt.Errorf("rule %q: %s: %w", name, a.builtin, ErrBuiltInInHead)
		}
	}
	if unbound := unboundHeadVariables(body, head); len(unbound) > 0 {
		return nil, &UnsafeRuleError{Rule: name, Variables: unbound}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Rule{
		name:    name,
		body:    cloneAtoms(body),
		head:    cloneAtoms(head),
		active:  !o.inactive,
		comment: o.comment,
	}, nil
}

func (r *Rule) Name() string    { return r.name }
func (r *Rule) Comment() string { return r.comment }
func (r *Rule) Active() bool    { return r.active }

// SetActive enables or disables the rule.
func (r *Rule) SetActive(active bool) { r.active = active }

// Body returns a copy of the body atoms in declared order.
func (r *Rule) Body() []Atom { return cloneAtoms(r.body) }

// Head returns a copy of the head atoms.
func (r *Rule) Head() []Atom { return cloneAtoms(r.head) }

// EvaluationOrder returns the body with class and property atoms first.
func (r *Rule) EvaluationOrder() []Atom { return evaluationOrder(r.body) }

// Variables returns every variable of the rule, body first.
func (r *Rule) Variables() []string {
	return collectVariables(append(cloneAtoms(r.body), r.head...))
}

// BuiltIns returns the distinct built-in names referenced by the body.
func (r *Rule) BuiltIns() []string { return builtInNames(r.body) }

// Render formats the rule in SWRL syntax.
func (r *Rule) Render(p *term.Prefixes) string {
	return renderAtoms(r.body, p) + " -> " + renderAtoms(r.head, p)
}

func (r *Rule) String() string { return r.name + ": " + r.Render(nil) }

func unboundHeadVariables(body, head []Atom) []string {
	bound := make(map[string]bool)
	for _, v := range collectVariables(body) {
		bound[v] = true
	}
	var unbound []string
	for _, v := range collectVariables(head) {
		if !bound[v] {
			unbound = append(unbound, v)
		}
	}
	return unbound
}

func builtInNames(atoms []Atom) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range atoms {
		if a.IsBuiltIn() && !seen[a.builtin] {
			seen[a.builtin] = true
			out = append(out, a.builtin)
		}
	}
	return out
}

func cloneAtoms(atoms []Atom) []Atom {
	if atoms == nil {
		return nil
	}
	out := make([]Atom, len(atoms))
	copy(out, atoms)
	return out
}
