package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownQuery is returned by Query for names never registered.
	ErrUnknownQuery = errors.New("unknown query")
	// ErrInactiveQuery is returned by Query for a deactivated query.
	ErrInactiveQuery = errors.New("query is inactive")
	// ErrDuplicateName is returned when a rule or query name is reused.
	ErrDuplicateName = errors.New("rule or query name already registered")
)

// NonTerminationError is returned when the fixpoint is not reached within
// the configured number of passes.
type NonTerminationError struct {
	MaxPasses int
	// NewFacts is the number of facts materialized before giving up.
	NewFacts int
}

func (e *NonTerminationError) Error() string {
	return fmt.Sprintf("no fixpoint after %d passes (%d facts added)", e.MaxPasses, e.NewFacts)
}

// RunError is a failure that aborted an inference run.
type RunError struct {
	RunID string
	Pass  int
	// Rule is set when the failure is attributable to one rule or query.
	Rule string
	Err  error
}

func (e *RunError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("run %s pass %d: %v", e.RunID, e.Pass, e.Err)
	}
	return fmt.Sprintf("run %s pass %d: rule %s: %v", e.RunID, e.Pass, e.Rule, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
