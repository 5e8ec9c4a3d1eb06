package swrlb

import (
	"strings"

	"github.com/google/uuid"

	"owlrules/internal/builtin"
	"owlrules/internal/term"
)

var individualSpace = uuid.MustParse("4f0d0b1e-6a4c-5d55-9a55-6f776c72756c")

// makeIndividual binds its first argument to an individual derived from
// the remaining arguments. The same argument tuple always mints the same
// IRI, so re-running a rule does not create duplicates. A bound first
// argument is left alone.
func (l *library) makeIndividual(_ builtin.Context, args []builtin.Argument) builtin.Outcome {
	name, unbound := builtin.VariableName(args, 0)
	if !unbound {
		return builtin.Satisfied()
	}
	vals, i, ok := builtin.Values(args, 1)
	if !ok {
		return builtin.Errorf(builtin.ArityOrType, "argument %d must be bound", i+1)
	}
	var key strings.Builder
	for _, v := range vals {
		key.WriteString(v.String())
		key.WriteByte(0)
	}
	id := uuid.NewSHA1(individualSpace, []byte(key.String()))
	return builtin.WithBindings(builtin.Bindings{name: term.Individual(l.individualNS + id.String())})
}
