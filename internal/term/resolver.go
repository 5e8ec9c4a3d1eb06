package term

import (
	"fmt"
	"sync"
)

// ID is the opaque identifier a Resolver assigns to a Term. IDs have the
// form t<generation>_<n> so they are also valid Mangle name segments.
type ID string

// UnknownIDError is returned when an ID was never interned by the current
// resolver generation.
type UnknownIDError struct {
	ID ID
	// Stale is set when the ID was minted before the last Reset.
	Stale bool
}

func (e *UnknownIDError) Error() string {
	if e.Stale {
		return fmt.Sprintf("term: id %q was invalidated by a resolver reset", string(e.ID))
	}
	return fmt.Sprintf("term: unknown id %q", string(e.ID))
}

// Resolver maintains the bijection between terms and IDs. The two maps are
// owned exclusively by the resolver; terms carry no back-references.
type Resolver struct {
	mu         sync.RWMutex
	generation uint64
	next       uint64
	byID       map[ID]Term
	byTerm     map[Term]ID
}

// NewResolver returns an empty resolver at generation 1.
func NewResolver() *Resolver {
	return &Resolver{
		generation: 1,
		byID:       make(map[ID]Term),
		byTerm:     make(map[Term]ID),
	}
}

// Intern returns the ID of t, minting a new one on first reference.
func (r *Resolver) Intern(t Term) ID {
	r.mu.RLock()
	id, ok := r.byTerm[t]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byTerm[t]; ok {
		return id
	}
	r.next++
	id = ID(fmt.Sprintf("t%d_%d", r.generation, r.next))
	r.byTerm[t] = id
	r.byID[id] = t
	return id
}

// Lookup returns the ID of t without interning it.
func (r *Resolver) Lookup(t Term) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTerm[t]
	return id, ok
}

// HasID reports whether t has been interned.
func (r *Resolver) HasID(t Term) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Resolve returns the term recorded for id.
func (r *Resolver) Resolve(id ID) (Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.byID[id]; ok {
		return t, nil
	}
	var gen, n uint64
	if _, err := fmt.Sscanf(string(id), "t%d_%d", &gen, &n); err == nil && gen < r.generation {
		return Term{}, &UnknownIDError{ID: id, Stale: true}
	}
	return Term{}, &UnknownIDError{ID: id}
}

// Reset clears both directions of the mapping and advances the generation,
// so every previously issued ID becomes invalid rather than reassigned.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.next = 0
	r.byID = make(map[ID]Term)
	r.byTerm = make(map[Term]ID)
}

// Len returns the number of interned terms.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Generation returns the current resolver generation.
func (r *Resolver) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}
