package ontology

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"owlrules/internal/rule"
	"owlrules/internal/term"
)

// ErrUnknownEntity is returned by ResolveTermMetadata for IRIs the store
// has never seen.
var ErrUnknownEntity = errors.New("unknown entity")

// Metadata describes an entity known to a store.
type Metadata struct {
	IRI   string
	Kind  term.Kind
	Label string
	// Declared is set when the entity has a Declaration fact.
	Declared bool
}

// Store is the ontology the bridge reads facts from and asserts derived
// facts into. AssertFact is idempotent: asserting an existing fact reports
// added == false.
type Store interface {
	ListFacts(ctx context.Context) ([]Fact, error)
	ResolveTermMetadata(ctx context.Context, iri string) (Metadata, error)
	AssertFact(ctx context.Context, f Fact) (added bool, err error)
}

// MemoryStore is an in-memory Store. Facts are listed in assertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	facts    []Fact
	keys     map[string]bool
	entities map[string]*Metadata
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:     make(map[string]bool),
		entities: make(map[string]*Metadata),
	}
}

// ListFacts returns a snapshot of every fact.
func (s *MemoryStore) ListFacts(ctx context.Context) ([]Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Fact, len(s.facts))
	copy(out, s.facts)
	return out, nil
}

// ResolveTermMetadata returns what the store knows about iri.
func (s *MemoryStore) ResolveTermMetadata(ctx context.Context, iri string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entities[iri]
	if !ok {
		return Metadata{}, fmt.Errorf("%s: %w", iri, ErrUnknownEntity)
	}
	return *m, nil
}

// AssertFact validates and adds f.
func (s *MemoryStore) AssertFact(ctx context.Context, f Fact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := f.Key()
	if s.keys[k] {
		return false, nil
	}
	s.keys[k] = true
	s.facts = append(s.facts, f)
	for _, t := range f.Terms() {
		if t.IsEntity() {
			s.noteLocked(t, f.Kind == Declaration)
		}
	}
	return true, nil
}

func (s *MemoryStore) noteLocked(t term.Term, declared bool) {
	m, ok := s.entities[t.IRI]
	if !ok {
		m = &Metadata{IRI: t.IRI, Kind: t.Kind}
		s.entities[t.IRI] = m
	}
	if declared {
		// A declaration fixes the kind even if the IRI was first seen in
		// another role.
		m.Kind = t.Kind
		m.Declared = true
	}
}

// SetLabel attaches a human-readable label to a known entity.
func (s *MemoryStore) SetLabel(iri, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entities[iri]
	if !ok {
		return fmt.Errorf("%s: %w", iri, ErrUnknownEntity)
	}
	m.Label = label
	return nil
}

// Len returns the number of facts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// KindOf reports the kind of a known entity. It lets the store serve as
// the vocabulary of the rule parser.
func (s *MemoryStore) KindOf(iri string) (term.Kind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entities[iri]
	if !ok {
		return 0, false
	}
	return m.Kind, true
}

// VocabularyOf adapts any store to the rule parser's vocabulary, looking
// entities up with ctx.
func VocabularyOf(ctx context.Context, s Store) rule.VocabularyFunc {
	return func(iri string) (term.Kind, bool) {
		m, err := s.ResolveTermMetadata(ctx, iri)
		if err != nil {
			return 0, false
		}
		return m.Kind, true
	}
}
