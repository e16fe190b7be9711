package patches

import (
	"strings"
	"sync"

	"github.com/akoval/recipeflow/internal/cleanup"
)

// MemStore is an in-memory patch store with the same merge semantics as
// DirStore. It backs tests and lets the pipeline run without a patches
// directory.
type MemStore struct {
	mu       sync.Mutex
	mapping  map[string]string
	rules    []cleanup.Rule
	addendum string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{mapping: make(map[string]string)}
}

// Snapshot returns a copy of the current state.
func (s *MemStore) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		mapping[k] = v
	}
	rules := make([]cleanup.Rule, len(s.rules))
	copy(rules, s.rules)

	return Snapshot{
		UnitMapping:    mapping,
		CleanupRules:   rules,
		PromptAddendum: s.addendum,
	}, nil
}

// Apply merges the set: key-override, append, concatenate-with-separator.
func (s *MemStore) Apply(set Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range set.UnitMapping {
		s.mapping[k] = v
	}
	for _, r := range set.CleanupRules {
		if r.Pattern != "" {
			s.rules = append(s.rules, r)
		}
	}
	if text := strings.TrimSpace(set.PromptAppend); text != "" {
		if s.addendum == "" {
			s.addendum = text
		} else {
			s.addendum += Separator + text
		}
	}
	return nil
}
