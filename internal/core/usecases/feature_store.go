package usecases

import (
	"sync"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// FeatureStore owns the in-memory feature collection of a session.
// All reads return copies; callers never see later mutations.
type FeatureStore struct {
	mu       sync.RWMutex
	features []domain.Feature
	index    map[string]int
}

// NewFeatureStore creates an empty store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{index: make(map[string]int)}
}

// Add inserts f. It fails with ErrDuplicateID when the id is taken.
func (s *FeatureStore) Add(f domain.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[f.ID]; ok {
		return domain.ErrDuplicateID
	}
	s.index[f.ID] = len(s.features)
	s.features = append(s.features, f.Clone())
	return nil
}

// Remove deletes the feature with id. It fails with ErrNotFound when absent.
func (s *FeatureStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.features = append(s.features[:i], s.features[i+1:]...)
	s.reindex()
	return nil
}

// Get returns a copy of one feature.
func (s *FeatureStore) Get(id string) (domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Feature{}, domain.ErrNotFound
	}
	return s.features[i].Clone(), nil
}

// Contains reports whether id is present.
func (s *FeatureStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// List returns a snapshot of every feature in insertion order.
func (s *FeatureStore) List() []domain.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.features)
}

// Len returns the number of features.
func (s *FeatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Clear empties the store.
func (s *FeatureStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = nil
	s.index = make(map[string]int)
}

// ReplaceAll swaps the collection for an authoritative load. When the load
// repeats an id the first occurrence wins. It returns how many were dropped.
func (s *FeatureStore) ReplaceAll(features []domain.Feature) int {
	next := make([]domain.Feature, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		next = append(next, f.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = next
	s.reindex()
	return len(features) - len(next)
}

// with returns the snapshot that adding f would produce.
func (s *FeatureStore) with(f domain.Feature) ([]domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.index[f.ID]; ok {
		return nil, domain.ErrDuplicateID
	}
	return append(cloneAll(s.features), f.Clone()), nil
}

// without returns the snapshot that removing id would produce.
func (s *FeatureStore) without(id string) ([]domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Feature, 0, len(s.features)-1)
	out = append(out, cloneAll(s.features[:i])...)
	return append(out, cloneAll(s.features[i+1:])...), nil
}

func (s *FeatureStore) reindex() {
	s.index = make(map[string]int, len(s.features))
	for i, f := range s.features {
		s.index[f.ID] = i
	}
}

func cloneAll(in []domain.Feature) []domain.Feature {
	out := make([]domain.Feature, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
