// Package store accumulates climate samples received by the pipeline so
// every batch can be smoothed against the full series.
package store

import (
	"sort"
	"sync"

	"github.com/couchcryptid/climate-trend-etl/internal/domain"
)

// Store is an in-memory, concurrency-safe series keyed by year.
type Store struct {
	mu      sync.RWMutex
	samples map[int]domain.Sample
	version uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{samples: make(map[int]domain.Sample)}
}

// Merge upserts samples by year and returns the sorted years that changed.
// A sample identical to the stored one is not reported. The version advances
// only when something changed.
func (s *Store) Merge(samples []domain.Sample) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make(map[int]struct{}, len(samples))
	for _, sample := range samples {
		if prev, ok := s.samples[sample.Year]; ok && sameValues(prev, sample) {
			continue
		}
		s.samples[sample.Year] = sample.Clone()
		changed[sample.Year] = struct{}{}
	}
	if len(changed) == 0 {
		return nil
	}
	s.version++

	years := make([]int, 0, len(changed))
	for y := range changed {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Snapshot returns a sorted deep copy of the series and the version it reflects.
func (s *Store) Snapshot() (domain.Series, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := make([]domain.Sample, 0, len(s.samples))
	for _, sample := range s.samples {
		samples = append(samples, sample)
	}
	return domain.NewSeries(samples), s.version
}

// Len returns the number of stored years. The pipeline reports it as the
// series length gauge after every merge.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

func sameValues(a, b domain.Sample) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for k, v := range a.Values {
		if w, ok := b.Values[k]; !ok || w != v {
			return false
		}
	}
	return true
}
