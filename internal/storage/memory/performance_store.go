package memory

import (
	"context"
	"sort"
	"sync"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// PerformanceStore is an in-memory implementation of storage.PerformanceStore.
type PerformanceStore struct {
	mu      sync.RWMutex
	records []*domain.PerformanceRecord
}

// NewPerformanceStore creates a new in-memory performance store.
func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{}
}

// Compile-time interface check.
var _ storage.PerformanceStore = (*PerformanceStore)(nil)

// Append adds a record to the history.
func (s *PerformanceStore) Append(_ context.Context, r *domain.PerformanceRecord) error {
	if r == nil || r.RecordedAt <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.records = append(s.records, &recordCopy)
	return nil
}

// GetRecent returns up to limit records, newest first.
func (s *PerformanceStore) GetRecent(_ context.Context, limit int) ([]*domain.PerformanceRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PerformanceRecord, 0, len(s.records))
	for _, r := range s.records {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt > result[j].RecordedAt
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Prune removes all but the newest keep records.
func (s *PerformanceStore) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) <= keep {
		return nil
	}

	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].RecordedAt > s.records[j].RecordedAt
	})
	s.records = s.records[:keep]
	return nil
}
