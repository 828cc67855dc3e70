package memory

import (
	"context"
	"sort"
	"sync"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// HarvestEventStore is an in-memory implementation of storage.HarvestEventStore.
type HarvestEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.HarvestEvent // keyed by event_id
}

// NewHarvestEventStore creates a new in-memory harvest event store.
func NewHarvestEventStore() *HarvestEventStore {
	return &HarvestEventStore{
		data: make(map[string]*domain.HarvestEvent),
	}
}

// Compile-time interface check.
var _ storage.HarvestEventStore = (*HarvestEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *HarvestEventStore) Insert(_ context.Context, e *domain.HarvestEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	return nil
}

// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
func (s *HarvestEventStore) InsertBulk(_ context.Context, events []*domain.HarvestEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[e.EventID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[e.EventID] = &eventCopy
	}
	return nil
}

// GetByMint retrieves all events for a mint, ordered by harvested_at ASC.
func (s *HarvestEventStore) GetByMint(_ context.Context, mint string) ([]*domain.HarvestEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HarvestEvent
	for _, e := range s.data {
		if e.Mint == mint {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].HarvestedAt != result[j].HarvestedAt {
			return result[i].HarvestedAt < result[j].HarvestedAt
		}
		return result[i].EventID < result[j].EventID
	})

	return result, nil
}

// TotalByMint returns the summed harvested amount for a mint.
func (s *HarvestEventStore) TotalByMint(_ context.Context, mint string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, e := range s.data {
		if e.Mint == mint {
			total += e.AmountSOL
		}
	}
	return total, nil
}
