package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by mint
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if mint exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	positionCopy := *p
	s.data[p.Mint] = &positionCopy
	return nil
}

// GetByMint retrieves a position by mint address. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByMint(_ context.Context, mint string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	positionCopy := *p
	return &positionCopy, nil
}

// GetByStatus retrieves all positions with the given status.
func (s *PositionStore) GetByStatus(_ context.Context, status domain.PositionStatus) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == status {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}

	sortByCreatedAt(result)
	return result, nil
}

// GetAll retrieves every position.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		positionCopy := *p
		result = append(result, &positionCopy)
	}

	sortByCreatedAt(result)
	return result, nil
}

// CountByStatus returns the number of positions with the given status.
func (s *PositionStore) CountByStatus(_ context.Context, status domain.PositionStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.data {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

// UpdateStatus sets the lifecycle status. Returns ErrNotFound if mint not exists.
func (s *PositionStore) UpdateStatus(_ context.Context, mint string, status domain.PositionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	if p.Status == status {
		return nil
	}
	p.Status = status
	p.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// AddFees adds amount to the position's cumulative harvested fees.
func (s *PositionStore) AddFees(_ context.Context, mint string, amountSOL float64) error {
	if amountSOL < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	p.FeesEarnedSOL += amountSOL
	p.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// sortByCreatedAt orders positions by created_at ASC, mint ASC for ties.
func sortByCreatedAt(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].CreatedAt != positions[j].CreatedAt {
			return positions[i].CreatedAt < positions[j].CreatedAt
		}
		return positions[i].Mint < positions[j].Mint
	})
}
