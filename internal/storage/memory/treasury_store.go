package memory

import (
	"context"
	"sync"

	"solana-launch-agent/internal/storage"
)

// TreasuryStore is an in-memory implementation of storage.TreasuryStore.
type TreasuryStore struct {
	mu             sync.RWMutex
	ledger         *storage.LedgerState
	lastDeployment int64
	hasDeployment  bool
	walletKey      string
}

// NewTreasuryStore creates a new in-memory treasury store.
func NewTreasuryStore() *TreasuryStore {
	return &TreasuryStore{}
}

// Compile-time interface check.
var _ storage.TreasuryStore = (*TreasuryStore)(nil)

// GetLedger returns the persisted counters. Returns ErrNotFound if never saved.
func (s *TreasuryStore) GetLedger(_ context.Context) (*storage.LedgerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ledger == nil {
		return nil, storage.ErrNotFound
	}

	ledgerCopy := *s.ledger
	return &ledgerCopy, nil
}

// SaveLedger stores the counters, replacing any previous state.
func (s *TreasuryStore) SaveLedger(_ context.Context, state *storage.LedgerState) error {
	if state == nil || state.TotalInvested < 0 || state.TotalEarned < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stateCopy := *state
	s.ledger = &stateCopy
	return nil
}

// GetLastDeployment returns the last accepted deployment timestamp (ms).
func (s *TreasuryStore) GetLastDeployment(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasDeployment {
		return 0, storage.ErrNotFound
	}
	return s.lastDeployment, nil
}

// SetLastDeployment stores the last accepted deployment timestamp (ms).
func (s *TreasuryStore) SetLastDeployment(_ context.Context, ts int64) error {
	if ts <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastDeployment = ts
	s.hasDeployment = true
	return nil
}

// GetWalletKey returns the persisted wallet credential.
func (s *TreasuryStore) GetWalletKey(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.walletKey == "" {
		return "", storage.ErrNotFound
	}
	return s.walletKey, nil
}

// SetWalletKey stores the wallet credential.
func (s *TreasuryStore) SetWalletKey(_ context.Context, encoded string) error {
	if encoded == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.walletKey = encoded
	return nil
}
