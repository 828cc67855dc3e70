package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"solana-launch-agent/internal/storage"
)

// Keys for scalar agent state rows.
const (
	stateKeyLastDeployment = "last_deployment_ms"
	stateKeyWalletKey      = "wallet_key"
)

// TreasuryStore implements storage.TreasuryStore using PostgreSQL.
// The ledger lives in a single-row table; scalar state is key-value.
type TreasuryStore struct {
	pool *Pool
}

// NewTreasuryStore creates a new TreasuryStore.
func NewTreasuryStore(pool *Pool) *TreasuryStore {
	return &TreasuryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TreasuryStore = (*TreasuryStore)(nil)

// GetLedger returns the persisted counters. Returns ErrNotFound if never saved.
func (s *TreasuryStore) GetLedger(ctx context.Context) (*storage.LedgerState, error) {
	query := `SELECT total_invested, total_earned, updated_at FROM treasury_ledger WHERE id = 1`

	var state storage.LedgerState
	err := s.pool.QueryRow(ctx, query).Scan(
		&state.TotalInvested,
		&state.TotalEarned,
		&state.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return &state, nil
}

// SaveLedger stores the counters, replacing any previous state.
func (s *TreasuryStore) SaveLedger(ctx context.Context, state *storage.LedgerState) error {
	query := `
		INSERT INTO treasury_ledger (id, total_invested, total_earned, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			total_invested = EXCLUDED.total_invested,
			total_earned = EXCLUDED.total_earned,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, state.TotalInvested, state.TotalEarned, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// GetLastDeployment returns the timestamp (ms) of the last accepted deployment.
func (s *TreasuryStore) GetLastDeployment(ctx context.Context) (int64, error) {
	value, err := s.getState(ctx, stateKeyLastDeployment)
	if err != nil {
		return 0, err
	}

	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last deployment timestamp: %w", err)
	}
	return ts, nil
}

// SetLastDeployment stores the last accepted deployment timestamp (ms).
func (s *TreasuryStore) SetLastDeployment(ctx context.Context, ts int64) error {
	return s.setState(ctx, stateKeyLastDeployment, strconv.FormatInt(ts, 10))
}

// GetWalletKey returns the persisted wallet credential.
func (s *TreasuryStore) GetWalletKey(ctx context.Context) (string, error) {
	return s.getState(ctx, stateKeyWalletKey)
}

// SetWalletKey stores the wallet credential.
func (s *TreasuryStore) SetWalletKey(ctx context.Context, encoded string) error {
	return s.setState(ctx, stateKeyWalletKey, encoded)
}

func (s *TreasuryStore) getState(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM agent_state WHERE key = $1`

	var value string
	if err := s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get agent state %s: %w", key, err)
	}
	return value, nil
}

func (s *TreasuryStore) setState(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO agent_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("set agent state %s: %w", key, err)
	}
	return nil
}
