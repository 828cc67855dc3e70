package storage

import (
	"context"

	"solana-launch-agent/internal/domain"
)

// PositionStore provides access to the position registry.
// Positions are never deleted; terminal positions stay for audit.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByMint retrieves a position by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Position, error)

	// GetByStatus retrieves all positions with the given status, ordered by created_at ASC.
	GetByStatus(ctx context.Context, status domain.PositionStatus) ([]*domain.Position, error)

	// GetAll retrieves every position, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.Position, error)

	// CountByStatus returns the number of positions with the given status.
	CountByStatus(ctx context.Context, status domain.PositionStatus) (int, error)

	// UpdateStatus sets the lifecycle status. Returns ErrNotFound if mint not exists.
	// Re-applying the current status is a no-op, not an error.
	UpdateStatus(ctx context.Context, mint string, status domain.PositionStatus) error

	// AddFees adds amount to the position's cumulative harvested fees.
	// Returns ErrNotFound if mint not exists.
	AddFees(ctx context.Context, mint string, amountSOL float64) error
}

// LedgerState holds the treasury's cumulative counters. Both totals are
// monotonically non-decreasing and survive restarts.
type LedgerState struct {
	TotalInvested float64
	TotalEarned   float64
	UpdatedAt     int64 // Unix timestamp in milliseconds
}

// TreasuryStore persists the treasury ledger and the agent's scalar state
// (last deployment timestamp, generated wallet credential).
type TreasuryStore interface {
	// GetLedger returns the persisted counters. Returns ErrNotFound if never saved.
	GetLedger(ctx context.Context) (*LedgerState, error)

	// SaveLedger stores the counters, replacing any previous state.
	SaveLedger(ctx context.Context, state *LedgerState) error

	// GetLastDeployment returns the timestamp (ms) of the last accepted
	// deployment. Returns ErrNotFound if no deployment ever happened.
	GetLastDeployment(ctx context.Context) (int64, error)

	// SetLastDeployment stores the last accepted deployment timestamp (ms).
	SetLastDeployment(ctx context.Context, ts int64) error

	// GetWalletKey returns the persisted wallet credential.
	// Returns ErrNotFound if none was stored.
	GetWalletKey(ctx context.Context) (string, error)

	// SetWalletKey stores the wallet credential.
	SetWalletKey(ctx context.Context, encoded string) error
}

// HarvestEventStore is the append-only log of confirmed fee collections.
type HarvestEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.HarvestEvent) error

	// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.HarvestEvent) error

	// GetByMint retrieves all events for a mint, ordered by harvested_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.HarvestEvent, error)

	// TotalByMint returns the summed harvested amount for a mint.
	TotalByMint(ctx context.Context, mint string) (float64, error)
}

// PerformanceStore keeps the rolling strategy-review history.
type PerformanceStore interface {
	// Append adds a record to the history.
	Append(ctx context.Context, r *domain.PerformanceRecord) error

	// GetRecent returns up to limit records, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.PerformanceRecord, error)

	// Prune removes all but the newest keep records.
	Prune(ctx context.Context, keep int) error
}
