// Package treasury maintains the agent's cumulative invested/earned
// counters and produces live treasury snapshots.
//
// The asymmetry is deliberate: snapshots always query the chain because
// balances can change for reasons outside the agent's control, while the
// attribution of changes (invested vs earned) can only be recorded at the
// moment of action and is persisted on every mutation.
package treasury

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// BalanceSource reports on-chain balances for the agent wallet.
type BalanceSource interface {
	// NativeBalance returns the SOL balance of the address.
	NativeBalance(ctx context.Context, address string) (float64, error)

	// StableBalance returns the USDC balance of the address.
	StableBalance(ctx context.Context, address string) (float64, error)
}

// CreditMeter reports the externally metered compute-credit balance.
type CreditMeter interface {
	Credits(ctx context.Context) (float64, error)
}

// Ledger is the authoritative record of invested and earned capital.
// Counters are monotonically non-decreasing; there is no rollback
// primitive, so callers must only record amounts from operations that
// already confirmed.
type Ledger struct {
	store    storage.TreasuryStore
	balances BalanceSource
	credits  CreditMeter
	address  string

	mu    sync.Mutex
	state storage.LedgerState
}

// NewLedger creates a Ledger, loading persisted counters if present.
func NewLedger(ctx context.Context, store storage.TreasuryStore, balances BalanceSource, credits CreditMeter, address string) (*Ledger, error) {
	l := &Ledger{
		store:    store,
		balances: balances,
		credits:  credits,
		address:  address,
	}

	persisted, err := store.GetLedger(ctx)
	switch {
	case err == nil:
		l.state = *persisted
	case err == storage.ErrNotFound:
		// First run, counters start at zero
	default:
		return nil, fmt.Errorf("load treasury ledger: %w", err)
	}

	return l, nil
}

// RecordSpend adds a confirmed spend to totalInvested and persists.
func (l *Ledger) RecordSpend(ctx context.Context, amountSOL float64) error {
	return l.record(ctx, amountSOL, 0)
}

// RecordEarning adds confirmed fee income to totalEarned and persists.
func (l *Ledger) RecordEarning(ctx context.Context, amountSOL float64) error {
	return l.record(ctx, 0, amountSOL)
}

func (l *Ledger) record(ctx context.Context, invested, earned float64) error {
	if invested < 0 || earned < 0 {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.TotalInvested += invested
	next.TotalEarned += earned
	next.UpdatedAt = time.Now().UnixMilli()

	if err := l.store.SaveLedger(ctx, &next); err != nil {
		return fmt.Errorf("persist treasury ledger: %w", err)
	}
	l.state = next
	return nil
}

// Totals returns the current cumulative counters.
func (l *Ledger) Totals() (invested, earned float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.TotalInvested, l.state.TotalEarned
}

// CurrentState queries the chain and the credit meter and combines the
// results with the persisted counters. Never cached beyond the call.
func (l *Ledger) CurrentState(ctx context.Context) (*domain.TreasurySnapshot, error) {
	sol, err := l.balances.NativeBalance(ctx, l.address)
	if err != nil {
		return nil, fmt.Errorf("query native balance: %w", err)
	}

	usdc, err := l.balances.StableBalance(ctx, l.address)
	if err != nil {
		return nil, fmt.Errorf("query stable balance: %w", err)
	}

	credits, err := l.credits.Credits(ctx)
	if err != nil {
		return nil, fmt.Errorf("query compute credits: %w", err)
	}

	invested, earned := l.Totals()
	return &domain.TreasurySnapshot{
		SOLBalance:     sol,
		USDCBalance:    usdc,
		ComputeCredits: credits,
		TotalInvested:  invested,
		TotalEarned:    earned,
		CapturedAt:     time.Now().UnixMilli(),
	}, nil
}
