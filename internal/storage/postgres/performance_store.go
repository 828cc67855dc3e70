package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// PerformanceStore implements storage.PerformanceStore using PostgreSQL.
type PerformanceStore struct {
	pool *Pool
}

// NewPerformanceStore creates a new PerformanceStore.
func NewPerformanceStore(pool *Pool) *PerformanceStore {
	return &PerformanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PerformanceStore = (*PerformanceStore)(nil)

// Append adds a record to the history.
func (s *PerformanceStore) Append(ctx context.Context, r *domain.PerformanceRecord) error {
	query := `
		INSERT INTO performance_history (
			recorded_at, sol_balance, usdc_balance, compute_credits,
			total_invested, total_earned, net_pnl, active_positions, tier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordedAt,
		r.SOLBalance,
		r.USDCBalance,
		r.ComputeCredits,
		r.TotalInvested,
		r.TotalEarned,
		r.NetPnL,
		r.ActivePositions,
		string(r.Tier),
	)
	if err != nil {
		return fmt.Errorf("append performance record: %w", err)
	}
	return nil
}

// GetRecent returns up to limit records, newest first.
func (s *PerformanceStore) GetRecent(ctx context.Context, limit int) ([]*domain.PerformanceRecord, error) {
	query := `
		SELECT recorded_at, sol_balance, usdc_balance, compute_credits,
		       total_invested, total_earned, net_pnl, active_positions, tier
		FROM performance_history
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent performance records: %w", err)
	}
	defer rows.Close()

	return scanPerformanceRecords(rows)
}

// Prune removes all but the newest keep records.
func (s *PerformanceStore) Prune(ctx context.Context, keep int) error {
	query := `
		DELETE FROM performance_history
		WHERE id NOT IN (
			SELECT id FROM performance_history
			ORDER BY recorded_at DESC, id DESC
			LIMIT $1
		)
	`

	if _, err := s.pool.Exec(ctx, query, keep); err != nil {
		return fmt.Errorf("prune performance history: %w", err)
	}
	return nil
}

func scanPerformanceRecords(rows pgx.Rows) ([]*domain.PerformanceRecord, error) {
	var records []*domain.PerformanceRecord
	for rows.Next() {
		var r domain.PerformanceRecord
		var tierStr string

		err := rows.Scan(
			&r.RecordedAt,
			&r.SOLBalance,
			&r.USDCBalance,
			&r.ComputeCredits,
			&r.TotalInvested,
			&r.TotalEarned,
			&r.NetPnL,
			&r.ActivePositions,
			&tierStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}

		r.Tier = domain.SurvivalTier(tierStr)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance rows: %w", err)
	}
	return records, nil
}
