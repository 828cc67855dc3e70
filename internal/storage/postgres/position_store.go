package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if mint exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (
			mint, name, ticker, method, created_at,
			initial_supply, retained_supply, pool, fees_earned_sol, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Mint,
		p.Name,
		p.Ticker,
		string(p.Method),
		p.CreatedAt,
		p.InitialSupply,
		p.RetainedSupply,
		p.Pool,
		p.FeesEarnedSOL,
		string(p.Status),
		p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByMint retrieves a position by mint address. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) (*domain.Position, error) {
	query := `
		SELECT mint, name, ticker, method, created_at,
		       initial_supply, retained_supply, pool, fees_earned_sol, status, updated_at
		FROM positions
		WHERE mint = $1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by mint: %w", err)
	}
	return p, nil
}

// GetByStatus retrieves all positions with the given status, ordered by created_at ASC.
func (s *PositionStore) GetByStatus(ctx context.Context, status domain.PositionStatus) ([]*domain.Position, error) {
	query := `
		SELECT mint, name, ticker, method, created_at,
		       initial_supply, retained_supply, pool, fees_earned_sol, status, updated_at
		FROM positions
		WHERE status = $1
		ORDER BY created_at ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get positions by status: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetAll retrieves every position, ordered by created_at ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT mint, name, ticker, method, created_at,
		       initial_supply, retained_supply, pool, fees_earned_sol, status, updated_at
		FROM positions
		ORDER BY created_at ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// CountByStatus returns the number of positions with the given status.
func (s *PositionStore) CountByStatus(ctx context.Context, status domain.PositionStatus) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE status = $1`

	var count int
	if err := s.pool.QueryRow(ctx, query, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count positions by status: %w", err)
	}
	return count, nil
}

// UpdateStatus sets the lifecycle status. Returns ErrNotFound if mint not exists.
func (s *PositionStore) UpdateStatus(ctx context.Context, mint string, status domain.PositionStatus) error {
	query := `UPDATE positions SET status = $2, updated_at = $3 WHERE mint = $1`

	tag, err := s.pool.Exec(ctx, query, mint, string(status), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("update position status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddFees adds amount to the position's cumulative harvested fees.
func (s *PositionStore) AddFees(ctx context.Context, mint string, amountSOL float64) error {
	query := `
		UPDATE positions
		SET fees_earned_sol = fees_earned_sol + $2, updated_at = $3
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query, mint, amountSOL, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("add position fees: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var methodStr, statusStr string

	err := row.Scan(
		&p.Mint,
		&p.Name,
		&p.Ticker,
		&methodStr,
		&p.CreatedAt,
		&p.InitialSupply,
		&p.RetainedSupply,
		&p.Pool,
		&p.FeesEarnedSOL,
		&statusStr,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Method = domain.DeployMethod(methodStr)
	p.Status = domain.PositionStatus(statusStr)
	return &p, nil
}

// scanPositions scans all rows into a slice of Positions.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
