package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

// HarvestEventStore implements storage.HarvestEventStore using ClickHouse.
// ClickHouse doesn't enforce uniqueness at insert time, so duplicate
// event ids are rejected by an explicit existence check before insert.
type HarvestEventStore struct {
	conn *Conn
}

// NewHarvestEventStore creates a new HarvestEventStore.
func NewHarvestEventStore(conn *Conn) *HarvestEventStore {
	return &HarvestEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HarvestEventStore = (*HarvestEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *HarvestEventStore) Insert(ctx context.Context, e *domain.HarvestEvent) error {
	return s.InsertBulk(ctx, []*domain.HarvestEvent{e})
}

// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
func (s *HarvestEventStore) InsertBulk(ctx context.Context, events []*domain.HarvestEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, dup := seen[e.EventID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO harvest_events (
			event_id, mint, stream, amount_sol, reference, harvested_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID, e.Mint, e.Stream,
			e.AmountSOL, e.Reference, e.HarvestedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all events for a mint, ordered by harvested_at ASC.
func (s *HarvestEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.HarvestEvent, error) {
	query := `
		SELECT event_id, mint, stream, amount_sol, reference, harvested_at
		FROM harvest_events
		WHERE mint = ?
		ORDER BY harvested_at ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanHarvestEvents(rows)
}

// TotalByMint returns the summed harvested amount for a mint.
func (s *HarvestEventStore) TotalByMint(ctx context.Context, mint string) (float64, error) {
	query := `SELECT sum(amount_sol) FROM harvest_events WHERE mint = ?`

	var total float64
	if err := s.conn.QueryRow(ctx, query, mint).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum by mint: %w", err)
	}
	return total, nil
}

// exists checks if an event with the given id exists.
func (s *HarvestEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT count(*) FROM harvest_events WHERE event_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanHarvestEvents scans all rows into a slice of HarvestEvents.
func scanHarvestEvents(rows driver.Rows) ([]*domain.HarvestEvent, error) {
	var events []*domain.HarvestEvent
	for rows.Next() {
		var e domain.HarvestEvent
		err := rows.Scan(
			&e.EventID,
			&e.Mint,
			&e.Stream,
			&e.AmountSOL,
			&e.Reference,
			&e.HarvestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan harvest event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate harvest event rows: %w", err)
	}
	return events, nil
}
