// Package harvest collects accrued fee income from tracked positions.
//
// Each in-scope position has up to two independent fee streams: pool
// fees (when the position has a liquidity pool) and creator fees (from
// its launch platform's distributor). The streams are queried as a
// fan-out of independent tasks joined before aggregation, so one
// position's failure never sinks the batch and a failed stream simply
// contributes zero.
package harvest

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/idhash"
	"solana-launch-agent/internal/storage"
)

// PoolFees is the result of one liquidity-fee collection.
type PoolFees struct {
	NativeFeesSOL float64
	TokenFees     float64
	Reference     string
}

// PoolManager collects accrued liquidity-pool fees.
type PoolManager interface {
	CollectFees(ctx context.Context, poolRef string) (*PoolFees, error)
}

// CreatorFees is the result of one creator-fee detection pass.
type CreatorFees struct {
	AmountSOL  float64
	References []string
}

// CreatorFeeSource detects creator fee income for a position, using a
// detector appropriate to its deployment method.
type CreatorFeeSource interface {
	CollectCreatorFees(ctx context.Context, p *domain.Position) (*CreatorFees, error)
}

// Scope selects which positions a harvest run covers.
// The zero value means all active positions.
type Scope struct {
	Mint string // non-empty limits the run to a single position
}

// Harvester orchestrates fee collection across the position registry.
type Harvester struct {
	positions storage.PositionStore
	pools     PoolManager
	creator   CreatorFeeSource
	events    storage.HarvestEventStore
	logger    *log.Logger
}

// Options for creating a Harvester.
type Options struct {
	Positions storage.PositionStore
	Pools     PoolManager
	Creator   CreatorFeeSource
	Events    storage.HarvestEventStore // nil disables the analytical log
	Logger    *log.Logger
}

// New creates a Harvester.
func New(opts Options) *Harvester {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Harvester{
		positions: opts.Positions,
		pools:     opts.Pools,
		creator:   opts.Creator,
		events:    opts.Events,
		logger:    logger,
	}
}

// positionOutcome is the join result of one position's fan-out task.
type positionOutcome struct {
	breakdown domain.PositionHarvest
	events    []*domain.HarvestEvent
}

// Harvest queries both fee streams for every in-scope position and
// aggregates the results. Failures are isolated per position and per
// stream. Successful amounts are added to each position's cumulative
// fee total. The caller is responsible for crediting the treasury
// ledger with the returned total and for any payout split.
func (h *Harvester) Harvest(ctx context.Context, scope Scope) (*domain.HarvestResult, error) {
	positions, err := h.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	result := &domain.HarvestResult{
		HarvestedAt: time.Now().UnixMilli(),
	}
	if len(positions) == 0 {
		return result, nil
	}

	// Fan out one task per position, join before aggregating.
	outcomes := make([]positionOutcome, len(positions))
	var wg sync.WaitGroup
	for i, p := range positions {
		wg.Add(1)
		go func(i int, p *domain.Position) {
			defer wg.Done()
			outcomes[i] = h.harvestPosition(ctx, p, result.HarvestedAt)
		}(i, p)
	}
	wg.Wait()

	var events []*domain.HarvestEvent
	for _, o := range outcomes {
		b := o.breakdown
		result.Positions = append(result.Positions, b)
		result.TotalSOL += b.TotalSOL()
		result.References = append(result.References, b.References...)
		events = append(events, o.events...)

		if b.TotalSOL() > 0 {
			if err := h.positions.AddFees(ctx, b.Mint, b.TotalSOL()); err != nil {
				h.logger.Printf("[harvest] failed to update fee total for %s: %v", b.Mint, err)
			}
		}
	}

	if h.events != nil && len(events) > 0 {
		if err := h.events.InsertBulk(ctx, events); err != nil {
			// Analytical log only; the harvest result stands.
			h.logger.Printf("[harvest] failed to record %d harvest events: %v", len(events), err)
		}
	}

	return result, nil
}

// resolveScope loads the positions a run covers.
func (h *Harvester) resolveScope(ctx context.Context, scope Scope) ([]*domain.Position, error) {
	if scope.Mint != "" {
		p, err := h.positions.GetByMint(ctx, scope.Mint)
		if err != nil {
			return nil, err
		}
		return []*domain.Position{p}, nil
	}
	return h.positions.GetByStatus(ctx, domain.StatusActive)
}

// harvestPosition queries both fee streams for one position. Stream
// failures are recorded on the breakdown and contribute zero.
func (h *Harvester) harvestPosition(ctx context.Context, p *domain.Position, at int64) positionOutcome {
	o := positionOutcome{breakdown: domain.PositionHarvest{Mint: p.Mint}}
	b := &o.breakdown

	if p.Pool != nil && h.pools != nil {
		fees, err := h.pools.CollectFees(ctx, *p.Pool)
		if err != nil {
			b.PoolErr = err.Error()
			h.logger.Printf("[harvest] pool fees for %s failed: %v", p.Mint, err)
		} else {
			b.PoolFeesSOL = fees.NativeFeesSOL
			ref, confirmed := confirmedReference(fees.Reference)
			if confirmed {
				b.References = append(b.References, ref)
			}
			if fees.NativeFeesSOL > 0 {
				o.events = append(o.events, &domain.HarvestEvent{
					EventID:     idhash.ComputeHarvestEventID(p.Mint, domain.StreamPool, ref, at),
					Mint:        p.Mint,
					Stream:      domain.StreamPool,
					AmountSOL:   fees.NativeFeesSOL,
					Reference:   ref,
					HarvestedAt: at,
				})
			}
		}
	}

	if h.creator != nil {
		fees, err := h.creator.CollectCreatorFees(ctx, p)
		if err != nil {
			b.CreatorErr = err.Error()
			h.logger.Printf("[harvest] creator fees for %s failed: %v", p.Mint, err)
		} else if fees != nil && fees.AmountSOL > 0 {
			b.CreatorFeeSOL = fees.AmountSOL
			var ref string
			for _, r := range fees.References {
				confirmed, ok := confirmedReference(r)
				if ok {
					b.References = append(b.References, confirmed)
					if ref == "" {
						ref = confirmed
					}
				}
			}
			o.events = append(o.events, &domain.HarvestEvent{
				EventID:     idhash.ComputeHarvestEventID(p.Mint, domain.StreamCreator, ref, at),
				Mint:        p.Mint,
				Stream:      domain.StreamCreator,
				AmountSOL:   fees.AmountSOL,
				Reference:   ref,
				HarvestedAt: at,
			})
		}
	}

	return o
}

// confirmedReference filters out placeholder references that some
// collaborators return for pending or simulated operations.
func confirmedReference(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, prefix := range []string{"placeholder", "simulated", "pending", "unknown"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}
	return ref, true
}
