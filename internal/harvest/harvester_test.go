package harvest

import (
	"context"
	"errors"
	"testing"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage/memory"
)

// fakePools implements PoolManager with per-pool results.
type fakePools struct {
	fees map[string]*PoolFees
	errs map[string]error
}

func (f *fakePools) CollectFees(_ context.Context, poolRef string) (*PoolFees, error) {
	if err, ok := f.errs[poolRef]; ok {
		return nil, err
	}
	if fees, ok := f.fees[poolRef]; ok {
		return fees, nil
	}
	return &PoolFees{}, nil
}

// fakeCreator implements CreatorFeeSource with per-mint results.
type fakeCreator struct {
	fees map[string]*CreatorFees
	errs map[string]error
}

func (f *fakeCreator) CollectCreatorFees(_ context.Context, p *domain.Position) (*CreatorFees, error) {
	if err, ok := f.errs[p.Mint]; ok {
		return nil, err
	}
	if fees, ok := f.fees[p.Mint]; ok {
		return fees, nil
	}
	return &CreatorFees{}, nil
}

func activePosition(mint string, withPool bool) *domain.Position {
	p := &domain.Position{
		Mint:      mint,
		Method:    domain.MethodBondingCurve,
		CreatedAt: 1704067200000,
		Status:    domain.StatusActive,
	}
	if withPool {
		pool := "pool_" + mint
		p.Pool = &pool
	}
	return p
}

func TestHarvest_AggregatesBothStreams(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()

	if err := positions.Insert(ctx, activePosition("mint1", true)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h := New(Options{
		Positions: positions,
		Pools: &fakePools{fees: map[string]*PoolFees{
			"pool_mint1": {NativeFeesSOL: 0.5, Reference: "poolsig1"},
		}},
		Creator: &fakeCreator{fees: map[string]*CreatorFees{
			"mint1": {AmountSOL: 0.2, References: []string{"creatorsig1"}},
		}},
		Events: memory.NewHarvestEventStore(),
	})

	result, err := h.Harvest(ctx, Scope{})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}

	if result.TotalSOL != 0.7 {
		t.Errorf("TotalSOL: got %f, want 0.7", result.TotalSOL)
	}
	if len(result.Positions) != 1 {
		t.Fatalf("Breakdown entries: got %d, want 1", len(result.Positions))
	}
	b := result.Positions[0]
	if b.PoolFeesSOL != 0.5 || b.CreatorFeeSOL != 0.2 {
		t.Errorf("Breakdown: %+v", b)
	}
	if len(result.References) != 2 {
		t.Errorf("References: got %v", result.References)
	}

	// Position fee total updated
	p, _ := positions.GetByMint(ctx, "mint1")
	if p.FeesEarnedSOL != 0.7 {
		t.Errorf("FeesEarnedSOL: got %f, want 0.7", p.FeesEarnedSOL)
	}
}

func TestHarvest_OneFailureDoesNotSinkBatch(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()

	for _, mint := range []string{"mint1", "mint2", "mint3"} {
		if err := positions.Insert(ctx, activePosition(mint, true)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	h := New(Options{
		Positions: positions,
		Pools: &fakePools{
			fees: map[string]*PoolFees{
				"pool_mint1": {NativeFeesSOL: 0.5, Reference: "sig1"},
				"pool_mint3": {NativeFeesSOL: 0.25, Reference: "sig3"},
			},
			errs: map[string]error{
				"pool_mint2": errors.New("pool account not found"),
			},
		},
		Creator: &fakeCreator{fees: map[string]*CreatorFees{
			"mint2": {AmountSOL: 0.1, References: []string{"csig2"}},
		}},
	})

	result, err := h.Harvest(ctx, Scope{})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}

	// mint2's pool stream failed but its creator stream survived
	if result.TotalSOL != 0.85 {
		t.Errorf("TotalSOL: got %f, want 0.85", result.TotalSOL)
	}
	if len(result.Positions) != 3 {
		t.Fatalf("All positions must appear in the breakdown, got %d", len(result.Positions))
	}

	var failed *domain.PositionHarvest
	for i := range result.Positions {
		if result.Positions[i].Mint == "mint2" {
			failed = &result.Positions[i]
		}
	}
	if failed == nil {
		t.Fatal("mint2 missing from breakdown")
	}
	if failed.PoolErr == "" {
		t.Error("Pool error not recorded")
	}
	if failed.PoolFeesSOL != 0 {
		t.Errorf("Failed stream contributed: %f", failed.PoolFeesSOL)
	}
	if failed.CreatorFeeSOL != 0.1 {
		t.Errorf("Surviving stream lost: %f", failed.CreatorFeeSOL)
	}
}

func TestHarvest_SingleScope(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()

	if err := positions.Insert(ctx, activePosition("mint1", true)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := positions.Insert(ctx, activePosition("mint2", true)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	pools := &fakePools{fees: map[string]*PoolFees{
		"pool_mint1": {NativeFeesSOL: 0.5, Reference: "sig1"},
		"pool_mint2": {NativeFeesSOL: 9.0, Reference: "sig2"},
	}}
	h := New(Options{Positions: positions, Pools: pools})

	result, err := h.Harvest(ctx, Scope{Mint: "mint1"})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if len(result.Positions) != 1 || result.Positions[0].Mint != "mint1" {
		t.Errorf("Scope not respected: %+v", result.Positions)
	}
	if result.TotalSOL != 0.5 {
		t.Errorf("TotalSOL: got %f, want 0.5", result.TotalSOL)
	}
}

func TestHarvest_SkipsTerminalPositions(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()

	dead := activePosition("mint1", true)
	dead.Status = domain.StatusDead
	if err := positions.Insert(ctx, dead); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h := New(Options{Positions: positions, Pools: &fakePools{}})

	result, err := h.Harvest(ctx, Scope{})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if len(result.Positions) != 0 {
		t.Errorf("Dead position harvested: %+v", result.Positions)
	}
}

func TestHarvest_FiltersPlaceholderReferences(t *testing.T) {
	positions := memory.NewPositionStore()
	ctx := context.Background()

	if err := positions.Insert(ctx, activePosition("mint1", true)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h := New(Options{
		Positions: positions,
		Pools: &fakePools{fees: map[string]*PoolFees{
			"pool_mint1": {NativeFeesSOL: 0.5, Reference: "simulated_fee_collection"},
		}},
		Creator: &fakeCreator{fees: map[string]*CreatorFees{
			"mint1": {AmountSOL: 0.1, References: []string{"realsig", "placeholder_1", ""}},
		}},
	})

	result, err := h.Harvest(ctx, Scope{})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}

	if len(result.References) != 1 || result.References[0] != "realsig" {
		t.Errorf("References: got %v, want [realsig]", result.References)
	}
	// Amounts still count even when the reference was a placeholder
	if result.TotalSOL != 0.6 {
		t.Errorf("TotalSOL: got %f, want 0.6", result.TotalSOL)
	}
}

func TestHarvest_RecordsEvents(t *testing.T) {
	positions := memory.NewPositionStore()
	events := memory.NewHarvestEventStore()
	ctx := context.Background()

	if err := positions.Insert(ctx, activePosition("mint1", true)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	h := New(Options{
		Positions: positions,
		Pools: &fakePools{fees: map[string]*PoolFees{
			"pool_mint1": {NativeFeesSOL: 0.5, Reference: "sig1"},
		}},
		Creator: &fakeCreator{fees: map[string]*CreatorFees{
			"mint1": {AmountSOL: 0.2, References: []string{"csig1"}},
		}},
		Events: events,
	})

	if _, err := h.Harvest(ctx, Scope{}); err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}

	logged, err := events.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(logged) != 2 {
		t.Fatalf("Expected 2 events (one per stream), got %d", len(logged))
	}

	total, _ := events.TotalByMint(ctx, "mint1")
	if total != 0.7 {
		t.Errorf("Event total: got %f, want 0.7", total)
	}
}

func TestHarvest_EmptyRegistry(t *testing.T) {
	h := New(Options{Positions: memory.NewPositionStore(), Pools: &fakePools{}})

	result, err := h.Harvest(context.Background(), Scope{})
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if result.TotalSOL != 0 || len(result.Positions) != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}
}
