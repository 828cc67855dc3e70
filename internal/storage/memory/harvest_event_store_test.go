package memory

import (
	"context"
	"errors"
	"testing"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/storage"
)

func testHarvestEvent(id, mint string, amount float64, at int64) *domain.HarvestEvent {
	return &domain.HarvestEvent{
		EventID:     id,
		Mint:        mint,
		Stream:      domain.StreamPool,
		AmountSOL:   amount,
		Reference:   "sig_" + id,
		HarvestedAt: at,
	}
}

func TestHarvestEventStore_InsertAndGet(t *testing.T) {
	store := NewHarvestEventStore()
	ctx := context.Background()

	e := testHarvestEvent("ev1", "mint1", 0.5, 1000)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 1 || got[0].AmountSOL != 0.5 {
		t.Errorf("Unexpected events: %+v", got)
	}
}

func TestHarvestEventStore_InsertBulkAtomic(t *testing.T) {
	store := NewHarvestEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testHarvestEvent("ev1", "mint1", 0.5, 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Batch containing an existing id must fail without inserting anything
	batch := []*domain.HarvestEvent{
		testHarvestEvent("ev2", "mint1", 0.1, 2000),
		testHarvestEvent("ev1", "mint1", 0.2, 3000),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	events, _ := store.GetByMint(ctx, "mint1")
	if len(events) != 1 {
		t.Errorf("Failed bulk insert leaked records: %d events", len(events))
	}
}

func TestHarvestEventStore_TotalByMint(t *testing.T) {
	store := NewHarvestEventStore()
	ctx := context.Background()

	batch := []*domain.HarvestEvent{
		testHarvestEvent("ev1", "mint1", 0.5, 1000),
		testHarvestEvent("ev2", "mint1", 0.25, 2000),
		testHarvestEvent("ev3", "mint2", 9.0, 3000),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	total, err := store.TotalByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("TotalByMint failed: %v", err)
	}
	if total != 0.75 {
		t.Errorf("Total: got %f, want 0.75", total)
	}

	empty, err := store.TotalByMint(ctx, "unknown")
	if err != nil {
		t.Fatalf("TotalByMint failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("Total for unknown mint: got %f, want 0", empty)
	}
}

func TestHarvestEventStore_Ordering(t *testing.T) {
	store := NewHarvestEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testHarvestEvent("late", "mint1", 0.1, 3000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testHarvestEvent("early", "mint1", 0.1, 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "early" || got[1].EventID != "late" {
		t.Errorf("Wrong order: %+v", got)
	}
}
