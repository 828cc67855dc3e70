package harvest

import (
	"context"
	"fmt"
	"sync"

	"solana-launch-agent/internal/domain"
	"solana-launch-agent/internal/solana"
)

// TransferDetector detects creator-fee payouts by scanning the agent
// wallet's transaction history for incoming transfers from the launch
// platform's fee distributor. Only bonding-curve launches accrue
// creator fees; other deployment methods yield zero.
//
// Each pass scans backwards from the newest signature until it reaches
// the checkpoint left by the previous pass, so a payout is only ever
// counted once per process lifetime. Persisted double-entry protection
// comes from deterministic harvest event IDs downstream.
type TransferDetector struct {
	rpc         solana.RPCClient
	wallet      string
	distributor string
	scanLimit   int

	mu          sync.Mutex
	checkpoints map[string]string // mint -> newest processed signature
}

// DetectorOptions configures a TransferDetector.
type DetectorOptions struct {
	RPC         solana.RPCClient
	Wallet      string // agent wallet receiving payouts
	Distributor string // platform fee distributor account
	ScanLimit   int    // max signatures fetched per pass, default 200
}

// NewTransferDetector creates a TransferDetector.
func NewTransferDetector(opts DetectorOptions) *TransferDetector {
	limit := opts.ScanLimit
	if limit <= 0 {
		limit = 200
	}
	return &TransferDetector{
		rpc:         opts.RPC,
		wallet:      opts.Wallet,
		distributor: opts.Distributor,
		scanLimit:   limit,
		checkpoints: make(map[string]string),
	}
}

var _ CreatorFeeSource = (*TransferDetector)(nil)

// CollectCreatorFees scans for distributor payouts attributable to the
// position and returns their total with the matched signatures.
func (d *TransferDetector) CollectCreatorFees(ctx context.Context, p *domain.Position) (*CreatorFees, error) {
	if p.Method != domain.MethodBondingCurve {
		return &CreatorFees{}, nil
	}

	d.mu.Lock()
	until := d.checkpoints[p.Mint]
	d.mu.Unlock()

	opts := &solana.SignaturesOpts{Limit: d.scanLimit}
	if until != "" {
		opts.Until = until
	}

	sigs, err := d.rpc.GetSignaturesForAddress(ctx, d.wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("scan signatures for %s: %w", d.wallet, err)
	}
	if len(sigs) == 0 {
		return &CreatorFees{}, nil
	}

	fees := &CreatorFees{}
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}

		tx, err := d.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			return nil, fmt.Errorf("fetch transaction %s: %w", sig.Signature, err)
		}
		if tx == nil || !d.isPayout(tx, p.Mint) {
			continue
		}

		delta, ok := tx.BalanceDelta(d.wallet)
		if !ok || delta <= 0 {
			continue
		}

		fees.AmountSOL += float64(delta) / solana.LamportsPerSOL
		fees.References = append(fees.References, sig.Signature)
	}

	// Newest first ordering from the RPC: sigs[0] becomes the next
	// checkpoint regardless of whether it matched.
	d.mu.Lock()
	d.checkpoints[p.Mint] = sigs[0].Signature
	d.mu.Unlock()

	return fees, nil
}

// isPayout reports whether the transaction looks like a distributor
// payout for the mint: the distributor funds it and the mint account
// is referenced, which ties the payout to the position.
func (d *TransferDetector) isPayout(tx *solana.Transaction, mint string) bool {
	if tx.Meta != nil && tx.Meta.Err != nil {
		return false
	}
	return tx.HasAccount(d.distributor) && tx.HasAccount(mint)
}
