package monitor

import (
	"context"
	"fmt"
	"time"

	"solana-launch-agent/internal/solana"
)

// ChainActivity implements ActivitySource against the chain. A live
// ActivityWatcher answers cheaply when it has seen recent activity;
// otherwise the signature history for the mint is scanned, counting
// successful transactions inside the window. Transaction count stands
// in for volume: the staleness rule only distinguishes zero from
// non-zero, so the unit does not matter.
type ChainActivity struct {
	rpc       solana.RPCClient
	watcher   *solana.ActivityWatcher
	window    time.Duration
	scanLimit int
}

// NewChainActivity creates a ChainActivity. watcher may be nil.
func NewChainActivity(rpc solana.RPCClient, watcher *solana.ActivityWatcher, window time.Duration) *ChainActivity {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &ChainActivity{
		rpc:       rpc,
		watcher:   watcher,
		window:    window,
		scanLimit: 100,
	}
}

var _ ActivitySource = (*ChainActivity)(nil)

// Volume24h returns the count of successful transactions touching the
// mint inside the window.
func (a *ChainActivity) Volume24h(ctx context.Context, mint string) (float64, error) {
	cutoff := time.Now().Add(-a.window)

	if a.watcher != nil {
		if lastSeen, ok := a.watcher.LastSeen(mint); ok && lastSeen > 0 {
			if time.UnixMilli(lastSeen).After(cutoff) {
				return float64(a.watcher.EventCount(mint)), nil
			}
		}
	}

	sigs, err := a.rpc.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{Limit: a.scanLimit})
	if err != nil {
		return 0, fmt.Errorf("scan activity for %s: %w", mint, err)
	}

	count := 0
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		// Entries without a block time cannot be placed in the window.
		if sig.BlockTime == nil {
			continue
		}
		if time.Unix(*sig.BlockTime, 0).After(cutoff) {
			count++
		}
	}

	return float64(count), nil
}
