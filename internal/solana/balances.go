package solana

import (
	"context"
	"fmt"
)

// USDCMint is the mainnet USDC mint address.
const USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// BalanceClient reports wallet balances over an RPCClient. It satisfies
// the treasury's BalanceSource interface.
type BalanceClient struct {
	rpc        RPCClient
	stableMint string
}

// NewBalanceClient creates a BalanceClient. stableMint defaults to USDC.
func NewBalanceClient(rpc RPCClient, stableMint string) *BalanceClient {
	if stableMint == "" {
		stableMint = USDCMint
	}
	return &BalanceClient{rpc: rpc, stableMint: stableMint}
}

// NativeBalance returns the SOL balance of the address.
func (b *BalanceClient) NativeBalance(ctx context.Context, address string) (float64, error) {
	lamports, err := b.rpc.GetBalance(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("get balance for %s: %w", address, err)
	}
	return float64(lamports) / LamportsPerSOL, nil
}

// StableBalance returns the stable-token balance of the address.
func (b *BalanceClient) StableBalance(ctx context.Context, address string) (float64, error) {
	amount, err := b.rpc.GetTokenBalance(ctx, address, b.stableMint)
	if err != nil {
		return 0, fmt.Errorf("get token balance for %s: %w", address, err)
	}
	return amount, nil
}
