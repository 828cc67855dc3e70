package stub

import (
	"context"
	"errors"

	"solana-launch-agent/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Balances      map[string]uint64             // pubkey -> lamports
	TokenBalances map[string]float64            // owner|mint -> UI amount
	Transactions  map[string]*solana.Transaction
	Signatures    map[string][]solana.SignatureInfo
	Slot          int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		TokenBalances: make(map[string]float64),
		Transactions:  make(map[string]*solana.Transaction),
		Signatures:    make(map[string][]solana.SignatureInfo),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetBalance returns the configured lamport balance for a pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	return c.Balances[pubkey], nil
}

// GetTokenBalance returns the configured token balance for owner and mint.
func (c *RPCClient) GetTokenBalance(_ context.Context, owner, mint string) (float64, error) {
	return c.TokenBalances[owner+"|"+mint], nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	return c.Slot, nil
}

// SetBalance sets the lamport balance for a pubkey.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.Balances[pubkey] = lamports
}

// SetTokenBalance sets the token balance for an owner and mint.
func (c *RPCClient) SetTokenBalance(owner, mint string, amount float64) {
	c.TokenBalances[owner+"|"+mint] = amount
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}
