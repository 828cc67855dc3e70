package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the agent consumes.
type RPCClient interface {
	// GetBalance returns the lamport balance of a public key.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenBalance returns the UI amount of an SPL token held by owner.
	// Returns 0 if the owner has no token account for the mint.
	GetTokenBalance(ctx context.Context, owner, mint string) (float64, error)

	// GetTransaction retrieves a transaction by signature.
	// Returns nil if the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// LamportsPerSOL is the lamport denomination of one SOL.
const LamportsPerSOL = 1_000_000_000

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
// Pre/PostBalances are lamport balances indexed by account position.
type TransactionMeta struct {
	Err          interface{}
	LogMessages  []string
	PreBalances  []uint64
	PostBalances []uint64
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// BalanceDelta returns the lamport change of account in the transaction
// and whether the account participated.
func (t *Transaction) BalanceDelta(account string) (int64, bool) {
	if t.Meta == nil || t.Message == nil {
		return 0, false
	}
	for i, key := range t.Message.AccountKeys {
		if key != account {
			continue
		}
		if i >= len(t.Meta.PreBalances) || i >= len(t.Meta.PostBalances) {
			return 0, false
		}
		return int64(t.Meta.PostBalances[i]) - int64(t.Meta.PreBalances[i]), true
	}
	return 0, false
}

// HasAccount reports whether the transaction touches the given account.
func (t *Transaction) HasAccount(account string) bool {
	if t.Message == nil {
		return false
	}
	for _, key := range t.Message.AccountKeys {
		if key == account {
			return true
		}
	}
	return false
}
