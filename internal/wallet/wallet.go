// Package wallet manages the agent's Solana keypair.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-launch-agent/internal/storage"
)

// Keypair is an ed25519 keypair with a base58 Solana address.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromEncoded restores a keypair from a base58-encoded 64-byte secret.
func FromEncoded(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode wallet key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet key has %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	return &Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// Encoded returns the base58 encoding of the private key.
func (k *Keypair) Encoded() string {
	return base58.Encode(k.priv)
}

// Address returns the base58 public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.priv.Public().(ed25519.PublicKey))
}

// Sign signs the message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ValidAddress reports whether addr is a well-formed Solana public key:
// 32 bytes of base58 that decode to a point on the ed25519 curve.
func ValidAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// Ensure loads the persisted wallet from the store, generating and
// persisting a fresh keypair on first run. The same wallet survives
// restarts so positions and fee payouts stay attributable.
func Ensure(ctx context.Context, store storage.TreasuryStore, logger *log.Logger) (*Keypair, error) {
	if logger == nil {
		logger = log.Default()
	}

	encoded, err := store.GetWalletKey(ctx)
	if err == nil {
		kp, err := FromEncoded(encoded)
		if err != nil {
			return nil, fmt.Errorf("restore wallet: %w", err)
		}
		logger.Printf("[wallet] loaded wallet %s", kp.Address())
		return kp, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}

	kp, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := store.SetWalletKey(ctx, kp.Encoded()); err != nil {
		return nil, fmt.Errorf("persist wallet key: %w", err)
	}
	logger.Printf("[wallet] generated wallet %s", kp.Address())
	return kp, nil
}
