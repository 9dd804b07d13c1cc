package wallet

import (
	"fmt"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
)

// Wallet holds a key pair and provides block-signing helpers. Where the
// teacher's wallet built and signed transactions against a mempool, this
// domain's atomic unit is a block on the wallet's own account chain, so
// Wallet builds and signs blocks instead.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Account returns this wallet's account identity.
func (w *Wallet) Account() crypto.Account {
	return w.pub.Account()
}

// Send builds and signs a state-block send: debits amount from balance,
// crediting it to destination as a new pending entry once the block
// commits. previous must be the wallet account's current head.
func (w *Wallet) Send(previous core.Hash, representative crypto.Account, balance core.Balance, destination crypto.Account, amount core.Balance) (*core.Block, error) {
	newBalance, err := balance.Sub(amount)
	if err != nil {
		return nil, fmt.Errorf("wallet: send: %w", err)
	}
	b := &core.Block{
		Type:           core.BlockState,
		Account:        w.Account(),
		Previous:       previous,
		Representative: representative,
		Balance:        newBalance,
		Link:           core.Hash(destination),
	}
	b.Sign(w.priv)
	return b, nil
}

// Receive builds and signs a state-block receive of a pending entry at
// sourceHash, crediting amount onto balance. Pass a zero previous to open
// the account.
func (w *Wallet) Receive(previous core.Hash, representative crypto.Account, balance core.Balance, sourceHash core.Hash, amount core.Balance) (*core.Block, error) {
	newBalance, err := balance.Add(amount)
	if err != nil {
		return nil, fmt.Errorf("wallet: receive: %w", err)
	}
	b := &core.Block{
		Type:           core.BlockState,
		Account:        w.Account(),
		Previous:       previous,
		Representative: representative,
		Balance:        newBalance,
		Link:           sourceHash,
	}
	b.Sign(w.priv)
	return b, nil
}

// Change builds and signs a state-block representative change, leaving
// balance untouched.
func (w *Wallet) Change(previous core.Hash, balance core.Balance, newRepresentative crypto.Account) *core.Block {
	b := &core.Block{
		Type:           core.BlockState,
		Account:        w.Account(),
		Previous:       previous,
		Representative: newRepresentative,
		Balance:        balance,
		Link:           core.ZeroHash,
	}
	b.Sign(w.priv)
	return b
}
