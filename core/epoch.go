package core

import "github.com/tolelom/latticenode/crypto"

// Epoch numbers the successive epoch upgrades an account's chain has
// adopted. Strictly non-decreasing per account (spec §3, Glossary "Epoch
// block").
type Epoch uint32

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
)

// EpochSigner identifies the well-known account whose signature legitimises
// an epoch block for a given epoch (spec §4.1 rule 7).
type EpochSigner struct {
	Epoch   Epoch
	Account crypto.Account
	Link    Hash
}

// LedgerConstants bundles the genesis and epoch parameters a Ledger is
// constructed with, replacing any compiled-in singleton (spec §9).
type LedgerConstants struct {
	GenesisAccount crypto.Account
	GenesisBlock   *Block
	BurnAccount    crypto.Account
	EpochSigners   []EpochSigner
	Work           crypto.WorkThresholds
}

// EpochForLink returns the epoch an epoch-block link corresponds to and the
// signer allowed to produce it, or ok=false if link is not a recognised
// epoch magic.
func (c LedgerConstants) EpochForLink(link Hash) (EpochSigner, bool) {
	for _, s := range c.EpochSigners {
		if s.Link == link {
			return s, true
		}
	}
	return EpochSigner{}, false
}

// IsEpochLink reports whether link matches one of c's configured epoch
// magics.
func (c LedgerConstants) IsEpochLink(link Hash) bool {
	_, ok := c.EpochForLink(link)
	return ok
}
