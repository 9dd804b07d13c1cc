package core

import (
	"math/big"

	"github.com/tolelom/latticenode/crypto"
)

// maxU128 is 2^128 - 1, the initial supply held entirely by the genesis
// account (spec §8 scenario 1: "balance = 2^128-1").
func maxU128() Balance {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	b, err := BalanceFromBig(max)
	if err != nil {
		panic("core: maxU128: " + err.Error())
	}
	return b
}

// genesisWorkTries bounds the brute-force search for the genesis block's
// proof-of-work. Generous relative to the expected 1-in-256 hit rate under
// WorkThresholdsStub's send/receive tier, so it only fails if work itself is
// broken.
const genesisWorkTries = 10_000_000

// NewGenesisBlock builds, works, and signs the single state block that
// opens the genesis account with the full initial supply, representative
// set to itself (spec §8 scenario 1). work is the threshold set the
// resulting block's proof-of-work is bound to; callers that also construct
// a Ledger must pass the same thresholds via LedgerConstants.Work, or the
// block will be rejected at bootstrap for insufficient work.
func NewGenesisBlock(priv crypto.PrivateKey, work crypto.WorkThresholds) *Block {
	pub := priv.Public()
	account := pub.Account()

	b := &Block{
		Type:           BlockState,
		Account:        account,
		Previous:       ZeroHash,
		Representative: account,
		Balance:        maxU128(),
		Link:           ZeroHash,
	}
	gen := crypto.CPUWorkGenerator{Thresholds: work}
	root := [crypto.HashSize]byte(HashFromAccount(account))
	w, ok := gen.Generate(crypto.ClassSendOrReceive, root, genesisWorkTries)
	if !ok {
		panic("core: NewGenesisBlock: failed to generate proof-of-work within bound")
	}
	b.Work = w
	b.Sign(priv)
	return b
}

// DevConstants builds a LedgerConstants for tests: a throwaway genesis key
// pair, low-difficulty work thresholds, and no epoch signers configured
// (tests that exercise epoch blocks construct their own EpochSigner and
// append it). Mirrors the teacher's config/genesis.go pattern of keeping
// genesis data out of ambient package state and passed through a
// constructor instead (spec §9: "global singletons ... modelled as
// configuration passed through constructor").
func DevConstants() (LedgerConstants, crypto.PrivateKey) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		panic("core: DevConstants: " + err.Error())
	}
	genesis := NewGenesisBlock(priv, crypto.WorkThresholdsStub)
	return LedgerConstants{
		GenesisAccount: genesis.Account,
		GenesisBlock:   genesis,
		BurnAccount:    crypto.ZeroAccount,
		EpochSigners:   nil,
		Work:           crypto.WorkThresholdsStub,
	}, priv
}
