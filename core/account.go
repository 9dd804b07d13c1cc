package core

import "github.com/tolelom/latticenode/crypto"

// AccountInfo is an account's authoritative state (spec §3). Invariants
// enforced by the Validator/Inserter, never by this type itself: Head hashes
// to a block whose account equals the owning account; BlockCount >= 1;
// Balance equals the head block's balance; Epoch is monotonically
// non-decreasing.
type AccountInfo struct {
	Head           Hash
	Representative crypto.Account
	OpenBlock      Hash
	Balance        Balance
	ModifiedEpoch  uint64
	BlockCount     uint64
	Epoch          Epoch
}

// IsOpen reports whether the account has ever been opened.
func (a AccountInfo) IsOpen() bool {
	return a.BlockCount > 0
}
