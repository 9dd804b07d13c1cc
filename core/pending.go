package core

import "github.com/tolelom/latticenode/crypto"

// PendingKey identifies a receivable entry: the destination account and the
// hash of the send block that created it (spec §3).
type PendingKey struct {
	Destination crypto.Account
	SourceHash  Hash
}

// PendingInfo is the value half of a receivable entry. Amount preservation
// across the whole ledger is a core invariant: sum(pending) + sum(balance)
// stays constant modulo burns (spec §8).
type PendingInfo struct {
	SourceAccount crypto.Account
	Amount        Balance
	Epoch         Epoch
}
