package core

import "github.com/tolelom/latticenode/crypto"

// RepWeightDelta is one adjustment to a representative's live voting
// weight, applied atomically with the rest of an Instructions bundle
// (spec §4.1: "subtract old balance from old representative, add new
// balance to new representative").
type RepWeightDelta struct {
	Representative crypto.Account
	// Add is true to add Amount to the representative's tally, false to
	// subtract it.
	Add    bool
	Amount Balance
}

// PendingMutation describes a single pending-table change bundled into an
// Instructions record: at most one of Insert/Delete is meaningful per
// instance, but both can appear in the same Instructions (a block can both
// consume and create nothing, or — for a send — only create).
type PendingMutation struct {
	Key  PendingKey
	Info PendingInfo
}

// Instructions is the Validator's sole output on acceptance (spec §4.1): a
// fully-determined, side-effect-free description of every mutation the
// Inserter must apply under a single write transaction. Producing this
// without touching the store lets the Validator run against a read-only
// snapshot while the Inserter is the only component that opens a write
// transaction.
type Instructions struct {
	Hash    Hash
	Account crypto.Account

	SetAccountInfo AccountInfo

	// InsertPending is non-nil when this block creates a receivable (a
	// send); DeletePending is non-nil when it consumes one (a receive or
	// open). ConsumedPendingInfo is the info DeletePending's key resolved
	// to, carried through so the Inserter can index it under consumedBy
	// for RollbackPerformer to restore verbatim later.
	InsertPending       *PendingMutation
	DeletePending       *PendingKey
	ConsumedPendingInfo PendingInfo

	// SetConfirmationHeight is non-nil only when autoconfirm conditions
	// hold for this block (spec §4.2); in the common case cementation is
	// driven externally by ConfirmingSet, not by the Inserter.
	SetConfirmationHeight *ConfirmationHeightInfo

	RepWeightDeltas []RepWeightDelta

	// OldExistingBalance and SourceEpoch are recorded by the Validator for
	// every accepted block (spec §4.1: "Instructions record
	// {..., old_existing_balance, source_epoch}"). Neither the Inserter nor
	// the rollback path reads them.
	OldExistingBalance Balance
	SourceEpoch        Epoch

	// OldAccountInfo is the account's pre-image as the Validator read it.
	// RollbackPerformer does not read it; it rebuilds the prior AccountInfo
	// from the account's stored blocks.
	OldAccountInfo AccountInfo
	// WasOpen reports whether the account already existed prior to this
	// block; false only for an open/first-state block. The Inserter uses it
	// to count a newly opened account.
	WasOpen bool
}
