// Package store defines the durable key-value contract the ledger is built
// on: named tables, a point-in-time read transaction, and an atomic write
// transaction (spec §2 "Store", §6 "Store layout").
package store

import (
	"errors"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
)

// ErrNotFound is returned when a requested key is absent from its table.
var ErrNotFound = errors.New("store: not found")

// Writer tags identify who is asking for a write transaction, letting
// WriteQueue arbitrate fairly across them without the store itself knowing
// anything about callers (spec §4.6).
type Writer string

const (
	WriterProcessor    Writer = "processor"
	WriterRollback     Writer = "rollback"
	WriterCementation  Writer = "cementation"
	WriterOnlineWeight Writer = "online_weight"
	WriterWallet       Writer = "wallet"
	WriterBootstrap    Writer = "bootstrap"
	WriterPruning      Writer = "pruning"
)

// Tables is the set of accessors shared by ReadTxn and WriteTxn; a WriteTxn
// embeds Tables to read back its own uncommitted writes.
type Tables interface {
	// accounts
	GetAccount(a crypto.Account) (core.AccountInfo, bool, error)

	// blocks
	GetBlock(h core.Hash) (*core.Block, error)
	BlockExists(h core.Hash) (bool, error)
	// AccountOf returns the account that owns the block at h, read from the
	// owner index PutBlock writes alongside every block body.
	AccountOf(h core.Hash) (crypto.Account, bool, error)

	// pending
	GetPending(key core.PendingKey) (core.PendingInfo, bool, error)
	// GetConsumedBy returns the hash of the block that consumed the pending
	// entry originally created by the send/state-send at sourceHash, plus
	// the PendingInfo it consumed (kept around after deletion specifically
	// so RollbackPerformer can restore it without re-deriving amounts from
	// upstream blocks; spec §4.3's cross-account rollback cascade).
	GetConsumedBy(sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error)

	// frontiers: head hash -> owning account, maintained only for legacy
	// head-recorded blocks (spec §3 "Frontier table").
	GetFrontier(h core.Hash) (crypto.Account, bool, error)

	// confirmation_height
	GetConfirmationHeight(a crypto.Account) (core.ConfirmationHeightInfo, bool, error)

	// pruned
	IsPruned(h core.Hash) (bool, error)

	// meta
	SchemaVersion() (int, error)

	// AllAccounts calls fn once per entry in the accounts table, in
	// unspecified order. Used to rebuild in-memory aggregates (rep weights,
	// account/block counts) that don't themselves survive a restart (spec
	// §4.8). fn's error aborts the iteration and is returned as-is.
	AllAccounts(fn func(crypto.Account, core.AccountInfo) error) error

	// AllConfirmationHeights calls fn once per entry in the
	// confirmation_height table, in unspecified order. Used alongside
	// AllAccounts to rebuild the cemented-block counter on restart.
	AllConfirmationHeights(fn func(crypto.Account, core.ConfirmationHeightInfo) error) error
}

// ReadTxn is a consistent point-in-time snapshot of the store. Readers never
// block writers and never block each other (spec §5).
type ReadTxn interface {
	Tables
	// Discard releases the snapshot. Safe to call multiple times.
	Discard()
}

// WriteTxn is the single exclusive write transaction type. All mutations in
// a WriteTxn apply atomically on Commit, or not at all on Discard (spec
// §4.2 "Atomicity").
type WriteTxn interface {
	Tables

	// PutBlock stores the block body and its owner index (the account
	// whose chain it belongs to), so AccountOf can answer for every block
	// type including legacy variants that don't carry Account on the wire.
	PutBlock(h core.Hash, owner crypto.Account, b *core.Block) error
	DeleteBlock(h core.Hash) error

	PutAccount(a crypto.Account, info core.AccountInfo) error
	DeleteAccount(a crypto.Account) error

	PutPending(key core.PendingKey, info core.PendingInfo) error
	DeletePending(key core.PendingKey) error

	// PutConsumedBy/DeleteConsumedBy maintain the consumedBy index alongside
	// PutPending/DeletePending; Inserter writes one whenever Instructions
	// consumes a pending, RollbackPerformer clears it on undo.
	PutConsumedBy(sourceHash core.Hash, consumer core.Hash, info core.PendingInfo) error
	DeleteConsumedBy(sourceHash core.Hash) error

	PutFrontier(h core.Hash, a crypto.Account) error
	DeleteFrontier(h core.Hash) error

	PutConfirmationHeight(a crypto.Account, info core.ConfirmationHeightInfo) error

	PutPruned(h core.Hash) error
	DeletePruned(h core.Hash) error

	// Commit applies every buffered mutation atomically. The caller must
	// still hold the WriteQueue guard when calling Commit.
	Commit() error
	// Discard abandons every buffered mutation. Safe after Commit (no-op).
	Discard()
}

// Store is the durable backing for the whole ledger. Implementations must
// guarantee: a ReadTxn never observes a WriteTxn's buffered-but-uncommitted
// mutations, and at most one WriteTxn is open at a time (the ledger enforces
// the latter via WriteQueue; Store implementations may additionally assert
// it).
type Store interface {
	NewRead() ReadTxn
	NewWrite() (WriteTxn, error)
	Close() error
}
