package storage

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// LevelStore implements store.Store on top of a LevelDB engine. Read
// transactions are goleveldb snapshots (true MVCC: a reader opened before a
// write commits never observes it); write transactions buffer mutations
// in-memory and flush atomically through a single Batch on Commit, mirroring
// the write-buffer-then-batch pattern the teacher's StateDB used for its
// single linear chain, generalized here to the ledger's per-table schema.
type LevelStore struct {
	db *LevelDB
}

// NewLevelStore opens (or creates) a LevelDB-backed store at path.
func NewLevelStore(path string) (*LevelStore, error) {
	db, err := NewLevelDB(path)
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) NewRead() store.ReadTxn {
	snap, err := s.db.NewSnapshot()
	if err != nil {
		// A snapshot failure means the underlying engine is unusable;
		// surface it the same way a corrupt read would (spec §7:
		// "corruption ... is fatal and triggers shutdown").
		panic("storage: NewSnapshot: " + err.Error())
	}
	return &levelReadTxn{snap: snap}
}

func (s *LevelStore) NewWrite() (store.WriteTxn, error) {
	return &levelWriteTxn{
		db:      s.db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}, nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}

type levelReadTxn struct {
	snap Snapshot
}

func (t *levelReadTxn) Discard() { t.snap.Release() }

func (t *levelReadTxn) GetAccount(a crypto.Account) (core.AccountInfo, bool, error) {
	return getAccount(t.snap, a)
}
func (t *levelReadTxn) GetBlock(h core.Hash) (*core.Block, error) { return getBlock(t.snap, h) }
func (t *levelReadTxn) BlockExists(h core.Hash) (bool, error)     { return blockExists(t.snap, h) }
func (t *levelReadTxn) AccountOf(h core.Hash) (crypto.Account, bool, error) {
	return accountOf(t.snap, h)
}
func (t *levelReadTxn) GetPending(key core.PendingKey) (core.PendingInfo, bool, error) {
	return getPending(t.snap, key)
}
func (t *levelReadTxn) GetConsumedBy(sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error) {
	return getConsumedBy(t.snap, sourceHash)
}
func (t *levelReadTxn) GetFrontier(h core.Hash) (crypto.Account, bool, error) {
	return getFrontier(t.snap, h)
}
func (t *levelReadTxn) GetConfirmationHeight(a crypto.Account) (core.ConfirmationHeightInfo, bool, error) {
	return getConfirmationHeight(t.snap, a)
}
func (t *levelReadTxn) IsPruned(h core.Hash) (bool, error) { return isPruned(t.snap, h) }
func (t *levelReadTxn) SchemaVersion() (int, error)        { return schemaVersion(t.snap) }
func (t *levelReadTxn) AllAccounts(fn func(crypto.Account, core.AccountInfo) error) error {
	return allAccounts(t.snap, fn)
}
func (t *levelReadTxn) AllConfirmationHeights(fn func(crypto.Account, core.ConfirmationHeightInfo) error) error {
	return allConfirmationHeights(t.snap, fn)
}

// levelWriteTxn buffers mutations over the live DB (not a snapshot: it is
// the sole writer, so reading the live DB for keys it hasn't buffered is
// safe and always current) and flushes them as one Batch on Commit.
type levelWriteTxn struct {
	db      *LevelDB
	dirty   map[string][]byte
	deleted map[string]bool
}

// reader adapts levelWriteTxn's buffer-over-DB view to the same Snapshot
// shape the table-accessor helpers expect, so both txn kinds share decode
// logic.
type writeTxnReader struct{ t *levelWriteTxn }

func (r writeTxnReader) Get(key []byte) ([]byte, error) {
	k := string(key)
	if r.t.deleted[k] {
		return nil, store.ErrNotFound
	}
	if v, ok := r.t.dirty[k]; ok {
		return v, nil
	}
	return r.t.db.Get(key)
}

func (r writeTxnReader) NewIterator(prefix []byte) Iterator {
	// Rollback/validation never range-scans within a single write
	// transaction in this ledger's design (every lookup is by exact key:
	// account, hash, or pending key), so only point reads need buffer
	// overlay; iteration always goes straight to the underlying engine.
	return r.t.db.NewIterator(prefix)
}

func (t *levelWriteTxn) reader() writeTxnReader { return writeTxnReader{t: t} }

func (t *levelWriteTxn) GetAccount(a crypto.Account) (core.AccountInfo, bool, error) {
	return getAccount(t.reader(), a)
}
func (t *levelWriteTxn) GetBlock(h core.Hash) (*core.Block, error) { return getBlock(t.reader(), h) }
func (t *levelWriteTxn) BlockExists(h core.Hash) (bool, error)     { return blockExists(t.reader(), h) }
func (t *levelWriteTxn) AccountOf(h core.Hash) (crypto.Account, bool, error) {
	return accountOf(t.reader(), h)
}
func (t *levelWriteTxn) GetPending(key core.PendingKey) (core.PendingInfo, bool, error) {
	return getPending(t.reader(), key)
}
func (t *levelWriteTxn) GetConsumedBy(sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error) {
	return getConsumedBy(t.reader(), sourceHash)
}
func (t *levelWriteTxn) GetFrontier(h core.Hash) (crypto.Account, bool, error) {
	return getFrontier(t.reader(), h)
}
func (t *levelWriteTxn) GetConfirmationHeight(a crypto.Account) (core.ConfirmationHeightInfo, bool, error) {
	return getConfirmationHeight(t.reader(), a)
}
func (t *levelWriteTxn) IsPruned(h core.Hash) (bool, error) { return isPruned(t.reader(), h) }
func (t *levelWriteTxn) SchemaVersion() (int, error)        { return schemaVersion(t.reader()) }
func (t *levelWriteTxn) AllAccounts(fn func(crypto.Account, core.AccountInfo) error) error {
	return allAccounts(t.reader(), fn)
}
func (t *levelWriteTxn) AllConfirmationHeights(fn func(crypto.Account, core.ConfirmationHeightInfo) error) error {
	return allConfirmationHeights(t.reader(), fn)
}

func (t *levelWriteTxn) set(key []byte, value []byte) {
	k := string(key)
	delete(t.deleted, k)
	t.dirty[k] = value
}

func (t *levelWriteTxn) del(key []byte) {
	k := string(key)
	delete(t.dirty, k)
	t.deleted[k] = true
}

func (t *levelWriteTxn) PutBlock(h core.Hash, owner crypto.Account, b *core.Block) error {
	data, err := encodeStoredBlock(b)
	if err != nil {
		return err
	}
	t.set(blockKey(h), data)
	t.set(ownerKey(h), owner[:])
	return nil
}

func (t *levelWriteTxn) DeleteBlock(h core.Hash) error {
	t.del(blockKey(h))
	t.del(ownerKey(h))
	return nil
}

func (t *levelWriteTxn) PutAccount(a crypto.Account, info core.AccountInfo) error {
	t.set(accountKey(a), encodeAccountInfo(info))
	return nil
}

func (t *levelWriteTxn) DeleteAccount(a crypto.Account) error {
	t.del(accountKey(a))
	return nil
}

func (t *levelWriteTxn) PutPending(key core.PendingKey, info core.PendingInfo) error {
	t.set(pendingKey(key), encodePendingInfo(info))
	return nil
}

func (t *levelWriteTxn) DeletePending(key core.PendingKey) error {
	t.del(pendingKey(key))
	return nil
}

func (t *levelWriteTxn) PutConsumedBy(sourceHash core.Hash, consumer core.Hash, info core.PendingInfo) error {
	t.set(consumedByKey(sourceHash), encodeConsumedBy(consumer, info))
	return nil
}

func (t *levelWriteTxn) DeleteConsumedBy(sourceHash core.Hash) error {
	t.del(consumedByKey(sourceHash))
	return nil
}

func (t *levelWriteTxn) PutFrontier(h core.Hash, a crypto.Account) error {
	t.set(frontierKey(h), a[:])
	return nil
}

func (t *levelWriteTxn) DeleteFrontier(h core.Hash) error {
	t.del(frontierKey(h))
	return nil
}

func (t *levelWriteTxn) PutConfirmationHeight(a crypto.Account, info core.ConfirmationHeightInfo) error {
	t.set(confHeightKey(a), encodeConfirmationHeight(info))
	return nil
}

func (t *levelWriteTxn) PutPruned(h core.Hash) error {
	t.set(prunedKey(h), []byte{1})
	return nil
}

func (t *levelWriteTxn) DeletePruned(h core.Hash) error {
	t.del(prunedKey(h))
	return nil
}

// Commit flushes every buffered mutation atomically through a single
// goleveldb Batch (spec §4.2 "Atomicity: ... a single write transaction").
func (t *levelWriteTxn) Commit() error {
	batch := t.db.NewBatch()
	for k, v := range t.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range t.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	t.dirty = nil
	t.deleted = nil
	return nil
}

func (t *levelWriteTxn) Discard() {
	t.dirty = nil
	t.deleted = nil
}
