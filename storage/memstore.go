package storage

import (
	"strings"
	"sync"

	storepkg "github.com/tolelom/latticenode/store"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
)

// MemStore is an in-memory store.Store for tests, generalized from the
// teacher's MemDB: a single guarded map, with ReadTxn taking a deep-copied
// point-in-time view so it behaves like a real MVCC snapshot even though
// nothing is persisted to disk.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) NewRead() storepkg.ReadTxn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap[k] = cp
	}
	return &memReadTxn{snap: snap}
}

func (m *MemStore) NewWrite() (storepkg.WriteTxn, error) {
	return &memWriteTxn{
		store:   m,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}, nil
}

func (m *MemStore) Close() error { return nil }

type memSnapshotReader struct{ snap map[string][]byte }

func (r memSnapshotReader) Get(key []byte) ([]byte, error) {
	v, ok := r.snap[string(key)]
	if !ok {
		return nil, storepkg.ErrNotFound
	}
	return v, nil
}

func (r memSnapshotReader) NewIterator(prefix []byte) Iterator {
	p := string(prefix)
	var pairs []kvPair
	for k, v := range r.snap {
		if strings.HasPrefix(k, p) {
			pairs = append(pairs, kvPair{k: []byte(k), v: v})
		}
	}
	return &memIterator{pairs: pairs, idx: -1}
}

type memReadTxn struct {
	snap map[string][]byte
}

func (t *memReadTxn) Discard() {}

func (t *memReadTxn) r() memSnapshotReader { return memSnapshotReader{snap: t.snap} }

func (t *memReadTxn) GetAccount(a crypto.Account) (core.AccountInfo, bool, error) {
	return getAccount(t.r(), a)
}
func (t *memReadTxn) GetBlock(h core.Hash) (*core.Block, error) { return getBlock(t.r(), h) }
func (t *memReadTxn) BlockExists(h core.Hash) (bool, error)     { return blockExists(t.r(), h) }
func (t *memReadTxn) AccountOf(h core.Hash) (crypto.Account, bool, error) {
	return accountOf(t.r(), h)
}
func (t *memReadTxn) GetPending(key core.PendingKey) (core.PendingInfo, bool, error) {
	return getPending(t.r(), key)
}
func (t *memReadTxn) GetConsumedBy(sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error) {
	return getConsumedBy(t.r(), sourceHash)
}
func (t *memReadTxn) GetFrontier(h core.Hash) (crypto.Account, bool, error) {
	return getFrontier(t.r(), h)
}
func (t *memReadTxn) GetConfirmationHeight(a crypto.Account) (core.ConfirmationHeightInfo, bool, error) {
	return getConfirmationHeight(t.r(), a)
}
func (t *memReadTxn) IsPruned(h core.Hash) (bool, error) { return isPruned(t.r(), h) }
func (t *memReadTxn) SchemaVersion() (int, error)        { return schemaVersion(t.r()) }
func (t *memReadTxn) AllAccounts(fn func(crypto.Account, core.AccountInfo) error) error {
	return allAccounts(t.r(), fn)
}
func (t *memReadTxn) AllConfirmationHeights(fn func(crypto.Account, core.ConfirmationHeightInfo) error) error {
	return allConfirmationHeights(t.r(), fn)
}

// memWriteTxn buffers mutations over the store's live map under its lock,
// so reads-of-own-writes are correct without touching other readers'
// already-copied snapshots.
type memWriteTxn struct {
	store   *MemStore
	dirty   map[string][]byte
	deleted map[string]bool
}

type memWriteReader struct{ t *memWriteTxn }

func (r memWriteReader) Get(key []byte) ([]byte, error) {
	k := string(key)
	if r.t.deleted[k] {
		return nil, storepkg.ErrNotFound
	}
	if v, ok := r.t.dirty[k]; ok {
		return v, nil
	}
	r.t.store.mu.RLock()
	defer r.t.store.mu.RUnlock()
	v, ok := r.t.store.data[k]
	if !ok {
		return nil, storepkg.ErrNotFound
	}
	return v, nil
}

func (r memWriteReader) NewIterator(prefix []byte) Iterator {
	r.t.store.mu.RLock()
	defer r.t.store.mu.RUnlock()
	p := string(prefix)
	var pairs []kvPair
	for k, v := range r.t.store.data {
		if r.t.deleted[k] {
			continue
		}
		if strings.HasPrefix(k, p) {
			pairs = append(pairs, kvPair{k: []byte(k), v: v})
		}
	}
	for k, v := range r.t.dirty {
		if strings.HasPrefix(k, p) {
			pairs = append(pairs, kvPair{k: []byte(k), v: v})
		}
	}
	return &memIterator{pairs: pairs, idx: -1}
}

func (t *memWriteTxn) r() memWriteReader { return memWriteReader{t: t} }

func (t *memWriteTxn) GetAccount(a crypto.Account) (core.AccountInfo, bool, error) {
	return getAccount(t.r(), a)
}
func (t *memWriteTxn) GetBlock(h core.Hash) (*core.Block, error) { return getBlock(t.r(), h) }
func (t *memWriteTxn) BlockExists(h core.Hash) (bool, error)     { return blockExists(t.r(), h) }
func (t *memWriteTxn) AccountOf(h core.Hash) (crypto.Account, bool, error) {
	return accountOf(t.r(), h)
}
func (t *memWriteTxn) GetPending(key core.PendingKey) (core.PendingInfo, bool, error) {
	return getPending(t.r(), key)
}
func (t *memWriteTxn) GetConsumedBy(sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error) {
	return getConsumedBy(t.r(), sourceHash)
}
func (t *memWriteTxn) GetFrontier(h core.Hash) (crypto.Account, bool, error) {
	return getFrontier(t.r(), h)
}
func (t *memWriteTxn) GetConfirmationHeight(a crypto.Account) (core.ConfirmationHeightInfo, bool, error) {
	return getConfirmationHeight(t.r(), a)
}
func (t *memWriteTxn) IsPruned(h core.Hash) (bool, error) { return isPruned(t.r(), h) }
func (t *memWriteTxn) SchemaVersion() (int, error)        { return schemaVersion(t.r()) }
func (t *memWriteTxn) AllAccounts(fn func(crypto.Account, core.AccountInfo) error) error {
	return allAccounts(t.r(), fn)
}
func (t *memWriteTxn) AllConfirmationHeights(fn func(crypto.Account, core.ConfirmationHeightInfo) error) error {
	return allConfirmationHeights(t.r(), fn)
}

func (t *memWriteTxn) set(key, value []byte) {
	k := string(key)
	delete(t.deleted, k)
	t.dirty[k] = value
}

func (t *memWriteTxn) del(key []byte) {
	k := string(key)
	delete(t.dirty, k)
	t.deleted[k] = true
}

func (t *memWriteTxn) PutBlock(h core.Hash, owner crypto.Account, b *core.Block) error {
	data, err := encodeStoredBlock(b)
	if err != nil {
		return err
	}
	t.set(blockKey(h), data)
	t.set(ownerKey(h), owner[:])
	return nil
}

func (t *memWriteTxn) DeleteBlock(h core.Hash) error {
	t.del(blockKey(h))
	t.del(ownerKey(h))
	return nil
}

func (t *memWriteTxn) PutAccount(a crypto.Account, info core.AccountInfo) error {
	t.set(accountKey(a), encodeAccountInfo(info))
	return nil
}

func (t *memWriteTxn) DeleteAccount(a crypto.Account) error {
	t.del(accountKey(a))
	return nil
}

func (t *memWriteTxn) PutPending(key core.PendingKey, info core.PendingInfo) error {
	t.set(pendingKey(key), encodePendingInfo(info))
	return nil
}

func (t *memWriteTxn) DeletePending(key core.PendingKey) error {
	t.del(pendingKey(key))
	return nil
}

func (t *memWriteTxn) PutConsumedBy(sourceHash core.Hash, consumer core.Hash, info core.PendingInfo) error {
	t.set(consumedByKey(sourceHash), encodeConsumedBy(consumer, info))
	return nil
}

func (t *memWriteTxn) DeleteConsumedBy(sourceHash core.Hash) error {
	t.del(consumedByKey(sourceHash))
	return nil
}

func (t *memWriteTxn) PutFrontier(h core.Hash, a crypto.Account) error {
	t.set(frontierKey(h), append([]byte(nil), a[:]...))
	return nil
}

func (t *memWriteTxn) DeleteFrontier(h core.Hash) error {
	t.del(frontierKey(h))
	return nil
}

func (t *memWriteTxn) PutConfirmationHeight(a crypto.Account, info core.ConfirmationHeightInfo) error {
	t.set(confHeightKey(a), encodeConfirmationHeight(info))
	return nil
}

func (t *memWriteTxn) PutPruned(h core.Hash) error {
	t.set(prunedKey(h), []byte{1})
	return nil
}

func (t *memWriteTxn) DeletePruned(h core.Hash) error {
	t.del(prunedKey(h))
	return nil
}

func (t *memWriteTxn) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, v := range t.dirty {
		t.store.data[k] = v
	}
	for k := range t.deleted {
		delete(t.store.data, k)
	}
	t.dirty = nil
	t.deleted = nil
	return nil
}

func (t *memWriteTxn) Discard() {
	t.dirty = nil
	t.deleted = nil
}

type kvPair struct{ k, v []byte }

type memIterator struct {
	pairs []kvPair
	idx   int
}

func (it *memIterator) Next() bool    { it.idx++; return it.idx < len(it.pairs) }
func (it *memIterator) Key() []byte   { return it.pairs[it.idx].k }
func (it *memIterator) Value() []byte { return it.pairs[it.idx].v }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }
