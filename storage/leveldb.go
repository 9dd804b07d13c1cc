package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/tolelom/latticenode/store"
)

// LevelDB implements DB using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, store.ErrNotFound
	}
	return val, err
}

func (l *LevelDB) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(util.BytesPrefix(prefix), nil)
}

// NewBatch returns an atomic write buffer backed by goleveldb's native
// Batch type.
func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Set(key, value []byte) { b.batch.Put(key, value) }
func (b *levelBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *levelBatch) Reset()                { b.batch.Reset() }
func (b *levelBatch) Write() error          { return b.db.Write(b.batch, nil) }

// NewSnapshot opens a consistent point-in-time view using goleveldb's native
// MVCC snapshot, the grounding for store.ReadTxn's isolation guarantee.
func (l *LevelDB) NewSnapshot() (Snapshot, error) {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("leveldb snapshot: %w", err)
	}
	return &levelSnapshot{snap: snap}, nil
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) {
	val, err := s.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, store.ErrNotFound
	}
	return val, err
}

func (s *levelSnapshot) NewIterator(prefix []byte) Iterator {
	return s.snap.NewIterator(util.BytesPrefix(prefix), nil)
}

func (s *levelSnapshot) Release() {
	s.snap.Release()
}
