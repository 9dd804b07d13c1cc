package storage

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// reader is the minimal read surface both a Snapshot and a levelWriteTxn's
// buffer-over-DB view satisfy, letting table decode logic be written once
// and shared by ReadTxn and WriteTxn implementations.
type reader interface {
	Get(key []byte) ([]byte, error)
	NewIterator(prefix []byte) Iterator
}

func getAccount(r reader, a crypto.Account) (core.AccountInfo, bool, error) {
	data, err := r.Get(accountKey(a))
	if err == store.ErrNotFound {
		return core.AccountInfo{}, false, nil
	}
	if err != nil {
		return core.AccountInfo{}, false, err
	}
	info, err := decodeAccountInfo(data)
	if err != nil {
		return core.AccountInfo{}, false, err
	}
	return info, true, nil
}

func getBlock(r reader, h core.Hash) (*core.Block, error) {
	data, err := r.Get(blockKey(h))
	if err == store.ErrNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStoredBlock(data)
}

func blockExists(r reader, h core.Hash) (bool, error) {
	_, err := r.Get(blockKey(h))
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func accountOf(r reader, h core.Hash) (crypto.Account, bool, error) {
	data, err := r.Get(ownerKey(h))
	if err == store.ErrNotFound {
		return crypto.Account{}, false, nil
	}
	if err != nil {
		return crypto.Account{}, false, err
	}
	a, decErr := crypto.AccountFromBytes(data)
	if decErr != nil {
		return crypto.Account{}, false, decErr
	}
	return a, true, nil
}

func getPending(r reader, key core.PendingKey) (core.PendingInfo, bool, error) {
	data, err := r.Get(pendingKey(key))
	if err == store.ErrNotFound {
		return core.PendingInfo{}, false, nil
	}
	if err != nil {
		return core.PendingInfo{}, false, err
	}
	info, err := decodePendingInfo(data)
	if err != nil {
		return core.PendingInfo{}, false, err
	}
	return info, true, nil
}

func getConsumedBy(r reader, sourceHash core.Hash) (core.Hash, core.PendingInfo, bool, error) {
	data, err := r.Get(consumedByKey(sourceHash))
	if err == store.ErrNotFound {
		return core.Hash{}, core.PendingInfo{}, false, nil
	}
	if err != nil {
		return core.Hash{}, core.PendingInfo{}, false, err
	}
	consumer, info, decErr := decodeConsumedBy(data)
	if decErr != nil {
		return core.Hash{}, core.PendingInfo{}, false, decErr
	}
	return consumer, info, true, nil
}

func getFrontier(r reader, h core.Hash) (crypto.Account, bool, error) {
	data, err := r.Get(frontierKey(h))
	if err == store.ErrNotFound {
		return crypto.Account{}, false, nil
	}
	if err != nil {
		return crypto.Account{}, false, err
	}
	a, decErr := crypto.AccountFromBytes(data)
	if decErr != nil {
		return crypto.Account{}, false, decErr
	}
	return a, true, nil
}

func getConfirmationHeight(r reader, a crypto.Account) (core.ConfirmationHeightInfo, bool, error) {
	data, err := r.Get(confHeightKey(a))
	if err == store.ErrNotFound {
		return core.ConfirmationHeightInfo{}, false, nil
	}
	if err != nil {
		return core.ConfirmationHeightInfo{}, false, err
	}
	info, err := decodeConfirmationHeight(data)
	if err != nil {
		return core.ConfirmationHeightInfo{}, false, err
	}
	return info, true, nil
}

func isPruned(r reader, h core.Hash) (bool, error) {
	_, err := r.Get(prunedKey(h))
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// allAccounts walks every key under the accounts prefix, decoding each into
// an (account, AccountInfo) pair for fn. Used to rebuild RepWeights/Cache
// from a durable store at startup (spec §4.8).
func allAccounts(r reader, fn func(crypto.Account, core.AccountInfo) error) error {
	it := r.NewIterator([]byte{prefixAccount})
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 1+crypto.HashSize {
			continue
		}
		var a crypto.Account
		copy(a[:], key[1:])
		info, err := decodeAccountInfo(it.Value())
		if err != nil {
			return err
		}
		if err := fn(a, info); err != nil {
			return err
		}
	}
	return it.Error()
}

// allConfirmationHeights walks every key under the confirmation_height
// prefix, decoding each into an (account, ConfirmationHeightInfo) pair for
// fn.
func allConfirmationHeights(r reader, fn func(crypto.Account, core.ConfirmationHeightInfo) error) error {
	it := r.NewIterator([]byte{prefixConfHeight})
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 1+crypto.HashSize {
			continue
		}
		var a crypto.Account
		copy(a[:], key[1:])
		info, err := decodeConfirmationHeight(it.Value())
		if err != nil {
			return err
		}
		if err := fn(a, info); err != nil {
			return err
		}
	}
	return it.Error()
}

func schemaVersion(r reader) (int, error) {
	data, err := r.Get(metaKey(metaSchemaVersionKey))
	if err == store.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, errValueSize("meta", 4, len(data))
	}
	return int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3]), nil
}
