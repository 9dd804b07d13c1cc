package storage

import (
	"testing"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	storepkg "github.com/tolelom/latticenode/store"
)

func memTestAccount(seed byte) crypto.Account {
	var a crypto.Account
	for i := range a {
		a[i] = seed
	}
	return a
}

func memTestHash(seed byte) core.Hash {
	var h core.Hash
	for i := range h {
		h[i] = seed
	}
	return h
}

func TestMemStoreBlockAccountRoundTrip(t *testing.T) {
	st := NewMemStore()
	defer st.Close()

	account := memTestAccount(1)
	block := &core.Block{
		Type:           core.BlockState,
		Account:        account,
		Previous:       core.ZeroHash,
		Representative: account,
		Balance:        core.BalanceFromUint64(100),
		Link:           core.ZeroHash,
	}
	hash := block.ComputeHash()

	write, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write.PutBlock(hash, account, block); err != nil {
		t.Fatal(err)
	}
	info := core.AccountInfo{Head: hash, Representative: account, OpenBlock: hash, Balance: block.Balance, BlockCount: 1}
	if err := write.PutAccount(account, info); err != nil {
		t.Fatal(err)
	}
	if err := write.Commit(); err != nil {
		t.Fatal(err)
	}

	read := st.NewRead()
	defer read.Discard()

	exists, err := read.BlockExists(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("block should exist after commit")
	}

	got, err := read.GetBlock(hash)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *block {
		t.Errorf("block round trip mismatch: got %+v want %+v", got, block)
	}

	owner, ok, err := read.AccountOf(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || owner != account {
		t.Errorf("AccountOf mismatch: got %v ok=%v", owner, ok)
	}

	gotInfo, ok, err := read.GetAccount(account)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotInfo != info {
		t.Errorf("account info round trip mismatch: got %+v want %+v", gotInfo, info)
	}
}

func TestMemStoreReadSnapshotIsolatedFromLaterWrites(t *testing.T) {
	st := NewMemStore()
	defer st.Close()

	account := memTestAccount(2)
	write1, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write1.PutAccount(account, core.AccountInfo{BlockCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := write1.Commit(); err != nil {
		t.Fatal(err)
	}

	snapshot := st.NewRead()
	defer snapshot.Discard()

	write2, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write2.PutAccount(account, core.AccountInfo{BlockCount: 2}); err != nil {
		t.Fatal(err)
	}
	if err := write2.Commit(); err != nil {
		t.Fatal(err)
	}

	info, ok, err := snapshot.GetAccount(account)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || info.BlockCount != 1 {
		t.Errorf("snapshot should still see the pre-write value, got %+v", info)
	}

	fresh := st.NewRead()
	defer fresh.Discard()
	info, ok, err = fresh.GetAccount(account)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || info.BlockCount != 2 {
		t.Errorf("a fresh read should see the committed update, got %+v", info)
	}
}

func TestMemStoreDiscardAbandonsMutations(t *testing.T) {
	st := NewMemStore()
	defer st.Close()

	account := memTestAccount(3)
	write, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write.PutAccount(account, core.AccountInfo{BlockCount: 1}); err != nil {
		t.Fatal(err)
	}
	write.Discard()

	read := st.NewRead()
	defer read.Discard()
	_, ok, err := read.GetAccount(account)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("discarded write should not be visible")
	}
}

func TestMemStorePendingAndConsumedByRoundTrip(t *testing.T) {
	st := NewMemStore()
	defer st.Close()

	key := core.PendingKey{Destination: memTestAccount(4), SourceHash: memTestHash(5)}
	info := core.PendingInfo{SourceAccount: memTestAccount(6), Amount: core.BalanceFromUint64(99)}

	write, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write.PutPending(key, info); err != nil {
		t.Fatal(err)
	}
	if err := write.Commit(); err != nil {
		t.Fatal(err)
	}

	read := st.NewRead()
	got, ok, err := read.GetPending(key)
	read.Discard()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != info {
		t.Errorf("pending round trip mismatch: got %+v want %+v", got, info)
	}

	consumer := memTestHash(7)
	write2, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write2.DeletePending(key); err != nil {
		t.Fatal(err)
	}
	if err := write2.PutConsumedBy(key.SourceHash, consumer, info); err != nil {
		t.Fatal(err)
	}
	if err := write2.Commit(); err != nil {
		t.Fatal(err)
	}

	read2 := st.NewRead()
	defer read2.Discard()
	_, ok, err = read2.GetPending(key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("pending entry should be gone after DeletePending")
	}
	gotConsumer, gotInfo, ok, err := read2.GetConsumedBy(key.SourceHash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotConsumer != consumer || gotInfo != info {
		t.Errorf("GetConsumedBy mismatch: consumer=%v info=%+v ok=%v", gotConsumer, gotInfo, ok)
	}
}

func TestMemStoreFrontierAndPrunedAndConfirmationHeight(t *testing.T) {
	st := NewMemStore()
	defer st.Close()

	hash := memTestHash(8)
	account := memTestAccount(9)

	write, err := st.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write.PutFrontier(hash, account); err != nil {
		t.Fatal(err)
	}
	if err := write.PutPruned(hash); err != nil {
		t.Fatal(err)
	}
	ci := core.ConfirmationHeightInfo{Height: 5, Frontier: hash}
	if err := write.PutConfirmationHeight(account, ci); err != nil {
		t.Fatal(err)
	}
	if err := write.Commit(); err != nil {
		t.Fatal(err)
	}

	read := st.NewRead()
	defer read.Discard()

	owner, ok, err := read.GetFrontier(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || owner != account {
		t.Errorf("GetFrontier mismatch: got %v ok=%v", owner, ok)
	}

	pruned, err := read.IsPruned(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !pruned {
		t.Error("hash should be marked pruned")
	}

	gotCI, ok, err := read.GetConfirmationHeight(account)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotCI != ci {
		t.Errorf("confirmation height mismatch: got %+v want %+v", gotCI, ci)
	}
}

func TestMemStoreUnknownKeysReportNotFound(t *testing.T) {
	st := NewMemStore()
	defer st.Close()
	read := st.NewRead()
	defer read.Discard()

	if _, ok, err := read.GetAccount(memTestAccount(42)); err != nil || ok {
		t.Errorf("unknown account: ok=%v err=%v", ok, err)
	}
	exists, err := read.BlockExists(memTestHash(42))
	if err != nil || exists {
		t.Errorf("unknown block: exists=%v err=%v", exists, err)
	}
	if _, err := read.GetBlock(memTestHash(42)); err != storepkg.ErrNotFound {
		t.Errorf("GetBlock on unknown hash: got err=%v want ErrNotFound", err)
	}
}

var _ storepkg.Store = (*MemStore)(nil)
