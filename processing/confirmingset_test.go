package processing

import (
	"context"
	"testing"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/ledger"
	"github.com/tolelom/latticenode/storage"
	"github.com/tolelom/latticenode/store"
)

// buildChain processes genesis followed by n sequential sends off the
// genesis account, each paying 1 raw to a throwaway destination, and
// returns the resulting hashes oldest-first (chain[0] is genesis).
func buildChain(t *testing.T, lg *ledger.Ledger, constants core.LedgerConstants, priv crypto.PrivateKey, n int) []core.Hash {
	t.Helper()
	ctx := context.Background()
	chain := []core.Hash{constants.GenesisBlock.ComputeHash()}
	balance := constants.GenesisBlock.Balance
	prev := chain[0]
	for i := 0; i < n; i++ {
		dest := crypto.Account{}
		dest[0] = byte(i + 1)
		next, err := balance.Sub(core.BalanceFromUint64(1))
		if err != nil {
			t.Fatal(err)
		}
		b := &core.Block{
			Type:           core.BlockState,
			Account:        constants.GenesisAccount,
			Previous:       prev,
			Representative: constants.GenesisAccount,
			Balance:        next,
			Link:           core.HashFromAccount(dest),
		}
		b.Work = workForRoot(t, prev)
		b.Sign(priv)

		_, status, err := lg.Process(ctx, store.WriterProcessor, b)
		if err != nil || status != core.StatusProgress {
			t.Fatalf("process chain block %d: status=%s err=%v", i, status, err)
		}
		h := b.ComputeHash()
		chain = append(chain, h)
		prev = h
		balance = next
	}
	return chain
}

func TestConfirmingSetCementsWholeGapOnFirstCandidate(t *testing.T) {
	st := storage.NewMemStore()
	constants, genesisPriv := core.DevConstants()
	emitter := events.NewEmitter()
	lg := ledger.New(st, constants, ledger.Config{RollbackMaxBlocks: 1000}, emitter)

	ctx := context.Background()
	if _, status, err := lg.Process(ctx, store.WriterBootstrap, constants.GenesisBlock); err != nil || status != core.StatusProgress {
		t.Fatalf("process genesis: status=%s err=%v", status, err)
	}
	chain := buildChain(t, lg, constants, genesisPriv, 3)
	tip := chain[len(chain)-1]

	var cementedHashes []string
	var batches int
	emitter.Subscribe(events.EventBlockCemented, func(ev events.Event) {
		cementedHashes = append(cementedHashes, ev.Hash)
	})
	emitter.Subscribe(events.EventBatchCemented, func(ev events.Event) {
		batches++
	})

	cs := NewConfirmingSet(st, lg.Queue, emitter, 100)
	if err := cs.cementFrom(ctx, tip); err != nil {
		t.Fatalf("cementFrom: %v", err)
	}

	// Genesis opens at height 1, so cementing the 3rd send (height 4)
	// cements all 4 blocks on the chain, oldest first.
	if len(cementedHashes) != 4 {
		t.Fatalf("cemented count: got %d want 4", len(cementedHashes))
	}
	for i, h := range chain {
		if cementedHashes[i] != h.Hex() {
			t.Errorf("cemented order[%d]: got %s want %s", i, cementedHashes[i], h.Hex())
		}
	}
	if batches != 1 {
		t.Errorf("expected exactly one batch_cemented event, got %d", batches)
	}

	read := st.NewRead()
	defer read.Discard()
	info, ok, err := read.GetConfirmationHeight(constants.GenesisAccount)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || info.Height != 4 || info.Frontier != tip {
		t.Errorf("confirmation height: got %+v", info)
	}
}

func TestConfirmingSetSecondCandidateOnlyCementsNewBlocks(t *testing.T) {
	st := storage.NewMemStore()
	constants, genesisPriv := core.DevConstants()
	emitter := events.NewEmitter()
	lg := ledger.New(st, constants, ledger.Config{RollbackMaxBlocks: 1000}, emitter)

	ctx := context.Background()
	if _, status, err := lg.Process(ctx, store.WriterBootstrap, constants.GenesisBlock); err != nil || status != core.StatusProgress {
		t.Fatalf("process genesis: status=%s err=%v", status, err)
	}
	chain := buildChain(t, lg, constants, genesisPriv, 2)

	cs := NewConfirmingSet(st, lg.Queue, emitter, 100)
	if err := cs.cementFrom(ctx, chain[1]); err != nil {
		t.Fatalf("first cementFrom: %v", err)
	}

	var cementedHashes []string
	emitter.Subscribe(events.EventBlockCemented, func(ev events.Event) {
		cementedHashes = append(cementedHashes, ev.Hash)
	})

	if err := cs.cementFrom(ctx, chain[2]); err != nil {
		t.Fatalf("second cementFrom: %v", err)
	}
	if len(cementedHashes) != 1 || cementedHashes[0] != chain[2].Hex() {
		t.Errorf("second cementFrom should only cement the new tip, got %v", cementedHashes)
	}
}

func TestConfirmingSetCandidateDeduplicatesBeforeRun(t *testing.T) {
	st := storage.NewMemStore()
	cs := NewConfirmingSet(st, ledger.NewWriteQueue(), events.NewEmitter(), 10)

	h := core.Hash{}
	h[0] = 1
	cs.Candidate(h)
	cs.Candidate(h)

	hash, ok := cs.popCandidate()
	if !ok || hash != h {
		t.Fatalf("popCandidate: got %v ok=%v", hash, ok)
	}
	if _, ok := cs.popCandidate(); ok {
		t.Error("duplicate Candidate call should not have queued a second entry")
	}
}

func TestRecentlyCementedCacheEvictsOldest(t *testing.T) {
	c := NewRecentlyCementedCache(2)
	var acct [32]byte
	c.add(core.Hash{1}, acct, 1)
	c.add(core.Hash{2}, acct, 2)
	c.add(core.Hash{3}, acct, 3)

	recent := c.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("Recent: got %d want 2", len(recent))
	}
	if recent[0].Hash != (core.Hash{2}) || recent[1].Hash != (core.Hash{3}) {
		t.Errorf("Recent should keep the newest 2 entries, got %+v", recent)
	}
}
