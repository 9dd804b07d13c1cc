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

func workForRoot(t *testing.T, root core.Hash) crypto.Work {
	t.Helper()
	gen := crypto.CPUWorkGenerator{Thresholds: crypto.WorkThresholdsStub}
	w, ok := gen.Generate(crypto.ClassSendOrReceive, [crypto.HashSize]byte(root), 50_000_000)
	if !ok {
		t.Fatal("failed to find valid work for test block")
	}
	return w
}

func newTestProcessor(t *testing.T) (*BlockProcessor, *ledger.Ledger, core.LedgerConstants, crypto.PrivateKey) {
	t.Helper()
	st := storage.NewMemStore()
	constants, genesisPriv := core.DevConstants()
	lg := ledger.New(st, constants, ledger.Config{RollbackMaxBlocks: 1000}, events.NewEmitter())

	_, status, err := lg.Process(context.Background(), store.WriterBootstrap, constants.GenesisBlock)
	if err != nil || status != core.StatusProgress {
		t.Fatalf("process genesis: status=%s err=%v", status, err)
	}

	confirming := NewConfirmingSet(st, lg.Queue, lg.Emitter, 1000)
	p := NewBlockProcessor(lg, confirming, Config{QueueCapacity: 64, BatchSize: 8, UncheckedCap: 64})
	return p, lg, constants, genesisPriv
}

func TestBlockProcessorAcceptsQueuedBlock(t *testing.T) {
	p, _, constants, genesisPriv := newTestProcessor(t)
	ctx := context.Background()

	dest := crypto.Account{}
	dest[0] = 1
	sendAmount := core.BalanceFromUint64(10)
	remaining, err := constants.GenesisBlock.Balance.Sub(sendAmount)
	if err != nil {
		t.Fatal(err)
	}
	send := &core.Block{
		Type:           core.BlockState,
		Account:        constants.GenesisAccount,
		Previous:       constants.GenesisBlock.ComputeHash(),
		Representative: constants.GenesisAccount,
		Balance:        remaining,
		Link:           core.HashFromAccount(dest),
	}
	send.Work = workForRoot(t, send.Previous)
	send.Sign(genesisPriv)

	if status := p.Add(send, SourceLive); status != core.QueueOK {
		t.Fatalf("Add: %s", status)
	}
	if !p.drainBatch(ctx) {
		t.Fatal("drainBatch should have processed the queued send")
	}

	read := p.ledger.Store.NewRead()
	defer read.Discard()
	exists, err := read.BlockExists(send.ComputeHash())
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("send block should have committed")
	}
}

func TestBlockProcessorStagesAndPromotesGapDependency(t *testing.T) {
	p, _, constants, genesisPriv := newTestProcessor(t)
	ctx := context.Background()

	destPriv, destPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	dest := destPub.Account()

	sendAmount := core.BalanceFromUint64(50)
	remaining, err := constants.GenesisBlock.Balance.Sub(sendAmount)
	if err != nil {
		t.Fatal(err)
	}
	send := &core.Block{
		Type:           core.BlockState,
		Account:        constants.GenesisAccount,
		Previous:       constants.GenesisBlock.ComputeHash(),
		Representative: constants.GenesisAccount,
		Balance:        remaining,
		Link:           core.HashFromAccount(dest),
	}
	send.Work = workForRoot(t, send.Previous)
	send.Sign(genesisPriv)

	open := &core.Block{
		Type:           core.BlockState,
		Account:        dest,
		Previous:       core.ZeroHash,
		Representative: dest,
		Balance:        sendAmount,
		Link:           send.ComputeHash(),
	}
	open.Work = workForRoot(t, core.HashFromAccount(dest))
	open.Sign(destPriv)

	// Enqueue the dependent open block before its send exists: it must
	// stage on the gap rather than being dropped.
	if status := p.Add(open, SourceLive); status != core.QueueOK {
		t.Fatalf("Add open: %s", status)
	}
	if !p.drainBatch(ctx) {
		t.Fatal("drainBatch should have attempted the open block")
	}
	if p.unchecked.Len() != 1 {
		t.Fatalf("open block should be staged on its gap, unchecked.Len() = %d", p.unchecked.Len())
	}

	read := p.ledger.Store.NewRead()
	exists, err := read.BlockExists(open.ComputeHash())
	read.Discard()
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("gapped open block should not have committed yet")
	}

	// Now the send arrives; committing it should release and requeue the
	// staged open block, which the next drain promotes.
	if status := p.Add(send, SourceLive); status != core.QueueOK {
		t.Fatalf("Add send: %s", status)
	}
	if !p.drainBatch(ctx) {
		t.Fatal("drainBatch should have processed the send")
	}
	if p.unchecked.Len() != 0 {
		t.Errorf("unchecked map should be drained after the send committed, got %d", p.unchecked.Len())
	}

	if !p.drainBatch(ctx) {
		t.Fatal("drainBatch should have promoted the requeued open block")
	}

	read = p.ledger.Store.NewRead()
	defer read.Discard()
	exists, err = read.BlockExists(open.ComputeHash())
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("open block should have committed once its gap resolved")
	}
}
