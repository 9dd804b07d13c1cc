package ledger

import (
	"context"
	"testing"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/storage"
	"github.com/tolelom/latticenode/store"
)

// workFor brute-forces valid proof-of-work for root under the stub
// thresholds, the same helper genesis construction and tests both need.
func workFor(t *testing.T, class crypto.BlockClass, root [crypto.HashSize]byte) crypto.Work {
	t.Helper()
	gen := crypto.CPUWorkGenerator{Thresholds: crypto.WorkThresholdsStub}
	w, ok := gen.Generate(class, root, 50_000_000)
	if !ok {
		t.Fatal("failed to find valid work for test block")
	}
	return w
}

func newTestLedger(t *testing.T) (*Ledger, core.LedgerConstants, crypto.PrivateKey) {
	t.Helper()
	st := storage.NewMemStore()
	constants, genesisPriv := core.DevConstants()
	lg := New(st, constants, Config{RollbackMaxBlocks: 1000}, events.NewEmitter())

	_, status, err := lg.Process(context.Background(), store.WriterBootstrap, constants.GenesisBlock)
	if err != nil {
		t.Fatalf("process genesis: %v", err)
	}
	if status != core.StatusProgress {
		t.Fatalf("genesis rejected: %s", status)
	}
	return lg, constants, genesisPriv
}

func stateBlock(t *testing.T, priv crypto.PrivateKey, account crypto.Account, previous core.Hash, representative crypto.Account, balance core.Balance, link core.Hash) *core.Block {
	t.Helper()
	b := &core.Block{
		Type:           core.BlockState,
		Account:        account,
		Previous:       previous,
		Representative: representative,
		Balance:        balance,
		Link:           link,
	}
	var root [crypto.HashSize]byte
	if previous.IsZero() {
		root = [crypto.HashSize]byte(core.HashFromAccount(account))
	} else {
		root = [crypto.HashSize]byte(previous)
	}
	b.Work = workFor(t, crypto.ClassSendOrReceive, root)
	b.Sign(priv)
	return b
}

func TestLedgerGenesisThenSend(t *testing.T) {
	lg, constants, genesisPriv := newTestLedger(t)

	dest := crypto.Account{}
	dest[0] = 1

	genesisBalance := constants.GenesisBlock.Balance
	sendAmount := core.BalanceFromUint64(1000)
	remaining, err := genesisBalance.Sub(sendAmount)
	if err != nil {
		t.Fatal(err)
	}

	send := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, remaining, core.HashFromAccount(dest))

	ins, status, err := lg.Process(context.Background(), store.WriterProcessor, send)
	if err != nil {
		t.Fatalf("process send: %v", err)
	}
	if status != core.StatusProgress {
		t.Fatalf("send rejected: %s", status)
	}
	if ins.SetAccountInfo.Balance != remaining {
		t.Errorf("account balance after send: got %s want %s", ins.SetAccountInfo.Balance, remaining)
	}

	read := lg.Store.NewRead()
	defer read.Discard()
	pendingInfo, ok, err := read.GetPending(core.PendingKey{Destination: dest, SourceHash: send.ComputeHash()})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("send should create a pending entry for the destination")
	}
	if pendingInfo.Amount != sendAmount {
		t.Errorf("pending amount: got %s want %s", pendingInfo.Amount, sendAmount)
	}
}

func TestLedgerOpenThenReceive(t *testing.T) {
	lg, constants, genesisPriv := newTestLedger(t)

	destPriv, destPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	dest := destPub.Account()

	sendAmount := core.BalanceFromUint64(500)
	remaining, err := constants.GenesisBlock.Balance.Sub(sendAmount)
	if err != nil {
		t.Fatal(err)
	}
	send := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, remaining, core.HashFromAccount(dest))
	if _, status, err := lg.Process(context.Background(), store.WriterProcessor, send); err != nil || status != core.StatusProgress {
		t.Fatalf("process send: status=%s err=%v", status, err)
	}

	open := stateBlock(t, destPriv, dest, core.ZeroHash, dest, sendAmount, core.Hash(send.ComputeHash()))
	ins, status, err := lg.Process(context.Background(), store.WriterProcessor, open)
	if err != nil {
		t.Fatalf("process open: %v", err)
	}
	if status != core.StatusProgress {
		t.Fatalf("open rejected: %s", status)
	}
	if ins.SetAccountInfo.Balance != sendAmount {
		t.Errorf("opened account balance: got %s want %s", ins.SetAccountInfo.Balance, sendAmount)
	}

	read := lg.Store.NewRead()
	defer read.Discard()
	_, stillPending, err := read.GetPending(core.PendingKey{Destination: dest, SourceHash: send.ComputeHash()})
	if err != nil {
		t.Fatal(err)
	}
	if stillPending {
		t.Error("pending entry should be consumed once received")
	}

	info, ok, err := read.GetAccount(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !info.IsOpen() {
		t.Fatal("destination account should be open after receiving")
	}
}

func TestLedgerRejectsForkedSecondBlockAtSameHeight(t *testing.T) {
	lg, constants, genesisPriv := newTestLedger(t)

	dest := crypto.Account{}
	dest[0] = 9
	balanceA, _ := constants.GenesisBlock.Balance.Sub(core.BalanceFromUint64(1))
	first := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, balanceA, core.HashFromAccount(dest))
	if _, status, err := lg.Process(context.Background(), store.WriterProcessor, first); err != nil || status != core.StatusProgress {
		t.Fatalf("process first: status=%s err=%v", status, err)
	}

	balanceB, _ := constants.GenesisBlock.Balance.Sub(core.BalanceFromUint64(2))
	fork := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, balanceB, core.HashFromAccount(dest))

	_, status, err := lg.Process(context.Background(), store.WriterProcessor, fork)
	if err != nil {
		t.Fatal(err)
	}
	if status != core.StatusFork {
		t.Errorf("expected fork rejection, got %s", status)
	}
}

func TestLedgerRejectsReplayOfAlreadyProcessedBlock(t *testing.T) {
	lg, constants, genesisPriv := newTestLedger(t)

	dest := crypto.Account{}
	dest[0] = 3
	balance, _ := constants.GenesisBlock.Balance.Sub(core.BalanceFromUint64(10))
	send := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, balance, core.HashFromAccount(dest))

	if _, status, err := lg.Process(context.Background(), store.WriterProcessor, send); err != nil || status != core.StatusProgress {
		t.Fatalf("first process: status=%s err=%v", status, err)
	}
	_, status, err := lg.Process(context.Background(), store.WriterProcessor, send)
	if err != nil {
		t.Fatal(err)
	}
	if status != core.StatusOld {
		t.Errorf("expected old-block rejection on replay, got %s", status)
	}
}

func TestLedgerRollbackUndoesSend(t *testing.T) {
	lg, constants, genesisPriv := newTestLedger(t)

	dest := crypto.Account{}
	dest[0] = 7
	sendAmount := core.BalanceFromUint64(25)
	remaining, _ := constants.GenesisBlock.Balance.Sub(sendAmount)
	send := stateBlock(t, genesisPriv, constants.GenesisAccount, constants.GenesisBlock.ComputeHash(),
		constants.GenesisAccount, remaining, core.HashFromAccount(dest))
	if _, status, err := lg.Process(context.Background(), store.WriterProcessor, send); err != nil || status != core.StatusProgress {
		t.Fatalf("process send: status=%s err=%v", status, err)
	}

	rbStatus, err := lg.Rollback(context.Background(), send.ComputeHash())
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if rbStatus != core.RollbackOK {
		t.Fatalf("rollback refused: %s", rbStatus)
	}

	read := lg.Store.NewRead()
	defer read.Discard()
	info, ok, err := read.GetAccount(constants.GenesisAccount)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("genesis account should still exist after rolling back the send")
	}
	if info.Head != constants.GenesisBlock.ComputeHash() {
		t.Errorf("head after rollback: got %s want genesis hash", info.Head)
	}
	if info.Balance != constants.GenesisBlock.Balance {
		t.Errorf("balance after rollback: got %s want %s", info.Balance, constants.GenesisBlock.Balance)
	}

	exists, err := read.BlockExists(send.ComputeHash())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("rolled-back block should no longer exist")
	}
}

func TestLedgerRollbackRefusesBelowCementedHeight(t *testing.T) {
	lg, constants, _ := newTestLedger(t)

	write, err := lg.Store.NewWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := write.PutConfirmationHeight(constants.GenesisAccount, core.ConfirmationHeightInfo{
		Height:   1,
		Frontier: constants.GenesisBlock.ComputeHash(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := write.Commit(); err != nil {
		t.Fatal(err)
	}

	status, err := lg.Rollback(context.Background(), constants.GenesisBlock.ComputeHash())
	if err != nil {
		t.Fatal(err)
	}
	if status != core.RollbackBelowHeight {
		t.Errorf("rolling back a cemented block should refuse as below-height, got %s", status)
	}
}
