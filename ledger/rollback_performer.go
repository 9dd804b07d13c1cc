package ledger

import (
	"fmt"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/store"
)

// RollbackPerformer applies the inverse of every block a RollbackPlanner
// selected, in the order the plan lists them (spec §4.3: "performed in
// dependency-reverse order"). Like Inserter it only carries out what a
// precomputed plan already decided; it never decides which blocks to undo.
type RollbackPerformer struct {
	weights *RepWeights
	cache   *Cache
	emitter *events.Emitter
}

func NewRollbackPerformer(weights *RepWeights, cache *Cache, emitter *events.Emitter) *RollbackPerformer {
	return &RollbackPerformer{weights: weights, cache: cache, emitter: emitter}
}

// Perform undoes every hash in plan against txn, in list order. The caller
// commits txn under the WriterRollback lease.
func (p *RollbackPerformer) Perform(txn store.WriteTxn, plan []core.Hash) error {
	for _, hash := range plan {
		if err := p.undoOne(txn, hash); err != nil {
			return fmt.Errorf("rollback %s: %w", hash.Hex(), err)
		}
	}
	return nil
}

// Notify fires one rolled-back observer event per undone hash, in the same
// order Perform applied them. Call only after the write transaction has
// committed.
func (p *RollbackPerformer) Notify(plan []core.Hash) {
	if p.emitter == nil {
		return
	}
	for _, hash := range plan {
		p.emitter.Emit(events.Event{Type: events.EventRolledBack, Hash: hash.Hex()})
	}
}

func (p *RollbackPerformer) undoOne(txn store.WriteTxn, hash core.Hash) error {
	account, ok, err := txn.AccountOf(hash)
	if err != nil || !ok {
		return fmt.Errorf("owner of %s unknown", hash.Hex())
	}
	b, err := txn.GetBlock(hash)
	if err != nil {
		return err
	}
	existing, ok, err := txn.GetAccount(account)
	if err != nil || !ok {
		return fmt.Errorf("account %s has no info to undo against", account.Hex())
	}
	if existing.Head != hash {
		return fmt.Errorf("block %s is not the current head of %s", hash.Hex(), account.Hex())
	}

	if b.Previous.IsZero() {
		return p.undoOpen(txn, b, hash, account, existing)
	}
	return p.undoChained(txn, b, hash, account, existing)
}

// undoOpen reverses an open or state-open block: the account is deleted
// entirely and the pending it consumed is restored.
func (p *RollbackPerformer) undoOpen(txn store.WriteTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) error {
	sourceHash := b.Source
	if b.Type == core.BlockState {
		sourceHash = b.Link
	}

	if _, err := p.restoreConsumedPending(txn, sourceHash, hash); err != nil {
		return err
	}

	deltas := negate(repDeltaForBalanceChange(false, crypto.Account{}, existing.Representative, core.ZeroBalance, existing.Balance))
	if err := p.weights.ApplyAll(deltas); err != nil {
		return err
	}

	if err := txn.DeleteAccount(account); err != nil {
		return err
	}
	if isLegacyFrontierBlock(b.Type) {
		if err := txn.DeleteFrontier(hash); err != nil {
			return err
		}
	}
	if err := txn.DeleteBlock(hash); err != nil {
		return err
	}

	p.cache.addBlock(-1)
	p.cache.addAccount(-1)
	return nil
}

// undoChained reverses any non-open block: account info reverts to its
// pre-image, any pending it created is deleted and any it consumed is
// restored, and the rep-weight deltas it produced are reversed.
func (p *RollbackPerformer) undoChained(txn store.WriteTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) error {
	priorRep, err := representativeAsOf(txn, b.Previous)
	if err != nil {
		return err
	}

	prior := existing
	prior.Head = b.Previous
	prior.BlockCount = existing.BlockCount - 1

	switch {
	case b.Type == core.BlockChange:
		prior.Representative = priorRep

	case b.Type == core.BlockSend:
		key := core.PendingKey{Destination: b.Destination, SourceHash: hash}
		amount, err := p.deletePendingCreatedHere(txn, key)
		if err != nil {
			return err
		}
		newBalance, err := existing.Balance.Add(amount)
		if err != nil {
			return err
		}
		prior.Balance = newBalance

	case b.Type == core.BlockReceive:
		amount, err := p.restoreConsumedPending(txn, b.Source, hash)
		if err != nil {
			return err
		}
		newBalance, err := existing.Balance.Sub(amount)
		if err != nil {
			return err
		}
		prior.Balance = newBalance

	case b.Type == core.BlockState:
		prior.Representative = priorRep
		if err := p.undoState(txn, b, hash, existing, &prior); err != nil {
			return err
		}
	}

	deltas := negate(repDeltaForBalanceChange(true, prior.Representative, existing.Representative, prior.Balance, existing.Balance))
	if err := p.weights.ApplyAll(deltas); err != nil {
		return err
	}

	if err := txn.PutAccount(account, prior); err != nil {
		return err
	}
	if isLegacyFrontierBlock(b.Type) {
		if err := txn.DeleteFrontier(hash); err != nil {
			return err
		}
		if err := txn.PutFrontier(b.Previous, account); err != nil {
			return err
		}
	}
	if err := txn.DeleteBlock(hash); err != nil {
		return err
	}

	p.cache.addBlock(-1)
	return nil
}

// undoState fills in prior.Balance (and, for an epoch block, prior.Epoch)
// for the state-block case, re-deriving whichever of send/receive/change/
// epoch this block was by comparing against its own Link field the same way
// the Validator did going forward.
func (p *RollbackPerformer) undoState(txn store.WriteTxn, b *core.Block, hash core.Hash, existing core.AccountInfo, prior *core.AccountInfo) error {
	switch {
	case b.Link.IsZero():
		// pure representative change: balance unchanged.
		prior.Balance = existing.Balance
		return nil
	default:
		consumer, info, hasConsumer, err := txn.GetConsumedBy(b.Link)
		if err == nil && hasConsumer && consumer == hash {
			// This state block was a receive: it consumed info.Amount from
			// b.Link.
			newBalance, err := existing.Balance.Sub(info.Amount)
			if err != nil {
				return err
			}
			prior.Balance = newBalance
			return p.restoreConsumedPendingDirect(txn, b.Link, hash)
		}

		// Not a recorded consumption: either an epoch block, or a send
		// whose created pending is still outstanding (or was restored by
		// an already-undone cascade).
		key := core.PendingKey{Destination: b.Link.AsAccount(), SourceHash: hash}
		if amount, ferr := p.deletePendingCreatedHere(txn, key); ferr == nil {
			newBalance, err := existing.Balance.Add(amount)
			if err != nil {
				return err
			}
			prior.Balance = newBalance
			return nil
		}

		// Epoch block: balance and representative untouched by the bump.
		prior.Balance = existing.Balance
		prior.Representative = existing.Representative
		if existing.Epoch > 0 {
			prior.Epoch = existing.Epoch - 1
		}
		return nil
	}
}

// restoreConsumedPending restores the pending entry that the block at
// consumerHash consumed from sourceHash, clearing the consumedBy index
// entry, and returns the amount it restored.
func (p *RollbackPerformer) restoreConsumedPending(txn store.WriteTxn, sourceHash core.Hash, consumerHash core.Hash) (core.Balance, error) {
	consumer, info, ok, err := txn.GetConsumedBy(sourceHash)
	if err != nil || !ok || consumer != consumerHash {
		return core.ZeroBalance, fmt.Errorf("no recorded consumption of %s by %s", sourceHash.Hex(), consumerHash.Hex())
	}
	destination, err := destinationOf(txn, consumerHash)
	if err != nil {
		return core.ZeroBalance, err
	}
	key := core.PendingKey{Destination: destination, SourceHash: sourceHash}
	if err := txn.PutPending(key, info); err != nil {
		return core.ZeroBalance, err
	}
	if err := txn.DeleteConsumedBy(sourceHash); err != nil {
		return core.ZeroBalance, err
	}
	return info.Amount, nil
}

func (p *RollbackPerformer) restoreConsumedPendingDirect(txn store.WriteTxn, sourceHash core.Hash, consumerHash core.Hash) error {
	_, err := p.restoreConsumedPending(txn, sourceHash, consumerHash)
	return err
}

// deletePendingCreatedHere removes the pending entry a send/state-send
// created at key (restored, if necessary, by an already-undone downstream
// consumer) and returns its amount.
func (p *RollbackPerformer) deletePendingCreatedHere(txn store.WriteTxn, key core.PendingKey) (core.Balance, error) {
	info, ok, err := txn.GetPending(key)
	if err != nil || !ok {
		return core.ZeroBalance, fmt.Errorf("pending %x/%x missing on rollback", key.Destination, key.SourceHash)
	}
	if err := txn.DeletePending(key); err != nil {
		return core.ZeroBalance, err
	}
	return info.Amount, nil
}

// destinationOf returns the account that owns consumerHash, i.e. the
// pending entry's Destination field.
func destinationOf(txn store.WriteTxn, consumerHash core.Hash) (crypto.Account, error) {
	account, ok, err := txn.AccountOf(consumerHash)
	if err != nil || !ok {
		return crypto.Account{}, fmt.Errorf("owner of %s unknown", consumerHash.Hex())
	}
	return account, nil
}

// representativeAsOf walks backward from hash until it reaches a block type
// that carries an explicit Representative field (open, change, or state),
// returning the representative in effect at that point in the chain. Send
// and receive blocks never change the representative, so the walk skips
// straight past them.
func representativeAsOf(txn store.ReadTxn, hash core.Hash) (crypto.Account, error) {
	for {
		b, err := txn.GetBlock(hash)
		if err != nil {
			return crypto.Account{}, err
		}
		switch b.Type {
		case core.BlockOpen, core.BlockChange, core.BlockState:
			return b.Representative, nil
		default:
			if b.Previous.IsZero() {
				return crypto.Account{}, fmt.Errorf("representativeAsOf: walked off chain at %s", hash.Hex())
			}
			hash = b.Previous
		}
	}
}
