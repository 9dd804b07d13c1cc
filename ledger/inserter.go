package ledger

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/store"
)

// Inserter applies a validated Instructions bundle to a write transaction
// (spec §4.2). It never decides acceptance — that's the Validator's job —
// it only carries out what Instructions already describes.
type Inserter struct {
	weights   *RepWeights
	cache     *Cache
	constants core.LedgerConstants
	emitter   *events.Emitter
}

func NewInserter(constants core.LedgerConstants, weights *RepWeights, cache *Cache, emitter *events.Emitter) *Inserter {
	return &Inserter{constants: constants, weights: weights, cache: cache, emitter: emitter}
}

// Insert applies ins to txn in the order spec §4.2 fixes: block body,
// account info, frontier, pending, rep weights, counters. The caller
// commits txn and is responsible for holding the WriteQueue guard for the
// duration of the call.
func (in *Inserter) Insert(txn store.WriteTxn, b *core.Block, ins *core.Instructions) error {
	if err := txn.PutBlock(ins.Hash, ins.Account, b); err != nil {
		return err
	}

	if err := txn.PutAccount(ins.Account, ins.SetAccountInfo); err != nil {
		return err
	}

	if isLegacyFrontierBlock(b.Type) {
		if !b.Previous.IsZero() {
			if err := txn.DeleteFrontier(b.Previous); err != nil {
				return err
			}
		}
		if err := txn.PutFrontier(ins.Hash, ins.Account); err != nil {
			return err
		}
	}

	if ins.InsertPending != nil {
		if err := txn.PutPending(ins.InsertPending.Key, ins.InsertPending.Info); err != nil {
			return err
		}
	}
	if ins.DeletePending != nil {
		if err := txn.DeletePending(*ins.DeletePending); err != nil {
			return err
		}
		// ins.DeletePending.SourceHash is the send/state-send block this
		// block consumed; record the consumer plus the exact info consumed
		// so a rollback of that sender can find and cascade into this block,
		// and restore the pending verbatim (spec §4.3).
		if err := txn.PutConsumedBy(ins.DeletePending.SourceHash, ins.Hash, ins.ConsumedPendingInfo); err != nil {
			return err
		}
	}

	for _, d := range ins.RepWeightDeltas {
		if err := in.weights.Apply(d); err != nil {
			return err
		}
	}

	if ins.SetConfirmationHeight != nil {
		if err := txn.PutConfirmationHeight(ins.Account, *ins.SetConfirmationHeight); err != nil {
			return err
		}
	}

	in.cache.addBlock(1)
	if !ins.WasOpen {
		in.cache.addAccount(1)
	}

	return nil
}

// Notify fires the block-processed observer. Must only be called after
// the write transaction holding Insert's mutations has committed (spec
// §4.2: "must not publish observer notifications ... until the transaction
// commits").
func (in *Inserter) Notify(ins *core.Instructions, status core.BlockStatus) {
	if in.emitter == nil {
		return
	}
	in.emitter.Emit(events.Event{
		Type:    events.EventBlockProcessed,
		Hash:    ins.Hash.Hex(),
		Account: ins.Account.Hex(),
		Data:    map[string]any{"status": status.String()},
	})
}

func isLegacyFrontierBlock(t core.BlockType) bool {
	switch t {
	case core.BlockSend, core.BlockReceive, core.BlockOpen, core.BlockChange:
		return true
	default:
		return false
	}
}
