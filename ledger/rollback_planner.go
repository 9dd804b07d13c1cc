package ledger

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// RollbackPlanner computes the ordered list of blocks a rollback of one
// target hash must undo (spec §4.3): the target and every descendant on its
// own account chain, plus — transitively — any block on any other account
// that consumed a pending produced by a block in that list. It is a pure
// reader: it never mutates txn.
type RollbackPlanner struct {
	maxBlocks int
}

func NewRollbackPlanner(maxBlocks int) *RollbackPlanner {
	return &RollbackPlanner{maxBlocks: maxBlocks}
}

// Plan walks the dependency graph depth-first and returns the undo list in
// dependency-reverse order: every entry already appears after whatever
// consumed a pending it produced, and after every later block on its own
// chain, so RollbackPerformer can apply the list front-to-back with no
// further reordering.
func (p *RollbackPlanner) Plan(txn store.ReadTxn, target core.Hash) ([]core.Hash, core.RollbackStatus) {
	owner, ok, err := txn.AccountOf(target)
	if err != nil || !ok {
		return nil, core.RollbackRefused
	}

	var order []core.Hash
	visited := make(map[core.Hash]bool)

	status := p.planChain(txn, owner, target, &order, visited)
	if status != core.RollbackOK {
		return nil, status
	}
	return order, core.RollbackOK
}

// planChain appends every block from account's current head back down to
// (and including) stopAt, cascading into any foreign consumer it finds
// along the way before appending the block that produced what it consumed.
func (p *RollbackPlanner) planChain(txn store.ReadTxn, account crypto.Account, stopAt core.Hash, order *[]core.Hash, visited map[core.Hash]bool) core.RollbackStatus {
	info, ok, err := txn.GetAccount(account)
	if err != nil || !ok {
		return core.RollbackDependentUnknown
	}
	confInfo, hasConf, err := txn.GetConfirmationHeight(account)
	if err != nil {
		return core.RollbackDependentUnknown
	}

	cur := info.Head
	height := info.BlockCount
	for {
		if visited[cur] {
			// Already included via an earlier cascade on this same chain;
			// nothing further down this account's chain needs revisiting.
			return core.RollbackOK
		}
		if hasConf && height <= confInfo.Height {
			return core.RollbackBelowHeight
		}
		if len(*order) >= p.maxBlocks {
			return core.RollbackRefused
		}

		b, err := txn.GetBlock(cur)
		if err != nil {
			return core.RollbackDependentUnknown
		}

		// Cascade: if this block produced a pending some other block has
		// already consumed, that consumer must be undone first.
		sourceHash := cur
		if consumer, _, hasConsumer, cerr := txn.GetConsumedBy(sourceHash); cerr == nil && hasConsumer && !visited[consumer] {
			consumerAccount, ok2, aerr := txn.AccountOf(consumer)
			if aerr != nil || !ok2 {
				return core.RollbackDependentUnknown
			}
			if status := p.planChain(txn, consumerAccount, consumer, order, visited); status != core.RollbackOK {
				return status
			}
		}

		visited[cur] = true
		*order = append(*order, cur)

		if cur == stopAt {
			return core.RollbackOK
		}
		if b.Previous.IsZero() {
			// Walked off the front of the chain without finding stopAt: it
			// isn't on this account's current chain (already rolled back,
			// or the caller passed a stale hash).
			return core.RollbackDependentUnknown
		}
		cur = b.Previous
		height--
	}
}
