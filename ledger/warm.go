package ledger

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// warm rebuilds RepWeights and Cache's counters from the store's durable
// tables. Both are otherwise maintained only as live in-memory deltas
// (Inserter/RollbackPerformer calling Apply/addX), so on a fresh process
// opening an existing store they would silently read back zero despite
// non-zero persisted balances — violating §4.8's "rep weights are also
// persisted so counts survive restart" and the §8 invariant that
// rep_weights[R] always equals the sum of balances delegating to R. Run
// once, synchronously, whenever a Ledger is constructed.
func warm(read store.ReadTxn, weights *RepWeights, cache *Cache) error {
	tally := make(map[crypto.Account]core.Balance)
	var accountCount, blockCount uint64

	if err := read.AllAccounts(func(a crypto.Account, info core.AccountInfo) error {
		accountCount++
		blockCount += info.BlockCount
		next, err := tally[info.Representative].Add(info.Balance)
		if err != nil {
			return err
		}
		tally[info.Representative] = next
		return nil
	}); err != nil {
		return err
	}
	for rep, weight := range tally {
		weights.Set(rep, weight)
	}

	var cementedCount uint64
	if err := read.AllConfirmationHeights(func(_ crypto.Account, info core.ConfirmationHeightInfo) error {
		cementedCount += info.Height
		return nil
	}); err != nil {
		return err
	}

	cache.Restore(blockCount, accountCount, cementedCount)
	return nil
}
