// Package ledger implements the core block-acceptance state machine:
// validation, insertion, rollback, the write lease, and the live
// representative-weight tally (spec §4).
package ledger

import "sync/atomic"

// Cache holds the in-memory counters kept consistent with the store on
// every commit (spec §2 "LedgerCache"). Using atomics rather than a mutex
// matches the teacher's preference for lock-free counters on the hot
// insertion path.
type Cache struct {
	blockCount    atomic.Uint64
	accountCount  atomic.Uint64
	cementedCount atomic.Uint64
	prunedCount   atomic.Uint64
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) BlockCount() uint64    { return c.blockCount.Load() }
func (c *Cache) AccountCount() uint64  { return c.accountCount.Load() }
func (c *Cache) CementedCount() uint64 { return c.cementedCount.Load() }
func (c *Cache) PrunedCount() uint64   { return c.prunedCount.Load() }

func (c *Cache) addBlock(delta int64)    { addAtomic(&c.blockCount, delta) }
func (c *Cache) addAccount(delta int64)  { addAtomic(&c.accountCount, delta) }
func (c *Cache) addCemented(delta int64) { addAtomic(&c.cementedCount, delta) }
func (c *Cache) addPruned(delta int64)   { addAtomic(&c.prunedCount, delta) }

// Restore overwrites the block/account/cemented counters directly. Used
// only by warm to repopulate them from the store's durable tables when a
// Ledger is constructed over a store that already has data in it; live
// updates always go through the addX deltas above.
func (c *Cache) Restore(blockCount, accountCount, cementedCount uint64) {
	c.blockCount.Store(blockCount)
	c.accountCount.Store(accountCount)
	c.cementedCount.Store(cementedCount)
}

func addAtomic(v *atomic.Uint64, delta int64) {
	if delta >= 0 {
		v.Add(uint64(delta))
		return
	}
	v.Add(^uint64(-delta) + 1)
}
