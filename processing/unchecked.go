// Package processing hosts the node-side collaborators that sit in front of
// and behind the ledger core: the block processor's priority queues, the
// staging area for blocks with an unresolved dependency, and the
// cementation worker (spec §4.4, §4.5, §4.7).
package processing

import (
	"sync"

	"github.com/tolelom/latticenode/core"
)

// entry is one staged block plus the source it arrived on, so a later
// requeue can report where it originally came from.
type entry struct {
	block  *core.Block
	source Source
}

// UncheckedMap is a bounded, thread-safe staging area for blocks whose
// previous or source dependency hasn't committed yet (spec §4.5). It is
// keyed by the missing dependency hash; when that hash commits, every
// staged entry under it is released for requeue. It carries no durability
// guarantee: entries may be lost on restart.
type UncheckedMap struct {
	mu       sync.Mutex
	capacity int
	byDep    map[core.Hash][]entry
	ord      []core.Hash // insertion order of dependency keys, oldest first
	count    int
}

func NewUncheckedMap(capacity int) *UncheckedMap {
	return &UncheckedMap{capacity: capacity, byDep: make(map[core.Hash][]entry)}
}

// Put stages b under the dependency it's missing, evicting the oldest
// dependency bucket if the map is at capacity.
func (u *UncheckedMap) Put(dep core.Hash, b *core.Block, source Source) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byDep[dep]; !exists {
		u.ord = append(u.ord, dep)
	}
	u.byDep[dep] = append(u.byDep[dep], entry{block: b, source: source})
	u.count++

	for u.count > u.capacity && len(u.ord) > 0 {
		u.evictOldest()
	}
}

// evictOldest drops the entire oldest dependency bucket. Must be called
// with mu held.
func (u *UncheckedMap) evictOldest() {
	dep := u.ord[0]
	u.ord = u.ord[1:]
	u.count -= len(u.byDep[dep])
	delete(u.byDep, dep)
}

// Release removes and returns every block staged against dep, for requeue
// with source Unchecked. Returns nil if nothing was staged.
func (u *UncheckedMap) Release(dep core.Hash) []*core.Block {
	u.mu.Lock()
	defer u.mu.Unlock()

	staged, ok := u.byDep[dep]
	if !ok {
		return nil
	}
	delete(u.byDep, dep)
	u.count -= len(staged)
	for i, d := range u.ord {
		if d == dep {
			u.ord = append(u.ord[:i], u.ord[i+1:]...)
			break
		}
	}

	blocks := make([]*core.Block, len(staged))
	for i, e := range staged {
		blocks[i] = e.block
	}
	return blocks
}

// Len returns the total number of staged blocks across every dependency.
func (u *UncheckedMap) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}
