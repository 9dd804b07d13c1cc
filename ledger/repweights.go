package ledger

import (
	"sync"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
)

const repWeightShards = 16

// RepWeights is a concurrent map from representative to live voting weight
// (spec §4.8). Sharded by the first byte of the representative to keep
// contention low under concurrent election-weight queries, the same
// sharding idiom the teacher applies to its peer/session maps.
type RepWeights struct {
	shards [repWeightShards]repShard
}

type repShard struct {
	mu     sync.RWMutex
	tally  map[crypto.Account]core.Balance
}

func NewRepWeights() *RepWeights {
	rw := &RepWeights{}
	for i := range rw.shards {
		rw.shards[i].tally = make(map[crypto.Account]core.Balance)
	}
	return rw
}

func (rw *RepWeights) shardFor(a crypto.Account) *repShard {
	return &rw.shards[a[0]%repWeightShards]
}

// Weight returns the representative's current tallied weight.
func (rw *RepWeights) Weight(rep crypto.Account) core.Balance {
	s := rw.shardFor(rep)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tally[rep]
}

// Apply applies a single delta (spec §4.1: "subtract old balance from old
// representative, add new balance to new representative"). Called inside
// the same write transaction as the store mutation it mirrors, by Inserter
// and RollbackPerformer.
func (rw *RepWeights) Apply(d core.RepWeightDelta) error {
	s := rw.shardFor(d.Representative)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.tally[d.Representative]
	var next core.Balance
	var err error
	if d.Add {
		next, err = cur.Add(d.Amount)
	} else {
		next, err = cur.Sub(d.Amount)
	}
	if err != nil {
		return err
	}
	s.tally[d.Representative] = next
	return nil
}

// ApplyAll applies every delta in order, stopping at the first error. It is
// the caller's responsibility to undo earlier deltas on failure (in
// practice this never fails for deltas an already-validated block produced;
// the error return exists for RollbackPerformer's reverse-application of
// historical deltas where an inconsistent store would surface as one).
func (rw *RepWeights) ApplyAll(deltas []core.RepWeightDelta) error {
	for _, d := range deltas {
		if err := rw.Apply(d); err != nil {
			return err
		}
	}
	return nil
}

// Set overwrites rep's tallied weight directly, bypassing the Add/Sub delta
// path. Used only by warm to rebuild the tally from a durable snapshot of
// account balances when a Ledger is constructed; live updates always go
// through Apply/ApplyAll.
func (rw *RepWeights) Set(rep crypto.Account, weight core.Balance) {
	s := rw.shardFor(rep)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tally[rep] = weight
}

// Snapshot returns a copy of the full tally, used by the election/quorum
// machinery outside the core (spec §4.8: "used by the election-weight and
// quorum calculations outside the core").
func (rw *RepWeights) Snapshot() map[crypto.Account]core.Balance {
	out := make(map[crypto.Account]core.Balance)
	for i := range rw.shards {
		s := &rw.shards[i]
		s.mu.RLock()
		for rep, w := range s.tally {
			out[rep] = w
		}
		s.mu.RUnlock()
	}
	return out
}
