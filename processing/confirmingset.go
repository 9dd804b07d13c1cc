package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/ledger"
	"github.com/tolelom/latticenode/store"
)

var errHashNotOnChain = errors.New("confirmingset: hash not found on account chain")

// cementedRecord is what RecentlyCementedCache keeps per cemented hash:
// enough to answer an RPC asking "was this confirmed, and at what height"
// without re-walking the chain.
type cementedRecord struct {
	Hash    core.Hash
	Account [32]byte // crypto.Account, kept unexported-shape-free to avoid an import cycle concern; set via accountBytes
	Height  uint64
}

// RecentlyCementedCache is a bounded, FIFO-evicted record of the most
// recently cemented blocks (spec §4.7).
type RecentlyCementedCache struct {
	mu       sync.Mutex
	capacity int
	records  []cementedRecord
}

func NewRecentlyCementedCache(capacity int) *RecentlyCementedCache {
	return &RecentlyCementedCache{capacity: capacity}
}

func (c *RecentlyCementedCache) add(hash core.Hash, account [32]byte, height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, cementedRecord{Hash: hash, Account: account, Height: height})
	if len(c.records) > c.capacity {
		c.records = c.records[len(c.records)-c.capacity:]
	}
}

// Recent returns up to n of the most recently cemented records, newest
// last.
func (c *RecentlyCementedCache) Recent(n int) []cementedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > len(c.records) {
		n = len(c.records)
	}
	out := make([]cementedRecord, n)
	copy(out, c.records[len(c.records)-n:])
	return out
}

// ConfirmingSet is the integration point between the external election
// machinery (vote tally, quorum, and election lifecycle live outside the
// ledger core; spec §6) and the store: it takes a winning hash, walks its
// account chain down from there to the account's current confirmation
// height, and cements everything in between under a single held write
// lease (spec §4.7).
type ConfirmingSet struct {
	store   store.Store
	queue   *ledger.WriteQueue
	emitter *events.Emitter
	recent  *RecentlyCementedCache

	mu      sync.Mutex
	pending []core.Hash
	seen    map[core.Hash]bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewConfirmingSet(st store.Store, queue *ledger.WriteQueue, emitter *events.Emitter, cacheCapacity int) *ConfirmingSet {
	return &ConfirmingSet{
		store:   st,
		queue:   queue,
		emitter: emitter,
		recent:  NewRecentlyCementedCache(cacheCapacity),
		seen:    make(map[core.Hash]bool),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Candidate enqueues hash for cementation. Safe to call from any
// producer; duplicate candidates already queued are ignored (spec §4.7
// "shared ownership... no cross-reference cycles required").
func (s *ConfirmingSet) Candidate(hash core.Hash) {
	s.mu.Lock()
	if s.seen[hash] {
		s.mu.Unlock()
		return
	}
	s.seen[hash] = true
	s.pending = append(s.pending, hash)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the background cementation worker until ctx is cancelled or
// Stop is called.
func (s *ConfirmingSet) Run(ctx context.Context) {
	defer close(s.done)
	for {
		hash, ok := s.popCandidate()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-s.wake:
				continue
			case <-time.After(idlePoll):
				continue
			}
		}
		if err := s.cementFrom(ctx, hash); err != nil {
			continue
		}
	}
}

func (s *ConfirmingSet) Stop() {
	close(s.stop)
	<-s.done
}

func (s *ConfirmingSet) popCandidate() (core.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return core.Hash{}, false
	}
	hash := s.pending[0]
	s.pending = s.pending[1:]
	delete(s.seen, hash)
	return hash, true
}

// cementFrom walks from hash back to the account's current confirmation
// height under a single held write lease, writes the new
// ConfirmationHeightInfo once, and emits a block_cemented event per newly
// cemented block in ascending height order followed by one
// batch_cemented event (spec §4.7).
func (s *ConfirmingSet) cementFrom(ctx context.Context, hash core.Hash) error {
	guard, err := s.queue.Acquire(ctx, store.WriterCementation)
	if err != nil {
		return err
	}
	defer guard.Release()

	txn, err := s.store.NewWrite()
	if err != nil {
		return err
	}

	account, ok, err := txn.AccountOf(hash)
	if err != nil || !ok {
		txn.Discard()
		return nil
	}
	info, ok, err := txn.GetAccount(account)
	if err != nil || !ok {
		txn.Discard()
		return nil
	}
	confInfo, hasConf, err := txn.GetConfirmationHeight(account)
	if err != nil {
		txn.Discard()
		return err
	}
	targetHeight, err := heightOf(txn, info, hash)
	if err != nil {
		txn.Discard()
		return err
	}
	if hasConf && targetHeight <= confInfo.Height {
		// Already cemented, or a stale/duplicate candidate: nothing to do.
		txn.Discard()
		return nil
	}

	var chain []core.Hash
	cur := hash
	curHeight := targetHeight
	for {
		if hasConf && curHeight <= confInfo.Height {
			break
		}
		chain = append(chain, cur)
		if curHeight == 1 {
			break
		}
		b, err := txn.GetBlock(cur)
		if err != nil {
			txn.Discard()
			return err
		}
		if b.Previous.IsZero() {
			break
		}
		cur = b.Previous
		curHeight--
	}

	if err := txn.PutConfirmationHeight(account, core.ConfirmationHeightInfo{Height: targetHeight, Frontier: hash}); err != nil {
		txn.Discard()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	var accountBytes [32]byte
	copy(accountBytes[:], account[:])

	height := targetHeight - uint64(len(chain)) + 1
	for i := len(chain) - 1; i >= 0; i-- {
		h := chain[i]
		s.recent.add(h, accountBytes, height)
		if s.emitter != nil {
			s.emitter.Emit(events.Event{
				Type: events.EventBlockCemented,
				Hash: h.Hex(),
				Data: map[string]any{"height": height},
			})
		}
		height++
	}
	if s.emitter != nil {
		s.emitter.Emit(events.Event{
			Type: events.EventBatchCemented,
			Data: map[string]any{"count": len(chain), "account": account.Hex()},
		})
	}
	return nil
}

// heightOf derives the 1-based height of hash on an account whose current
// head is at info.BlockCount, walking backward from the head since blocks
// don't carry an explicit height field on the wire.
func heightOf(txn store.WriteTxn, info core.AccountInfo, hash core.Hash) (uint64, error) {
	cur := info.Head
	height := info.BlockCount
	for {
		if cur == hash {
			return height, nil
		}
		if height == 1 {
			return 0, errHashNotOnChain
		}
		b, err := txn.GetBlock(cur)
		if err != nil {
			return 0, err
		}
		if b.Previous.IsZero() {
			return 0, errHashNotOnChain
		}
		cur = b.Previous
		height--
	}
}
