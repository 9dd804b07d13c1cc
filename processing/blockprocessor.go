package processing

import (
	"context"
	"sync"
	"time"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/ledger"
	"github.com/tolelom/latticenode/store"
)

// idlePoll is how long Run backs off when every queue was empty, rather
// than busy-spinning while waiting for the next Add.
const idlePoll = 20 * time.Millisecond

func timeAfterIdle() <-chan time.Time {
	return time.After(idlePoll)
}

// Source classifies where a block entered the processor from, and fixes
// its priority relative to the other sources (spec §4.4).
type Source int

const (
	SourceLive Source = iota
	SourceLiveOriginator
	SourceBootstrap
	SourceBootstrapLegacy
	SourceUnchecked
	SourceLocal
	SourceForced
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceLiveOriginator:
		return "live_originator"
	case SourceBootstrap:
		return "bootstrap"
	case SourceBootstrapLegacy:
		return "bootstrap_legacy"
	case SourceUnchecked:
		return "unchecked"
	case SourceLocal:
		return "local"
	case SourceForced:
		return "forced"
	default:
		return "unknown"
	}
}

// defaultWeights is the fixed round-robin credit schedule: live traffic
// drains fastest, local and unchecked blocks at half that rate, and
// bootstrap floods are throttled so they cannot starve them (spec §4.4).
var defaultWeights = map[Source]int{
	SourceLive:            8,
	SourceLiveOriginator:  8,
	SourceLocal:           4,
	SourceUnchecked:       4,
	SourceBootstrap:       2,
	SourceBootstrapLegacy: 2,
}

// Config bundles BlockProcessor's tunables.
type Config struct {
	QueueCapacity int // per-source bound; Source.Forced ignores it
	BatchSize     int // blocks taken per drainBatch call
	UncheckedCap  int
}

type queued struct {
	block  *core.Block
	source Source
}

// BlockProcessor is the single canonical writer: a multi-producer,
// single-consumer pipeline that classifies inbound blocks into priority
// queues and drains them in weighted round-robin batches, committing each
// block through Ledger.Process under its own write lease (spec §4.4).
// Committed hashes are not passed to ConfirmingSet; see onCommitted and
// ConfirmWinner.
type BlockProcessor struct {
	ledger     *ledger.Ledger
	unchecked  *UncheckedMap
	confirming *ConfirmingSet
	cfg        Config

	mu      sync.Mutex
	queues  map[Source]chan queued
	credits map[Source]int

	stop chan struct{}
	done chan struct{}
}

func NewBlockProcessor(lg *ledger.Ledger, confirming *ConfirmingSet, cfg Config) *BlockProcessor {
	p := &BlockProcessor{
		ledger:     lg,
		unchecked:  NewUncheckedMap(cfg.UncheckedCap),
		confirming: confirming,
		cfg:        cfg,
		queues:     make(map[Source]chan queued),
		credits:    make(map[Source]int),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for src := range defaultWeights {
		cap := cfg.QueueCapacity
		p.queues[src] = make(chan queued, cap)
	}
	p.queues[SourceForced] = make(chan queued, 1<<16)
	return p
}

// Add classifies b under source and enqueues it. SourceForced bypasses the
// per-source bound (spec §4.4); every other source reports QueueFull
// rather than blocking the caller.
func (p *BlockProcessor) Add(b *core.Block, source Source) core.QueueStatus {
	select {
	case <-p.stop:
		return core.QueueStopped
	default:
	}

	q := p.queues[source]
	if source == SourceForced {
		q <- queued{block: b, source: source}
		return core.QueueOK
	}
	select {
	case q <- queued{block: b, source: source}:
		return core.QueueOK
	default:
		return core.QueueFull
	}
}

// Run drives the processor loop until ctx is cancelled or Stop is called.
func (p *BlockProcessor) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		default:
		}
		if !p.drainBatch(ctx) {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-timeAfterIdle():
			}
		}
	}
}

// Stop signals Run to return and waits for it to finish.
func (p *BlockProcessor) Stop() {
	close(p.stop)
	<-p.done
}

// drainBatch takes up to cfg.BatchSize blocks in weighted-round-robin order
// across sources and runs each through Ledger.Process, which acquires and
// releases the write lease for that one block; the lease is not held across
// the batch. Returns false if nothing was available to drain.
func (p *BlockProcessor) drainBatch(ctx context.Context) bool {
	batch := p.nextBatch()
	if len(batch) == 0 {
		return false
	}
	for _, item := range batch {
		ins, status, err := p.ledger.Process(ctx, store.WriterProcessor, item.block)
		if err != nil {
			continue
		}
		if status == core.StatusProgress {
			p.onCommitted(ins.Hash)
			continue
		}
		if status.IsGap() {
			dep := gapDependency(item.block, status)
			p.unchecked.Put(dep, item.block, item.source)
		}
	}
	return true
}

// nextBatch pulls up to cfg.BatchSize queued items using a credit-based
// weighted round robin: each pass through the source list spends down to
// one credit per available item, refilling credits once every source is
// either empty or out of credit.
func (p *BlockProcessor) nextBatch() []queued {
	p.mu.Lock()
	defer p.mu.Unlock()

	var batch []queued
	for len(batch) < p.cfg.BatchSize {
		if item, ok := p.tryDequeue(SourceForced); ok {
			batch = append(batch, item)
			continue
		}
		progressed := false
		for _, src := range []Source{SourceLive, SourceLiveOriginator, SourceLocal, SourceUnchecked, SourceBootstrap, SourceBootstrapLegacy} {
			if p.credits[src] <= 0 {
				continue
			}
			if item, ok := p.tryDequeue(src); ok {
				p.credits[src]--
				batch = append(batch, item)
				progressed = true
				if len(batch) >= p.cfg.BatchSize {
					break
				}
			}
		}
		if !progressed {
			if p.refillCredits() {
				continue
			}
			break
		}
	}
	return batch
}

func (p *BlockProcessor) tryDequeue(src Source) (queued, bool) {
	q := p.queues[src]
	select {
	case item := <-q:
		return item, true
	default:
		return queued{}, false
	}
}

// refillCredits resets every source's credit to its configured weight.
// Returns false if every queue is currently empty (nothing left to drain
// this batch).
func (p *BlockProcessor) refillCredits() bool {
	anyPending := false
	for src, w := range defaultWeights {
		p.credits[src] = w
		if len(p.queues[src]) > 0 {
			anyPending = true
		}
	}
	return anyPending
}

// onCommitted probes UncheckedMap for anything waiting on hash and
// requeues every release under source Unchecked (spec §4.5).
//
// It deliberately does not touch ConfirmingSet. A block committing here
// only means it passed validation and extends its account's chain; it
// says nothing about quorum. Committed blocks can still lose an election
// to a competing fork the processor never saw (the competitor would have
// been rejected as StatusFork had it arrived here first) — cementing on
// commit would make that block immutable before the vote is in, and
// Rollback refuses to touch anything at or below confirmation height, so
// a later election in the fork's favour could never be applied (spec
// §4.3/§4.7). Cementation is driven solely by ConfirmWinner, the hand-off
// point for the external election/voting layer (spec §6:
// "Election.winner(hash)").
func (p *BlockProcessor) onCommitted(hash core.Hash) {
	for _, b := range p.unchecked.Release(hash) {
		p.Add(b, SourceUnchecked)
	}
}

// ConfirmWinner is the processor's side of the spec §6 input surface
// "Election.winner(hash) from the voting subsystem": once the external
// election/quorum machinery (vote tally, quorum, election lifecycle;
// explicitly out of scope for this module, spec §9) settles on a winning
// hash, it calls ConfirmWinner to hand it to ConfirmingSet for
// cementation. A no-op if this processor was built without a
// ConfirmingSet.
func (p *BlockProcessor) ConfirmWinner(hash core.Hash) {
	if p.confirming != nil {
		p.confirming.Candidate(hash)
	}
}

// gapDependency extracts the hash a gap status is blocked on: Previous for
// GapPrevious, Source/Link for GapSource and GapEpochOpenPending.
func gapDependency(b *core.Block, status core.BlockStatus) core.Hash {
	switch status {
	case core.StatusGapPrevious:
		return b.Previous
	default:
		if b.Type == core.BlockState {
			return b.Link
		}
		return b.Source
	}
}
