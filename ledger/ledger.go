package ledger

import (
	"context"
	"fmt"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/events"
	"github.com/tolelom/latticenode/store"
)

// Ledger composes every collaborator spec §4 describes into the single
// entry point the rest of the node talks to: validation, insertion,
// rollback, the write lease, the live representative tally, and the
// in-memory counters.
type Ledger struct {
	Store     store.Store
	Validator *Validator
	Inserter  *Inserter
	Planner   *RollbackPlanner
	Performer *RollbackPerformer
	Queue     *WriteQueue
	Weights   *RepWeights
	Cache     *Cache
	Emitter   *events.Emitter
	Constants core.LedgerConstants
}

// Config bundles the tunables spec §6 lists for the core subsystems.
type Config struct {
	RollbackMaxBlocks int
}

func New(st store.Store, constants core.LedgerConstants, cfg Config, emitter *events.Emitter) *Ledger {
	weights := NewRepWeights()
	cache := NewCache()

	read := st.NewRead()
	err := warm(read, weights, cache)
	read.Discard()
	if err != nil {
		// A store that can't be iterated cleanly is corrupt; consistent
		// with LevelStore.NewRead's own panic on a failed snapshot (spec
		// §7: "corruption ... is fatal and triggers shutdown").
		panic("ledger: warm: " + err.Error())
	}

	return &Ledger{
		Store:     st,
		Validator: NewValidator(constants),
		Inserter:  NewInserter(constants, weights, cache, emitter),
		Planner:   NewRollbackPlanner(cfg.RollbackMaxBlocks),
		Performer: NewRollbackPerformer(weights, cache, emitter),
		Queue:     NewWriteQueue(),
		Weights:   weights,
		Cache:     cache,
		Emitter:   emitter,
		Constants: constants,
	}
}

// Process validates b against a fresh read snapshot and, on acceptance,
// inserts it under a single write transaction acquired from Queue (spec
// §4.1/§4.2 composed together the way BlockProcessor drives them per-block).
func (l *Ledger) Process(ctx context.Context, writer store.Writer, b *core.Block) (*core.Instructions, core.BlockStatus, error) {
	read := l.Store.NewRead()
	ins, status := l.Validator.Validate(read, b)
	read.Discard()
	if status != core.StatusProgress {
		if l.Emitter != nil {
			l.Emitter.Emit(events.Event{
				Type: events.EventBlockProcessed,
				Hash: b.ComputeHash().Hex(),
				Data: map[string]any{"status": status.String()},
			})
		}
		return nil, status, nil
	}

	guard, err := l.Queue.Acquire(ctx, writer)
	if err != nil {
		return nil, status, err
	}
	defer guard.Release()

	write, err := l.Store.NewWrite()
	if err != nil {
		return nil, status, err
	}
	if err := l.Inserter.Insert(write, b, ins); err != nil {
		write.Discard()
		return nil, status, err
	}
	if err := write.Commit(); err != nil {
		return nil, status, err
	}

	l.Inserter.Notify(ins, status)
	return ins, status, nil
}

// Rollback plans and performs the removal of target under a single write
// transaction (spec §4.3).
func (l *Ledger) Rollback(ctx context.Context, target core.Hash) (core.RollbackStatus, error) {
	read := l.Store.NewRead()
	plan, status := l.Planner.Plan(read, target)
	read.Discard()
	if status != core.RollbackOK {
		return status, nil
	}

	guard, err := l.Queue.Acquire(ctx, store.WriterRollback)
	if err != nil {
		return status, err
	}
	defer guard.Release()

	write, err := l.Store.NewWrite()
	if err != nil {
		return status, err
	}
	if err := l.Performer.Perform(write, plan); err != nil {
		write.Discard()
		return status, fmt.Errorf("rollback perform: %w", err)
	}
	if err := write.Commit(); err != nil {
		return status, err
	}

	l.Performer.Notify(plan)
	return core.RollbackOK, nil
}
