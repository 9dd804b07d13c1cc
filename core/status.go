package core

// BlockStatus is the outcome taxonomy a Validator/Inserter call can return
// (spec §7). Validation failures are values, never exceptions: they are
// returned to the producer, logged, and counted, but never abort the
// processor.
type BlockStatus int

const (
	StatusProgress BlockStatus = iota
	StatusBadSignature
	StatusOld
	StatusNegativeSpend
	StatusFork
	StatusUnreceivable
	StatusGapPrevious
	StatusGapSource
	StatusGapEpochOpenPending
	StatusOpenedBurnAccount
	StatusBalanceMismatch
	StatusRepresentativeMismatch
	StatusBlockPosition
	StatusInsufficientWork
)

// String implements fmt.Stringer; also used verbatim as the RPC-facing
// error string (spec §7: "the RPC layer maps the taxonomy to textual error
// strings").
func (s BlockStatus) String() string {
	switch s {
	case StatusProgress:
		return "progress"
	case StatusBadSignature:
		return "bad_signature"
	case StatusOld:
		return "old"
	case StatusNegativeSpend:
		return "negative_spend"
	case StatusFork:
		return "fork"
	case StatusUnreceivable:
		return "unreceivable"
	case StatusGapPrevious:
		return "gap_previous"
	case StatusGapSource:
		return "gap_source"
	case StatusGapEpochOpenPending:
		return "gap_epoch_open_pending"
	case StatusOpenedBurnAccount:
		return "opened_burn_account"
	case StatusBalanceMismatch:
		return "balance_mismatch"
	case StatusRepresentativeMismatch:
		return "representative_mismatch"
	case StatusBlockPosition:
		return "block_position"
	case StatusInsufficientWork:
		return "insufficient_work"
	default:
		return "unknown"
	}
}

// IsGap reports whether status indicates an unresolved dependency, the
// signal UncheckedMap stages the block on (spec §4.5).
func (s BlockStatus) IsGap() bool {
	return s == StatusGapPrevious || s == StatusGapSource || s == StatusGapEpochOpenPending
}

// RollbackStatus is the outcome taxonomy for a rollback request (spec §7).
type RollbackStatus int

const (
	RollbackOK RollbackStatus = iota
	RollbackRefused
	RollbackBelowHeight
	RollbackDependentUnknown
)

func (s RollbackStatus) String() string {
	switch s {
	case RollbackOK:
		return "ok"
	case RollbackRefused:
		return "rollback_refused"
	case RollbackBelowHeight:
		return "rollback_below_height"
	case RollbackDependentUnknown:
		return "dependent_unknown"
	default:
		return "unknown"
	}
}

// QueueStatus is the outcome taxonomy for BlockProcessor enqueue attempts
// (spec §7).
type QueueStatus int

const (
	QueueOK QueueStatus = iota
	QueueFull
	QueueStopped
	QueueCancelled
)

func (s QueueStatus) String() string {
	switch s {
	case QueueOK:
		return "ok"
	case QueueFull:
		return "queue_full"
	case QueueStopped:
		return "stopped"
	case QueueCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ValidationError pairs a rejection status with the block hash it applies
// to, letting callers log/count without re-deriving the hash.
type ValidationError struct {
	Status BlockStatus
	Hash   Hash
}

func (e *ValidationError) Error() string {
	return e.Status.String() + ": " + e.Hash.Hex()
}
