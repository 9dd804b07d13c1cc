package ledger

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// Validator is a pure function of (candidate block, read view of the
// ledger) producing either Instructions or a typed rejection (spec §4.1).
// It never touches a write transaction and has no mutable state of its
// own, so the same Validator value is safe to share across goroutines:
// Ledger.Process calls it from whichever goroutine submits a block (the
// BlockProcessor loop, an RPC handler).
type Validator struct {
	constants core.LedgerConstants
}

func NewValidator(constants core.LedgerConstants) *Validator {
	return &Validator{constants: constants}
}

// reject is a convenience constructor for a rejection outcome.
func reject(status core.BlockStatus) (*core.Instructions, core.BlockStatus) {
	return nil, status
}

// Validate runs the full rule composition, ordered cheapest-first (spec
// §4.1: "ordered so that cheap structural tests run before expensive
// cryptographic or ledger-lookup tests").
func (v *Validator) Validate(txn store.ReadTxn, b *core.Block) (*core.Instructions, core.BlockStatus) {
	hash := b.ComputeHash()

	// Rule 1: not already processed.
	exists, err := txn.BlockExists(hash)
	if err != nil {
		return reject(core.StatusBlockPosition)
	}
	if exists {
		return reject(core.StatusOld)
	}

	// Resolving the acting account is a precondition for signature
	// verification (rule 2); for legacy send/receive/change blocks this
	// means looking up the owner of Previous, which folds naturally into
	// rule 3's "previous must exist" check.
	account, status, ok := v.resolveAccount(txn, b)
	if !ok {
		return reject(status)
	}

	existing, hasExisting, err := txn.GetAccount(account)
	if err != nil {
		return reject(core.StatusBlockPosition)
	}

	// Rule 2: well-formed — signature, then work. An epoch block is signed
	// by the well-known epoch signer, not by the account's own key (spec
	// §4.1 rule 7), so the signer has to be resolved before verification.
	signer := crypto.PublicKey(account[:])
	if b.Type == core.BlockState && hasExisting && b.Balance == existing.Balance && !b.Link.IsZero() {
		if es, ok := v.constants.EpochForLink(b.Link); ok {
			signer = crypto.PublicKey(es.Account[:])
		}
	}
	if err := b.Verify(signer); err != nil {
		return reject(core.StatusBadSignature)
	}
	class := b.EffectiveClass(v.constants)
	if !v.constants.Work.ValidateWork(class, b.Root(), b.Work) {
		return reject(core.StatusInsufficientWork)
	}

	// Rule 3: previous / fork / open rules.
	if !b.Previous.IsZero() {
		if !hasExisting {
			return reject(core.StatusGapPrevious)
		}
		if existing.Head != b.Previous {
			return reject(core.StatusFork)
		}
	} else {
		if hasExisting && existing.IsOpen() {
			return reject(core.StatusFork)
		}
		if account == v.constants.BurnAccount {
			return reject(core.StatusOpenedBurnAccount)
		}
		// Previous == 0 is only legal for open/state blocks (legacy
		// send/receive/change always fail the GapPrevious check inside
		// resolveAccount above), so b.Type is one of those two here. The
		// genesis account's first block is the sole exception to "a
		// zero-link state block has no source to resolve": it is the axiom
		// the whole lattice bootstraps from, so it is let through here and
		// opened directly by validateState's !hasExisting branch (spec §8
		// scenario 1: "initialise store from genesis").
		if b.Type == core.BlockState && b.Link.IsZero() && account != v.constants.GenesisAccount {
			return reject(core.StatusGapSource)
		}
		if b.Type == core.BlockOpen && b.Source.IsZero() {
			return reject(core.StatusGapSource)
		}
	}

	switch b.Type {
	case core.BlockChange:
		return v.validateChange(txn, b, hash, account, existing)
	case core.BlockSend:
		return v.validateLegacySend(txn, b, hash, account, existing)
	case core.BlockReceive:
		return v.validateLegacyReceive(txn, b, hash, account, existing, hasExisting)
	case core.BlockOpen:
		return v.validateLegacyOpen(txn, b, hash, account, hasExisting)
	case core.BlockState:
		return v.validateState(txn, b, hash, account, existing, hasExisting)
	default:
		return reject(core.StatusBlockPosition)
	}
}

// resolveAccount derives the acting account for a candidate block. State
// and open blocks carry it directly; legacy send/receive/change blocks
// derive it from whichever account owns Previous.
func (v *Validator) resolveAccount(txn store.ReadTxn, b *core.Block) (crypto.Account, core.BlockStatus, bool) {
	if b.Type == core.BlockState || b.Type == core.BlockOpen {
		return b.Account, core.StatusProgress, true
	}
	if b.Previous.IsZero() {
		return crypto.Account{}, core.StatusGapPrevious, false
	}
	owner, ok, err := txn.AccountOf(b.Previous)
	if err != nil || !ok {
		return crypto.Account{}, core.StatusGapPrevious, false
	}
	return owner, core.StatusProgress, true
}

func negate(deltas []core.RepWeightDelta) []core.RepWeightDelta {
	out := make([]core.RepWeightDelta, len(deltas))
	for i, d := range deltas {
		out[i] = core.RepWeightDelta{Representative: d.Representative, Add: !d.Add, Amount: d.Amount}
	}
	return out
}

// repDeltaForBalanceChange produces the weight deltas for moving an
// account's balance from oldBalance to newBalance, possibly also changing
// its representative (spec §4.1: "subtract old balance from old
// representative, add new balance to new representative (with appropriate
// handling when representative or account changes)").
func repDeltaForBalanceChange(wasOpen bool, oldRep, newRep crypto.Account, oldBalance, newBalance core.Balance) []core.RepWeightDelta {
	var deltas []core.RepWeightDelta
	if wasOpen && !oldBalance.IsZero() {
		deltas = append(deltas, core.RepWeightDelta{Representative: oldRep, Add: false, Amount: oldBalance})
	}
	if !newBalance.IsZero() {
		deltas = append(deltas, core.RepWeightDelta{Representative: newRep, Add: true, Amount: newBalance})
	}
	return deltas
}
