package ledger

import (
	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

// resolveSource looks up a referenced send block by hash for a
// receive/open. Distinguishes "not yet known" (GapSource — the block body
// itself hasn't arrived, so UncheckedMap should stage this block) from
// "known but not receivable by this account" (Unreceivable — the pending
// entry is absent or already consumed).
func resolveSource(txn store.ReadTxn, sourceHash core.Hash, destination core.PendingKey) (core.PendingInfo, core.BlockStatus, bool) {
	sourceExists, err := txn.BlockExists(sourceHash)
	if err != nil || !sourceExists {
		return core.PendingInfo{}, core.StatusGapSource, false
	}
	info, ok, err := txn.GetPending(destination)
	if err != nil || !ok {
		return core.PendingInfo{}, core.StatusUnreceivable, false
	}
	return info, core.StatusProgress, true
}

// validateChange validates a legacy representative-change block (spec
// §4.1 rule 4: no balance delta; representative must differ).
func (v *Validator) validateChange(_ store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) (*core.Instructions, core.BlockStatus) {
	if b.Representative == existing.Representative {
		return reject(core.StatusBlockPosition)
	}
	newInfo := existing
	newInfo.Head = hash
	newInfo.Representative = b.Representative
	newInfo.BlockCount++

	deltas := repDeltaForBalanceChange(true, existing.Representative, b.Representative, existing.Balance, existing.Balance)

	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		RepWeightDeltas:    deltas,
		OldExistingBalance: existing.Balance,
		SourceEpoch:        existing.Epoch,
		OldAccountInfo:     existing,
		WasOpen:            true,
	}, core.StatusProgress
}

// validateLegacySend validates a legacy send block: the new balance is
// carried explicitly and must be strictly lower than the previous one
// (spec §4.1 rule 6: "a send requires amount > 0").
func (v *Validator) validateLegacySend(_ store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) (*core.Instructions, core.BlockStatus) {
	if b.Balance.Cmp(existing.Balance) >= 0 {
		return reject(core.StatusNegativeSpend)
	}
	amount, err := existing.Balance.Sub(b.Balance)
	if err != nil {
		return reject(core.StatusNegativeSpend)
	}

	newInfo := existing
	newInfo.Head = hash
	newInfo.Balance = b.Balance
	newInfo.BlockCount++

	deltas := []core.RepWeightDelta{{Representative: existing.Representative, Add: false, Amount: amount}}

	pendingKey := core.PendingKey{Destination: b.Destination, SourceHash: hash}
	pendingInfo := core.PendingInfo{SourceAccount: account, Amount: amount, Epoch: existing.Epoch}

	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		InsertPending:      &core.PendingMutation{Key: pendingKey, Info: pendingInfo},
		RepWeightDeltas:    deltas,
		OldExistingBalance: existing.Balance,
		SourceEpoch:        existing.Epoch,
		OldAccountInfo:     existing,
		WasOpen:            true,
	}, core.StatusProgress
}

// validateLegacyReceive validates a legacy receive block: the amount comes
// entirely from the referenced pending entry (spec §4.1 rule 6).
func (v *Validator) validateLegacyReceive(txn store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo, hasExisting bool) (*core.Instructions, core.BlockStatus) {
	if !hasExisting {
		return reject(core.StatusGapPrevious)
	}
	key := core.PendingKey{Destination: account, SourceHash: b.Source}
	pending, status, ok := resolveSource(txn, b.Source, key)
	if !ok {
		return reject(status)
	}

	newBalance, err := existing.Balance.Add(pending.Amount)
	if err != nil {
		return reject(core.StatusBalanceMismatch)
	}

	newInfo := existing
	newInfo.Head = hash
	newInfo.Balance = newBalance
	newInfo.BlockCount++

	deltas := []core.RepWeightDelta{{Representative: existing.Representative, Add: true, Amount: pending.Amount}}

	return &core.Instructions{
		Hash:                hash,
		Account:             account,
		SetAccountInfo:      newInfo,
		DeletePending:       &key,
		ConsumedPendingInfo: pending,
		RepWeightDeltas:     deltas,
		OldExistingBalance:  existing.Balance,
		SourceEpoch:         existing.Epoch,
		OldAccountInfo:      existing,
		WasOpen:             true,
	}, core.StatusProgress
}

// validateLegacyOpen validates a legacy open block, the first block on a
// fresh account's chain (spec §4.1 rule 3, rule 6).
func (v *Validator) validateLegacyOpen(txn store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, hasExisting bool) (*core.Instructions, core.BlockStatus) {
	key := core.PendingKey{Destination: account, SourceHash: b.Source}
	pending, status, ok := resolveSource(txn, b.Source, key)
	if !ok {
		return reject(status)
	}

	newInfo := core.AccountInfo{
		Head:           hash,
		Representative: b.Representative,
		OpenBlock:      hash,
		Balance:        pending.Amount,
		ModifiedEpoch:  0,
		BlockCount:     1,
		Epoch:          core.Epoch0,
	}

	deltas := []core.RepWeightDelta{{Representative: b.Representative, Add: true, Amount: pending.Amount}}

	var oldInfo core.AccountInfo
	return &core.Instructions{
		Hash:                hash,
		Account:             account,
		SetAccountInfo:      newInfo,
		DeletePending:       &key,
		ConsumedPendingInfo: pending,
		RepWeightDeltas:     deltas,
		OldExistingBalance:  core.ZeroBalance,
		SourceEpoch:         pending.Epoch,
		OldAccountInfo:      oldInfo,
		WasOpen:             hasExisting,
	}, core.StatusProgress
}

// validateState validates a unified state block: the balance-direction
// comparison against the prior head determines whether it behaves as an
// open, send, receive, change, or epoch block (spec §4.1 rule 5).
func (v *Validator) validateState(txn store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo, hasExisting bool) (*core.Instructions, core.BlockStatus) {
	if !hasExisting {
		return v.validateStateOpen(txn, b, hash, account)
	}

	switch b.Balance.Cmp(existing.Balance) {
	case -1:
		return v.validateStateSend(b, hash, account, existing)
	case 1:
		return v.validateStateReceive(txn, b, hash, account, existing)
	default:
		if b.Link.IsZero() {
			return v.validateStateChange(b, hash, account, existing)
		}
		if es, ok := v.constants.EpochForLink(b.Link); ok {
			return v.validateStateEpoch(b, hash, account, existing, es)
		}
		return reject(core.StatusBlockPosition)
	}
}

func (v *Validator) validateStateOpen(txn store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account) (*core.Instructions, core.BlockStatus) {
	if b.Link.IsZero() {
		return v.validateGenesisOpen(b, hash, account)
	}

	key := core.PendingKey{Destination: account, SourceHash: b.Link}
	pending, status, ok := resolveSource(txn, b.Link, key)
	if !ok {
		return reject(status)
	}
	if b.Balance.Cmp(pending.Amount) != 0 {
		return reject(core.StatusBalanceMismatch)
	}

	newInfo := core.AccountInfo{
		Head:           hash,
		Representative: b.Representative,
		OpenBlock:      hash,
		Balance:        b.Balance,
		ModifiedEpoch:  0,
		BlockCount:     1,
		Epoch:          core.Epoch0,
	}

	deltas := []core.RepWeightDelta{{Representative: b.Representative, Add: true, Amount: b.Balance}}

	var oldInfo core.AccountInfo
	return &core.Instructions{
		Hash:                hash,
		Account:             account,
		SetAccountInfo:      newInfo,
		DeletePending:       &key,
		ConsumedPendingInfo: pending,
		RepWeightDeltas:     deltas,
		OldExistingBalance:  core.ZeroBalance,
		SourceEpoch:         pending.Epoch,
		OldAccountInfo:      oldInfo,
		WasOpen:             false,
	}, core.StatusProgress
}

// validateGenesisOpen opens the genesis account directly from its declared
// balance, with no pending entry to consume: it is the one block in the
// whole lattice that isn't funded by a prior send (spec §8 scenario 1).
func (v *Validator) validateGenesisOpen(b *core.Block, hash core.Hash, account crypto.Account) (*core.Instructions, core.BlockStatus) {
	newInfo := core.AccountInfo{
		Head:           hash,
		Representative: b.Representative,
		OpenBlock:      hash,
		Balance:        b.Balance,
		ModifiedEpoch:  0,
		BlockCount:     1,
		Epoch:          core.Epoch0,
	}

	deltas := []core.RepWeightDelta{{Representative: b.Representative, Add: true, Amount: b.Balance}}

	var oldInfo core.AccountInfo
	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		RepWeightDeltas:    deltas,
		OldExistingBalance: core.ZeroBalance,
		SourceEpoch:        core.Epoch0,
		OldAccountInfo:     oldInfo,
		WasOpen:            false,
	}, core.StatusProgress
}

func (v *Validator) validateStateSend(b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) (*core.Instructions, core.BlockStatus) {
	amount, err := existing.Balance.Sub(b.Balance)
	if err != nil {
		return reject(core.StatusNegativeSpend)
	}
	destination := b.Link.AsAccount()

	newInfo := existing
	newInfo.Head = hash
	newInfo.Representative = b.Representative
	newInfo.Balance = b.Balance
	newInfo.BlockCount++

	deltas := repDeltaForBalanceChange(true, existing.Representative, b.Representative, existing.Balance, b.Balance)

	key := core.PendingKey{Destination: destination, SourceHash: hash}
	pendingInfo := core.PendingInfo{SourceAccount: account, Amount: amount, Epoch: existing.Epoch}

	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		InsertPending:      &core.PendingMutation{Key: key, Info: pendingInfo},
		RepWeightDeltas:    deltas,
		OldExistingBalance: existing.Balance,
		SourceEpoch:        existing.Epoch,
		OldAccountInfo:     existing,
		WasOpen:            true,
	}, core.StatusProgress
}

func (v *Validator) validateStateReceive(txn store.ReadTxn, b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) (*core.Instructions, core.BlockStatus) {
	key := core.PendingKey{Destination: account, SourceHash: b.Link}
	pending, status, ok := resolveSource(txn, b.Link, key)
	if !ok {
		return reject(status)
	}
	want, err := existing.Balance.Add(pending.Amount)
	if err != nil || b.Balance.Cmp(want) != 0 {
		return reject(core.StatusBalanceMismatch)
	}

	newInfo := existing
	newInfo.Head = hash
	newInfo.Representative = b.Representative
	newInfo.Balance = b.Balance
	newInfo.BlockCount++

	deltas := repDeltaForBalanceChange(true, existing.Representative, b.Representative, existing.Balance, b.Balance)

	return &core.Instructions{
		Hash:                hash,
		Account:             account,
		SetAccountInfo:      newInfo,
		DeletePending:       &key,
		ConsumedPendingInfo: pending,
		RepWeightDeltas:     deltas,
		OldExistingBalance:  existing.Balance,
		SourceEpoch:         existing.Epoch,
		OldAccountInfo:      existing,
		WasOpen:             true,
	}, core.StatusProgress
}

func (v *Validator) validateStateChange(b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo) (*core.Instructions, core.BlockStatus) {
	// Unlike the legacy change block, a no-op representative re-declaration
	// is allowed on a state block (spec §4.1 rule 4: "no-op allowed only
	// if state-block").
	newInfo := existing
	newInfo.Head = hash
	newInfo.Representative = b.Representative
	newInfo.BlockCount++

	deltas := repDeltaForBalanceChange(true, existing.Representative, b.Representative, existing.Balance, existing.Balance)

	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		RepWeightDeltas:    deltas,
		OldExistingBalance: existing.Balance,
		SourceEpoch:        existing.Epoch,
		OldAccountInfo:     existing,
		WasOpen:            true,
	}, core.StatusProgress
}

func (v *Validator) validateStateEpoch(b *core.Block, hash core.Hash, account crypto.Account, existing core.AccountInfo, signer core.EpochSigner) (*core.Instructions, core.BlockStatus) {
	if signer.Epoch != existing.Epoch+1 {
		return reject(core.StatusBlockPosition)
	}
	if b.Representative != existing.Representative {
		return reject(core.StatusRepresentativeMismatch)
	}
	// Open Question (a), resolved: an epoch bump is permitted even with
	// outstanding pending receives on this account; it never inspects or
	// mutates the pending table.

	newInfo := existing
	newInfo.Head = hash
	newInfo.BlockCount++
	newInfo.Epoch = signer.Epoch
	newInfo.ModifiedEpoch = newInfo.BlockCount

	return &core.Instructions{
		Hash:               hash,
		Account:            account,
		SetAccountInfo:     newInfo,
		OldExistingBalance: existing.Balance,
		SourceEpoch:        existing.Epoch,
		OldAccountInfo:     existing,
		WasOpen:            true,
	}, core.StatusProgress
}
