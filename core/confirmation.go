package core

// ConfirmationHeightInfo records the deepest cemented point on an account's
// chain (spec §3). Invariant: the block at Frontier exists, its height
// equals Height, Height <= AccountInfo.BlockCount, and every ancestor of
// Frontier on the same chain is also cemented.
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier Hash
}

// IsCemented reports whether a block at the given height on this account's
// chain is already cemented.
func (c ConfirmationHeightInfo) IsCemented(height uint64) bool {
	return height <= c.Height
}
