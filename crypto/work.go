package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Work is the 8-byte proof-of-work nonce attached to a block (spec §6,
// little-endian on the wire).
type Work uint64

// BlockClass distinguishes the four work-threshold tiers introduced at the
// epoch-2 upgrade (spec §4.1 rule 2: "send/receive/change/epoch each have
// distinct thresholds after the v2 upgrade").
type BlockClass int

const (
	ClassAny BlockClass = iota
	ClassSendOrReceive
	ClassChangeOrOpen
	ClassEpoch
)

// WorkThresholds holds the per-class difficulty floor a work value's derived
// hash must meet or exceed. Higher threshold = harder work required. Base
// covers send blocks (and ClassAny callers that don't care which tier),
// ChangeOrOpen is the lower floor change/open blocks were given at the v2
// upgrade, and Epoch is the highest floor, reserved for epoch blocks (spec
// §4.1 rule 2: "send/receive/change/epoch each have distinct thresholds
// after the v2 upgrade").
//
// Generation algorithms (CPU/OpenCL work pools) are explicitly out of scope
// for this repository (spec §1 Non-goals); only threshold *validation* lives
// here, grounded on original_source/core/src/work/mod.rs's separation of
// work_thresholds from the generator types.
type WorkThresholds struct {
	Base         uint64
	ChangeOrOpen uint64
	Epoch        uint64
}

// WorkThresholdsStub is a low-difficulty threshold set suitable for tests and
// local development, mirroring rsban-node's WORK_THRESHOLDS_STUB.
var WorkThresholdsStub = WorkThresholds{
	Base:         0xff00000000000000,
	ChangeOrOpen: 0xfe00000000000000,
	Epoch:        0xfff0000000000000,
}

// thresholdFor returns the difficulty floor for class under t.
func (t WorkThresholds) thresholdFor(class BlockClass) uint64 {
	switch class {
	case ClassEpoch:
		return t.Epoch
	case ClassChangeOrOpen:
		return t.ChangeOrOpen
	default:
		return t.Base
	}
}

// workHash computes the 8-byte work-validation digest of (work, root),
// matching the little-endian-nonce-then-root convention blocks use to bind
// work to a specific previous/account root.
func workHash(work Work, root [HashSize]byte) uint64 {
	var workLE [8]byte
	binary.LittleEndian.PutUint64(workLE[:], uint64(work))

	h, err := blake2b.New(8, nil)
	if err != nil {
		panic("crypto: blake2b.New(8): " + err.Error())
	}
	h.Write(workLE[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Difficulty returns the derived difficulty value for (work, root): the
// larger this value, the "harder" the work. A block is valid when
// Difficulty(...) >= threshold for its class.
func Difficulty(work Work, root [HashSize]byte) uint64 {
	return workHash(work, root)
}

// ValidateWork reports whether work satisfies the threshold for class at
// root (spec §4.1 rule 2).
func (t WorkThresholds) ValidateWork(class BlockClass, root [HashSize]byte, work Work) bool {
	return Difficulty(work, root) >= t.thresholdFor(class)
}

// CPUWorkGenerator brute-forces a valid work value for root under threshold
// t. It exists only to let tests and genesis construction produce valid
// blocks without an external work-generation tool; it is bounded by maxTries
// and is not intended to be a production work pool (no OpenCL path, no
// distributed work peers — those are Non-goals, see original_source's
// WorkPool/CpuWorkGenerator/opencl_work_generator which this deliberately
// does not port).
type CPUWorkGenerator struct {
	Thresholds WorkThresholds
}

// Generate searches for a work value satisfying class at root, starting from
// nonce 0 and incrementing. maxTries bounds the search so tests never hang;
// a brute-force search like this is practical only for low-difficulty
// thresholds such as WorkThresholdsStub.
func (g CPUWorkGenerator) Generate(class BlockClass, root [HashSize]byte, maxTries uint64) (Work, bool) {
	for i := uint64(0); i < maxTries; i++ {
		w := Work(i)
		if g.Thresholds.ValidateWork(class, root, w) {
			return w, true
		}
	}
	return 0, false
}
