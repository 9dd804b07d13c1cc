// Package crypto provides the hashing, signing, and proof-of-work primitives
// used to derive and verify block identity (spec §6).
package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the width in bytes of a block hash / account / link field.
const HashSize = 32

// blockPreamble domain-separates state-block hashing from legacy blocks so
// that no legacy block can ever collide with a state block under BLAKE2b
// (spec §6: "domain separation for state blocks (a fixed 32-byte preamble
// encoding type id)").
var blockPreamble = [HashSize]byte{31: 0x06}

// Hash returns the BLAKE2b-256 hash of data as a lowercase hex string.
func Hash(data []byte) string {
	h := HashBytes(data)
	return hex.EncodeToString(h[:])
}

// HashBytes returns the raw BLAKE2b-256 digest of data.
func HashBytes(data []byte) [HashSize]byte {
	return blake2b.Sum256(data)
}

// StateBlockHash hashes the concatenation of the domain preamble and body,
// matching the on-wire hash used by state blocks.
func StateBlockHash(body []byte) [HashSize]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for an over-long key, and we pass nil.
		panic("crypto: blake2b.New256: " + err.Error())
	}
	h.Write(blockPreamble[:])
	h.Write(body)
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// LegacyBlockHash hashes a legacy (send/receive/open/change) block body with
// no domain preamble, matching the original wire format those blocks predate
// state-block domain separation with.
func LegacyBlockHash(body []byte) [HashSize]byte {
	return blake2b.Sum256(body)
}
