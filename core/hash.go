package core

import (
	"encoding/hex"
	"fmt"

	"github.com/tolelom/latticenode/crypto"
)

// Hash is a generic 256-bit identifier: a block hash, or a Link field
// reinterpreted as a source-block hash or epoch magic (spec §3, Glossary
// "Link").
type Hash [crypto.HashSize]byte

// ZeroHash is the canonical "absent" hash: an open block's Previous, or a
// representative-change state block's Link.
var ZeroHash Hash

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Hex returns the 64-char hex encoding of h.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// AsAccount reinterprets h's bytes as an Account (used when a state block's
// Link field carries a destination account for a send).
func (h Hash) AsAccount() crypto.Account {
	return crypto.Account(h)
}

// HashFromAccount reinterprets an Account's bytes as a Hash (used when
// encoding a destination account into a state block's Link field).
func HashFromAccount(a crypto.Account) Hash {
	return Hash(a)
}

// HashFromHex decodes a 64-char hex-encoded hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	if s == "" {
		return h, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != crypto.HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", crypto.HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBytes copies b into a fixed-size Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != crypto.HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", crypto.HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}
