package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// PrivateKey wraps ed25519 private key bytes.
type PrivateKey []byte

// PublicKey wraps ed25519 public key bytes.
type PublicKey []byte

// Account is a 256-bit ed25519 public key used as both an account identifier
// and the root of that account's single-writer chain (spec §3, Glossary).
// It is a fixed-size array (not a slice) so it can be used directly as a map
// key in RepWeights and account-info caches.
type Account [HashSize]byte

// ZeroAccount is the canonical burn account: an all-zero public key. Tokens
// sent to it are destroyed; it can never be opened (spec §4.1 rule 8).
var ZeroAccount Account

// IsZero reports whether a is the burn account.
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

// Hex returns the 64-char hex encoding of the account.
func (a Account) Hex() string {
	return hex.EncodeToString(a[:])
}

// String implements fmt.Stringer so Account prints as hex in logs.
func (a Account) String() string {
	return a.Hex()
}

// AccountFromHex decodes a 64-char hex-encoded account.
func AccountFromHex(s string) (Account, error) {
	var a Account
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid account hex: %w", err)
	}
	if len(b) != HashSize {
		return a, fmt.Errorf("account must be %d bytes, got %d", HashSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AccountFromBytes copies b into a fixed-size Account, erroring on wrong length.
func AccountFromBytes(b []byte) (Account, error) {
	var a Account
	if len(b) != HashSize {
		return a, fmt.Errorf("account must be %d bytes, got %d", HashSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// GenerateKeyPair generates a new ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Account returns the fixed-size Account identity of this public key.
func (pub PublicKey) Account() Account {
	a, err := AccountFromBytes(pub)
	if err != nil {
		// PublicKey is always ed25519.PublicKeySize (32) bytes when produced
		// by this package; a mismatch here means a caller built one by hand.
		panic("crypto: " + err.Error())
	}
	return a
}

// Hex returns the full 64-char hex-encoded public key.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub)
}

// Hex returns the hex-encoded private key.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv)
}

// Public derives the ed25519 public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// PubKeyFromHex decodes a hex-encoded public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("pubkey must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return PublicKey(b), nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid privkey hex: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("privkey must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return PrivateKey(b), nil
}
