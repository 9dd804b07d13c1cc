package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// SignatureSize is the width in bytes of an ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// Signature is a fixed-width ed25519 signature, used as a Block struct field
// so Block stays a flat value type instead of holding a slice.
type Signature [SignatureSize]byte

// Sign signs data with the private key and returns a hex-encoded signature.
func Sign(priv PrivateKey, data []byte) string {
	sig := ed25519.Sign(ed25519.PrivateKey(priv), data)
	return hex.EncodeToString(sig)
}

// SignBytes signs data and returns the raw 64-byte signature, used when
// encoding a block's fixed-width wire format (spec §6).
func SignBytes(priv PrivateKey, data []byte) [SignatureSize]byte {
	sig := ed25519.Sign(ed25519.PrivateKey(priv), data)
	var out [SignatureSize]byte
	copy(out[:], sig)
	return out
}

// Verify checks a hex-encoded signature against data using the public key.
func Verify(pub PublicKey, data []byte, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	return VerifyBytes(pub, data, sig)
}

// VerifyBytes checks a raw signature against data using the public key.
func VerifyBytes(pub PublicKey, data, sig []byte) error {
	if len(sig) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return errors.New("signature verification failed")
	}
	return nil
}
