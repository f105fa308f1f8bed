// Package identity holds the signing identities used by the ledger and the
// deterministic address derivation that maps an authority to its record.
package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of an identity or derived address in bytes.
const PublicKeySize = 32

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidKeypair   = errors.New("invalid keypair")
)

// PublicKey is a 32-byte identity. It is used both for ed25519 signers and
// for derived record addresses, which are deliberately not valid curve points.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes the base58 text form of a key.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != PublicKeySize {
		return k, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), PublicKeySize)
	}
	copy(k[:], raw)
	return k, nil
}

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeySize {
		return k, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(b), PublicKeySize)
	}
	copy(k[:], b)
	return k, nil
}

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

func (k PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, k[:])
	return out
}

func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Verify reports whether sig is a valid ed25519 signature of msg by k.
// Derived addresses have no private key, so they never verify.
func (k PublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(k[:]), msg, sig)
}
