package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh random keypair.
func GenerateKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{private: priv}, nil
}

// KeypairFromSeed builds a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("%w: seed is %d bytes, want %d", ErrInvalidKeypair, len(seed), ed25519.SeedSize)
	}
	return Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// KeypairFromBytes accepts the 64-byte secret||public encoding and checks
// that the public half matches the secret half.
func KeypairFromBytes(b []byte) (Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeypair, len(b), ed25519.PrivateKeySize)
	}
	kp, err := KeypairFromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return Keypair{}, err
	}
	pub := kp.PublicKey()
	if string(pub[:]) != string(b[ed25519.SeedSize:]) {
		return Keypair{}, fmt.Errorf("%w: public half does not match secret", ErrInvalidKeypair)
	}
	return kp, nil
}

// ParseKeypair decodes the base58 form produced by Keypair.String.
func ParseKeypair(s string) (Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return KeypairFromBytes(raw)
}

func (k Keypair) PublicKey() PublicKey {
	var pub PublicKey
	if len(k.private) == ed25519.PrivateKeySize {
		copy(pub[:], k.private[ed25519.SeedSize:])
	}
	return pub
}

func (k Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

func (k Keypair) Bytes() []byte {
	out := make([]byte, len(k.private))
	copy(out, k.private)
	return out
}

// String returns the base58 encoding of the full 64-byte keypair.
func (k Keypair) String() string {
	return base58.Encode(k.private)
}
