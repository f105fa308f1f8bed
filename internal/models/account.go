package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
)

const (
	// AccountSeed is the domain-separation tag mixed into every record address.
	AccountSeed = "user-account"

	DiscriminatorSize = 8
	// AccountSize is the fixed allocation of a record: discriminator,
	// authority and a little-endian balance.
	AccountSize = DiscriminatorSize + identity.PublicKeySize + 8
)

var ErrInvalidAccountData = errors.New("invalid ledger account data")

var accountDiscriminator = discriminator("account:LedgerAccount")

func discriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte(name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// LedgerAccount is the per-authority record. Balance is the recorded figure;
// the value physically held at the record's address is tracked by the store.
type LedgerAccount struct {
	Authority identity.PublicKey `json:"authority"`
	Balance   uint64             `json:"balance"`
}

// MarshalBinary encodes the record in its fixed persisted layout.
func (a LedgerAccount) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AccountSize)
	copy(buf[:DiscriminatorSize], accountDiscriminator[:])
	copy(buf[DiscriminatorSize:DiscriminatorSize+identity.PublicKeySize], a.Authority[:])
	binary.LittleEndian.PutUint64(buf[DiscriminatorSize+identity.PublicKeySize:], a.Balance)
	return buf, nil
}

func (a *LedgerAccount) UnmarshalBinary(data []byte) error {
	if len(data) != AccountSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAccountData, len(data), AccountSize)
	}
	if !bytes.Equal(data[:DiscriminatorSize], accountDiscriminator[:]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccountData)
	}
	copy(a.Authority[:], data[DiscriminatorSize:DiscriminatorSize+identity.PublicKeySize])
	a.Balance = binary.LittleEndian.Uint64(data[DiscriminatorSize+identity.PublicKeySize:])
	return nil
}

// AccountSeeds returns the derivation seeds for an authority's record.
func AccountSeeds(authority identity.PublicKey) [][]byte {
	return [][]byte{[]byte(AccountSeed), authority.Bytes()}
}

// DeriveAccountAddress computes where the authority's record lives. Anyone
// who knows the authority and the program identity can recompute it.
func DeriveAccountAddress(programID, authority identity.PublicKey) (identity.PublicKey, uint8, error) {
	return identity.FindProgramAddress(AccountSeeds(authority), programID)
}
