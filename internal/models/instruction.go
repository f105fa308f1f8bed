package models

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
)

// OpKind is the closed set of record-mutating operations.
type OpKind uint8

const (
	OpCreate OpKind = iota + 1
	OpDeposit
	OpWithdraw
)

// SigningDomain prefixes every signed instruction message.
const SigningDomain = "custodial-ledger/v1:"

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

func (k OpKind) Valid() bool {
	return k >= OpCreate && k <= OpWithdraw
}

// ParseOpKind maps the wire name of an operation to its kind.
func ParseOpKind(s string) (OpKind, error) {
	switch s {
	case "create":
		return OpCreate, nil
	case "deposit":
		return OpDeposit, nil
	case "withdraw":
		return OpWithdraw, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", s)
	}
}

// Instruction is what an authority asks the ledger to do. Account is the
// record the caller derived; the ledger re-derives it and refuses mismatches.
type Instruction struct {
	Kind        OpKind
	OperationID uuid.UUID
	Authority   identity.PublicKey
	Account     identity.PublicKey
	Amount      uint64
}

// Message is the exact byte string the authority signs.
func (i Instruction) Message() []byte {
	msg := make([]byte, 0, len(SigningDomain)+1+16+2*identity.PublicKeySize+8)
	msg = append(msg, SigningDomain...)
	msg = append(msg, byte(i.Kind))
	msg = append(msg, i.OperationID[:]...)
	msg = append(msg, i.Authority[:]...)
	msg = append(msg, i.Account[:]...)
	msg = binary.LittleEndian.AppendUint64(msg, i.Amount)
	return msg
}

type SignedInstruction struct {
	Instruction
	Signature []byte
}

// NewInstruction fills in the operation id and derived record address for
// the keypair's authority.
func NewInstruction(kind OpKind, programID identity.PublicKey, authority identity.PublicKey, amount uint64) (Instruction, error) {
	addr, _, err := DeriveAccountAddress(programID, authority)
	if err != nil {
		return Instruction{}, fmt.Errorf("derive account address: %w", err)
	}
	return Instruction{
		Kind:        kind,
		OperationID: uuid.New(),
		Authority:   authority,
		Account:     addr,
		Amount:      amount,
	}, nil
}

// Sign signs the instruction with kp. kp must be the instruction's authority
// for the result to verify.
func (i Instruction) Sign(kp identity.Keypair) SignedInstruction {
	return SignedInstruction{Instruction: i, Signature: kp.Sign(i.Message())}
}

func (s SignedInstruction) Verify() bool {
	return s.Authority.Verify(s.Message(), s.Signature)
}
