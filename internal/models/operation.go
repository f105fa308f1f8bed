package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
)

// Operation is a committed instruction. Its ID doubles as the idempotency key.
type Operation struct {
	ID        uuid.UUID
	Kind      OpKind
	Authority identity.PublicKey
	Account   identity.PublicKey
	Amount    uint64
	CreatedAt time.Time
}

// OperationFrom records the instruction as committed at t.
func OperationFrom(ins Instruction, t time.Time) Operation {
	return Operation{
		ID:        ins.OperationID,
		Kind:      ins.Kind,
		Authority: ins.Authority,
		Account:   ins.Account,
		Amount:    ins.Amount,
		CreatedAt: t,
	}
}

// Matches reports whether ins is a resubmission of this operation: same id
// and the same kind, authority, account and amount.
func (o Operation) Matches(ins Instruction) bool {
	return o.ID == ins.OperationID &&
		o.Kind == ins.Kind &&
		o.Authority == ins.Authority &&
		o.Account == ins.Account &&
		o.Amount == ins.Amount
}
