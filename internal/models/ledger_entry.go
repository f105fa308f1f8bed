package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/shopspring/decimal"
)

// Entry memos.
const (
	MemoCreationFee = "creation-fee"
	MemoDeposit     = "deposit"
	MemoWithdraw    = "withdraw"
	MemoFaucet      = "faucet"
)

// LedgerEntry is one movement of raw holding at an address. Debits carry a
// negative amount, credits a positive one.
type LedgerEntry struct {
	ID          uuid.UUID          `json:"id"`
	OperationID uuid.UUID          `json:"operation_id"`
	Address     identity.PublicKey `json:"address"`
	Amount      decimal.Decimal    `json:"amount"` // base units
	Memo        string             `json:"memo"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Debit builds a negative entry of amount at addr.
func Debit(opID uuid.UUID, addr identity.PublicKey, amount uint64, memo string, t time.Time) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.New(),
		OperationID: opID,
		Address:     addr,
		Amount:      DecimalFromUint64(amount).Neg(),
		Memo:        memo,
		CreatedAt:   t,
	}
}

// Credit builds a positive entry of amount at addr.
func Credit(opID uuid.UUID, addr identity.PublicKey, amount uint64, memo string, t time.Time) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.New(),
		OperationID: opID,
		Address:     addr,
		Amount:      DecimalFromUint64(amount),
		Memo:        memo,
		CreatedAt:   t,
	}
}
