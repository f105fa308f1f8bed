package interfaces

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

var (
	// ErrAccountExists is returned by CreateAccount, or by Commit, when a
	// record already occupies the address.
	ErrAccountExists = errors.New("store: account already exists")
	// ErrOperationExists is returned by SaveOperation, or by Commit, when the
	// operation id is already recorded.
	ErrOperationExists = errors.New("store: operation already recorded")
)

// LedgerStore is the hosting environment: record data, raw holdings per
// address and the journal. All mutation goes through a StoreTx.
type LedgerStore interface {
	Begin(ctx context.Context) (StoreTx, error)

	GetAccount(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error)
	GetHolding(ctx context.Context, addr identity.PublicKey) (uint64, error)
	GetEntriesByAddress(ctx context.Context, addr identity.PublicKey) ([]models.LedgerEntry, error)
}

// StoreTx stages changes until Commit. After Rollback, or a failed Commit,
// none of the staged changes are visible.
type StoreTx interface {
	Account(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error)
	// CreateAccount inserts a new record and never overwrites one, even one
	// committed by a concurrent transaction after this one read the address.
	CreateAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error
	// PutAccount updates an existing record.
	PutAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error

	Holding(ctx context.Context, addr identity.PublicKey) (uint64, error)
	SetHolding(ctx context.Context, addr identity.PublicKey, amount uint64) error

	// Operation returns the committed operation recorded under id.
	Operation(ctx context.Context, id uuid.UUID) (models.Operation, bool, error)
	SaveOperation(ctx context.Context, op models.Operation) error
	SaveEntry(ctx context.Context, entry models.LedgerEntry) error

	Commit() error
	Rollback() error
}
