package ledger

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// create allocates the authority's record. The creation cost moves from the
// authority into the record's raw holding and is not part of Balance.
func (l *Ledger) create(ctx context.Context, tx interfaces.StoreTx, ins models.Instruction) (models.LedgerAccount, error) {
	_, exists, err := tx.Account(ctx, ins.Account)
	if err != nil {
		return models.LedgerAccount{}, err
	}
	if exists {
		return models.LedgerAccount{}, fmt.Errorf("%w: %s", ErrAlreadyExists, ins.Account)
	}

	if l.creationFee > 0 {
		err := l.transfer(ctx, tx, ins.OperationID, ins.Authority, ins.Account, l.creationFee, models.MemoCreationFee)
		if errors.Is(err, errInsufficientValue) {
			return models.LedgerAccount{}, fmt.Errorf("%w: creation cost %d: %v", ErrInsufficientExternalFunds, l.creationFee, err)
		}
		if err != nil {
			return models.LedgerAccount{}, err
		}
	}

	acct := models.LedgerAccount{Authority: ins.Authority, Balance: 0}
	if err := tx.CreateAccount(ctx, ins.Account, acct); err != nil {
		return models.LedgerAccount{}, err
	}
	return acct, nil
}
