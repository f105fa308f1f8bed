package ledger

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

func (l *Ledger) deposit(ctx context.Context, tx interfaces.StoreTx, ins models.Instruction) (models.LedgerAccount, error) {
	acct, err := l.loadOwned(ctx, tx, ins)
	if err != nil {
		return acct, err
	}

	before, err := tx.Holding(ctx, ins.Account)
	if err != nil {
		return acct, err
	}

	err = l.transfer(ctx, tx, ins.OperationID, ins.Authority, ins.Account, ins.Amount, models.MemoDeposit)
	if errors.Is(err, errInsufficientValue) {
		return acct, fmt.Errorf("%w: %v", ErrInsufficientExternalFunds, err)
	}
	if err != nil {
		return acct, err
	}

	// The transfer's own bookkeeping is not trusted blindly.
	after, err := tx.Holding(ctx, ins.Account)
	if err != nil {
		return acct, err
	}
	if grown, ok := checkedSub(after, before); !ok || grown != ins.Amount {
		return acct, fmt.Errorf("%w: %s went from %d to %d, expected +%d", ErrHoldingMismatch, ins.Account, before, after, ins.Amount)
	}

	balance, ok := checkedAdd(acct.Balance, ins.Amount)
	if !ok {
		return acct, fmt.Errorf("%w: %d + %d", ErrOverflow, acct.Balance, ins.Amount)
	}
	acct.Balance = balance

	if err := tx.PutAccount(ctx, ins.Account, acct); err != nil {
		return acct, err
	}
	return acct, nil
}
