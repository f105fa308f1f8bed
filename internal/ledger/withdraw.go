package ledger

import (
	"context"
	"fmt"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// withdraw reduces the recorded balance first, then moves raw holding back
// to the authority. Every step is staged in tx, so a failure in a later step
// leaves no trace of the earlier ones.
func (l *Ledger) withdraw(ctx context.Context, tx interfaces.StoreTx, ins models.Instruction) (models.LedgerAccount, error) {
	acct, err := l.loadOwned(ctx, tx, ins)
	if err != nil {
		return acct, err
	}

	if acct.Balance < ins.Amount {
		return acct, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, acct.Balance, ins.Amount)
	}
	balance, ok := checkedSub(acct.Balance, ins.Amount)
	if !ok {
		return acct, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, acct.Balance, ins.Amount)
	}
	acct.Balance = balance
	if err := tx.PutAccount(ctx, ins.Account, acct); err != nil {
		return acct, err
	}

	// Second, independent check against what the record really holds.
	raw, err := tx.Holding(ctx, ins.Account)
	if err != nil {
		return acct, err
	}
	newRaw, ok := checkedSub(raw, ins.Amount)
	if !ok {
		return acct, fmt.Errorf("%w: raw holding %d, requested %d", ErrInsufficientFunds, raw, ins.Amount)
	}
	if err := tx.SetHolding(ctx, ins.Account, newRaw); err != nil {
		return acct, err
	}

	ext, err := tx.Holding(ctx, ins.Authority)
	if err != nil {
		return acct, err
	}
	newExt, ok := checkedAdd(ext, ins.Amount)
	if !ok {
		return acct, fmt.Errorf("%w: crediting %d to %s", ErrOverflow, ins.Amount, ins.Authority)
	}
	if err := tx.SetHolding(ctx, ins.Authority, newExt); err != nil {
		return acct, err
	}

	now := l.now()
	if err := tx.SaveEntry(ctx, models.Debit(ins.OperationID, ins.Account, ins.Amount, models.MemoWithdraw, now)); err != nil {
		return acct, err
	}
	if err := tx.SaveEntry(ctx, models.Credit(ins.OperationID, ins.Authority, ins.Amount, models.MemoWithdraw, now)); err != nil {
		return acct, err
	}
	return acct, nil
}
