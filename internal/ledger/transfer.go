package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// transfer moves amount of raw holding from one address to another inside tx
// and journals both sides. Nothing is written unless both checks pass.
func (l *Ledger) transfer(ctx context.Context, tx interfaces.StoreTx, opID uuid.UUID, from, to identity.PublicKey, amount uint64, memo string) error {
	src, err := tx.Holding(ctx, from)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", errInsufficientValue, from, src, amount)
	}
	if from == to {
		return nil
	}

	dst, err := tx.Holding(ctx, to)
	if err != nil {
		return err
	}
	newDst, ok := checkedAdd(dst, amount)
	if !ok {
		return fmt.Errorf("%w: crediting %d to %s", ErrOverflow, amount, to)
	}

	if err := tx.SetHolding(ctx, from, src-amount); err != nil {
		return err
	}
	if err := tx.SetHolding(ctx, to, newDst); err != nil {
		return err
	}

	now := l.now()
	if err := tx.SaveEntry(ctx, models.Debit(opID, from, amount, memo, now)); err != nil {
		return err
	}
	return tx.SaveEntry(ctx, models.Credit(opID, to, amount, memo, now))
}
