package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/lock"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
	"github.com/sheikh-saqib/custodial-ledger/internal/models/events"
)

// DefaultCreationFee is what allocating a 48-byte record costs the authority:
// (128 bytes of overhead + record size) * 3480 per byte-year * 2 years.
const DefaultCreationFee uint64 = (128 + models.AccountSize) * 3480 * 2

// Ledger executes the three record operations against a LedgerStore.
// Each operation holds the locks of the record and its authority for its
// whole store transaction and either commits everything or nothing.
type Ledger struct {
	store       interfaces.LedgerStore // the host: records, raw holdings, journal
	locker      interfaces.Locker      // per-record exclusion
	publisher   interfaces.EventPublisher
	programID   identity.PublicKey
	creationFee uint64
	topicPrefix string
	faucet      bool
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Ledger in NewLedger.
type Option func(*Ledger)

// WithLocker replaces the in-process locker, e.g. with a redis one shared by
// several instances.
func WithLocker(locker interfaces.Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

// WithPublisher sets where committed operations are announced. Without it
// nothing is published.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithCreationFee overrides DefaultCreationFee. Zero makes create free.
func WithCreationFee(fee uint64) Option {
	return func(l *Ledger) { l.creationFee = fee }
}

// WithTopicPrefix namespaces published topics, e.g. "ledger." gives
// "ledger.funds_deposited".
func WithTopicPrefix(prefix string) Option {
	return func(l *Ledger) { l.topicPrefix = prefix }
}

// WithFaucet enables Airdrop.
func WithFaucet(enabled bool) Option {
	return func(l *Ledger) { l.faucet = enabled }
}

// WithClock sets the time source for journal entries, operations and events.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger for programID over store. Without options it
// locks in-process and publishes nothing.
func NewLedger(store interfaces.LedgerStore, programID identity.PublicKey, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		locker:      lock.NewLocalLocker(),
		programID:   programID,
		creationFee: DefaultCreationFee,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("component", "ledger"))
	return l
}

// Result is the state of the targeted record after an operation.
type Result struct {
	OperationID uuid.UUID
	Kind        models.OpKind
	Address     identity.PublicKey
	Account     models.LedgerAccount
	Holding     uint64
	// Replayed is set when the operation id was already committed; nothing
	// was applied a second time.
	Replayed bool
}

// ProgramID is the id record addresses are derived under.
func (l *Ledger) ProgramID() identity.PublicKey { return l.programID }
func (l *Ledger) CreationFee() uint64           { return l.creationFee }
func (l *Ledger) FaucetEnabled() bool           { return l.faucet }

// DeriveAddress returns the record address and bump for authority.
func (l *Ledger) DeriveAddress(authority identity.PublicKey) (identity.PublicKey, uint8, error) {
	return models.DeriveAccountAddress(l.programID, authority)
}

// Execute authorizes and applies one signed instruction.
func (l *Ledger) Execute(ctx context.Context, si models.SignedInstruction) (Result, error) {
	ins := si.Instruction
	logger := l.logger.With(
		zap.String("operation_id", ins.OperationID.String()),
		zap.String("kind", ins.Kind.String()),
		zap.String("account", ins.Account.String()),
	)

	if !ins.Kind.Valid() {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownOperation, ins.Kind)
	}
	if err := l.authorize(si); err != nil {
		logger.Warn("instruction rejected", zap.Error(err))
		return Result{}, err
	}

	var res Result
	keys := []string{lockKey(ins.Account), lockKey(ins.Authority)}
	err := l.locker.WithLock(ctx, keys, func(ctx context.Context) error {
		var err error
		res, err = l.apply(ctx, ins)
		return storeConflict(err)
	})
	if err != nil {
		logger.Info("operation aborted", zap.Uint64("amount", ins.Amount), zap.Error(err))
		return Result{}, err
	}

	if res.Replayed {
		logger.Info("operation already committed, not reapplied")
		return res, nil
	}
	logger.Info("operation committed",
		zap.Uint64("amount", ins.Amount),
		zap.Uint64("balance", res.Account.Balance),
		zap.Uint64("holding", res.Holding))
	l.publishOperation(ctx, ins, res)
	return res, nil
}

// authorize checks the signature and that the target is the signer's record.
// The derivation check stands in for an explicit ownership lookup.
func (l *Ledger) authorize(si models.SignedInstruction) error {
	if !si.Verify() {
		return fmt.Errorf("%w: signature does not verify for %s", ErrUnauthorized, si.Authority)
	}
	want, _, err := l.DeriveAddress(si.Authority)
	if err != nil {
		return fmt.Errorf("derive account address: %w", err)
	}
	if want != si.Account {
		return fmt.Errorf("%w: %s is not the record of %s", ErrUnauthorized, si.Account, si.Authority)
	}
	return nil
}

func (l *Ledger) apply(ctx context.Context, ins models.Instruction) (res Result, err error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			l.rollback(tx)
		}
	}()

	res = Result{OperationID: ins.OperationID, Kind: ins.Kind, Address: ins.Account}

	// Idempotency check
	prior, seen, err := tx.Operation(ctx, ins.OperationID)
	if err != nil {
		return Result{}, err
	}
	if seen {
		if !prior.Matches(ins) {
			return Result{}, fmt.Errorf("%w: %s", ErrOperationConflict, ins.OperationID)
		}
		acct, _, err := tx.Account(ctx, ins.Account)
		if err != nil {
			return Result{}, err
		}
		holding, err := tx.Holding(ctx, ins.Account)
		if err != nil {
			return Result{}, err
		}
		res.Account, res.Holding, res.Replayed = acct, holding, true
		return res, tx.Rollback()
	}

	switch ins.Kind {
	case models.OpCreate:
		res.Account, err = l.create(ctx, tx, ins)
	case models.OpDeposit:
		res.Account, err = l.deposit(ctx, tx, ins)
	case models.OpWithdraw:
		res.Account, err = l.withdraw(ctx, tx, ins)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownOperation, ins.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	if res.Holding, err = tx.Holding(ctx, ins.Account); err != nil {
		return Result{}, err
	}
	if err = tx.SaveOperation(ctx, models.OperationFrom(ins, l.now())); err != nil {
		return Result{}, err
	}
	if err = tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// loadOwned fetches the record targeted by ins and checks it belongs to the signer.
func (l *Ledger) loadOwned(ctx context.Context, tx interfaces.StoreTx, ins models.Instruction) (models.LedgerAccount, error) {
	acct, ok, err := tx.Account(ctx, ins.Account)
	if err != nil {
		return acct, err
	}
	if !ok {
		return acct, fmt.Errorf("%w: %s", ErrAccountNotFound, ins.Account)
	}
	if acct.Authority != ins.Authority {
		return acct, fmt.Errorf("%w: record %s belongs to %s", ErrUnauthorized, ins.Account, acct.Authority)
	}
	return acct, nil
}

// Airdrop credits amount to addr's raw holding out of thin air. It exists so
// authorities have external value to deposit; production deployments leave
// it disabled.
func (l *Ledger) Airdrop(ctx context.Context, addr identity.PublicKey, amount uint64) (uint64, error) {
	if !l.faucet {
		return 0, ErrFaucetDisabled
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	opID := uuid.New()
	var holding uint64
	err := l.locker.WithLock(ctx, []string{lockKey(addr)}, func(ctx context.Context) (err error) {
		tx, err := l.store.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() {
			if err != nil {
				l.rollback(tx)
			}
		}()

		current, err := tx.Holding(ctx, addr)
		if err != nil {
			return err
		}
		next, ok := checkedAdd(current, amount)
		if !ok {
			return fmt.Errorf("%w: %d + %d", ErrOverflow, current, amount)
		}
		if err = tx.SetHolding(ctx, addr, next); err != nil {
			return err
		}
		if err = tx.SaveEntry(ctx, models.Credit(opID, addr, amount, models.MemoFaucet, l.now())); err != nil {
			return err
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		holding = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("faucet funded", zap.String("address", addr.String()), zap.Uint64("amount", amount))
	l.publish(ctx, events.TopicFaucetFunded, addr.String(), events.FaucetFunded{
		EventID:    uuid.NewString(),
		Address:    addr.String(),
		Amount:     amount,
		Holding:    holding,
		OccurredAt: l.now(),
	})
	return holding, nil
}

// GetAccount returns the record stored at addr.
func (l *Ledger) GetAccount(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, error) {
	acct, ok, err := l.store.GetAccount(ctx, addr)
	if err != nil {
		return acct, err
	}
	if !ok {
		return acct, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acct, nil
}

// GetHolding returns the raw holding at addr; unknown addresses hold 0.
func (l *Ledger) GetHolding(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	return l.store.GetHolding(ctx, addr)
}

// GetLedgerEntries lists the journal entries touching addr, oldest first.
func (l *Ledger) GetLedgerEntries(ctx context.Context, addr identity.PublicKey) ([]models.LedgerEntry, error) {
	entries, err := l.store.GetEntriesByAddress(ctx, addr)
	if err != nil {
		return []models.LedgerEntry{}, err
	}
	return entries, nil
}

// GetBalance recomputes an address's raw holding from its journal.
func (l *Ledger) GetBalance(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	entries, err := l.GetLedgerEntries(ctx, addr)
	if err != nil {
		return 0, err
	}
	sum := models.DecimalFromUint64(0)
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return models.Uint64FromDecimal(sum)
}

func (l *Ledger) publishOperation(ctx context.Context, ins models.Instruction, res Result) {
	var topic string
	switch ins.Kind {
	case models.OpCreate:
		topic = events.TopicAccountCreated
	case models.OpDeposit:
		topic = events.TopicFundsDeposited
	case models.OpWithdraw:
		topic = events.TopicFundsWithdrawn
	}
	l.publish(ctx, topic, ins.Account.String(), events.OperationCompleted{
		EventID:     uuid.NewString(),
		OperationID: ins.OperationID.String(),
		Kind:        ins.Kind.String(),
		Authority:   ins.Authority.String(),
		Account:     ins.Account.String(),
		Amount:      ins.Amount,
		Balance:     res.Account.Balance,
		Holding:     res.Holding,
		OccurredAt:  l.now(),
	})
}

// publish is best effort: the operation has already committed.
func (l *Ledger) publish(ctx context.Context, topic, key string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, l.topicPrefix+topic, key, event); err != nil {
		l.logger.Error("failed to publish event", zap.String("topic", l.topicPrefix+topic), zap.Error(err))
	}
}

func (l *Ledger) rollback(tx interfaces.StoreTx) {
	if err := tx.Rollback(); err != nil {
		l.logger.Error("rollback failed", zap.Error(err))
	}
}

// storeConflict turns a uniqueness failure reported by the store, which can
// surface as late as Commit, into the matching ledger rejection.
func storeConflict(err error) error {
	switch {
	case errors.Is(err, interfaces.ErrAccountExists):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case errors.Is(err, interfaces.ErrOperationExists):
		return fmt.Errorf("%w: %v", ErrOperationConflict, err)
	}
	return err
}

// lockKey names the lock guarding everything stored at addr.
func lockKey(addr identity.PublicKey) string {
	return "addr:" + addr.String()
}

// IsDomainError reports whether err is one of the ledger's own rejections,
// as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInsufficientFunds, ErrOverflow, ErrInsufficientExternalFunds, ErrAlreadyExists,
		ErrUnauthorized, ErrAccountNotFound, ErrUnknownOperation, ErrHoldingMismatch,
		ErrFaucetDisabled, ErrInvalidAmount, ErrOperationConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
