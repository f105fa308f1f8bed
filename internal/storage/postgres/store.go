package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Migrate creates the tables if they do not exist yet.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// uniqueViolation is the SQLSTATE postgres reports for a duplicate key.
const uniqueViolation = "23505"

// Begin opens a SQL transaction. The first touch of an address takes a
// transaction-scoped advisory lock on it, so instances sharing the database
// serialize on an address even before any row for it exists.
func (p *PostgresLedgerStore) Begin(ctx context.Context) (interfaces.StoreTx, error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: dbTx, locked: make(map[identity.PublicKey]struct{})}, nil
}

func (p *PostgresLedgerStore) GetAccount(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error) {
	const query = `SELECT data FROM ledger_accounts WHERE address = $1`
	return scanAccount(p.db.QueryRowContext(ctx, query, addr[:]))
}

func (p *PostgresLedgerStore) GetHolding(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	const query = `SELECT amount FROM holdings WHERE address = $1`
	return scanHolding(p.db.QueryRowContext(ctx, query, addr[:]))
}

func (p *PostgresLedgerStore) GetEntriesByAddress(ctx context.Context, addr identity.PublicKey) ([]models.LedgerEntry, error) {
	const query = `SELECT id, operation_id, address, amount, memo, created_at FROM ledger_entries
	WHERE address = $1 ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query, addr[:])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry models.LedgerEntry
			raw   []byte
		)
		if err := rows.Scan(&entry.ID, &entry.OperationID, &raw, &entry.Amount, &entry.Memo, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if entry.Address, err = identity.PublicKeyFromBytes(raw); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanAccount(row *sql.Row) (models.LedgerAccount, bool, error) {
	var (
		acct models.LedgerAccount
		data []byte
	)
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return acct, false, nil
	}
	if err != nil {
		return acct, false, err
	}
	if err := acct.UnmarshalBinary(data); err != nil {
		return acct, false, err
	}
	return acct, true, nil
}

func scanHolding(row *sql.Row) (uint64, error) {
	var amount decimal.Decimal
	err := row.Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return models.Uint64FromDecimal(amount)
}

type postgresTx struct {
	tx     *sql.Tx
	locked map[identity.PublicKey]struct{} // addresses whose advisory lock is held
}

// lock takes the advisory lock for addr once per transaction. It is released
// by Commit or Rollback.
func (t *postgresTx) lock(ctx context.Context, addr identity.PublicKey) error {
	if _, ok := t.locked[addr]; ok {
		return nil
	}
	const query = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := t.tx.ExecContext(ctx, query, addr.String()); err != nil {
		return fmt.Errorf("postgres: lock %s: %w", addr, err)
	}
	t.locked[addr] = struct{}{}
	return nil
}

func (t *postgresTx) Account(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error) {
	if err := t.lock(ctx, addr); err != nil {
		return models.LedgerAccount{}, false, err
	}
	const query = `SELECT data FROM ledger_accounts WHERE address = $1 FOR UPDATE`
	return scanAccount(t.tx.QueryRowContext(ctx, query, addr[:]))
}

// CreateAccount is a plain INSERT: a record that appeared in the meantime
// fails it with a unique violation instead of being overwritten.
func (t *postgresTx) CreateAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error {
	if err := t.lock(ctx, addr); err != nil {
		return err
	}
	const query = `INSERT INTO ledger_accounts (address, data, updated_at) VALUES ($1, $2, now())`

	data, err := acct.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, query, addr[:], data)
	return translate(err, interfaces.ErrAccountExists)
}

func (t *postgresTx) PutAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error {
	if err := t.lock(ctx, addr); err != nil {
		return err
	}
	const query = `UPDATE ledger_accounts SET data = $2, updated_at = now() WHERE address = $1`

	data, err := acct.MarshalBinary()
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, query, addr[:], data)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return fmt.Errorf("postgres: no ledger account at %s", addr)
	}
	return nil
}

func (t *postgresTx) Holding(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	if err := t.lock(ctx, addr); err != nil {
		return 0, err
	}
	const query = `SELECT amount FROM holdings WHERE address = $1 FOR UPDATE`
	return scanHolding(t.tx.QueryRowContext(ctx, query, addr[:]))
}

func (t *postgresTx) SetHolding(ctx context.Context, addr identity.PublicKey, amount uint64) error {
	if err := t.lock(ctx, addr); err != nil {
		return err
	}
	const query = `INSERT INTO holdings (address, amount) VALUES ($1, $2)
	ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`

	_, err := t.tx.ExecContext(ctx, query, addr[:], models.DecimalFromUint64(amount))
	return err
}

func (t *postgresTx) Operation(ctx context.Context, id uuid.UUID) (models.Operation, bool, error) {
	const query = `SELECT kind, authority, account, amount, created_at FROM operations WHERE id = $1`

	var (
		op                 = models.Operation{ID: id}
		kind               string
		authority, account []byte
		amount             decimal.Decimal
	)
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&kind, &authority, &account, &amount, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Operation{}, false, nil
	}
	if err != nil {
		return models.Operation{}, false, err
	}
	if op.Kind, err = models.ParseOpKind(kind); err != nil {
		return models.Operation{}, false, err
	}
	if op.Authority, err = identity.PublicKeyFromBytes(authority); err != nil {
		return models.Operation{}, false, err
	}
	if op.Account, err = identity.PublicKeyFromBytes(account); err != nil {
		return models.Operation{}, false, err
	}
	if op.Amount, err = models.Uint64FromDecimal(amount); err != nil {
		return models.Operation{}, false, err
	}
	return op, true, nil
}

func (t *postgresTx) SaveOperation(ctx context.Context, op models.Operation) error {
	const query = `INSERT INTO operations (id, kind, authority, account, amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.ExecContext(ctx, query, op.ID, op.Kind.String(), op.Authority[:], op.Account[:],
		models.DecimalFromUint64(op.Amount), op.CreatedAt)
	return translate(err, interfaces.ErrOperationExists)
}

func (t *postgresTx) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, operation_id, address, amount, memo, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.ExecContext(ctx, query, entry.ID, entry.OperationID, entry.Address[:], entry.Amount, entry.Memo, entry.CreatedAt)
	return err
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

// Rollback after Commit is harmless.
func (t *postgresTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// translate reports a unique violation as sentinel.
func translate(err error, sentinel error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", sentinel, pqErr.Detail)
	}
	return err
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
