package memory

import (
	"context" // request-scoped context, checked before every tx operation
	"errors"
	"fmt"
	"sync" // RWMutex guards the committed state

	"github.com/google/uuid"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Committed state lives in the maps below; transactions stage their writes
// privately and apply them in one critical section on Commit.
type MemoryLedgerStore struct {
	mu         sync.RWMutex                   // protects everything below
	accounts   map[identity.PublicKey][]byte  // encoded records by address
	holdings   map[identity.PublicKey]uint64  // raw holding per address, missing = 0
	operations map[uuid.UUID]models.Operation // committed operations by id
	entries    []models.LedgerEntry           // journal, append-only
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:   make(map[identity.PublicKey][]byte),
		holdings:   make(map[identity.PublicKey]uint64),
		operations: make(map[uuid.UUID]models.Operation),
		entries:    make([]models.LedgerEntry, 0),
	}
}

// Begin opens a staging transaction. It never blocks; exclusivity between
// conflicting operations is the caller's job.
func (m *MemoryLedgerStore) Begin(ctx context.Context) (interfaces.StoreTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{
		store:      m,
		accounts:   make(map[identity.PublicKey][]byte),
		holdings:   make(map[identity.PublicKey]uint64),
		operations: make(map[uuid.UUID]models.Operation),
		created:    make(map[identity.PublicKey]struct{}),
	}, nil
}

func (m *MemoryLedgerStore) GetAccount(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error) {
	m.mu.RLock()
	data, ok := m.accounts[addr]
	m.mu.RUnlock()

	return decodeAccount(data, ok)
}

func (m *MemoryLedgerStore) GetHolding(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holdings[addr], nil
}

func (m *MemoryLedgerStore) GetEntriesByAddress(ctx context.Context, addr identity.PublicKey) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.Address == addr {
			result = append(result, e)
		}
	}
	return result, nil
}

func decodeAccount(data []byte, ok bool) (models.LedgerAccount, bool, error) {
	var acct models.LedgerAccount
	if !ok {
		return acct, false, nil
	}
	if err := acct.UnmarshalBinary(data); err != nil {
		return acct, false, err
	}
	return acct, true, nil
}

// memoryTx reads through its own staged writes first, then the committed state.
type memoryTx struct {
	store      *MemoryLedgerStore
	accounts   map[identity.PublicKey][]byte
	holdings   map[identity.PublicKey]uint64
	operations map[uuid.UUID]models.Operation
	entries    []models.LedgerEntry
	created    map[identity.PublicKey]struct{} // addresses staged by CreateAccount
	done       bool
}

func (tx *memoryTx) check(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	return ctx.Err()
}

func (tx *memoryTx) Account(ctx context.Context, addr identity.PublicKey) (models.LedgerAccount, bool, error) {
	if err := tx.check(ctx); err != nil {
		return models.LedgerAccount{}, false, err
	}
	if data, ok := tx.accounts[addr]; ok {
		return decodeAccount(data, true)
	}
	return tx.store.GetAccount(ctx, addr)
}

func (tx *memoryTx) CreateAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error {
	_, exists, err := tx.Account(ctx, addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", interfaces.ErrAccountExists, addr)
	}
	if err := tx.PutAccount(ctx, addr, acct); err != nil {
		return err
	}
	tx.created[addr] = struct{}{}
	return nil
}

func (tx *memoryTx) PutAccount(ctx context.Context, addr identity.PublicKey, acct models.LedgerAccount) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	data, err := acct.MarshalBinary()
	if err != nil {
		return err
	}
	tx.accounts[addr] = data
	return nil
}

func (tx *memoryTx) Holding(ctx context.Context, addr identity.PublicKey) (uint64, error) {
	if err := tx.check(ctx); err != nil {
		return 0, err
	}
	if v, ok := tx.holdings[addr]; ok {
		return v, nil
	}
	return tx.store.GetHolding(ctx, addr)
}

func (tx *memoryTx) SetHolding(ctx context.Context, addr identity.PublicKey, amount uint64) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	tx.holdings[addr] = amount
	return nil
}

func (tx *memoryTx) Operation(ctx context.Context, id uuid.UUID) (models.Operation, bool, error) {
	if err := tx.check(ctx); err != nil {
		return models.Operation{}, false, err
	}
	if op, ok := tx.operations[id]; ok {
		return op, true, nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	op, exists := tx.store.operations[id]
	return op, exists, nil
}

func (tx *memoryTx) SaveOperation(ctx context.Context, op models.Operation) error {
	_, exists, err := tx.Operation(ctx, op.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", interfaces.ErrOperationExists, op.ID)
	}
	tx.operations[op.ID] = op
	return nil
}

func (tx *memoryTx) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	tx.entries = append(tx.entries, entry)
	return nil
}

// Commit applies every staged write while holding the store's write lock,
// so readers see either none or all of them. It applies nothing if another
// transaction committed one of the same new records or operation ids first.
func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr := range tx.created {
		if _, ok := s.accounts[addr]; ok {
			return fmt.Errorf("%w: %s", interfaces.ErrAccountExists, addr)
		}
	}
	for id := range tx.operations {
		if _, ok := s.operations[id]; ok {
			return fmt.Errorf("%w: %s", interfaces.ErrOperationExists, id)
		}
	}

	for addr, data := range tx.accounts {
		s.accounts[addr] = data
	}
	for addr, v := range tx.holdings {
		s.holdings[addr] = v
	}
	for id, op := range tx.operations {
		s.operations[id] = op
	}
	s.entries = append(s.entries, tx.entries...)
	return nil
}

// Rollback discards the staged writes. Rolling back a finished tx is a no-op.
func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.accounts, tx.holdings, tx.operations, tx.entries, tx.created = nil, nil, nil, nil, nil
	return nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
