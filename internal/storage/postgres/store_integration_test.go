//go:build integration

package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"math"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

func setupStore(t *testing.T) *PostgresLedgerStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresLedgerStore(db)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate is idempotent")
	return store
}

func keypair(t *testing.T, b byte) identity.Keypair {
	t.Helper()
	kp, err := identity.KeypairFromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

func TestIntegration_Postgres_Scenario(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	l := ledger.NewLedger(store, keypair(t, 200).PublicKey(), ledger.WithFaucet(true))
	a := keypair(t, 1)

	exec := func(kind models.OpKind, amount uint64) (ledger.Result, error) {
		ins, err := models.NewInstruction(kind, l.ProgramID(), a.PublicKey(), amount)
		require.NoError(t, err)
		return l.Execute(ctx, ins.Sign(a))
	}

	_, err := l.Airdrop(ctx, a.PublicKey(), 10_000_000)
	require.NoError(t, err)

	res, err := exec(models.OpCreate, 0)
	require.NoError(t, err)
	addr := res.Address

	_, err = exec(models.OpCreate, 0)
	assert.ErrorIs(t, err, ledger.ErrAlreadyExists)

	_, err = exec(models.OpDeposit, 1000)
	require.NoError(t, err)
	_, err = exec(models.OpWithdraw, 400)
	require.NoError(t, err)
	_, err = exec(models.OpWithdraw, 700)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	acct, err := l.GetAccount(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), acct.Balance)

	holding, err := l.GetHolding(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultCreationFee+600, holding)

	fromJournal, err := l.GetBalance(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, holding, fromJournal)
}

func TestIntegration_Postgres_FullRangeHoldings(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	addr := keypair(t, 3).PublicKey()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetHolding(ctx, addr, math.MaxUint64))
	require.NoError(t, tx.Commit())

	got, err := store.GetHolding(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
}

func TestIntegration_Postgres_RollbackDiscards(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	addr := keypair(t, 4).PublicKey()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetHolding(ctx, addr, 42))
	require.NoError(t, tx.CreateAccount(ctx, addr, models.LedgerAccount{Authority: addr, Balance: 1}))
	require.NoError(t, tx.Rollback())

	got, err := store.GetHolding(ctx, addr)
	require.NoError(t, err)
	assert.Zero(t, got)
	_, ok, err := store.GetAccount(ctx, addr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegration_Postgres_CreateNeverOverwrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	addr := keypair(t, 5).PublicKey()
	acct := models.LedgerAccount{Authority: keypair(t, 6).PublicKey()}

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAccount(ctx, addr, acct))
	require.NoError(t, tx.Commit())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	acct.Balance = 1000
	require.NoError(t, tx.PutAccount(ctx, addr, acct))
	require.NoError(t, tx.Commit())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	err = tx.CreateAccount(ctx, addr, models.LedgerAccount{Authority: acct.Authority})
	assert.ErrorIs(t, err, interfaces.ErrAccountExists)
	require.NoError(t, tx.Rollback())

	got, ok, err := store.GetAccount(ctx, addr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), got.Balance)
}

// Two ledgers over one database, each with only its in-process locker,
// behave like two server instances.
func TestIntegration_Postgres_InstancesShareExclusion(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	program := keypair(t, 200).PublicKey()
	instances := []*ledger.Ledger{
		ledger.NewLedger(store, program, ledger.WithFaucet(true)),
		ledger.NewLedger(store, program, ledger.WithFaucet(true)),
	}
	a := keypair(t, 7)

	_, err := instances[0].Airdrop(ctx, a.PublicKey(), 100_000_000)
	require.NoError(t, err)

	run := func(kind models.OpKind, amount uint64, rounds int) []error {
		var (
			mu   sync.Mutex
			errs []error
			wg   sync.WaitGroup
		)
		for i := 0; i < rounds; i++ {
			l := instances[i%len(instances)]
			wg.Add(1)
			go func() {
				defer wg.Done()
				ins, err := models.NewInstruction(kind, program, a.PublicKey(), amount)
				if err == nil {
					_, err = l.Execute(ctx, ins.Sign(a))
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()
		return errs
	}

	created := 0
	for _, err := range run(models.OpCreate, 0, 4) {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ledger.ErrAlreadyExists)
	}
	assert.Equal(t, 1, created)

	for _, err := range run(models.OpDeposit, 1000, 10) {
		require.NoError(t, err)
	}

	addr, _, err := instances[0].DeriveAddress(a.PublicKey())
	require.NoError(t, err)
	acct, err := instances[1].GetAccount(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), acct.Balance)

	holding, err := instances[1].GetHolding(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultCreationFee+10_000, holding)

	own, err := instances[0].GetHolding(ctx, a.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000)-ledger.DefaultCreationFee-10_000, own)
}
