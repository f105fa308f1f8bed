package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/custodial-ledger/internal/api"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
	"github.com/sheikh-saqib/custodial-ledger/internal/storage/memory"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run(append([]string{"ledgerctl"}, args...))
	return out.String(), err
}

func TestLedgerctl_EndToEnd(t *testing.T) {
	program, err := identity.GenerateKeypair()
	require.NoError(t, err)
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(), program.PublicKey(), ledger.WithFaucet(true))
	srv := httptest.NewServer(adaptor.FiberApp(api.NewApp(api.NewHandler(l, nil), nil)))
	defer srv.Close()

	cfg := filepath.Join(t.TempDir(), "client.yaml")
	base := []string{"--config", cfg, "--endpoint", srv.URL}

	_, err = runCLI(t, append(base, "keygen")...)
	require.NoError(t, err)

	_, err = runCLI(t, append(base, "keygen")...)
	assert.Error(t, err, "refuses to overwrite")

	_, err = runCLI(t, append(base, "airdrop", "1")...)
	require.NoError(t, err)

	out, err := runCLI(t, append(base, "demo")...)
	require.NoError(t, err)
	assert.Contains(t, out, "final    = 30000000 (0.03 units)")

	out, err = runCLI(t, append(base, "--json", "show")...)
	require.NoError(t, err)
	var shown struct {
		Exists  bool `json:"exists"`
		Account struct {
			Balance uint64 `json:"balance"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.True(t, shown.Exists)
	assert.Equal(t, uint64(30_000_000), shown.Account.Balance)

	out, err = runCLI(t, append(base, "withdraw", "0.03")...)
	require.NoError(t, err)
	assert.Contains(t, out, "balance 0 ")

	_, err = runCLI(t, append(base, "withdraw", "0.000000001")...)
	assert.Error(t, err)

	_, err = runCLI(t, append(base, "deposit")...)
	assert.Error(t, err, "amount is required")

	_, err = runCLI(t, append(base, "deposit", "0.0000000001")...)
	assert.Error(t, err, "finer than one base unit")

	out, err = runCLI(t, append(base, "history")...)
	require.NoError(t, err)
	assert.Contains(t, out, "creation-fee")
	assert.Contains(t, out, "withdraw")
}
