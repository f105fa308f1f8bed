package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/custodial-ledger/internal/config"
	"github.com/sheikh-saqib/custodial-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/custodial-ledger/internal/events/zaplog"
	"github.com/sheikh-saqib/custodial-ledger/internal/lock"
	"github.com/sheikh-saqib/custodial-ledger/internal/storage/memory"
)

func TestWire_Defaults(t *testing.T) {
	deps, err := wire(context.Background(), config.Config{
		Store:  config.StoreMemory,
		Locker: config.LockerLocal,
	}, zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	assert.IsType(t, &memory.MemoryLedgerStore{}, deps.store)
	assert.IsType(t, &lock.LocalLocker{}, deps.locker)
	assert.IsType(t, &zaplog.Publisher{}, deps.publisher)
}

func TestWire_RedisAndKafka(t *testing.T) {
	mr := miniredis.RunT(t)
	deps, err := wire(context.Background(), config.Config{
		Store:        config.StoreMemory,
		Locker:       config.LockerRedis,
		RedisAddr:    mr.Addr(),
		KafkaBrokers: []string{"localhost:9092"},
	}, zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	assert.IsType(t, &lock.RedisLocker{}, deps.locker)
	assert.IsType(t, &kafka.Publisher{}, deps.publisher)
	assert.Len(t, deps.closers, 2)
}

func TestWire_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := wire(context.Background(), config.Config{
		Store:     config.StoreMemory,
		Locker:    config.LockerRedis,
		RedisAddr: addr,
	}, zap.NewNop())
	assert.Error(t, err)
}
