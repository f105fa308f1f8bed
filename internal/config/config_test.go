package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
)

var envKeys = []string{
	"HTTP_ADDR", "PROGRAM_ID", "CREATION_FEE", "STORE", "DATABASE_URL",
	"LOCKER", "REDIS_ADDR", "KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX",
	"FAUCET_ENABLED", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, ledger.DefaultCreationFee, cfg.CreationFee)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, LockerLocal, cfg.Locker)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "ledger.", cfg.KafkaTopicPrefix)
	assert.False(t, cfg.FaucetEnabled)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	program := identity.PublicKey{7}
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PROGRAM_ID", program.String())
	t.Setenv("CREATION_FEE", "0")
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/ledger?sslmode=disable")
	t.Setenv("LOCKER", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("FAUCET_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, program, cfg.ProgramID)
	assert.Zero(t, cfg.CreationFee)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, LockerRedis, cfg.Locker)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.FaucetEnabled)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"program id", map[string]string{"PROGRAM_ID": "0OIl"}},
		{"creation fee", map[string]string{"CREATION_FEE": "-1"}},
		{"faucet flag", map[string]string{"FAUCET_ENABLED": "maybe"}},
		{"shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
		{"zero shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "0s"}},
		{"unknown store", map[string]string{"STORE": "sqlite"}},
		{"postgres without url", map[string]string{"STORE": "postgres"}},
		{"unknown locker", map[string]string{"LOCKER": "etcd"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
