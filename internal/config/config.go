// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	LockerLocal   = "local"
	LockerRedis   = "redis"
)

// DefaultProgramID is used when PROGRAM_ID is unset so that local runs
// derive stable addresses.
var DefaultProgramID = identity.PublicKey(sha256.Sum256([]byte("custodial-ledger/program")))

type Config struct {
	HTTPAddr         string `validate:"required"`
	ProgramID        identity.PublicKey
	CreationFee      uint64
	Store            string `validate:"oneof=memory postgres"`
	DatabaseURL      string `validate:"required_if=Store postgres"`
	Locker           string `validate:"oneof=local redis"`
	RedisAddr        string `validate:"required_if=Locker redis"`
	KafkaBrokers     []string
	KafkaTopicPrefix string
	FaucetEnabled    bool
	LogLevel         string
	LogFormat        string        `validate:"omitempty,oneof=json console"`
	ShutdownTimeout  time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads .env if present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		ProgramID:        DefaultProgramID,
		CreationFee:      ledger.DefaultCreationFee,
		Store:            getEnv("STORE", StoreMemory),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Locker:           getEnv("LOCKER", LockerLocal),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "ledger."),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		ShutdownTimeout:  10 * time.Second,
	}

	if v := os.Getenv("PROGRAM_ID"); v != "" {
		id, err := identity.ParsePublicKey(v)
		if err != nil {
			return Config{}, fmt.Errorf("PROGRAM_ID: %w", err)
		}
		cfg.ProgramID = id
	}
	if v := os.Getenv("CREATION_FEE"); v != "" {
		fee, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CREATION_FEE: %w", err)
		}
		cfg.CreationFee = fee
	}
	if v := os.Getenv("FAUCET_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("FAUCET_ENABLED: %w", err)
		}
		cfg.FaucetEnabled = enabled
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
