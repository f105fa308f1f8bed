package client

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
)

const DefaultEndpoint = "http://localhost:8080"

// Config is the CLI's YAML file:
//
//	keypair: 4vJ9...           # base58, or a list of 64 byte values
//	endpoint: http://localhost:8080
//	program_id: 9xQe...        # optional, fetched from the server if empty
type Config struct {
	Keypair   KeypairValue `yaml:"keypair"`
	Endpoint  string       `yaml:"endpoint"`
	ProgramID string       `yaml:"program_id,omitempty"`
}

var ErrNoKeypair = errors.New("config has no keypair")

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Keypair.Keypair == nil {
		return Config{}, ErrNoKeypair
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return cfg, nil
}

// SaveConfig writes cfg to path with owner-only permissions.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ProgramKey parses ProgramID, reporting false when it is unset.
func (c Config) ProgramKey() (identity.PublicKey, bool, error) {
	if c.ProgramID == "" {
		return identity.PublicKey{}, false, nil
	}
	id, err := identity.ParsePublicKey(c.ProgramID)
	if err != nil {
		return identity.PublicKey{}, false, fmt.Errorf("program_id: %w", err)
	}
	return id, true, nil
}

// KeypairValue accepts a keypair either as a base58 string or as the
// 64-element byte list that key generation tools commonly write.
type KeypairValue struct {
	*identity.Keypair
}

func (k *KeypairValue) UnmarshalYAML(node *yaml.Node) error {
	var (
		kp  identity.Keypair
		err error
	)
	switch node.Kind {
	case yaml.ScalarNode:
		kp, err = identity.ParseKeypair(node.Value)
	case yaml.SequenceNode:
		var raw []byte
		var ints []int
		if err = node.Decode(&ints); err != nil {
			return err
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return fmt.Errorf("keypair byte %d out of range", v)
			}
			raw = append(raw, byte(v))
		}
		kp, err = identity.KeypairFromBytes(raw)
	default:
		return fmt.Errorf("line %d: keypair must be a string or a list of bytes", node.Line)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	k.Keypair = &kp
	return nil
}

func (k KeypairValue) MarshalYAML() (any, error) {
	if k.Keypair == nil {
		return "", nil
	}
	return k.Keypair.String(), nil
}
