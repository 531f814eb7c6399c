package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nftpresale/crypto"
)

type Config struct {
	RPCAddress        string `toml:"RPCAddress"`
	DataDir           string `toml:"DataDir"`
	OwnerAddress      string `toml:"OwnerAddress"`
	TokenName         string `toml:"TokenName"`
	TokenSymbol       string `toml:"TokenSymbol"`
	EnforceSaleWindow bool   `toml:"EnforceSaleWindow"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded values before the node boots with them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return fmt.Errorf("OwnerAddress must not be empty")
	}
	if _, err := c.Owner(); err != nil {
		return err
	}
	return nil
}

// Owner decodes the configured owner address.
func (c *Config) Owner() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.OwnerAddress))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid OwnerAddress: %w", err)
	}
	return addr.Array(), nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./presale-data"
	}
	if strings.TrimSpace(cfg.TokenName) == "" {
		cfg.TokenName = "PresaleToken"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "PST"
	}
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate owner key: %w", err)
	}
	cfg := &Config{OwnerAddress: key.PubKey().Address().String()}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
