package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the boostd service configuration.
type Config struct {
	RPCAddress          string  `toml:"RPCAddress"`
	DataDir             string  `toml:"DataDir"`
	ChainID             uint64  `toml:"ChainID"`
	BaseToken           string  `toml:"BaseToken"`
	ProtocolOwner       string  `toml:"ProtocolOwner"`
	CreateFee           string  `toml:"CreateFee"`
	TokenFeeDenominator uint64  `toml:"TokenFeeDenominator"`
	LogFile             string  `toml:"LogFile"`
	LogMaxSizeMB        int     `toml:"LogMaxSizeMB"`
	LogMaxBackups       int     `toml:"LogMaxBackups"`
	RateLimitPerMinute  float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst      int     `toml:"RateLimitBurst"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateFeeAmount parses the configured flat creation fee.
func (c *Config) CreateFeeAmount() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.CreateFee)
	if trimmed == "" || trimmed == "0" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid CreateFee %q", c.CreateFee)
	}
	return amount, nil
}

// Validate checks the configuration for obvious mistakes.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if _, err := c.CreateFeeAmount(); err != nil {
		return err
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./boostd-data"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if strings.TrimSpace(cfg.BaseToken) == "" {
		cfg.BaseToken = "BOOST"
	}
	if cfg.LogMaxSizeMB == 0 {
		cfg.LogMaxSizeMB = 100
	}
	if cfg.LogMaxBackups == 0 {
		cfg.LogMaxBackups = 3
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
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
