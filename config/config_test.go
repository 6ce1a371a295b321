package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boostd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress == "" || cfg.DataDir == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	// A second load reads the file back.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.RPCAddress != cfg.RPCAddress {
		t.Fatalf("reload mismatch: %q vs %q", again.RPCAddress, cfg.RPCAddress)
	}
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boostd.toml")
	contents := `
RPCAddress = "0.0.0.0:9000"
DataDir = "/var/lib/boostd"
ChainID = 42
CreateFee = "250"
TokenFeeDenominator = 10
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" || cfg.ChainID != 42 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	fee, err := cfg.CreateFeeAmount()
	if err != nil {
		t.Fatalf("fee amount: %v", err)
	}
	if fee.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("expected fee 250, got %s", fee)
	}
	if cfg.BaseToken != "BOOST" {
		t.Fatalf("base token default missing, got %q", cfg.BaseToken)
	}
}

func TestLoadRejectsBadFee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boostd.toml")
	contents := `
RPCAddress = "127.0.0.1:8645"
DataDir = "./data"
CreateFee = "not-a-number"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed CreateFee")
	}
}
