package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"boostchain/config"
	"boostchain/crypto"
	"boostchain/native/bank"
	"boostchain/native/boost"
	"boostchain/observability"
	"boostchain/observability/logging"
	"boostchain/rpc"
	"boostchain/storage"
)

// registryVault is the module account all locked boost deposits live under.
var registryVault = [20]byte{'b', 'o', 'o', 's', 't', '/', 'v', 'a', 'u', 'l', 't'}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("BOOST_ENV"))
	var sink io.Writer
	if strings.TrimSpace(cfg.LogFile) != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
	}
	logger := logging.Setup("boostd", env, sink)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine := boost.NewEngine()
	engine.SetState(boost.NewStore(db))
	engine.SetLedger(bank.NewLedger(db, registryVault))
	engine.SetChainID(cfg.ChainID)
	engine.SetBaseToken(cfg.BaseToken)

	if owner := strings.TrimSpace(cfg.ProtocolOwner); owner != "" {
		addr, err := crypto.DecodeAddress(owner)
		if err != nil {
			logger.Error("Invalid protocol owner address", slog.Any("error", err))
			os.Exit(1)
		}
		engine.SetProtocolOwner(addr.Array())

		createFee, err := cfg.CreateFeeAmount()
		if err != nil {
			logger.Error("Invalid fee configuration", slog.Any("error", err))
			os.Exit(1)
		}
		if err := engine.SetFeePolicy(addr.Array(), boost.FeePolicy{
			CreateFee:           createFee,
			TokenFeeDenominator: cfg.TokenFeeDenominator,
		}); err != nil {
			logger.Error("Failed to apply fee policy", slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := rpc.NewServer(engine, logger,
		rpc.WithRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		rpc.WithMetrics(observability.Gateway()),
	)

	logger.Info("boostd listening", slog.String("address", cfg.RPCAddress), slog.Uint64("chainID", cfg.ChainID))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
