package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"nftpresale/config"
	"nftpresale/core"
	"nftpresale/observability/logging"
	"nftpresale/rpc"
	"nftpresale/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PRESALE_ENV"))
	logger := logging.Setup("presaled", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	owner, err := cfg.Owner()
	if err != nil {
		logger.Error("Failed to resolve owner address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node := core.NewNode(db, core.NodeConfig{
		Owner:         owner,
		TokenName:     cfg.TokenName,
		TokenSymbol:   cfg.TokenSymbol,
		EnforceWindow: cfg.EnforceSaleWindow,
	}, logger)

	logger.Info("presale ledger ready",
		"owner", cfg.OwnerAddress,
		"token", cfg.TokenName,
		"symbol", cfg.TokenSymbol,
		"enforceWindow", cfg.EnforceSaleWindow)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
