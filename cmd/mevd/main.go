// ====================================
// File: cmd/mevd/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-mev/internal/config"
	"github.com/rovshanmuradov/solana-mev/internal/logger"
	"github.com/rovshanmuradov/solana-mev/internal/scanner"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	development := flag.Bool("dev", false, "verbose console logging")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logCfg := logger.DefaultConfig()
	logCfg.Development = *development
	log, err := logger.New(logCfg)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting MEV scanner")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	runner, err := scanner.NewRunner(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize scanner", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Scanner execution error", zap.Error(err))
	}

	log.Info("Scanner stopped")
}
