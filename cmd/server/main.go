// Package main provides the entry point for the paper-trading backend:
// wires configuration, persistence, the market data adapter, and the three
// core services (Trading Engine, Portfolio Manager, Strategy Generator)
// behind an HTTP API.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/api"
	"github.com/atlas-desktop/krypto-paper/internal/config"
	"github.com/atlas-desktop/krypto-paper/internal/dbstore"
	"github.com/atlas-desktop/krypto-paper/internal/engine"
	"github.com/atlas-desktop/krypto-paper/internal/generator"
	"github.com/atlas-desktop/krypto-paper/internal/marketdata"
	"github.com/atlas-desktop/krypto-paper/internal/portfolio"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := dbstore.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer store.Close()

	market := marketdata.New(logger, marketdata.Config{
		WSEndpoint: cfg.BinanceWSEndpoint,
		US:         cfg.BinanceUS,
	})

	tradingEngine := engine.New(store, market, logger, engine.Config{
		SnapshotCooldown:    cfg.SnapshotCooldown,
		MtMPersistThreshold: cfg.MtMPersistThreshold,
	})
	portfolioManager := portfolio.New(store, logger, cfg.PortfolioTickInterval)
	strategyGenerator := generator.New(store, market, logger)

	server := api.New(logger, cfg.ServerAddr, store, strategyGenerator)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go tradingEngine.Run(ctx)
	go portfolioManager.Run(ctx)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server error", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.ServerAddr))

	<-sigChan
	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
