// Package config loads runtime configuration for the paper-trading engine
// from the environment, in the spirit of a twelve-factor service: every
// setting has an env var name and (where sensible) a default.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-derived setting the engine, portfolio
// manager, strategy generator, and API server need at startup.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	BinanceWSEndpoint string
	BinanceUS         bool
	BinanceAPIKey     string
	BinanceSecretKey  string

	RefreshInterval       time.Duration
	SnapshotCooldown      time.Duration
	MtMPersistThreshold   time.Duration
	PortfolioTickInterval time.Duration
}

// Load reads configuration from the environment. DATABASE_URL is required;
// everything else falls back to a documented default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_addr", "0.0.0.0:8080")
	v.SetDefault("refresh_interval_seconds", 30)
	v.SetDefault("snapshot_cooldown_ms", 1000)
	v.SetDefault("mtm_persist_threshold_ms", 500)
	v.SetDefault("portfolio_tick_seconds", 60)

	dbURL := v.GetString("database_url")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		DatabaseURL:           dbURL,
		ServerAddr:            v.GetString("server_addr"),
		BinanceWSEndpoint:     v.GetString("binance_ws_endpoint"),
		BinanceUS:             v.IsSet("binance_us"),
		BinanceAPIKey:         v.GetString("binance_api_key"),
		BinanceSecretKey:      v.GetString("binance_secret_key"),
		RefreshInterval:       time.Duration(v.GetInt("refresh_interval_seconds")) * time.Second,
		SnapshotCooldown:      time.Duration(v.GetInt("snapshot_cooldown_ms")) * time.Millisecond,
		MtMPersistThreshold:   time.Duration(v.GetInt("mtm_persist_threshold_ms")) * time.Millisecond,
		PortfolioTickInterval: time.Duration(v.GetInt("portfolio_tick_seconds")) * time.Second,
	}, nil
}
