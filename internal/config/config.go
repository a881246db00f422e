// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the stocklot server.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// IdempotencyEnabled turns on X-Idempotency-Key replay for mutating routes.
	IdempotencyEnabled bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"true"`
	IdempotencyTTL     time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"10m"`

	// AdjustmentCostPolicy sets the cost basis for stock-adjustment increases:
	// "zero" or "last_cost". There is no silent default inside the service;
	// the deployment decides.
	AdjustmentCostPolicy string `envconfig:"ADJUSTMENT_COST_POLICY" default:"last_cost"`

	// AdjustmentPostsLedger controls whether cost-bearing adjustments post a
	// transaction to the financial ledger.
	AdjustmentPostsLedger bool `envconfig:"ADJUSTMENT_POSTS_LEDGER" default:"true"`

	// OverageTolerance permits receiving up to this fraction over the
	// ordered quantity per purchase item (0.1 = 10%). Zero means exact
	// match required.
	OverageTolerance float64 `envconfig:"RECEIVE_OVERAGE_TOLERANCE" default:"0"`
}

// Load reads configuration from the environment, first merging a local .env
// file when present (development convenience; ignored if missing).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
