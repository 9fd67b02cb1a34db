package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Origins allowed to call the API from a browser
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	}

	Database struct {
		Path string `env:"DB_PATH" envDefault:"database/landsphere.db"`
	}

	Catalog struct {
		// Dataset export read by the import-catalog command
		CSVPath string `env:"CATALOG_CSV" envDefault:"data/LandSphere_India_Dataset_5000_Rows.csv"`
	}

	Trading struct {
		StartingBalance decimal.Decimal `env:"STARTING_BALANCE" envDefault:"10000000"`

		// Lowest balance a buy may leave behind; empty means no floor
		BalanceFloor string `env:"BALANCE_FLOOR"`

		// Account that sees the whole ledger on its dashboard
		AdminUserID int64 `env:"ADMIN_USER_ID" envDefault:"1"`
	}

	Auth struct {
		JWTSecret string        `env:"JWT_SECRET"`
		TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	}

	Prediction struct {
		// Base URL of the price model service; empty disables forecasts
		URL     string        `env:"PREDICTION_URL"`
		Timeout time.Duration `env:"PREDICTION_TIMEOUT" envDefault:"10s"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Number of catalog records written per transaction
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches that may wait in the import queue
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries
		RetryDelay time.Duration `env:"BATCH_RETRY_DELAY" envDefault:"5s"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
		return decimal.NewFromString(strings.TrimSpace(v))
	},
}

// LoadConfig reads an optional .env file from the working directory and then the
// environment. Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithFuncs(cfg, parsers); err != nil {
		return nil, err
	}
	if _, err := cfg.BalanceFloor(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BalanceFloor returns the configured floor, or nil when balances may go negative freely.
func (c *Config) BalanceFloor() (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Trading.BalanceFloor)
	if raw == "" {
		return nil, nil
	}
	floor, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid BALANCE_FLOOR %q: %w", raw, err)
	}
	return &floor, nil
}
