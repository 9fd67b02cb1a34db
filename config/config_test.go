package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Trading.StartingBalance.Equal(decimal.NewFromInt(10_000_000)))
	assert.Equal(t, int64(1), cfg.Trading.AdminUserID)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
	assert.Equal(t, 2, cfg.BatchProcessing.ProcessorCount)
	assert.Equal(t, 3, cfg.BatchProcessing.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.BatchProcessing.RetryDelay)
	assert.Equal(t, "info", cfg.LogLevel)

	floor, err := cfg.BalanceFloor()
	require.NoError(t, err)
	assert.Nil(t, floor, "no floor unless configured")
}

func TestParseFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "https://landsphere.in")
	t.Setenv("STARTING_BALANCE", "2500000.50")
	t.Setenv("BALANCE_FLOOR", "-100000")
	t.Setenv("ADMIN_USER_ID", "7")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("BATCH_RETRY_DELAY", "250ms")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"https://landsphere.in"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Trading.StartingBalance.Equal(decimal.RequireFromString("2500000.5")))
	assert.Equal(t, int64(7), cfg.Trading.AdminUserID)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.BatchProcessing.RetryDelay)

	floor, err := cfg.BalanceFloor()
	require.NoError(t, err)
	require.NotNil(t, floor)
	assert.True(t, floor.Equal(decimal.NewFromInt(-100000)))
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "starting balance", key: "STARTING_BALANCE", value: "lots"},
		{name: "balance floor", key: "BALANCE_FLOOR", value: "none"},
		{name: "admin id", key: "ADMIN_USER_ID", value: "root"},
		{name: "token ttl", key: "TOKEN_TTL", value: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_PATH=/srv/landsphere.db\nLOG_LEVEL=debug\n"), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("DB_PATH")
		os.Unsetenv("LOG_LEVEL")
	})

	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/srv/landsphere.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.LogLevel, "the environment wins over .env")
}

func TestLoadConfigWithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "database/landsphere.db", cfg.Database.Path)
}
