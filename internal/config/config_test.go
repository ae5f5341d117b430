package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MEDICINE_API_URL", "http://medicines.local/api")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://medicines.local/api", cfg.MedicineAPI.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.MedicineAPI.Timeout)
	assert.Equal(t, StorageMemory, cfg.Cart.Storage)
	assert.Equal(t, "pharmacy-cart", cfg.Cart.KeyName)
	assert.Equal(t, 10000, cfg.Cart.MaxSessions)
	assert.Equal(t, 5, cfg.Reporting.LowStockThreshold)
	assert.Equal(t, "*/15 * * * *", cfg.Reporting.RefreshSchedule)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoad_MissingMedicineAPI(t *testing.T) {
	t.Setenv("MEDICINE_API_URL", "")

	_, err := Load("testdata/missing.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDICINE_API_URL")
}

func TestLoad_InvalidNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("MEDICINE_API_TIMEOUT", "soon")

	_, err := Load("testdata/missing.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
	assert.Contains(t, err.Error(), "MEDICINE_API_TIMEOUT")
}

func TestLoad_RedisStorage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CART_STORAGE", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("CART_TTL", "72h")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Cart.Storage)
	assert.Equal(t, "cache:6379", cfg.Cart.RedisAddr)
	assert.Equal(t, 72*time.Hour, cfg.Cart.TTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: "8080"},
			MedicineAPI: MedicineAPIConfig{BaseURL: "http://x", Timeout: time.Second, BreakerFailureRatio: 0.5},
			Cart:        CartConfig{Storage: StorageMemory, KeyName: "pharmacy-cart", MaxSessions: 100},
			Reporting:   ReportingConfig{CronSchedule: "0 20 * * *", RefreshSchedule: "*/15 * * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown storage", mutate: func(c *Config) { c.Cart.Storage = "disk" }, wantErr: "CART_STORAGE"},
		{name: "no session capacity", mutate: func(c *Config) { c.Cart.MaxSessions = 0 }, wantErr: "CART_MAX_SESSIONS"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Cart.Storage = StorageMongo }, wantErr: "MONGODB_URI"},
		{name: "bad ratio", mutate: func(c *Config) { c.MedicineAPI.BreakerFailureRatio = 2 }, wantErr: "FAILURE_RATIO"},
		{name: "bad timezone", mutate: func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "half sheets", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEETS"},
		{name: "negative threshold", mutate: func(c *Config) { c.Reporting.LowStockThreshold = -1 }, wantErr: "LOW_STOCK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
