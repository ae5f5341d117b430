package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Cart storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server      ServerConfig
	MedicineAPI MedicineAPIConfig
	Cart        CartConfig
	MongoDB     MongoDBConfig
	Reporting   ReportingConfig
	Sheets      SheetsConfig
	WhatsApp    WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// MedicineAPIConfig points at the remote medicine service.
type MedicineAPIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// Circuit breaker settings.
	BreakerTimeout      time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
}

// CartConfig selects where cart snapshots are persisted.
type CartConfig struct {
	Storage     string
	KeyName     string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	TTL         time.Duration
	MaxSessions int
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule      string
	RefreshSchedule   string
	Timezone          string
	LowStockThreshold int
}

// SheetsConfig contains configuration required to export inventory to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the Sheets export is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// WhatsAppConfig contains credentials for checkout alerts sent through the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	PharmacyPhone string
}

// Enabled reports whether checkout alerts can be sent.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.PharmacyPhone != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MedicineAPI: MedicineAPIConfig{
			BaseURL:             os.Getenv("MEDICINE_API_URL"),
			Token:               os.Getenv("MEDICINE_API_TOKEN"),
			Timeout:             getDuration("MEDICINE_API_TIMEOUT", 10*time.Second, &errs),
			BreakerTimeout:      getDuration("MEDICINE_API_BREAKER_TIMEOUT", 30*time.Second, &errs),
			BreakerMinRequests:  uint32(getInt("MEDICINE_API_BREAKER_MIN_REQUESTS", 5, &errs)),
			BreakerFailureRatio: getFloat("MEDICINE_API_BREAKER_FAILURE_RATIO", 0.5, &errs),
		},
		Cart: CartConfig{
			Storage:     strings.ToLower(getenvWithDefault("CART_STORAGE", StorageMemory)),
			KeyName:     getenvWithDefault("CART_STORAGE_KEY", "pharmacy-cart"),
			RedisAddr:   getenvWithDefault("REDIS_ADDR", "localhost:6379"),
			RedisPass:   os.Getenv("REDIS_PASSWORD"),
			RedisDB:     getInt("REDIS_DB", 0, &errs),
			TTL:         getDuration("CART_TTL", 0, &errs),
			MaxSessions: getInt("CART_MAX_SESSIONS", 10000, &errs),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "pharmacy"),
		},
		Reporting: ReportingConfig{
			CronSchedule:      getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			RefreshSchedule:   getenvWithDefault("CATALOG_REFRESH_CRON", "*/15 * * * *"),
			Timezone:          getenvWithDefault("TIMEZONE", "Africa/Conakry"),
			LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 5, &errs),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_INVENTORY_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			PharmacyPhone: os.Getenv("WHATSAPP_PHARMACY_PHONE"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MedicineAPI.BaseURL == "" {
		return errors.New("MEDICINE_API_URL must be provided")
	}
	if c.MedicineAPI.Timeout <= 0 {
		return errors.New("MEDICINE_API_TIMEOUT must be positive")
	}
	if c.MedicineAPI.BreakerFailureRatio <= 0 || c.MedicineAPI.BreakerFailureRatio > 1 {
		return errors.New("MEDICINE_API_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	if c.Cart.KeyName == "" {
		return errors.New("CART_STORAGE_KEY must not be empty")
	}
	if c.Cart.MaxSessions <= 0 {
		return errors.New("CART_MAX_SESSIONS must be positive")
	}
	switch c.Cart.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.Cart.RedisAddr == "" {
			return errors.New("REDIS_ADDR must be provided when CART_STORAGE=redis")
		}
	case StorageMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided when CART_STORAGE=mongo")
		}
	default:
		return fmt.Errorf("unsupported CART_STORAGE %q", c.Cart.Storage)
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Reporting.RefreshSchedule == "" {
		return errors.New("CATALOG_REFRESH_CRON must be provided")
	}
	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %s: %w", c.Reporting.Timezone, err)
	}
	if c.Reporting.LowStockThreshold < 0 {
		return errors.New("LOW_STOCK_THRESHOLD must not be negative")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_INVENTORY_ID must be set together")
	}

	if c.WhatsApp.AccessToken != "" && c.WhatsApp.PhoneNumberID == "" {
		return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided with WHATSAPP_TOKEN")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a number: %w", key, err))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration: %w", key, err))
		return fallback
	}
	return d
}
