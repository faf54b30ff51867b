package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fullmargin/factures/models"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	Env         string
	DBDriver    string // postgres, sqlite
	DatabaseURL string

	JWTSecret        string
	JWTRefreshSecret string
	JWTExpiry        time.Duration
	JWTRefreshExpiry time.Duration

	LogLevel  string
	LogFormat string

	Gateway            string // simulated, stellar
	GatewayTimeout     time.Duration
	GatewayDelay       time.Duration
	GatewaySuccessRate float64

	HorizonURL        string
	NetworkPassphrase string
	StellarSecret     string
	SettlementAccount string
	StellarAssetCode  string
	StellarIssuer     string

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	AuthRatePerSecond float64
	AuthRateBurst     int
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "3000"),
		Env:         getEnvOrDefault("APP_ENV", "development"),
		DBDriver:    getEnvOrDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "console"),

		Gateway: getEnvOrDefault("PAYMENT_GATEWAY", "simulated"),

		HorizonURL:        getEnvOrDefault("HORIZON_URL", "https://horizon-testnet.stellar.org"),
		NetworkPassphrase: getEnvOrDefault("NETWORK_PASSPHRASE", "Test SDF Network ; September 2015"),
		StellarSecret:     os.Getenv("STELLAR_SOURCE_SECRET"),
		SettlementAccount: os.Getenv("STELLAR_SETTLEMENT_ACCOUNT"),
		StellarAssetCode:  getEnvOrDefault("STELLAR_ASSET_CODE", "XLM"),
		StellarIssuer:     os.Getenv("STELLAR_ASSET_ISSUER"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.JWTExpiry, err = getDurationOrDefault("JWT_EXPIRE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshExpiry, err = getDurationOrDefault("JWT_REFRESH_EXPIRE", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.GatewayTimeout, err = getDurationOrDefault("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.GatewayDelay, err = getDurationOrDefault("GATEWAY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDurationOrDefault("PAYMENT_LOCK_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.GatewaySuccessRate, err = getFloatOrDefault("GATEWAY_SUCCESS_RATE", 0.95); err != nil {
		return nil, err
	}
	if cfg.AuthRatePerSecond, err = getFloatOrDefault("AUTH_RATE_PER_SECOND", 5); err != nil {
		return nil, err
	}
	burst, err := getFloatOrDefault("AUTH_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.AuthRateBurst = int(burst)

	return cfg, nil
}

// Validate reports the first configuration problem that would prevent the server from starting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		c.JWTRefreshSecret = c.JWTSecret
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.Gateway {
	case "simulated":
		if c.GatewaySuccessRate < 0 || c.GatewaySuccessRate > 1 {
			return fmt.Errorf("GATEWAY_SUCCESS_RATE must be within [0, 1], got %v", c.GatewaySuccessRate)
		}
	case "stellar":
		if c.StellarSecret == "" || c.SettlementAccount == "" {
			return errors.New("STELLAR_SOURCE_SECRET and STELLAR_SETTLEMENT_ACCOUNT are required for the stellar gateway")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_GATEWAY %q", c.Gateway)
	}
	if c.GatewayTimeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	// A redis lease must outlive the charge it guards.
	if c.RedisAddr != "" && c.LockTTL <= c.GatewayTimeout {
		return fmt.Errorf("PAYMENT_LOCK_TTL (%s) must be longer than GATEWAY_TIMEOUT (%s)", c.LockTTL, c.GatewayTimeout)
	}
	return nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Env == "production" {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the five tables. Order matters for the foreign keys.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Invoice{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
