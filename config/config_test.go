package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/factures")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "simulated", cfg.Gateway)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 2*time.Second, cfg.GatewayDelay)
	assert.Equal(t, 0.95, cfg.GatewaySuccessRate)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "s3cret", cfg.JWTRefreshSecret, "refresh secret falls back to the access secret")
	assert.Equal(t, 10, cfg.AuthRateBurst)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("GATEWAY_SUCCESS_RATE", "0.5")
	t.Setenv("PAYMENT_LOCK_TTL", "1m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 0.5, cfg.GatewaySuccessRate)
	assert.Equal(t, time.Minute, cfg.LockTTL)
}

func TestLoadConfigInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Duration", key: "GATEWAY_TIMEOUT", val: "soon"},
		{name: "Float", key: "GATEWAY_SUCCESS_RATE", val: "most"},
		{name: "Burst", key: "AUTH_RATE_BURST", val: "ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret:          "s3cret",
			DBDriver:           "sqlite",
			DatabaseURL:        "factures.db",
			Gateway:            "simulated",
			GatewayTimeout:     time.Second,
			GatewaySuccessRate: 0.95,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Missing Secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "Unknown Driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "Missing Database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "Rate Above One", mutate: func(c *Config) { c.GatewaySuccessRate = 1.5 }, wantErr: "GATEWAY_SUCCESS_RATE"},
		{name: "Stellar Without Keys", mutate: func(c *Config) { c.Gateway = "stellar" }, wantErr: "STELLAR_SOURCE_SECRET"},
		{name: "Unknown Gateway", mutate: func(c *Config) { c.Gateway = "cash" }, wantErr: "PAYMENT_GATEWAY"},
		{name: "Zero Timeout", mutate: func(c *Config) { c.GatewayTimeout = 0 }, wantErr: "GATEWAY_TIMEOUT"},
		{name: "Lock Shorter Than Charge", mutate: func(c *Config) {
			c.RedisAddr = "localhost:6379"
			c.LockTTL = 10 * time.Second
			c.GatewayTimeout = 15 * time.Second
		}, wantErr: "PAYMENT_LOCK_TTL"},
		{name: "Lock Equal To Charge", mutate: func(c *Config) {
			c.RedisAddr = "localhost:6379"
			c.LockTTL = time.Second
		}, wantErr: "PAYMENT_LOCK_TTL"},
		{name: "Lock Outlives Charge", mutate: func(c *Config) {
			c.RedisAddr = "localhost:6379"
			c.LockTTL = 30 * time.Second
		}},
		{name: "Memory Lock Ignores TTL", mutate: func(c *Config) { c.LockTTL = time.Millisecond }},
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
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestInitDBMigratesSQLite(t *testing.T) {
	db, err := InitDB(&Config{DBDriver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "factures.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []string{"users", "clients", "invoices", "payments", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
