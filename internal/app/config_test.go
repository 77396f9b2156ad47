package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:    "0.0.0.0:8080",
		Cart:    CartConfig{StorageKey: "cart", MaxQuantity: 1},
		Storage: StorageConfig{Driver: DriverMemory},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "Memory", modify: func(*Config) {}},
		{name: "File", modify: func(c *Config) { c.Storage.Driver = DriverFile }},
		{
			name:    "PostgresWithoutURL",
			modify:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "database URL is required",
		},
		{
			name: "Postgres",
			modify: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.Storage.DatabaseURL = "postgres://localhost/cart"
			},
		},
		{
			name:    "UnknownDriver",
			modify:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: `unknown storage driver "redis"`,
		},
		{
			name:    "NoKey",
			modify:  func(c *Config) { c.Cart.StorageKey = "" },
			wantErr: "storage key is required",
		},
		{
			name:    "ZeroQuantity",
			modify:  func(c *Config) { c.Cart.MaxQuantity = 0 },
			wantErr: "max quantity must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/cart")
	t.Setenv("PORT", "9090")

	cfg := validConfig()
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/cart", cfg.Storage.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = validConfig()
	cfg.Addr = "127.0.0.1:7000"
	cfg.Storage.DatabaseURL = "postgres://explicit/cart"
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/cart", cfg.Storage.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "explicit address wins")
}
