package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "dev" {
		t.Fatalf("expected App.Env to be dev, got %q", cfg.App.Env)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.App.Port)
	}
	if cfg.Storage.Driver != StorageDriverFile {
		t.Fatalf("unexpected storage driver %q", cfg.Storage.Driver)
	}
	if !cfg.Pricing.ExpressMultiplier.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("unexpected express multiplier %s", cfg.Pricing.ExpressMultiplier)
	}
	if !cfg.Pricing.DeliveryFee.Equal(decimal.NewFromInt(49)) {
		t.Fatalf("unexpected delivery fee %s", cfg.Pricing.DeliveryFee)
	}
	if !cfg.Pricing.TaxPercent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected tax percent %s", cfg.Pricing.TaxPercent)
	}
	if got := cfg.Coupons.Codes["skawsh"]; got != 10 {
		t.Fatalf("expected default skawsh coupon at 10%%, got %d", got)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Fatalf("unexpected session idle ttl %v", cfg.Session.IdleTTL)
	}
	if cfg.DB.ConnMaxIdleTime != 10*time.Minute {
		t.Fatalf("unexpected idle time %v", cfg.DB.ConnMaxIdleTime)
	}
	if !cfg.DB.IsSQLite() {
		t.Fatalf("expected sqlite to be the default db driver")
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without an address")
	}
	if len(cfg.App.CORSOrigins) != 1 || cfg.App.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins %v", cfg.App.CORSOrigins)
	}
}

func TestLoad_RejectsNonPositiveSessionTTL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvSessionIdleTTL, "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected a zero session idle ttl to be rejected")
	}
}

func TestLoad_RedisDriverNeedsEndpoint(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without an endpoint to be rejected")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, "redis")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvTaxPercent, "18")
	t.Setenv(EnvCouponCodes, "skawsh:10,fresh:25")
	t.Setenv(EnvCORSOrigins, "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverRedis {
		t.Fatalf("unexpected storage driver %q", cfg.Storage.Driver)
	}
	if !cfg.Pricing.TaxPercent.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("unexpected tax percent %s", cfg.Pricing.TaxPercent)
	}
	if cfg.Coupons.Codes["fresh"] != 25 {
		t.Fatalf("expected fresh coupon to parse, got %v", cfg.Coupons.Codes)
	}
	if !cfg.Redis.Enabled() {
		t.Fatalf("expected redis to be enabled")
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Fatalf("expected two cors origins, got %v", cfg.App.CORSOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := map[string]struct {
		key   string
		value string
	}{
		"storage driver": {key: EnvStorageDriver, value: "cookie"},
		"db driver":      {key: EnvDBDriver, value: "oracle"},
		"multiplier":     {key: EnvExpressMultiplier, value: "0.5"},
		"tax":            {key: EnvTaxPercent, value: "120"},
		"fee":            {key: EnvDeliveryFee, value: "-1"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			setMinimalEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "dev")
	for _, key := range []string{
		EnvPort,
		EnvStorageDriver,
		EnvStorageFileDir,
		EnvSessionIdleTTL,
		EnvDBDriver,
		EnvDBDSN,
		EnvTaxPercent,
		EnvDeliveryFee,
		EnvExpressMultiplier,
		EnvCouponCodes,
		EnvRedisURL,
		EnvRedisAddr,
		EnvCORSOrigins,
	} {
		unsetEnv(t, key)
	}
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
}
