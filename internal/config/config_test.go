package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Cart.Driver)
	assert.Equal(t, 720*time.Hour, cfg.Cart.TTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "auth-token", cfg.Auth.CookieName)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, int64(10000), cfg.Pricing.FreeDeliveryThreshold)
	assert.Equal(t, int64(500), cfg.Pricing.FlatDeliveryFee)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "storefront-notifier", cfg.Kafka.GroupID)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := inTempDir(t)
	yaml := `
server:
  addr: ":9090"
storage:
  driver: jsonfile
  path: /var/lib/storefront.json
cart:
  ttl: 1h
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("STOREFRONT_SERVER_ADDR", ":7070")
	t.Setenv("STOREFRONT_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("STOREFRONT_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "environment overrides the file")
	assert.Equal(t, "jsonfile", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/storefront.json", cfg.Storage.Path)
	assert.Equal(t, time.Hour, cfg.Cart.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.UsesDefaultSecret())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STOREFRONT_CART_DRIVER=redis\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STOREFRONT_CART_DRIVER") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Cart.Driver)
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	dir := inTempDir(t)

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	inTempDir(t)
	t.Setenv("STOREFRONT_STORAGE_DRIVER", "mongo")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}
