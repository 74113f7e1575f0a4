package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_DefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	q := cfg.QRPayment
	assert.Equal(t, 5*time.Minute, q.ExpiryWindow())
	assert.Equal(t, 2*time.Minute, q.TransactionTimeout())
	assert.Equal(t, time.Hour, q.CleanupInterval())
	assert.Equal(t, 300, q.QRCode.Size)
	assert.Equal(t, "png", q.QRCode.Format)
	assert.Equal(t, "M", q.QRCode.ErrorCorrection)
	assert.Equal(t, "USD", q.Transaction.Currency)
	assert.Equal(t, "10000", q.MaxAmount().String())
	assert.Equal(t, "50", q.MaxOfflineAmount().String())
	assert.Equal(t, "100000", q.BalanceLimit().String())
	assert.True(t, q.Broadcasting.Enabled)
	assert.Equal(t, "qr_payment_", cfg.Database.TablePrefix)
	assert.Equal(t, time.Hour, q.Idempotency.TTL)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qr-payment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  environment: production
database:
  driver: sqlite
  path: /tmp/qr.db
cache:
  driver: bolt
qr_payment:
  qr_code:
    expiry_minutes: 10
    size: 400
  idempotency:
    ttl: 30m
`), 0o600))

	t.Setenv("QR_PAYMENT_SIZE", "500")
	t.Setenv("QR_PAYMENT_BROADCASTING_ENABLED", "false")
	t.Setenv("QR_PAYMENT_TABLE_PREFIX", "pay_")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/qr.db", cfg.Database.DSN())
	assert.Equal(t, CacheBolt, cfg.Cache.Driver)
	assert.Equal(t, 10, cfg.QRPayment.QRCode.ExpiryMinutes)
	assert.Equal(t, 500, cfg.QRPayment.QRCode.Size)
	assert.False(t, cfg.QRPayment.Broadcasting.Enabled)
	assert.Equal(t, "pay_", cfg.Database.TablePrefix)
	assert.Equal(t, 30*time.Minute, cfg.QRPayment.Idempotency.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero expiry", func(c *Config) { c.QRPayment.QRCode.ExpiryMinutes = 0 }},
		{"size too small", func(c *Config) { c.QRPayment.QRCode.Size = 50 }},
		{"unknown format", func(c *Config) { c.QRPayment.QRCode.Format = "gif" }},
		{"unknown level", func(c *Config) { c.QRPayment.QRCode.ErrorCorrection = "X" }},
		{"bad currency", func(c *Config) { c.QRPayment.Transaction.Currency = "US" }},
		{"unknown db driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"unknown notifier", func(c *Config) { c.Notifier.Driver = "pusher" }},
	}

	assert.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", pg.DSN())

	my := DatabaseConfig{Driver: DriverMySQL, Host: "db", Port: 3306, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "u:p@tcp(db:3306)/n?charset=utf8mb4&parseTime=True&loc=UTC", my.DSN())

	withURL := DatabaseConfig{Driver: DriverPostgres, URL: "postgres://x"}
	assert.Equal(t, "postgres://x", withURL.DSN())
}
