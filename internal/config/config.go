package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	envconfig "github.com/wekeepgrowing/qr-payment/pkg/config"
	"github.com/wekeepgrowing/qr-payment/pkg/logger"
)

const defaultConfigPath = "./configs/qr-payment.yaml"

type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Log       logger.Config   `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Mail      MailConfig      `yaml:"mail"`
	QRPayment QRPaymentConfig `yaml:"qr_payment"`
}

type JWTConfig struct {
	// Secret enables bearer-token auth on the actor routes when non-empty.
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// LoadConfig reads CONFIG_PATH (or the default path) on top of the
// built-in defaults, then applies QR_PAYMENT_* environment overrides.
// A missing file is not an error.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*Config, error) {
	cfg := Default()

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg, envconfig.NewEnvSource("qr_payment"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "qr-payment",
			Environment: "development",
			Version:     "dev",
			RoutePrefix: "/qr-payment",
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
			GRPC: GRPCConfig{Host: "0.0.0.0", Port: 9090, Enabled: true},
		},
		Database: DatabaseConfig{
			Driver:        DriverPostgres,
			Host:          "localhost",
			Port:          5432,
			Name:          "qr_payment",
			User:          "postgres",
			SSLMode:       "disable",
			MaxOpenConns:  25,
			MaxIdleConns:  5,
			TablePrefix:   "qr_payment_",
			LogLevel:      "warn",
			SlowThreshold: defaultSlowThreshold,
		},
		Cache: CacheConfig{
			Driver: CacheRedis,
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Bolt:   BoltConfig{Path: "data/qr-payment-cache.db"},
			Badger: BadgerConfig{Path: "data/badger"},
		},
		Notifier: NotifierConfig{
			Driver: NotifierLog,
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Mail:      MailConfig{SMTPPort: 587, From: "receipts@qr-payment.local"},
		Log:       logger.Config{Level: "info", Format: "json", Output: "stdout"},
		QRPayment: DefaultQRPayment(),
	}
}

func applyEnv(cfg *Config, env *envconfig.EnvSource) {
	q := &cfg.QRPayment
	env.Int("expiry_minutes", &q.QRCode.ExpiryMinutes)
	env.Int("size", &q.QRCode.Size)
	env.String("format", &q.QRCode.Format)
	env.String("error_correction", &q.QRCode.ErrorCorrection)
	env.Int("session_timeout", &q.Session.TimeoutMinutes)
	env.Int("cleanup_interval", &q.Session.CleanupIntervalMinutes)
	env.String("encryption_key", &q.Security.EncryptionKey)
	env.Int("rate_limit", &q.Security.RateLimit)
	env.Int64("max_offline_amount", &q.Security.MaxOfflineAmount)
	env.String("currency", &q.Transaction.Currency)
	env.Int("decimal_places", &q.Transaction.DecimalPlaces)
	env.Int64("max_amount", &q.Transaction.MaxAmount)
	env.Bool("broadcasting_enabled", &q.Broadcasting.Enabled)
	env.String("broadcast_connection", &q.Broadcasting.Connection)

	env.String("db_connection", &cfg.Database.Driver)
	env.String("table_prefix", &cfg.Database.TablePrefix)
	env.String("database.dsn", &cfg.Database.URL)
	env.String("database.host", &cfg.Database.Host)
	env.Int("database.port", &cfg.Database.Port)
	env.String("database.password", &cfg.Database.Password)

	env.String("cache.driver", &cfg.Cache.Driver)
	env.String("cache.redis.addr", &cfg.Cache.Redis.Addr)
	env.String("notifier.driver", &cfg.Notifier.Driver)
	env.String("notifier.redis.addr", &cfg.Notifier.Redis.Addr)
	env.StringSlice("notifier.kafka.brokers", &cfg.Notifier.Kafka.Brokers)
	env.String("jwt.secret", &cfg.JWT.Secret)
	env.String("mail.smtp_host", &cfg.Mail.SMTPHost)
	env.Int("mail.smtp_port", &cfg.Mail.SMTPPort)
	env.String("mail.username", &cfg.Mail.Username)
	env.String("mail.password", &cfg.Mail.Password)
	env.String("mail.from", &cfg.Mail.From)
	env.String("log.level", &cfg.Log.Level)
	env.String("environment", &cfg.Service.Environment)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if err := c.QRPayment.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}
	switch c.Cache.Driver {
	case CacheRedis, CacheBadger, CacheBolt:
	default:
		problems = append(problems, fmt.Sprintf("unknown cache driver %q", c.Cache.Driver))
	}
	switch c.Notifier.Driver {
	case NotifierLog, NotifierRedis, NotifierKafka:
	default:
		problems = append(problems, fmt.Sprintf("unknown notifier driver %q", c.Notifier.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether internal endpoints must stay disabled.
func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}
