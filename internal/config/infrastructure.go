package config

import "github.com/wekeepgrowing/qr-payment/pkg/messaging"

const (
	CacheRedis  = "redis"
	CacheBadger = "badger"
	CacheBolt   = "bolt"

	NotifierLog   = "log"
	NotifierRedis = "redis"
	NotifierKafka = "kafka"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BoltConfig struct {
	Path string `yaml:"path"`
}

type BadgerConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// CacheConfig selects the key-value store behind QR expiry tracking and idempotency.
type CacheConfig struct {
	Driver string       `yaml:"driver"`
	Redis  RedisConfig  `yaml:"redis"`
	Bolt   BoltConfig   `yaml:"bolt"`
	Badger BadgerConfig `yaml:"badger"`
}

// NotifierConfig selects where lifecycle broadcasts are delivered.
type NotifierConfig struct {
	Driver string                `yaml:"driver"`
	Redis  RedisConfig           `yaml:"redis"`
	Kafka  messaging.KafkaConfig `yaml:"kafka"`
}

// MailConfig enables SMTP delivery of email receipts. An empty SMTPHost
// keeps receipts log-only.
type MailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (m MailConfig) Enabled() bool { return m.SMTPHost != "" }
