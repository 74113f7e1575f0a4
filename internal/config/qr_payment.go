package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QRPaymentConfig mirrors the qr-payment settings that the original
// package exposed through QR_PAYMENT_* variables. Money limits are in
// minor units (cents).
type QRPaymentConfig struct {
	QRCode       QRCodeConfig       `yaml:"qr_code"`
	Session      SessionConfig      `yaml:"session"`
	Security     SecurityConfig     `yaml:"security"`
	Transaction  TransactionConfig  `yaml:"transaction"`
	Broadcasting BroadcastingConfig `yaml:"broadcasting"`
	Balance      BalanceConfig      `yaml:"balance"`
	Idempotency  IdempotencyConfig  `yaml:"idempotency"`
}

type QRCodeConfig struct {
	ExpiryMinutes   int    `yaml:"expiry_minutes"`
	Size            int    `yaml:"size"`
	Format          string `yaml:"format"`
	ErrorCorrection string `yaml:"error_correction"`
}

type SessionConfig struct {
	// TimeoutMinutes bounds how long a transaction waits for customer confirmation.
	TimeoutMinutes         int `yaml:"timeout_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

type SecurityConfig struct {
	// EncryptionKey is a 64 char hex AES-256 key used to seal auth data at rest.
	EncryptionKey string `yaml:"encryption_key"`
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit        int   `yaml:"rate_limit"`
	MaxOfflineAmount int64 `yaml:"max_amount_offline"`
}

type TransactionConfig struct {
	Currency      string `yaml:"currency"`
	DecimalPlaces int    `yaml:"decimal_places"`
	MaxAmount     int64  `yaml:"max_amount"`
}

type BroadcastingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Connection string `yaml:"connection"`
}

type BalanceConfig struct {
	// InsufficientAbove makes the static oracle refuse amounts above this limit.
	InsufficientAbove int64 `yaml:"insufficient_above"`
}

type IdempotencyConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func DefaultQRPayment() QRPaymentConfig {
	return QRPaymentConfig{
		QRCode: QRCodeConfig{
			ExpiryMinutes:   5,
			Size:            300,
			Format:          "png",
			ErrorCorrection: "M",
		},
		Session: SessionConfig{
			TimeoutMinutes:         2,
			CleanupIntervalMinutes: 60,
		},
		Security: SecurityConfig{
			RateLimit:        60,
			MaxOfflineAmount: 5000,
		},
		Transaction: TransactionConfig{
			Currency:      "USD",
			DecimalPlaces: 2,
			MaxAmount:     1000000,
		},
		Broadcasting: BroadcastingConfig{
			Enabled:    true,
			Connection: "log",
		},
		Balance: BalanceConfig{
			InsufficientAbove: 10000000,
		},
		Idempotency: IdempotencyConfig{
			TTL:          time.Hour,
			WaitTimeout:  5 * time.Second,
			PollInterval: 50 * time.Millisecond,
		},
	}
}

func (q QRPaymentConfig) Validate() error {
	var errs []error
	if q.QRCode.ExpiryMinutes <= 0 {
		errs = append(errs, errors.New("qr_code.expiry_minutes must be positive"))
	}
	if q.QRCode.Size < 100 || q.QRCode.Size > 1000 {
		errs = append(errs, fmt.Errorf("qr_code.size %d out of range 100..1000", q.QRCode.Size))
	}
	switch strings.ToLower(q.QRCode.Format) {
	case "png", "jpg", "jpeg", "svg":
	default:
		errs = append(errs, fmt.Errorf("qr_code.format %q is not supported", q.QRCode.Format))
	}
	switch strings.ToUpper(q.QRCode.ErrorCorrection) {
	case "L", "M", "Q", "H":
	default:
		errs = append(errs, fmt.Errorf("qr_code.error_correction %q is not one of L, M, Q, H", q.QRCode.ErrorCorrection))
	}
	if q.Session.TimeoutMinutes <= 0 {
		errs = append(errs, errors.New("session.timeout_minutes must be positive"))
	}
	if q.Session.CleanupIntervalMinutes <= 0 {
		errs = append(errs, errors.New("session.cleanup_interval_minutes must be positive"))
	}
	if len(q.Transaction.Currency) != 3 {
		errs = append(errs, fmt.Errorf("transaction.currency %q must be a 3 letter code", q.Transaction.Currency))
	}
	if q.Transaction.DecimalPlaces < 0 || q.Transaction.DecimalPlaces > 4 {
		errs = append(errs, errors.New("transaction.decimal_places must be between 0 and 4"))
	}
	if q.Transaction.MaxAmount <= 0 {
		errs = append(errs, errors.New("transaction.max_amount must be positive"))
	}
	return errors.Join(errs...)
}

func (q QRPaymentConfig) ExpiryWindow() time.Duration {
	return time.Duration(q.QRCode.ExpiryMinutes) * time.Minute
}

func (q QRPaymentConfig) TransactionTimeout() time.Duration {
	return time.Duration(q.Session.TimeoutMinutes) * time.Minute
}

func (q QRPaymentConfig) CleanupInterval() time.Duration {
	return time.Duration(q.Session.CleanupIntervalMinutes) * time.Minute
}

// MaxAmount converts the minor-unit limit to a decimal amount.
func (q QRPaymentConfig) MaxAmount() decimal.Decimal {
	return q.minorToMajor(q.Transaction.MaxAmount)
}

func (q QRPaymentConfig) MaxOfflineAmount() decimal.Decimal {
	return q.minorToMajor(q.Security.MaxOfflineAmount)
}

func (q QRPaymentConfig) BalanceLimit() decimal.Decimal {
	return q.minorToMajor(q.Balance.InsufficientAbove)
}

func (q QRPaymentConfig) minorToMajor(v int64) decimal.Decimal {
	return decimal.New(v, -int32(q.Transaction.DecimalPlaces))
}
