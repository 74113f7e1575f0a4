// Package app assembles the service from configuration.
package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/cache"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/crypto"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/database"
	httpServer "github.com/wekeepgrowing/qr-payment/internal/infrastructure/http"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/mailer"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/notifier"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/provider/balance"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/qrcode"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/scheduler"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

// App owns every long-lived resource. Close releases them in reverse order
// of creation.
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Services httpServer.Services
	Cleanup  *scheduler.CleanupScheduler

	logger   *zap.Logger
	db       *gorm.DB
	cache    repository.CacheRepository
	notifier notifier.Closer
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}
	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg := a.Config
	q := cfg.QRPayment

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(a.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	if err := database.Migrate(db, a.logger); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	repos := database.NewRepositories(db, a.logger)

	store, err := cache.New(cfg.Cache, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	a.cache = store

	notify, err := notifier.New(cfg.Notifier, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	a.notifier = notify

	sealer, err := crypto.NewSealer(q.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}
	if q.Security.EncryptionKey == "" {
		a.logger.Warn("Encryption key not configured, auth data is stored unsealed")
	}

	renderer, err := qrcode.NewRenderer(q.QRCode.ErrorCorrection)
	if err != nil {
		return err
	}

	sessions := usecase.NewSessionService(repos.Session, usecase.SessionSettings{
		ExpiryWindow: q.ExpiryWindow(),
		Currency:     q.Transaction.Currency,
	}, m, a.logger)

	qrCodes := usecase.NewQRCodeService(store, renderer, usecase.QRSettings{
		ExpiryWindow: q.ExpiryWindow(),
		Size:         q.QRCode.Size,
		Format:       q.QRCode.Format,
	}, m, a.logger)

	notifications := usecase.NewNotificationService(notify, q.Broadcasting.Enabled, q.Transaction.Currency, m, a.logger)
	if cfg.Mail.Enabled() {
		notifications.SetReceiptMailer(mailer.NewSMTPReceiptMailer(cfg.Mail, a.logger))
	}

	gate := usecase.NewIdempotencyGate(store, usecase.IdempotencySettings{
		TTL:          q.Idempotency.TTL,
		WaitTimeout:  q.Idempotency.WaitTimeout,
		PollInterval: q.Idempotency.PollInterval,
	}, m, a.logger)

	transactions := usecase.NewTransactionService(
		repos.Transaction,
		sessions,
		balance.NewStaticProvider(q.BalanceLimit(), a.logger),
		notifications,
		gate,
		sealer,
		usecase.TransactionSettings{
			Timeout:  q.TransactionTimeout(),
			Currency: q.Transaction.Currency,
		},
		m,
		a.logger,
	)

	a.Services = httpServer.Services{
		Sessions:      sessions,
		QRCodes:       qrCodes,
		Transactions:  transactions,
		Notifications: notifications,
	}

	purger, _ := store.(repository.Purger)
	a.Cleanup = scheduler.NewCleanupScheduler(sessions, purger, q.CleanupInterval(), a.logger)
	return nil
}

// Close waits for pending notifications, then closes the notifier, cache
// and database. Errors are logged and joined.
func (a *App) Close() error {
	var errs []error
	if a.Services.Notifications != nil {
		a.Services.Notifications.Close()
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Error("Failed to close notifier", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("Failed to close cache", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := database.Close(a.db, a.logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
