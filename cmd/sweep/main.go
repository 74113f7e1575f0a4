// Command sweep runs one expired-session cleanup and exits. It is meant for
// cron-style scheduling when the server's own scheduler is not used.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/app"
	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	application, err := app.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	result, err := application.Cleanup.RunOnce(ctx)
	cancel()

	closeErr := application.Close()
	if err != nil {
		zapLogger.Fatal("Cleanup sweep failed", zap.Error(err))
	}
	if closeErr != nil {
		zapLogger.Error("Failed to release resources", zap.Error(closeErr))
	}

	zapLogger.Info("Cleanup sweep complete",
		zap.Int64("sessions_removed", result.Sessions),
		zap.Int("cache_entries_purged", result.CacheEntries))
}
