// Package scheduler runs the periodic session sweep.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

// SessionSweeper deletes sessions whose expiry has passed.
type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Sessions     int64
	CacheEntries int
}

type CleanupScheduler struct {
	sessions SessionSweeper
	purger   repository.Purger
	interval time.Duration
	logger   *zap.Logger

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// NewCleanupScheduler builds a scheduler. purger may be nil when the cache
// expires entries on its own.
func NewCleanupScheduler(sessions SessionSweeper, purger repository.Purger, interval time.Duration, logger *zap.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		sessions: sessions,
		purger:   purger,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce performs a single sweep. A cache purge failure does not stop the
// session cleanup and both errors are returned joined.
func (s *CleanupScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
	)

	n, err := s.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	result.Sessions = n

	if s.purger != nil {
		purged, err := s.purger.PurgeExpired(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		result.CacheEntries = purged
	}

	s.logger.Info("Cleanup sweep finished",
		zap.Int64("sessions_removed", result.Sessions),
		zap.Int("cache_entries_purged", result.CacheEntries))
	return result, errors.Join(errs...)
}

// Start sweeps every interval until ctx is cancelled or Stop is called.
func (s *CleanupScheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("Cleanup scheduler started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Cleanup scheduler stopped")
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("Cleanup sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep.
func (s *CleanupScheduler) Stop() {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
}
