package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/metrics"
)

const idempotencyKeyPrefix = "transaction_idempotency:"

// claimMarker is stored while the claimer runs the operation. It is never a
// valid JSON result, so a reader can tell a claim from a stored response.
var claimMarker = []byte("\x00in-progress")

type IdempotencySettings struct {
	TTL          time.Duration
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// IdempotencyGate runs an operation at most once per key and replays its
// stored result to later callers.
type IdempotencyGate struct {
	cache    repository.CacheRepository
	settings IdempotencySettings
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewIdempotencyGate(cache repository.CacheRepository, settings IdempotencySettings, m *metrics.Metrics, logger *zap.Logger) *IdempotencyGate {
	if settings.TTL <= 0 {
		settings.TTL = time.Hour
	}
	if settings.WaitTimeout <= 0 {
		settings.WaitTimeout = 5 * time.Second
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 50 * time.Millisecond
	}
	return &IdempotencyGate{cache: cache, settings: settings, metrics: m, logger: logger}
}

// Execute returns the stored result for key, or claims the key, runs op and
// stores its result. A failed op releases the claim so the key can be retried.
func Execute[T any](ctx context.Context, g *IdempotencyGate, key string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cacheKey := idempotencyKeyPrefix + key

	if result, ok, err := lookup[T](ctx, g, cacheKey); err != nil || ok {
		if ok {
			g.metrics.Idempotency("replayed")
		}
		return result, err
	}

	claimed, err := g.cache.SetNX(ctx, cacheKey, claimMarker, g.settings.TTL)
	if err != nil {
		return zero, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		return wait[T](ctx, g, key, cacheKey)
	}

	result, err := op(ctx)
	if err != nil {
		if delErr := g.cache.Delete(context.WithoutCancel(ctx), cacheKey); delErr != nil {
			g.logger.Error("Failed to release idempotency claim", zap.String("key", key), zap.Error(delErr))
		}
		g.metrics.Idempotency("failed")
		return zero, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to encode idempotent result: %w", err)
	}
	if err := g.cache.Set(context.WithoutCancel(ctx), cacheKey, encoded, g.settings.TTL); err != nil {
		// The operation already happened; report its result and keep the claim.
		g.logger.Error("Failed to store idempotent result", zap.String("key", key), zap.Error(err))
	}
	g.metrics.Idempotency("executed")
	return result, nil
}

// ExecuteIdempotentOperation is the untyped form of Execute.
func (g *IdempotencyGate) ExecuteIdempotentOperation(ctx context.Context, key string, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return Execute(ctx, g, key, op)
}

func lookup[T any](ctx context.Context, g *IdempotencyGate, cacheKey string) (T, bool, error) {
	var result T
	raw, err := g.cache.Get(ctx, cacheKey)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return result, false, nil
		}
		return result, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if isClaim(raw) {
		return result, false, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, false, fmt.Errorf("failed to decode idempotent result: %w", err)
	}
	return result, true, nil
}

func wait[T any](ctx context.Context, g *IdempotencyGate, key, cacheKey string) (T, error) {
	var zero T
	deadline := time.NewTimer(g.settings.WaitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.settings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-deadline.C:
			g.metrics.Idempotency("in_progress")
			return zero, domainErrors.NewIdempotencyInProgressError(key)
		case <-ticker.C:
			result, ok, err := lookup[T](ctx, g, cacheKey)
			if err != nil {
				return zero, err
			}
			if ok {
				g.metrics.Idempotency("replayed")
				return result, nil
			}
		}
	}
}

func isClaim(raw []byte) bool {
	return string(raw) == string(claimMarker)
}
