package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

// New opens the cache selected by cfg.Driver.
func New(cfg config.CacheConfig, logger *zap.Logger) (repository.CacheRepository, error) {
	switch cfg.Driver {
	case config.CacheRedis, "":
		client, err := NewRedisClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisCache(client, logger), nil
	case config.CacheBadger:
		return NewBadgerCache(cfg.Badger, logger)
	case config.CacheBolt:
		return NewBoltCache(cfg.Bolt, logger)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}
