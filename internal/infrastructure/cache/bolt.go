package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/config"
	"github.com/wekeepgrowing/qr-payment/internal/domain/repository"
)

var boltBucket = []byte("qr_payment_cache")

// BoltCache keeps entries in a single bolt file. Each value is prefixed with
// its expiry as 8 bytes of big-endian unix nanoseconds (0 = never). Expired
// entries read as misses and are removed by PurgeExpired.
type BoltCache struct {
	db     *bolt.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewBoltCache(cfg config.BoltConfig, logger *zap.Logger) (*BoltCache, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt file %s: %w", cfg.Path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db, logger: logger, now: time.Now}, nil
}

func (c *BoltCache) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(key))
		v, live := c.decode(raw)
		if !live {
			return repository.ErrCacheMiss
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (c *BoltCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), c.encode(value, ttl))
	})
}

// SetNX is atomic because bolt allows a single read-write transaction at a time.
func (c *BoltCache) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored := false
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if _, live := c.decode(b.Get([]byte(key))); live {
			return nil
		}
		stored = true
		return b.Put([]byte(key), c.encode(value, ttl))
	})
	return stored, err
}

func (c *BoltCache) Delete(_ context.Context, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *BoltCache) PurgeExpired(_ context.Context) (int, error) {
	purged := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		cur := tx.Bucket(boltBucket).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if _, live := c.decode(v); live {
				continue
			}
			if err := cur.Delete(); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		c.logger.Info("Purged expired cache entries", zap.Int("count", purged))
	}
	return purged, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) encode(value []byte, ttl time.Duration) []byte {
	var expires int64
	if ttl > 0 {
		expires = c.now().Add(ttl).UnixNano()
	}
	out := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(out, uint64(expires))
	copy(out[8:], value)
	return out
}

func (c *BoltCache) decode(raw []byte) ([]byte, bool) {
	if len(raw) < 8 {
		return nil, false
	}
	expires := int64(binary.BigEndian.Uint64(raw[:8]))
	if expires != 0 && c.now().UnixNano() >= expires {
		return nil, false
	}
	return raw[8:], true
}
