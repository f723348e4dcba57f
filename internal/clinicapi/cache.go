package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dentalbook/pkg/logging"
)

// DentistLister is the directory read the cache sits in front of.
type DentistLister interface {
	ListDentists(ctx context.Context) ([]Dentist, error)
}

// DentistCache keeps the dentist directory in Redis for a short TTL so that
// calendar and slot screens opened in quick succession share one fetch.
// Redis trouble never fails a read: the backend is queried instead.
type DentistCache struct {
	redis  *redis.Client
	source DentistLister
	ttl    time.Duration
	key    string
	logger *logging.Logger
}

// NewDentistCache wraps source. A nil redis client disables caching.
// namespace separates entries for different backends sharing one Redis.
func NewDentistCache(redisClient *redis.Client, source DentistLister, namespace string, ttl time.Duration, logger *logging.Logger) *DentistCache {
	if source == nil {
		panic("clinicapi: dentist source required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DentistCache{
		redis:  redisClient,
		source: source,
		ttl:    ttl,
		key:    fmt.Sprintf("dentalbook:dentists:%s", namespace),
		logger: logger,
	}
}

// ListDentists returns the cached directory, refreshing it from the backend
// on a miss.
func (c *DentistCache) ListDentists(ctx context.Context) ([]Dentist, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.key).Bytes()
		switch {
		case err == nil:
			var dentists []Dentist
			if jsonErr := json.Unmarshal(data, &dentists); jsonErr == nil {
				return dentists, nil
			}
			c.logger.Warn("dentist cache entry corrupt, refetching", "key", c.key)
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("dentist cache read failed", "error", err, "key", c.key)
		}
	}

	dentists, err := c.source.ListDentists(ctx)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(dentists); err == nil {
			if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("dentist cache write failed", "error", err, "key", c.key)
			}
		}
	}
	return dentists, nil
}

// GetDentist returns one dentist from the (possibly cached) directory.
func (c *DentistCache) GetDentist(ctx context.Context, id ID) (*Dentist, error) {
	dentists, err := c.ListDentists(ctx)
	if err != nil {
		return nil, err
	}
	return FindDentist(dentists, id)
}

// Invalidate drops the cached directory.
func (c *DentistCache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("clinicapi: invalidate dentist cache: %w", err)
	}
	return nil
}
