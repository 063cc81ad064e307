package predictor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"premium-predictor/internal/common/database"
	apperrors "premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/common/metrics"
)

// DefaultCacheTimeout bounds a single Redis call when CacheOptions.Timeout
// is unset.
const DefaultCacheTimeout = 100 * time.Millisecond

// CacheOptions configures CachedPredictor.
type CacheOptions struct {
	TTL     time.Duration
	Timeout time.Duration // per Lookup/Set, independent of the caller's deadline
	Prefix  string
}

// CachedPredictor answers repeated records from Redis. Cache errors are
// logged and never fail a prediction.
type CachedPredictor struct {
	next    Predictor
	redis   *database.RedisClient
	ttl     time.Duration
	timeout time.Duration
	prefix  string
	logger  logger.Logger
}

func NewCachedPredictor(next Predictor, redis *database.RedisClient, opts CacheOptions, log logger.Logger) *CachedPredictor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCacheTimeout
	}
	return &CachedPredictor{
		next:    next,
		redis:   redis,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		prefix:  opts.Prefix,
		logger: log.WithFields(map[string]interface{}{
			"predictor": "cache",
		}),
	}
}

func (c *CachedPredictor) Name() string { return "cached-" + Name(c.next) }

func (c *CachedPredictor) Predict(ctx context.Context, input map[string]interface{}) (float64, error) {
	key, err := c.Key(input)
	if err != nil {
		return c.next.Predict(ctx, input)
	}

	raw, found, err := c.lookup(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.degraded("read", key, err)
	case found:
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		}
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	premium, err := c.next.Predict(ctx, input)
	if err != nil {
		return 0, err
	}

	if err := c.store(ctx, key, premium); err != nil {
		c.degraded("write", key, err)
	}
	return premium, nil
}

func (c *CachedPredictor) lookup(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.redis.Lookup(ctx, key)
}

func (c *CachedPredictor) store(ctx context.Context, key string, premium float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.redis.Set(ctx, key, strconv.FormatFloat(premium, 'f', -1, 64), c.ttl)
}

func (c *CachedPredictor) degraded(op, key string, err error) {
	stdErr := apperrors.NewCacheUnavailableError(err)
	c.logger.Warn("prediction cache "+op+" failed", map[string]interface{}{
		"key":       key,
		"errorCode": string(stdErr.Code),
		"category":  apperrors.GetErrorCategory(stdErr.Code),
		"error":     stdErr.Details,
	})
}

// Key derives the cache key from the canonical JSON of the record.
// encoding/json sorts map keys, so equal records share a key.
func (c *CachedPredictor) Key(input map[string]interface{}) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	sum := sha256.Sum256(data)
	return c.prefix + hex.EncodeToString(sum[:]), nil
}
