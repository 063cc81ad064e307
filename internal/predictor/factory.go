package predictor

import (
	"fmt"
	"time"

	"premium-predictor/internal/common/config"
	"premium-predictor/internal/common/database"
	"premium-predictor/internal/common/logger"
)

// FromConfig builds the configured collaborator, wrapped in the Redis cache
// when redis is non-nil and caching is enabled.
func FromConfig(cfg *config.Config, redis *database.RedisClient, log logger.Logger) (Predictor, error) {
	var p Predictor
	switch cfg.Predictor.Type {
	case config.PredictorTypeHTTP:
		p = NewHTTPPredictor(HTTPConfigFrom(cfg.Predictor.HTTP), log)
	case config.PredictorTypeLinear:
		p = NewLinearModel(cfg.Predictor.Linear)
	default:
		return nil, fmt.Errorf("unknown predictor type %q", cfg.Predictor.Type)
	}

	if cfg.Cache.Enabled && redis != nil {
		p = NewCachedPredictor(p, redis, CacheOptions{
			TTL:     time.Duration(cfg.Cache.TTL) * time.Second,
			Timeout: config.GetDuration(cfg.Cache.Timeout),
			Prefix:  cfg.Cache.KeyPrefix,
		}, log)
	}
	return p, nil
}
