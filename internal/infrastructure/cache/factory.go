package cache

import (
	"fmt"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SummaryCacheFactory creates summary caches based on configuration
type SummaryCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SummaryCacheFactoryOption is a functional option for configuring the factory
type SummaryCacheFactoryOption func(*SummaryCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SummaryCacheFactoryOption {
	return func(f *SummaryCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSummaryCacheFactory creates a new factory
func NewSummaryCacheFactory(cfg config.RedisConfig, opts ...SummaryCacheFactoryOption) *SummaryCacheFactory {
	f := &SummaryCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed summary cache
func (f *SummaryCacheFactory) CreateRedisCache() (appbilling.SummaryCache, error) {
	cache, err := NewRedisSummaryCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis summary cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory summary cache.
// WARNING: in-memory caches do not share state across process instances,
// so dashboards may briefly diverge in distributed deployments.
func (f *SummaryCacheFactory) CreateInMemoryCache() appbilling.SummaryCache {
	return NewInMemorySummaryCache()
}

// CreateCache creates a summary cache, preferring Redis and falling back to
// in-memory when Redis is unavailable and fallback is allowed
func (f *SummaryCacheFactory) CreateCache() (appbilling.SummaryCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis summary cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for summary cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory summary cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
