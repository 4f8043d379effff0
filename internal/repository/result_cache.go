package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	"BubbleScope/internal/service/metrics"
	"BubbleScope/pkg/cache"
)

var _ domrepo.ResultCache = (*ResultCache)(nil)

// ResultCache stores fit reports as JSON in a cache.Service.
type ResultCache struct {
	c       cache.Service
	ttl     time.Duration
	lockTTL time.Duration
}

// NewResultCache keeps reports for ttl. In-flight locks expire after
// lockTTL so a crashed fit does not block its key forever.
func NewResultCache(c cache.Service, ttl, lockTTL time.Duration) *ResultCache {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &ResultCache{c: c, ttl: ttl, lockTTL: lockTTL}
}

func (r *ResultCache) Get(ctx context.Context, key string) (*models.FitReport, error) {
	rep, err := cache.GetJSON[*models.FitReport](ctx, r.c, cache.Key("report", key))
	if errors.Is(err, cache.ErrCacheMiss) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("result cache get: %w", err)
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return rep, nil
}

func (r *ResultCache) Set(ctx context.Context, key string, rep *models.FitReport) error {
	if rep == nil {
		return nil
	}
	if err := cache.SetJSON(ctx, r.c, cache.Key("report", key), rep, r.ttl); err != nil {
		return fmt.Errorf("result cache set: %w", err)
	}
	return nil
}

func (r *ResultCache) Lock(ctx context.Context, key string) (bool, error) {
	return r.c.TryLock(ctx, cache.Key("inflight", key), r.lockTTL)
}

func (r *ResultCache) Unlock(ctx context.Context, key string) error {
	return r.c.Unlock(ctx, cache.Key("inflight", key))
}
