package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"alfredoptarigan/jd-matcher/internal/models"
)

// AnalysisCache holds projected analysis details. A miss returns (nil, nil).
type AnalysisCache interface {
	Get(ctx context.Context, analysisID string) (*models.AnalysisDetail, error)
	Set(ctx context.Context, detail *models.AnalysisDetail) error
	Invalidate(ctx context.Context, analysisID string) error
	Close() error
}

type redisAnalysisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisAnalysisCache(addr, password string, ttl time.Duration) (AnalysisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisAnalysisCache{rdb: rdb, ttl: ttl}, nil
}

func analysisCacheKey(id string) string {
	return "jdmatcher:analysis:" + id
}

func (c *redisAnalysisCache) Get(ctx context.Context, analysisID string) (*models.AnalysisDetail, error) {
	raw, err := c.rdb.Get(ctx, analysisCacheKey(analysisID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var detail models.AnalysisDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &detail, nil
}

func (c *redisAnalysisCache) Set(ctx context.Context, detail *models.AnalysisDetail) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, analysisCacheKey(detail.ID), raw, c.ttl).Err()
}

func (c *redisAnalysisCache) Invalidate(ctx context.Context, analysisID string) error {
	return c.rdb.Del(ctx, analysisCacheKey(analysisID)).Err()
}

func (c *redisAnalysisCache) Close() error {
	return c.rdb.Close()
}

type noopAnalysisCache struct{}

func NewNoopAnalysisCache() AnalysisCache {
	return noopAnalysisCache{}
}

func (noopAnalysisCache) Get(context.Context, string) (*models.AnalysisDetail, error) {
	return nil, nil
}

func (noopAnalysisCache) Set(context.Context, *models.AnalysisDetail) error { return nil }

func (noopAnalysisCache) Invalidate(context.Context, string) error { return nil }

func (noopAnalysisCache) Close() error { return nil }
