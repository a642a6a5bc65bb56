// Package cache keeps a loaded dataset until its source changes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"IBSentinel/internal/loader"
	"IBSentinel/internal/model"
)

// DefaultTTL bounds how long a dataset stays in redis.
const DefaultTTL = 24 * time.Hour

const namespace = "ibsentinel:dataset"

// CachingSource decorates a loader.Source. Rows are kept in memory keyed
// by the source fingerprint and optionally shared through redis, so a
// reload happens only when the fingerprint changes. An empty fingerprint
// disables caching for that call.
type CachingSource struct {
	inner  loader.Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	fingerprint string
	rows        []model.RawRow
	loads       int
}

// New wraps inner. rdb may be nil to cache in memory only.
func New(inner loader.Source, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachingSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingSource{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachingSource) Name() string { return c.inner.Name() }

func (c *CachingSource) Fingerprint(ctx context.Context) (string, error) {
	return c.inner.Fingerprint(ctx)
}

// Loads reports how many times the wrapped source was read.
func (c *CachingSource) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Load returns the cached rows while the fingerprint is unchanged. The
// returned slice is shared and must not be modified.
func (c *CachingSource) Load(ctx context.Context) ([]model.RawRow, error) {
	fp, err := c.inner.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", c.inner.Name(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fp != "" && fp == c.fingerprint && c.rows != nil {
		c.logger.Debug("dataset cache hit", zap.String("source", c.inner.Name()))
		return c.rows, nil
	}

	if fp != "" && c.rdb != nil {
		if rows, ok := c.fromRedis(ctx, fp); ok {
			c.remember(ctx, fp, rows)
			c.logger.Info("dataset loaded from redis", zap.String("source", c.inner.Name()), zap.Int("rows", len(rows)))
			return rows, nil
		}
	}

	rows, err := c.inner.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.inner.Name(), err)
	}
	c.loads++
	c.logger.Info("dataset loaded", zap.String("source", c.inner.Name()), zap.Int("rows", len(rows)))

	if fp == "" {
		c.fingerprint, c.rows = "", nil
		return rows, nil
	}
	if c.rdb != nil {
		if b, err := json.Marshal(rows); err == nil {
			if err := c.rdb.Set(ctx, c.key(fp), b, c.ttl).Err(); err != nil {
				c.logger.Warn("redis set failed", zap.Error(err))
			}
		}
	}
	c.remember(ctx, fp, rows)
	return rows, nil
}

func (c *CachingSource) fromRedis(ctx context.Context, fp string) ([]model.RawRow, bool) {
	key := c.key(fp)
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	var rows []model.RawRow
	if err := json.Unmarshal(b, &rows); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false
	}
	return rows, true
}

// remember installs rows as the current version and drops the redis copy
// of the version it replaces.
func (c *CachingSource) remember(ctx context.Context, fp string, rows []model.RawRow) {
	if c.rdb != nil && c.fingerprint != "" && c.fingerprint != fp {
		_ = c.rdb.Del(ctx, c.key(c.fingerprint)).Err()
	}
	c.fingerprint, c.rows = fp, rows
}

func (c *CachingSource) key(fp string) string {
	return namespace + ":" + safe(c.inner.Name()) + ":" + safe(fp)
}

func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
