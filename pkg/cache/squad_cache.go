package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

const (
	poolPrefix  = "pool:"
	squadPrefix = "squad:"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// SquadCacheService stores candidate pools and the last optimized squad of each
// session. A session holds at most one squad; saving a new one replaces it.
type SquadCacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewSquadCacheService creates a new squad cache service
func NewSquadCacheService(client *redis.Client, logger *logrus.Logger) *SquadCacheService {
	return &SquadCacheService{
		client: client,
		logger: logger,
	}
}

// SetCandidatePool stores a candidate pool under its source name
func (c *SquadCacheService) SetCandidatePool(ctx context.Context, source string, pool []types.Candidate, expiration time.Duration) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate pool: %w", err)
	}

	fullKey := poolPrefix + source
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set candidate pool in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": expiration,
		"candidates": len(pool),
	}).Debug("Cached candidate pool")

	return nil
}

// GetCandidatePool retrieves a candidate pool; ErrCacheMiss when absent
func (c *SquadCacheService) GetCandidatePool(ctx context.Context, source string) ([]types.Candidate, error) {
	fullKey := poolPrefix + source
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("candidate pool %s: %w", source, ErrCacheMiss)
		}
		return nil, fmt.Errorf("failed to get candidate pool from cache: %w", err)
	}

	var pool []types.Candidate
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate pool: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"candidates": len(pool),
	}).Debug("Retrieved candidate pool from cache")

	return pool, nil
}

// SetLastSquad creates or overwrites the session's squad slot
func (c *SquadCacheService) SetLastSquad(ctx context.Context, sessionID string, report *types.SquadReport, expiration time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return c.SetWithRetry(ctx, squadPrefix+sessionID, report, expiration, 3)
}

// GetLastSquad returns the session's squad; ErrCacheMiss when the slot is empty
func (c *SquadCacheService) GetLastSquad(ctx context.Context, sessionID string) (*types.SquadReport, error) {
	fullKey := squadPrefix + sessionID
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("squad for session %s: %w", sessionID, ErrCacheMiss)
		}
		return nil, fmt.Errorf("failed to get squad from cache: %w", err)
	}

	var report types.SquadReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal squad: %w", err)
	}
	return &report, nil
}

// ClearLastSquad empties the session's squad slot. Clearing an empty slot is not an error.
func (c *SquadCacheService) ClearLastSquad(ctx context.Context, sessionID string) error {
	fullKey := squadPrefix + sessionID
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete squad from cache: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Cleared squad slot")
	return nil
}

// Ping checks the connection
func (c *SquadCacheService) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetStatus returns cache statistics
func (c *SquadCacheService) GetStatus(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service":   "squad-cache",
		"timestamp": time.Now(),
		"connected": true,
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		status["connected"] = false
		status["error"] = err.Error()
		return status
	}

	if dbSize := c.client.DBSize(ctx); dbSize.Err() == nil {
		status["db_size"] = dbSize.Val()
	}

	if poolKeys, err := c.client.Keys(ctx, poolPrefix+"*").Result(); err == nil {
		status["pool_keys"] = len(poolKeys)
	}

	if squadKeys, err := c.client.Keys(ctx, squadPrefix+"*").Result(); err == nil {
		status["squad_keys"] = len(squadKeys)
	}

	return status
}

// FlushSquads clears every session's squad slot
func (c *SquadCacheService) FlushSquads(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, squadPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to get squad keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete squad keys: %w", err)
		}
	}

	c.logger.WithField("deleted_keys", len(keys)).Info("Flushed squad cache")
	return nil
}

// SetWithRetry attempts to set a cache entry with retries
func (c *SquadCacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
			lastErr = err
			c.logger.WithError(err).WithField("attempt", i+1).Warn("Cache set attempt failed")
			select {
			case <-ctx.Done():
				return fmt.Errorf("cache set cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to set cache after %d retries: %w", maxRetries, lastErr)
}
