package services

import (
	"context"
	"encoding/json"
	"time"

	"mlbattle/internal/logger"
	"mlbattle/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	leaderboardKeyPrefix = "leaderboard:"
	leaderboardTTL       = 5 * time.Second
)

// LeaderboardCache keeps short-lived ranked snapshots in redis so hot
// leaderboard reads skip the recompute. Snapshots expire on their own and are
// dropped eagerly whenever the board changes; the store stays authoritative,
// so cache failures only cost a recompute.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: leaderboardTTL}
}

func (c *LeaderboardCache) Get(ctx context.Context, problemID string) ([]models.LeaderboardEntry, bool) {
	val, err := c.client.Get(ctx, leaderboardKeyPrefix+problemID).Result()
	if err != nil {
		// Includes redis.Nil on a plain miss.
		return nil, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		logger.Log.Warn("Discarding malformed leaderboard snapshot",
			zap.String("problem_id", problemID),
			zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, problemID string, entries []models.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		logger.Log.Warn("Failed to encode leaderboard snapshot",
			zap.String("problem_id", problemID),
			zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, leaderboardKeyPrefix+problemID, data, c.ttl).Err(); err != nil {
		logger.Log.Warn("Failed to cache leaderboard snapshot",
			zap.String("problem_id", problemID),
			zap.Error(err))
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, problemID string) {
	if err := c.client.Del(ctx, leaderboardKeyPrefix+problemID).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate leaderboard snapshot",
			zap.String("problem_id", problemID),
			zap.Error(err))
	}
}
