package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/models"
	"github.com/SantiZetina/steamcodle/internal/util"
)

// statsVersion is the current snapshot schema version. Version 0 snapshots
// stored the day-scoped counter as playedToday; migrateStats moves it.
const statsVersion = 1

// Config holds configuration for the Redis progress repository.
type Config struct {
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis.
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed progress repository.
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

// GetStats loads a session's snapshot. A missing or undecodable value is
// never fatal; the caller gets a zero snapshot at the current version.
func (r *redisRepository) GetStats(ctx context.Context, input *GetStatsInput) (*models.StatsSnapshot, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	key := constants.StatsKeyPrefix + input.SessionID
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return &models.StatsSnapshot{Version: statsVersion}, nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	var stats models.StatsSnapshot
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		util.LogWarn("Corrupt stats snapshot for session %s, using defaults: %v", input.SessionID, err)
		return &models.StatsSnapshot{Version: statsVersion}, nil
	}

	migrateStats(&stats)
	return &stats, nil
}

// SaveStats persists the snapshot as one JSON value; concurrent writers are
// not coordinated and last write wins.
func (r *redisRepository) SaveStats(ctx context.Context, input *SaveStatsInput) error {
	if input == nil || input.Stats == nil {
		return errors.New("input and stats cannot be nil")
	}
	if input.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	raw, err := json.Marshal(input.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	key := constants.StatsKeyPrefix + input.SessionID
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// GetHistory loads the recently served ring. Missing or corrupt values are
// an empty ring, never an error surfaced to gameplay.
func (r *redisRepository) GetHistory(ctx context.Context) ([]int, error) {
	raw, err := r.client.Get(ctx, constants.HistoryKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		util.LogWarn("Corrupt recent-history value, starting empty: %v", err)
		return nil, nil
	}
	return ids, nil
}

// SaveHistory persists the ring wholesale.
func (r *redisRepository) SaveHistory(ctx context.Context, input *SaveHistoryInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}

	raw, err := json.Marshal(input.IDs)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := r.client.Set(ctx, constants.HistoryKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// migrateStats upgrades older snapshot schemas in place. Applied once per
// load, before any gameplay reads the snapshot.
func migrateStats(stats *models.StatsSnapshot) {
	if stats.Version >= statsVersion {
		return
	}
	// v0 tracked rounds played per day; the limiter now counts losses,
	// so the stored value carries over as the loss counter.
	if stats.PlayedToday > 0 && stats.LossesToday == 0 {
		stats.LossesToday = stats.PlayedToday
	}
	stats.PlayedToday = 0
	stats.Version = statsVersion
}
