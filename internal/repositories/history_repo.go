package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	historyKey          = "sync:history"
	DefaultHistoryLimit = 50
)

// RedisHistoryRepository keeps the most recent cycle summaries in a capped
// Redis list, newest first.
type RedisHistoryRepository struct {
	client *redis.Client
	limit  int
}

func NewRedisHistoryRepository(client *redis.Client, limit int) *RedisHistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisHistoryRepository{client: client, limit: limit}
}

func (r *RedisHistoryRepository) Append(ctx context.Context, summary *models.SyncSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal sync summary: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, int64(r.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append sync history: %w", err)
	}
	return nil
}

func (r *RedisHistoryRepository) Recent(ctx context.Context, n int) ([]*models.SyncSummary, error) {
	if n <= 0 || n > r.limit {
		n = r.limit
	}

	entries, err := r.client.LRange(ctx, historyKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sync history: %w", err)
	}

	summaries := make([]*models.SyncSummary, 0, len(entries))
	for _, entry := range entries {
		var s models.SyncSummary
		if err := json.Unmarshal([]byte(entry), &s); err != nil {
			slog.Warn("skipping unreadable sync history entry", "err", err)
			continue
		}
		summaries = append(summaries, &s)
	}
	return summaries, nil
}
