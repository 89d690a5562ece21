package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHistoryRepository_AppendAndRecent tests that summaries come back newest first
func TestHistoryRepository_AppendAndRecent(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisHistoryRepository(client, 5)
	ctx := context.Background()

	defer cleanupTestHistory(t, client, ctx)

	first := models.NewSyncSummary(models.SyncStatusOffline, base)
	first.Reason = "No internet connection"
	second := models.NewSyncSummary(models.SyncStatusOK, base.Add(5*time.Minute))
	second.Tables["students"] = models.TableSyncCount{Pushed: 3, Deleted: 1}
	second.Total = 4

	// ACT
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	// ASSERT
	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.SyncStatusOK, recent[0].Status)
	assert.Equal(t, 4, recent[0].Total)
	assert.Equal(t, models.TableSyncCount{Pushed: 3, Deleted: 1}, recent[0].Tables["students"])
	assert.Equal(t, models.SyncStatusOffline, recent[1].Status)
	assert.Equal(t, "No internet connection", recent[1].Reason)
}

// TestHistoryRepository_Trim tests that the list is capped at the configured limit
func TestHistoryRepository_Trim(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisHistoryRepository(client, 3)
	ctx := context.Background()

	defer cleanupTestHistory(t, client, ctx)

	for i := 0; i < 5; i++ {
		s := models.NewSyncSummary(models.SyncStatusOK, base.Add(time.Duration(i)*time.Minute))
		s.Total = i
		require.NoError(t, repo.Append(ctx, s))
	}

	n, err := client.LLen(ctx, historyKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 4, recent[0].Total)
	assert.Equal(t, 2, recent[2].Total)
}

// TestHistoryRepository_SkipsGarbage tests that unreadable entries do not break reads
func TestHistoryRepository_SkipsGarbage(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisHistoryRepository(client, 10)
	ctx := context.Background()

	defer cleanupTestHistory(t, client, ctx)

	require.NoError(t, repo.Append(ctx, models.NewSyncSummary(models.SyncStatusOK, base)))
	require.NoError(t, client.LPush(ctx, historyKey, "{not json").Err())

	recent, err := repo.Recent(ctx, 10)

	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   1, // Use DB 1 for tests (different from production DB 0)
	})

	// Test connection
	ctx := context.Background()
	err := client.Ping(ctx).Err()
	require.NoError(t, err, "Failed to connect to test Redis")

	t.Cleanup(func() { _ = client.Close() })
	cleanupTestHistory(t, client, ctx)
	return client
}

// cleanupTestHistory removes test data
func cleanupTestHistory(t *testing.T, client *redis.Client, ctx context.Context) {
	if err := client.Del(ctx, historyKey).Err(); err != nil {
		t.Logf("Warning: failed to cleanup sync history: %v", err)
	}
}
