package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentPayload(id uuid.UUID, name string, updatedAt time.Time) models.Payload {
	return models.Payload{
		"id":         id.String(),
		"created_at": models.FormatTimestamp(t0),
		"updated_at": models.FormatTimestamp(updatedAt),
		"deleted_at": nil,
		"is_synced":  false,
		"first_name": name,
		"last_name":  "Kamau",
	}
}

// TestMergeService_InsertNew tests that an unseen row is inserted already synced
func TestMergeService_InsertNew(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	now := t0.Add(time.Hour)
	svc.now = fixedClock(now)
	id := uuid.New()

	// ACT
	result, err := svc.Receive(context.Background(), "students", []models.Payload{
		studentPayload(id, "Achieng", t0),
	})

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, &MergeResult{Processed: 1, Applied: 1}, result)

	got := getRecord(t, repo, models.Students, id)
	assert.True(t, got.IsSynced)
	assert.Equal(t, now, *got.SyncedAt)
	assert.Equal(t, t0, got.CreatedAt)
	assert.Equal(t, "Achieng", got.Fields["first_name"])
}

// TestMergeService_IdempotentRedelivery tests that the same payload twice changes nothing
func TestMergeService_IdempotentRedelivery(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	ctx := context.Background()
	payload := studentPayload(uuid.New(), "Achieng", t0.Add(time.Minute))

	_, err := svc.Receive(ctx, "students", []models.Payload{payload})
	require.NoError(t, err)

	// ACT
	result, err := svc.Receive(ctx, "students", []models.Payload{payload})

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, &MergeResult{Processed: 1, Discarded: 1}, result)
	assert.Equal(t, 1, repo.Count(models.Students))
}

// TestMergeService_LastWriterWins tests newer, equal and older updated_at values
func TestMergeService_LastWriterWins(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.Receive(ctx, "students", []models.Payload{studentPayload(id, "v1", t0.Add(10*time.Minute))})
	require.NoError(t, err)

	// Older: discarded
	result, err := svc.Receive(ctx, "students", []models.Payload{studentPayload(id, "stale", t0.Add(5*time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Discarded)
	assert.Equal(t, "v1", getRecord(t, repo, models.Students, id).Fields["first_name"])

	// Equal: discarded
	result, err = svc.Receive(ctx, "students", []models.Payload{studentPayload(id, "tie", t0.Add(10*time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Discarded)
	assert.Equal(t, "v1", getRecord(t, repo, models.Students, id).Fields["first_name"])

	// Newer: applied
	result, err = svc.Receive(ctx, "students", []models.Payload{studentPayload(id, "v2", t0.Add(20*time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	got := getRecord(t, repo, models.Students, id)
	assert.Equal(t, "v2", got.Fields["first_name"])
	assert.Equal(t, t0.Add(20*time.Minute), got.UpdatedAt)
	assert.Equal(t, t0, got.CreatedAt)
	assert.True(t, got.IsSynced)
}

// TestMergeService_OrderIndependent tests that delivery order does not change the outcome
func TestMergeService_OrderIndependent(t *testing.T) {
	id := uuid.New()
	older := studentPayload(id, "older", t0.Add(time.Minute))
	newer := studentPayload(id, "newer", t0.Add(2*time.Minute))

	finalName := func(batches ...models.Payload) any {
		repo := repositories.NewMemoryRecordRepository()
		svc := NewMergeService(repo)
		for _, p := range batches {
			_, err := svc.Receive(context.Background(), "students", []models.Payload{p})
			require.NoError(t, err)
		}
		return getRecord(t, repo, models.Students, id).Fields["first_name"]
	}

	assert.Equal(t, "newer", finalName(older, newer))
	assert.Equal(t, "newer", finalName(newer, older))
}

// TestMergeService_RejectsBadRecordOnly tests that a bad record does not abort the batch
func TestMergeService_RejectsBadRecordOnly(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	good := uuid.New()

	bad := studentPayload(uuid.New(), "bad", t0)
	bad["favourite_colour"] = "blue"

	noID := studentPayload(uuid.New(), "no id", t0)
	delete(noID, "id")

	// ACT
	result, err := svc.Receive(context.Background(), "students", []models.Payload{
		bad, studentPayload(good, "good", t0), noID,
	})

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, &MergeResult{Processed: 3, Applied: 1, Rejected: 2}, result)
	assert.Equal(t, 1, repo.Count(models.Students))
	assert.Equal(t, "good", getRecord(t, repo, models.Students, good).Fields["first_name"])
}

// TestMergeService_UpdateWithoutUpdatedAt tests that an existing row needs a timestamp to be replaced
func TestMergeService_UpdateWithoutUpdatedAt(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.Receive(ctx, "students", []models.Payload{studentPayload(id, "v1", t0)})
	require.NoError(t, err)

	p := studentPayload(id, "v2", t0)
	delete(p, "updated_at")

	result, err := svc.Receive(ctx, "students", []models.Payload{p})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, "v1", getRecord(t, repo, models.Students, id).Fields["first_name"])
}

// TestMergeService_InsertDefaultsTimestamps tests that missing timestamps default to now
func TestMergeService_InsertDefaultsTimestamps(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	now := t0.Add(3 * time.Hour)
	svc.now = fixedClock(now)
	id := uuid.New()

	_, err := svc.Receive(context.Background(), "books", []models.Payload{
		{"id": id.String(), "title": "Petals of Blood"},
	})

	require.NoError(t, err)
	got := getRecord(t, repo, models.Books, id)
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, now, got.UpdatedAt)
}

// TestMergeService_UnknownTable tests that unregistered tables are refused
func TestMergeService_UnknownTable(t *testing.T) {
	svc := NewMergeService(repositories.NewMemoryRecordRepository())

	_, err := svc.Receive(context.Background(), "pg_shadow", nil)
	assert.ErrorIs(t, err, models.ErrUnknownTable)

	_, err = svc.ReceiveDeletions(context.Background(), "pg_shadow", []string{uuid.NewString()})
	assert.ErrorIs(t, err, models.ErrUnknownTable)
}

// TestMergeService_ReceiveDeletions tests soft-deleting received ids
func TestMergeService_ReceiveDeletions(t *testing.T) {
	repo := repositories.NewMemoryRecordRepository()
	svc := NewMergeService(repo)
	now := t0.Add(time.Hour)
	svc.now = fixedClock(now)
	ctx := context.Background()

	live := insertStudent(t, repo, "live", t0)
	alreadyGone := insertStudent(t, repo, "gone", t0)
	require.NoError(t, repo.SoftDelete(ctx, models.Students, alreadyGone.ID, t0))

	// ACT
	n, err := svc.ReceiveDeletions(ctx, "students", []string{
		live.ID.String(), alreadyGone.ID.String(), uuid.NewString(), "garbage",
	})

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got := getRecord(t, repo, models.Students, live.ID)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, now, *got.DeletedAt)
	assert.Equal(t, now, got.UpdatedAt)
	assert.False(t, got.IsSynced)

	gone := getRecord(t, repo, models.Students, alreadyGone.ID)
	assert.Equal(t, t0, *gone.DeletedAt)
}
