package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base is microsecond-aligned so values survive a Postgres round trip.
var base = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

func newBook(t *testing.T, title string, createdAt time.Time) *models.Record {
	t.Helper()
	rec := models.NewRecord(models.Books, createdAt)
	require.NoError(t, rec.Set("title", title, createdAt))
	require.NoError(t, rec.Set("total_copies", 3, createdAt))
	require.NoError(t, rec.Set("purchase_price", 24.5, createdAt))
	require.NoError(t, rec.Set("purchase_date", "2023-09-01", createdAt))
	return rec
}

// testRecordRepository runs the behaviour both stores must share.
func testRecordRepository(t *testing.T, newRepo func(t *testing.T) RecordRepository) {
	t.Run("InsertAndGet", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "Weep Not, Child", base)

		// ACT
		err := repo.Insert(ctx, book)

		// ASSERT
		require.NoError(t, err)
		got, err := repo.GetByID(ctx, models.Books, book.ID)
		require.NoError(t, err)
		assert.Equal(t, book.ID, got.ID)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.False(t, got.IsSynced)
		assert.Nil(t, got.DeletedAt)
		assert.Equal(t, "Weep Not, Child", got.Fields["title"])
		assert.Equal(t, int64(3), got.Fields["total_copies"])
		assert.Equal(t, 24.5, got.Fields["purchase_price"])
		assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), got.Fields["purchase_date"])
		assert.Nil(t, got.Fields["author"])
	})

	t.Run("InsertDuplicate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "Duplicate", base)
		require.NoError(t, repo.Insert(ctx, book))

		err := repo.Insert(ctx, book)

		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByID(context.Background(), models.Books, uuid.New())

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListUnsyncedOrderAndLimit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		third := newBook(t, "third", base.Add(3*time.Minute))
		first := newBook(t, "first", base.Add(1*time.Minute))
		second := newBook(t, "second", base.Add(2*time.Minute))
		synced := newBook(t, "synced", base)
		synced.MarkSynced(base)
		deleted := newBook(t, "deleted", base)
		deleted.SoftDelete(base)
		for _, r := range []*models.Record{third, first, second, synced, deleted} {
			require.NoError(t, repo.Insert(ctx, r))
		}

		// ACT
		page, err := repo.ListUnsynced(ctx, models.Books, 2)

		// ASSERT: oldest first, synced and deleted rows excluded
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, first.ID, page[0].ID)
		assert.Equal(t, second.ID, page[1].ID)

		all, err := repo.ListUnsynced(ctx, models.Books, 100)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("MarkSynced", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := newBook(t, "a", base)
		b := newBook(t, "b", base)
		require.NoError(t, repo.Insert(ctx, a))
		require.NoError(t, repo.Insert(ctx, b))

		at := base.Add(time.Hour)
		err := repo.MarkSynced(ctx, models.Books, []models.Version{a.Version()}, at)

		require.NoError(t, err)
		got, err := repo.GetByID(ctx, models.Books, a.ID)
		require.NoError(t, err)
		assert.True(t, got.IsSynced)
		require.NotNil(t, got.SyncedAt)
		assert.True(t, at.Equal(*got.SyncedAt))

		pending, err := repo.ListUnsynced(ctx, models.Books, 100)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, b.ID, pending[0].ID)
	})

	t.Run("MarkSyncedSkipsEditedRow", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "draft", base)
		require.NoError(t, repo.Insert(ctx, book))
		listed := book.Version()

		edited := book.Clone()
		require.NoError(t, edited.Set("title", "final", base.Add(time.Minute)))
		require.NoError(t, repo.Update(ctx, edited))

		// ACT
		err := repo.MarkSynced(ctx, models.Books, []models.Version{listed}, base.Add(time.Hour))

		// ASSERT
		require.NoError(t, err)
		got, err := repo.GetByID(ctx, models.Books, book.ID)
		require.NoError(t, err)
		assert.False(t, got.IsSynced)
		assert.Nil(t, got.SyncedAt)
		assert.Equal(t, "final", got.Fields["title"])
	})

	t.Run("SoftDeleteAndPendingDeletions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "to delete", base)
		book.MarkSynced(base)
		require.NoError(t, repo.Insert(ctx, book))

		at := base.Add(time.Hour)
		require.NoError(t, repo.SoftDelete(ctx, models.Books, book.ID, at))

		pending, err := repo.ListPendingDeletions(ctx, models.Books, 100)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, book.ID, pending[0].ID)
		assert.False(t, pending[0].IsSynced)
		assert.True(t, at.Equal(pending[0].UpdatedAt))

		// Deleting twice is a no-op reported as not found.
		err = repo.SoftDelete(ctx, models.Books, book.ID, at)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repo.MarkSynced(ctx, models.Books, []models.Version{pending[0].Version()}, at))
		pending, err = repo.ListPendingDeletions(ctx, models.Books, 100)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("UpdateKeepsCreatedAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "old", base)
		require.NoError(t, repo.Insert(ctx, book))

		changed := book.Clone()
		changed.CreatedAt = base.Add(24 * time.Hour)
		require.NoError(t, changed.Set("title", "new", base.Add(time.Hour)))

		require.NoError(t, repo.Update(ctx, changed))

		got, err := repo.GetByID(ctx, models.Books, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Fields["title"])
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt))

		missing := newBook(t, "ghost", base)
		assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
	})

	t.Run("NestedTxRollsBackOnlyInner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		kept := newBook(t, "kept", base)
		dropped := newBook(t, "dropped", base)
		boom := errors.New("boom")

		// ACT: the inner transaction fails, the outer one commits
		err := repo.InTx(ctx, func(tx RecordRepository) error {
			if err := tx.Insert(ctx, kept); err != nil {
				return err
			}
			innerErr := tx.InTx(ctx, func(sp RecordRepository) error {
				if err := sp.Insert(ctx, dropped); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, innerErr, boom)
			return nil
		})

		// ASSERT
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, models.Books, kept.ID)
		assert.NoError(t, err)
		_, err = repo.GetByID(ctx, models.Books, dropped.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FailedTxLeavesNoTrace", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		book := newBook(t, "never", base)
		err := repo.InTx(ctx, func(tx RecordRepository) error {
			require.NoError(t, tx.Insert(ctx, book))
			return errors.New("abort")
		})

		require.Error(t, err)
		_, err = repo.GetByID(ctx, models.Books, book.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
