package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/repositories"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

// cloudRemote delivers pushes straight into a MergeService, standing in for
// the HTTP hop between a LAN server and the cloud.
type cloudRemote struct {
	merge *MergeService

	mu      sync.Mutex
	fail    error
	batches map[string][]int
	deletes map[string][]int
}

func newCloudRemote(repo repositories.RecordRepository) *cloudRemote {
	return &cloudRemote{
		merge:   NewMergeService(repo),
		batches: make(map[string][]int),
		deletes: make(map[string][]int),
	}
}

func (c *cloudRemote) setFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *cloudRemote) PushRecords(ctx context.Context, table string, records []models.Payload) (*syncclient.ReceiveResponse, error) {
	c.mu.Lock()
	fail := c.fail
	c.batches[table] = append(c.batches[table], len(records))
	c.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	result, err := c.merge.Receive(ctx, table, records)
	if err != nil {
		return nil, &syncclient.SyncError{Operation: "push_records", StatusCode: 500, Err: err}
	}
	return &syncclient.ReceiveResponse{Status: "ok", Table: table, RecordsProcessed: result.Processed}, nil
}

func (c *cloudRemote) PushDeletions(ctx context.Context, table string, ids []string) (*syncclient.DeleteResponse, error) {
	c.mu.Lock()
	fail := c.fail
	c.deletes[table] = append(c.deletes[table], len(ids))
	c.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	n, err := c.merge.ReceiveDeletions(ctx, table, ids)
	if err != nil {
		return nil, &syncclient.SyncError{Operation: "push_deletions", StatusCode: 500, Err: err}
	}
	return &syncclient.DeleteResponse{Status: "ok", Deleted: n}, nil
}

type staticProber struct {
	online bool
	calls  int
}

func (p *staticProber) Probe(ctx context.Context) bool {
	p.calls++
	return p.online
}

// failingRepo fails list calls for one table.
type failingRepo struct {
	repositories.RecordRepository
	table string
	err   error
}

func (r *failingRepo) ListUnsynced(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	if table.Name == r.table {
		return nil, r.err
	}
	return r.RecordRepository.ListUnsynced(ctx, table, limit)
}

// countingRepo counts list calls.
type countingRepo struct {
	repositories.RecordRepository

	mu            sync.Mutex
	unsyncedCalls int
	deletionCalls int
}

func (r *countingRepo) ListUnsynced(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	r.mu.Lock()
	r.unsyncedCalls++
	r.mu.Unlock()
	return r.RecordRepository.ListUnsynced(ctx, table, limit)
}

func (r *countingRepo) ListPendingDeletions(ctx context.Context, table *models.TableSchema, limit int) ([]*models.Record, error) {
	r.mu.Lock()
	r.deletionCalls++
	r.mu.Unlock()
	return r.RecordRepository.ListPendingDeletions(ctx, table, limit)
}

type memoryHistory struct {
	mu        sync.Mutex
	summaries []*models.SyncSummary
}

func (h *memoryHistory) Append(ctx context.Context, s *models.SyncSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append([]*models.SyncSummary{s}, h.summaries...)
	return nil
}

func (h *memoryHistory) Recent(ctx context.Context, n int) ([]*models.SyncSummary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.summaries) {
		n = len(h.summaries)
	}
	return h.summaries[:n], nil
}

var errNetwork = errors.New("connection refused")

func insertStudent(t *testing.T, repo repositories.RecordRepository, name string, at time.Time) *models.Record {
	t.Helper()
	rec := models.NewRecord(models.Students, at)
	require.NoError(t, rec.Set("first_name", name, at))
	require.NoError(t, rec.Set("last_name", "Otieno", at))
	require.NoError(t, rec.Set("student_id", "STU-"+rec.ID.String()[:8], at))
	require.NoError(t, repo.Insert(context.Background(), rec))
	return rec
}

func getRecord(t *testing.T, repo repositories.RecordRepository, table *models.TableSchema, id uuid.UUID) *models.Record {
	t.Helper()
	rec, err := repo.GetByID(context.Background(), table, id)
	require.NoError(t, err)
	return rec
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
