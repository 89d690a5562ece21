package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/schoolsync/internal/models"
	"github.com/prudhvinik1/schoolsync/internal/services"
	"github.com/prudhvinik1/schoolsync/internal/syncclient"
)

const (
	maxBodyBytes       = 16 << 20
	defaultRecentLimit = 10
)

// Receiver applies batches pushed by a peer.
type Receiver interface {
	Receive(ctx context.Context, table string, records []models.Payload) (*services.MergeResult, error)
	ReceiveDeletions(ctx context.Context, table string, ids []string) (int, error)
}

// CycleRunner runs and reports on local sync cycles.
type CycleRunner interface {
	RunFullSync(ctx context.Context) *models.SyncSummary
	Status() services.SyncStateSnapshot
	History(ctx context.Context, n int) ([]*models.SyncSummary, error)
}

// Enqueuer schedules a cycle without waiting for it.
type Enqueuer interface {
	Trigger() bool
}

type Options struct {
	ServiceName     string
	SyncToken       string
	SyncEnabled     bool
	IntervalMinutes int
}

type SyncHandler struct {
	receiver Receiver
	runner   CycleRunner
	enqueuer Enqueuer
	verifier TokenVerifier
	opts     Options
}

// NewSyncHandler wires the sync endpoints. enqueuer may be nil when no
// scheduler runs; async triggers then fall back to running inline.
func NewSyncHandler(receiver Receiver, runner CycleRunner, enqueuer Enqueuer, verifier TokenVerifier, opts Options) *SyncHandler {
	return &SyncHandler{
		receiver: receiver,
		runner:   runner,
		enqueuer: enqueuer,
		verifier: verifier,
		opts:     opts,
	}
}

// Routes returns the router mounted under /api/v1/sync.
func (h *SyncHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(requireSyncToken(h.opts.SyncToken))
		r.Post("/receive/{table}", h.handleReceive)
		r.Delete("/delete/{table}", h.handleDelete)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(h.verifier))
		r.Get("/status", h.handleStatus)
		r.With(requireAdmin).Post("/trigger", h.handleTrigger)
	})

	return r
}

func (h *SyncHandler) handleReceive(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var records []models.Payload
	if err := decodeBody(w, r, &records); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON array of records")
		return
	}

	result, err := h.receiver.Receive(r.Context(), table, records)
	if errors.Is(err, models.ErrUnknownTable) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Unknown table: "+table)
		return
	}
	if err != nil {
		logFor(r).Error("receive batch", "table", table, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to apply batch")
		return
	}

	writeJSON(w, http.StatusOK, syncclient.ReceiveResponse{
		Status:           "ok",
		Table:            table,
		RecordsProcessed: result.Processed,
		Applied:          result.Applied,
		Discarded:        result.Discarded,
		Rejected:         result.Rejected,
	})
}

func (h *SyncHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req syncclient.DeleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "body must be {\"ids\": [...]}")
		return
	}

	n, err := h.receiver.ReceiveDeletions(r.Context(), table, req.IDs)
	if errors.Is(err, models.ErrUnknownTable) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Unknown table: "+table)
		return
	}
	if err != nil {
		logFor(r).Error("receive deletions", "table", table, "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to apply deletions")
		return
	}

	writeJSON(w, http.StatusOK, syncclient.DeleteResponse{Status: "ok", Deleted: n})
}

type statusResponse struct {
	services.SyncStateSnapshot
	SyncEnabled         bool                  `json:"sync_enabled"`
	SyncIntervalMinutes int                   `json:"sync_interval_minutes"`
	Recent              []*models.SyncSummary `json:"recent,omitempty"`
}

func (h *SyncHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		SyncStateSnapshot:   h.runner.Status(),
		SyncEnabled:         h.opts.SyncEnabled,
		SyncIntervalMinutes: h.opts.IntervalMinutes,
	}

	limit := defaultRecentLimit
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "recent must be a non-negative integer")
			return
		}
		limit = n
	}

	if limit > 0 {
		recent, err := h.runner.History(r.Context(), limit)
		if err != nil {
			// History is diagnostic; status still answers without it.
			logFor(r).Warn("read sync history", "err", err)
		}
		resp.Recent = recent
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SyncHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.opts.SyncEnabled {
		writeError(w, http.StatusBadRequest, ErrCodeSyncDisabled, "Cloud sync is disabled on this server")
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.enqueuer != nil {
		status := "queued"
		if !h.enqueuer.Trigger() {
			status = "pending"
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": status})
		return
	}

	// A cycle is not abandoned when the caller goes away.
	summary := h.runner.RunFullSync(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, summary)
}

func (h *SyncHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"service": h.opts.ServiceName,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}
