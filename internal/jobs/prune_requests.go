package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/DukeRupert/hookscope/internal/repository"
	"github.com/DukeRupert/hookscope/internal/storage"
	"github.com/DukeRupert/hookscope/internal/worker"
	"github.com/google/uuid"
)

// JobTypeRequestRetention is the job name recorded in cron_jobs and read back
// by get_retention_job_runs.
const JobTypeRequestRetention = "request_retention"

// RetentionStore is the repository surface used by the retention job.
type RetentionStore interface {
	ListExpiredRequests(ctx context.Context, arg repository.ListExpiredRequestsParams) ([]repository.WebhookRequest, error)
	DeleteRequestsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// RetentionConfig controls how long captured requests are kept per plan.
type RetentionConfig struct {
	FreeDays  int
	ProDays   int
	BatchSize int
}

// Validate checks the retention windows and batch size.
func (c RetentionConfig) Validate() error {
	if c.FreeDays < 1 {
		return fmt.Errorf("free retention must be at least 1 day, got %d", c.FreeDays)
	}
	if c.ProDays < 1 {
		return fmt.Errorf("pro retention must be at least 1 day, got %d", c.ProDays)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// PruneRequestsHandler deletes captured requests older than their owner's
// plan retention window. When an archive is configured every batch is written
// there before it is deleted.
type PruneRequestsHandler struct {
	store   RetentionStore
	archive storage.Storage
	config  RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruneRequestsHandler creates the retention job. archive may be nil.
func NewPruneRequestsHandler(
	store RetentionStore,
	archive storage.Storage,
	config RetentionConfig,
	logger *slog.Logger,
) (*PruneRequestsHandler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retention config: %w", err)
	}
	return &PruneRequestsHandler{
		store:   store,
		archive: archive,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Type returns the job type identifier.
func (h *PruneRequestsHandler) Type() string {
	return JobTypeRequestRetention
}

// Handle prunes expired requests batch by batch until a short batch is seen.
// Counts accumulated before a failure are still returned.
func (h *PruneRequestsHandler) Handle(ctx context.Context) (worker.Result, error) {
	runStart := h.now().UTC()
	freeCutoff := runStart.AddDate(0, 0, -h.config.FreeDays)
	proCutoff := runStart.AddDate(0, 0, -h.config.ProDays)

	var (
		result  worker.Result
		batches int
	)
	details := func() map[string]any {
		return map[string]any{
			"free_cutoff": freeCutoff.Format(time.RFC3339),
			"pro_cutoff":  proCutoff.Format(time.RFC3339),
			"batches":     batches,
			"archived":    h.archive != nil,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			result.Details = details()
			return result, err
		}

		rows, err := h.store.ListExpiredRequests(ctx, repository.ListExpiredRequestsParams{
			ProCutoff:  proCutoff,
			FreeCutoff: freeCutoff,
			BatchSize:  int32(h.config.BatchSize),
		})
		if err != nil {
			result.Details = details()
			return result, fmt.Errorf("list expired requests: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		batches++

		var archived int64
		if h.archive != nil {
			key := storage.ArchiveKey(h.Type(), runStart, batches)
			if err := h.archiveBatch(ctx, key, rows); err != nil {
				result.Details = details()
				if storage.IsKeyExists(err) {
					return result, fmt.Errorf("archive batch %d: %s already written by another run: %w", batches, key, err)
				}
				return result, fmt.Errorf("archive batch %d: %w", batches, err)
			}
			archived = int64(len(rows))
			result.RowsArchived += archived
		}

		ids := make([]uuid.UUID, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		deleted, err := h.store.DeleteRequestsByIDs(ctx, ids)
		if err != nil {
			result.Details = details()
			return result, fmt.Errorf("delete batch %d: %w", batches, err)
		}
		result.RowsDeleted += deleted
		metrics.RetentionPruned(deleted, archived)

		h.logger.Debug("Pruned request batch",
			"batch", batches,
			"selected", len(rows),
			"deleted", deleted,
			"archived", archived,
		)

		if len(rows) < h.config.BatchSize {
			break
		}
		if deleted == 0 {
			result.Details = details()
			return result, errors.New("full batch selected but nothing deleted")
		}
	}

	result.Details = details()
	return result, nil
}

// archivedRequest is one NDJSON line in an archive object.
type archivedRequest struct {
	ID         uuid.UUID       `json:"id"`
	EndpointID uuid.UUID       `json:"endpoint_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Headers    json.RawMessage `json:"headers,omitempty"`
	Body       string          `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

func (h *PruneRequestsHandler) archiveBatch(ctx context.Context, key string, rows []repository.WebhookRequest) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		rec := archivedRequest{
			ID:         r.ID,
			EndpointID: r.EndpointID,
			UserID:     r.UserID,
			Method:     r.Method,
			Path:       r.Path,
			Body:       r.Body,
			ReceivedAt: r.ReceivedAt.UTC(),
		}
		if r.Headers.Valid {
			rec.Headers = r.Headers.RawMessage
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode request %s: %w", r.ID, err)
		}
	}

	return h.archive.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: storage.ContentTypeNDJSON,
	})
}
