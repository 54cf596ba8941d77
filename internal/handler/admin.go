package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/DukeRupert/hookscope/internal/service"
	"github.com/google/uuid"
)

// RetentionRunsReader reads the retention job history.
// *service.RetentionAuditor satisfies it.
type RetentionRunsReader interface {
	GetRetentionJobRuns(ctx context.Context, limit int) ([]domain.CronJobRun, error)
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	runs   RetentionRunsReader
	quota  service.QuotaService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(runs RetentionRunsReader, quota service.QuotaService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		runs:   runs,
		quota:  quota,
		logger: logger,
	}
}

// RegisterRoutes registers admin routes with the provided middleware.
func (h *AdminHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireAdmin func(http.Handler) http.Handler,
) {
	mux.Handle("GET /admin/retention/runs", requireAdmin(http.HandlerFunc(h.RetentionRuns)))
	mux.Handle("GET /admin/users/{id}/quota", requireAdmin(http.HandlerFunc(h.UserQuota)))
}

// RetentionRunsResponse is the body of GET /admin/retention/runs.
type RetentionRunsResponse struct {
	domain.RetentionHealth
	Runs []domain.CronJobRun `json:"runs"`
}

// RetentionRuns reports recent retention job runs and a health summary.
// ?limit defaults to 5 and is passed to the backend as given.
func (h *AdminHandler) RetentionRuns(w http.ResponseWriter, r *http.Request) {
	const op = "admin.retention_runs"

	limit := service.DefaultRetentionRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "limit must be an integer"))
			return
		}
		limit = n
	}

	runs, err := h.runs.GetRetentionJobRuns(r.Context(), limit)
	if err != nil {
		if domain.IsCronQueryError(err) {
			metrics.RetentionQueryFailed()
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RetentionRunsResponse{
		RetentionHealth: domain.SummarizeRuns(runs),
		Runs:            runs,
	})
}

// UserQuota reports a user's plan, usage, and ceilings.
func (h *AdminHandler) UserQuota(w http.ResponseWriter, r *http.Request) {
	const op = "admin.user_quota"

	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "user id must be a UUID"))
		return
	}

	usage, err := h.quota.GetUsage(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}
