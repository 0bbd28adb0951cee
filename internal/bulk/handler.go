package bulk

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fleetops/access-management/internal/transport"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Enqueue(ctx context.Context, dto CreateOperationDTO) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// CreateOperation handles POST /bulk-operations. The job is accepted and
// processed asynchronously; poll the returned id for progress.
func (h *Handler) CreateOperation(w http.ResponseWriter, r *http.Request) {
	var dto CreateOperationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.Service.Enqueue(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, job)
}

// GetOperation handles GET /bulk-operations/{id}.
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.Service.GetJob(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, job)
}

// ListOperations handles GET /bulk-operations.
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Service.ListJobs(r.Context(), 0)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"operations": jobs,
		"total":      len(jobs),
	})
}
