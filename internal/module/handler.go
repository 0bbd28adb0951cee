package module

import (
	"log/slog"
	"net/http"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/transport"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(activeOnly bool) ([]*Module, error)
	GetByID(id string) (*Module, error)
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

// GetModules handles GET /modules with an optional ?active=true filter.
func (h *Handler) GetModules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	modules, err := h.Service.List(activeOnly)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"modules": modules,
		"total":   len(modules),
	})
}

// GetModule handles GET /modules/{id}.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteAppError(w, internal.NewValidationError("module id is required", internal.ErrCodeValidationFailed))
		return
	}

	m, err := h.Service.GetByID(id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, m)
}
