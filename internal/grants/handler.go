package grants

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/module"
	"github.com/fleetops/access-management/internal/transport"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListForUser(ctx context.Context, userID string) ([]ModuleAccess, error)
	Toggle(ctx context.Context, userID, moduleID, permissionID string, enabled bool) ([]ModuleAccess, error)
	ToggleModule(ctx context.Context, userID, moduleID string, enabled bool) ([]ModuleAccess, error)
	Stats(ctx context.Context, userID string, modules []*module.Module) (map[string]ModuleStats, error)
}

type ModuleLister interface {
	List(activeOnly bool) ([]*module.Module, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Modules ModuleLister
}

func NewHandler(svc ServiceAPI, modules ModuleLister) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Modules:     modules,
	}
}

// GetGrants handles GET /users/{id}/grants: access rows plus per-module stats.
func (h *Handler) GetGrants(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	rows, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	modules, err := h.Modules.List(false)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	stats, err := h.Service.Stats(r.Context(), userID, modules)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"module_access": rows,
		"stats":         stats,
	})
}

// TogglePermission handles POST /users/{id}/grants/toggle.
func (h *Handler) TogglePermission(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var dto TogglePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed))
		return
	}

	rows, err := h.Service.Toggle(r.Context(), userID, dto.ModuleID, dto.PermissionID, dto.Enabled)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"module_access": rows})
}

// ToggleModule handles POST /users/{id}/grants/toggle-module.
func (h *Handler) ToggleModule(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var dto ToggleModuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed))
		return
	}

	rows, err := h.Service.ToggleModule(r.Context(), userID, dto.ModuleID, dto.Enabled)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"module_access": rows})
}
