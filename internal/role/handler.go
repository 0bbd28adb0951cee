package role

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/transport"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List() ([]*Role, error)
	GetByID(id string) (*Role, error)
	PreviewChange(ctx context.Context, userID, candidateRoleID string) (*ChangePreview, error)
	Assign(ctx context.Context, userID, roleID string, confirmed bool) (*ChangePreview, error)
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

// GetRoles handles GET /roles.
func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.List()
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roles": roles,
		"total": len(roles),
	})
}

// GetRole handles GET /roles/{id}.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	role, err := h.Service.GetByID(id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

// PreviewRoleChange handles GET /users/{id}/role/preview?role_id=.
func (h *Handler) PreviewRoleChange(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	roleID := r.URL.Query().Get("role_id")
	if roleID == "" {
		h.WriteAppError(w, internal.NewValidationError("role_id query parameter is required", internal.ErrCodeValidationFailed))
		return
	}

	preview, err := h.Service.PreviewChange(r.Context(), userID, roleID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, preview)
}

// AssignRole handles POST /users/{id}/role.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed))
		return
	}

	preview, err := h.Service.Assign(r.Context(), userID, dto.RoleID, dto.Confirmed)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, preview)
}
