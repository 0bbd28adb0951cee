package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fleetops/access-management/internal/transport"
	"github.com/fleetops/access-management/pkg/logger"
)

type ServiceAPI interface {
	List(ctx context.Context, targetUserID string, limit int) ([]Entry, error)
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

// GetEntries handles GET /audit with optional user_id and limit filters.
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Service.List(r.Context(), userID, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}
