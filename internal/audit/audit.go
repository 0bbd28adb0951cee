package audit

import (
	"time"

	auditDatamodel "github.com/fleetops/access-management/internal/core/datamodel/audit"
)

// Entry is one recorded administrative action.
type Entry struct {
	ID           int64     `json:"id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	TargetUserID string    `json:"target_user_id"`
	Detail       string    `json:"detail"`
	CreatedAt    time.Time `json:"created_at"`
}

func FromDataModel(rec *auditDatamodel.Entry) Entry {
	return Entry{
		ID:           rec.ID,
		Actor:        rec.Actor,
		Action:       rec.Action,
		TargetUserID: rec.TargetUserID,
		Detail:       rec.Detail,
		CreatedAt:    rec.CreatedAt,
	}
}

func ToDataModel(e Entry) *auditDatamodel.Entry {
	return &auditDatamodel.Entry{
		ID:           e.ID,
		Actor:        e.Actor,
		Action:       e.Action,
		TargetUserID: e.TargetUserID,
		Detail:       e.Detail,
		CreatedAt:    e.CreatedAt,
	}
}
