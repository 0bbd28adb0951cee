package bulk

import (
	"time"

	bulkDatamodel "github.com/fleetops/access-management/internal/core/datamodel/bulk"
)

// OperationType enumerates the bulk actions the coordinator knows how to run.
type OperationType string

const (
	OpAssignRole       OperationType = "assign_role"
	OpRemoveRole       OperationType = "remove_role"
	OpGrantPermission  OperationType = "grant_permission"
	OpRevokePermission OperationType = "revoke_permission"
	OpActivate         OperationType = "activate"
	OpDeactivate       OperationType = "deactivate"
)

func (t OperationType) Valid() bool {
	switch t {
	case OpAssignRole, OpRemoveRole, OpGrantPermission, OpRevokePermission, OpActivate, OpDeactivate:
		return true
	}
	return false
}

// State is the coordinator's lifecycle: idle until a run starts, running while
// items are processed, then completed or failed.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Job statuses as persisted; pending jobs are waiting for the worker.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Operation describes one bulk run over the current selection.
type Operation struct {
	Type          OperationType `json:"type"`
	RoleID        string        `json:"role_id,omitempty"`
	PermissionIDs []string      `json:"permission_ids,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}

// ItemError records one user's failure inside a run; the run itself
// continues.
type ItemError struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Error    string `json:"error"`
}

// Progress is emitted after every processed user so callers can render a
// live, monotonic progress bar.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Result aggregates one finished run.
type Result struct {
	Success       bool        `json:"success"`
	AffectedUsers int         `json:"affected_users"`
	Errors        []ItemError `json:"errors"`
}

// Job is the API view of a persisted bulk run.
type Job struct {
	ID            string        `json:"id"`
	Type          OperationType `json:"type"`
	Status        string        `json:"status"`
	UserIDs       []string      `json:"user_ids"`
	RoleID        string        `json:"role_id,omitempty"`
	PermissionIDs []string      `json:"permission_ids,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	InitiatedBy   string        `json:"initiated_by"`
	Total         int           `json:"total"`
	Completed     int           `json:"completed"`
	Failed        int           `json:"failed"`
	Errors        []ItemError   `json:"errors"`
	CreatedAt     time.Time     `json:"created_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

func FromDataModel(rec *bulkDatamodel.Job) *Job {
	errs := make([]ItemError, 0, len(rec.Errors))
	for _, e := range rec.Errors {
		errs = append(errs, ItemError{UserID: e.UserID, UserName: e.UserName, Error: e.Error})
	}
	return &Job{
		ID:            rec.ID,
		Type:          OperationType(rec.Type),
		Status:        rec.Status,
		UserIDs:       rec.UserIDs,
		RoleID:        rec.RoleID,
		PermissionIDs: rec.PermissionIDs,
		Reason:        rec.Reason,
		InitiatedBy:   rec.InitiatedBy,
		Total:         rec.Total,
		Completed:     rec.Completed,
		Failed:        rec.Failed,
		Errors:        errs,
		CreatedAt:     rec.CreatedAt,
		StartedAt:     rec.StartedAt,
		CompletedAt:   rec.CompletedAt,
	}
}

func ToDataModel(j *Job) *bulkDatamodel.Job {
	errs := make([]bulkDatamodel.ItemError, 0, len(j.Errors))
	for _, e := range j.Errors {
		errs = append(errs, bulkDatamodel.ItemError{UserID: e.UserID, UserName: e.UserName, Error: e.Error})
	}
	return &bulkDatamodel.Job{
		ID:            j.ID,
		Type:          string(j.Type),
		Status:        j.Status,
		UserIDs:       j.UserIDs,
		RoleID:        j.RoleID,
		PermissionIDs: j.PermissionIDs,
		Reason:        j.Reason,
		InitiatedBy:   j.InitiatedBy,
		Total:         j.Total,
		Completed:     j.Completed,
		Failed:        j.Failed,
		Errors:        errs,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}
