package bulk

import "errors"

// CreateOperationDTO is the request body for starting a bulk run.
type CreateOperationDTO struct {
	Type          string   `json:"type"`
	UserIDs       []string `json:"user_ids"`
	RoleID        string   `json:"role_id,omitempty"`
	PermissionIDs []string `json:"permission_ids,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

func (d CreateOperationDTO) Validate() error {
	if !OperationType(d.Type).Valid() {
		return errors.New("type must be one of assign_role, remove_role, grant_permission, revoke_permission, activate, deactivate")
	}
	if len(d.UserIDs) == 0 {
		return errors.New("user_ids is required")
	}
	switch OperationType(d.Type) {
	case OpAssignRole:
		if d.RoleID == "" {
			return errors.New("role_id is required for assign_role")
		}
	case OpGrantPermission, OpRevokePermission:
		if len(d.PermissionIDs) == 0 {
			return errors.New("permission_ids is required for permission operations")
		}
	}
	return nil
}

// Operation converts the request into the coordinator's operation.
func (d CreateOperationDTO) Operation() Operation {
	return Operation{
		Type:          OperationType(d.Type),
		RoleID:        d.RoleID,
		PermissionIDs: d.PermissionIDs,
		Reason:        d.Reason,
	}
}
