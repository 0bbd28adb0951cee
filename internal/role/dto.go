package role

import "errors"

// AssignRoleDTO is the payload for POST /users/{id}/role.
type AssignRoleDTO struct {
	RoleID    string `json:"role_id"`
	Confirmed bool   `json:"confirmed"`
}

func (d AssignRoleDTO) Validate() error {
	if d.RoleID == "" {
		return errors.New("role_id is required")
	}
	return nil
}
