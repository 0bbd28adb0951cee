package grants

import "errors"

// TogglePermissionDTO is the payload for POST /users/{id}/grants/toggle.
type TogglePermissionDTO struct {
	ModuleID     string `json:"module_id"`
	PermissionID string `json:"permission_id"`
	Enabled      bool   `json:"enabled"`
}

func (d TogglePermissionDTO) Validate() error {
	if d.ModuleID == "" {
		return errors.New("module_id is required")
	}
	if d.PermissionID == "" {
		return errors.New("permission_id is required")
	}
	return nil
}

// ToggleModuleDTO is the payload for POST /users/{id}/grants/toggle-module.
type ToggleModuleDTO struct {
	ModuleID string `json:"module_id"`
	Enabled  bool   `json:"enabled"`
}

func (d ToggleModuleDTO) Validate() error {
	if d.ModuleID == "" {
		return errors.New("module_id is required")
	}
	return nil
}
