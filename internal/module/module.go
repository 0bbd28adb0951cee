package module

import (
	"time"

	moduleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/module"
)

// Action is the atomic capability a permission grants within a module.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
	ActionManage  Action = "manage"
)

// RiskLevel classifies how sensitive a permission is. Display emphasis only,
// never consulted for enforcement.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskForAction derives the risk classification from the permission action.
func RiskForAction(a Action) RiskLevel {
	switch a {
	case ActionCreate, ActionUpdate:
		return RiskMedium
	case ActionDelete, ActionManage:
		return RiskCritical
	case ActionExecute:
		return RiskHigh
	default:
		return RiskLow
	}
}

type Module struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
	IsActive    bool         `json:"is_active"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PermissionIDs returns the ids of the module's full permission catalog.
func (m *Module) PermissionIDs() []string {
	ids := make([]string, 0, len(m.Permissions))
	for _, p := range m.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasPermissionID reports whether the id belongs to the module catalog.
func (m *Module) HasPermissionID(permissionID string) bool {
	for _, p := range m.Permissions {
		if p.ID == permissionID {
			return true
		}
	}
	return false
}

type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ModuleID    string    `json:"module_id"`
	Action      Action    `json:"action"`
	Resource    string    `json:"resource,omitempty"`
	Risk        RiskLevel `json:"risk"`
}

func FromDataModel(m *moduleDatamodel.Module) *Module {
	out := &Module{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Color:       m.Color,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, p := range m.Permissions {
		out.Permissions = append(out.Permissions, PermissionFromDataModel(&p))
	}
	return out
}

func PermissionFromDataModel(p *moduleDatamodel.Permission) Permission {
	action := Action(p.Action)
	return Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ModuleID:    p.ModuleID,
		Action:      action,
		Resource:    p.Resource,
		Risk:        RiskForAction(action),
	}
}
