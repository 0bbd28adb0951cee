package role

import (
	"strings"
	"time"

	roleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/role"
	"github.com/fleetops/access-management/internal/module"
)

// DefaultRoleName is the system role users fall back to when their role is
// removed; a user always holds exactly one role.
const DefaultRoleName = "Viewer"

// significantCountDelta is the permission-count difference above which a role
// change needs explicit confirmation.
const significantCountDelta = 3

type Role struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Permissions  []module.Permission `json:"permissions"`
	Color        string              `json:"color"`
	UserCount    int                 `json:"user_count"`
	IsSystemRole bool                `json:"is_system_role"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// TemplatePermissionIDs returns the ids of the role's default grant set.
func (r *Role) TemplatePermissionIDs() []string {
	ids := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

// SecurityLevel is a cosmetic classification of a role by name,
// case-insensitive. It drives display emphasis only.
func SecurityLevel(roleName string) module.RiskLevel {
	switch strings.ToLower(roleName) {
	case "admin":
		return module.RiskCritical
	case "fleet manager":
		return module.RiskHigh
	case "mechanic":
		return module.RiskMedium
	default:
		return module.RiskLow
	}
}

// HasSignificantChange reports whether switching roles needs an explicit
// confirmation: any role whose name contains "Admin" (case-sensitive), or a
// granted-permission count that moves by more than the threshold relative to
// the candidate's template size.
func HasSignificantChange(currentName, candidateName string, currentGrantedCount, candidateTemplateCount int) bool {
	if strings.Contains(currentName, "Admin") || strings.Contains(candidateName, "Admin") {
		return true
	}
	delta := currentGrantedCount - candidateTemplateCount
	if delta < 0 {
		delta = -delta
	}
	return delta > significantCountDelta
}

// ChangePreview shows the consequences of a role switch before it is applied.
type ChangePreview struct {
	UserID                   string           `json:"user_id"`
	CurrentRoleID            string           `json:"current_role_id"`
	CurrentRoleName          string           `json:"current_role_name"`
	CandidateRoleID          string           `json:"candidate_role_id"`
	CandidateRoleName        string           `json:"candidate_role_name"`
	CurrentPermissionCount   int              `json:"current_permission_count"`
	CandidatePermissionCount int              `json:"candidate_permission_count"`
	Significant              bool             `json:"significant"`
	CurrentSecurityLevel     module.RiskLevel `json:"current_security_level"`
	CandidateSecurityLevel   module.RiskLevel `json:"candidate_security_level"`
}

func FromDataModel(r *roleDatamodel.Role, permissions []module.Permission) *Role {
	return &Role{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Permissions:  permissions,
		Color:        r.Color,
		UserCount:    r.UserCount,
		IsSystemRole: r.IsSystemRole,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
