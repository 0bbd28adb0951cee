package user

import (
	"time"

	userDatamodel "github.com/fleetops/access-management/internal/core/datamodel/user"
	"github.com/fleetops/access-management/internal/grants"
	"github.com/fleetops/access-management/internal/role"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User carries its role by value; assigning a role replaces the whole value.
type User struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	PasswordHash string                `json:"-"`
	EmployeeID   *string               `json:"employee_id,omitempty"`
	Department   string                `json:"department,omitempty"`
	Avatar       string                `json:"avatar,omitempty"`
	Role         role.Role             `json:"role"`
	ModuleAccess []grants.ModuleAccess `json:"module_access"`
	Status       Status                `json:"status"`
	LastLogin    *time.Time            `json:"last_login,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// GrantedPermissionCount sums granted permissions across all module rows.
func (u *User) GrantedPermissionCount() int {
	return grants.GrantedPermissionCount(u.ModuleAccess)
}

// GrantedPermissionIDs returns the union of granted permission ids.
func (u *User) GrantedPermissionIDs() []string {
	return grants.GrantedPermissionIDs(u.ModuleAccess)
}

// DriftReport describes how the user's live grants diverge from the role
// template's default grant set.
type DriftReport struct {
	UserID   string   `json:"user_id"`
	RoleID   string   `json:"role_id"`
	RoleName string   `json:"role_name"`
	Missing  []string `json:"missing"`
	Extra    []string `json:"extra"`
	InSync   bool     `json:"in_sync"`
}

// Drift compares the user's granted permission ids against the role template.
func (u *User) Drift() DriftReport {
	granted := make(map[string]struct{})
	for _, id := range u.GrantedPermissionIDs() {
		granted[id] = struct{}{}
	}

	template := make(map[string]struct{})
	report := DriftReport{
		UserID:   u.ID,
		RoleID:   u.Role.ID,
		RoleName: u.Role.Name,
	}
	for _, id := range u.Role.TemplatePermissionIDs() {
		template[id] = struct{}{}
		if _, ok := granted[id]; !ok {
			report.Missing = append(report.Missing, id)
		}
	}
	for _, id := range u.GrantedPermissionIDs() {
		if _, ok := template[id]; !ok {
			report.Extra = append(report.Extra, id)
		}
	}
	report.InSync = len(report.Missing) == 0 && len(report.Extra) == 0
	return report
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		EmployeeID:   u.EmployeeID,
		Department:   u.Department,
		Avatar:       u.Avatar,
		RoleID:       u.Role.ID,
		Status:       string(u.Status),
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(rec *userDatamodel.User, r role.Role, access []grants.ModuleAccess) *User {
	return &User{
		ID:           rec.ID,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		EmployeeID:   rec.EmployeeID,
		Department:   rec.Department,
		Avatar:       rec.Avatar,
		Role:         r,
		ModuleAccess: access,
		Status:       Status(rec.Status),
		LastLogin:    rec.LastLogin,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
