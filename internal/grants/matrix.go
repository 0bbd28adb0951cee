package grants

import (
	"math"
	"time"

	accessDatamodel "github.com/fleetops/access-management/internal/core/datamodel/access"
	"github.com/fleetops/access-management/internal/module"
)

type AccessLevel string

const (
	AccessLevelNone  AccessLevel = "none"
	AccessLevelView  AccessLevel = "view"
	AccessLevelEdit  AccessLevel = "edit"
	AccessLevelAdmin AccessLevel = "admin"
	AccessLevelOwner AccessLevel = "owner"
)

// ModuleAccess records which permissions within one module a user currently
// holds. Invariants: at most one row per module, and rows never carry an
// empty permission list (revoking the last permission removes the row).
type ModuleAccess struct {
	ModuleID    string      `json:"module_id"`
	Permissions []string    `json:"permissions"`
	AccessLevel AccessLevel `json:"access_level"`
	GrantedAt   time.Time   `json:"granted_at"`
	GrantedBy   string      `json:"granted_by"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// AccessForModule returns the grant row for the module, or nil when the user
// holds no access to it.
func AccessForModule(rows []ModuleAccess, moduleID string) *ModuleAccess {
	for i := range rows {
		if rows[i].ModuleID == moduleID {
			return &rows[i]
		}
	}
	return nil
}

// HasPermission reports whether the user holds the given permission in the
// given module.
func HasPermission(rows []ModuleAccess, moduleID, permissionID string) bool {
	row := AccessForModule(rows, moduleID)
	if row == nil {
		return false
	}
	for _, id := range row.Permissions {
		if id == permissionID {
			return true
		}
	}
	return false
}

// TogglePermission returns a new grant set with one permission enabled or
// disabled. Enabling creates the module row at view level when absent and
// never duplicates ids. Disabling removes the id and prunes the row when its
// permission list empties.
func TogglePermission(rows []ModuleAccess, moduleID, permissionID string, enabled bool, actor string, now time.Time) []ModuleAccess {
	out := cloneRows(rows)

	if enabled {
		row := AccessForModule(out, moduleID)
		if row == nil {
			out = append(out, ModuleAccess{
				ModuleID:    moduleID,
				Permissions: []string{permissionID},
				AccessLevel: AccessLevelView,
				GrantedAt:   now,
				GrantedBy:   actor,
			})
			return out
		}
		for _, id := range row.Permissions {
			if id == permissionID {
				return out
			}
		}
		row.Permissions = append(row.Permissions, permissionID)
		return out
	}

	for i := range out {
		if out[i].ModuleID != moduleID {
			continue
		}
		kept := out[i].Permissions[:0]
		for _, id := range out[i].Permissions {
			if id != permissionID {
				kept = append(kept, id)
			}
		}
		out[i].Permissions = kept
		if len(kept) == 0 {
			return append(out[:i], out[i+1:]...)
		}
		return out
	}
	return out
}

// ToggleAllModulePermissions grants the module's full catalog at admin level,
// or revokes module access entirely.
func ToggleAllModulePermissions(rows []ModuleAccess, mod *module.Module, enabled bool, actor string, now time.Time) []ModuleAccess {
	out := cloneRows(rows)

	if !enabled {
		for i := range out {
			if out[i].ModuleID == mod.ID {
				return append(out[:i], out[i+1:]...)
			}
		}
		return out
	}

	all := mod.PermissionIDs()
	if row := AccessForModule(out, mod.ID); row != nil {
		row.Permissions = all
		row.AccessLevel = AccessLevelAdmin
		return out
	}
	return append(out, ModuleAccess{
		ModuleID:    mod.ID,
		Permissions: all,
		AccessLevel: AccessLevelAdmin,
		GrantedAt:   now,
		GrantedBy:   actor,
	})
}

type ModuleStats struct {
	Granted    int `json:"granted"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// StatsForModule computes how much of a module catalog the user holds.
// Percentage is 0 for an empty catalog.
func StatsForModule(rows []ModuleAccess, mod *module.Module) ModuleStats {
	stats := ModuleStats{Total: len(mod.Permissions)}
	if row := AccessForModule(rows, mod.ID); row != nil {
		stats.Granted = len(row.Permissions)
	}
	if stats.Total > 0 {
		stats.Percentage = int(math.Round(float64(stats.Granted) / float64(stats.Total) * 100))
	}
	return stats
}

// GrantedPermissionIDs returns the union of granted permission ids across all
// module rows.
func GrantedPermissionIDs(rows []ModuleAccess) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, row := range rows {
		for _, id := range row.Permissions {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// GrantedPermissionCount sums granted permissions across all module rows.
func GrantedPermissionCount(rows []ModuleAccess) int {
	count := 0
	for _, row := range rows {
		count += len(row.Permissions)
	}
	return count
}

func cloneRows(rows []ModuleAccess) []ModuleAccess {
	out := make([]ModuleAccess, len(rows))
	copy(out, rows)
	for i := range out {
		perms := make([]string, len(out[i].Permissions))
		copy(perms, out[i].Permissions)
		out[i].Permissions = perms
	}
	return out
}

func FromDataModel(rec *accessDatamodel.ModuleAccess) ModuleAccess {
	return ModuleAccess{
		ModuleID:    rec.ModuleID,
		Permissions: rec.Permissions,
		AccessLevel: AccessLevel(rec.AccessLevel),
		GrantedAt:   rec.GrantedAt,
		GrantedBy:   rec.GrantedBy,
		ExpiresAt:   rec.ExpiresAt,
	}
}

func ToDataModel(userID string, row ModuleAccess) accessDatamodel.ModuleAccess {
	return accessDatamodel.ModuleAccess{
		UserID:      userID,
		ModuleID:    row.ModuleID,
		Permissions: row.Permissions,
		AccessLevel: string(row.AccessLevel),
		GrantedAt:   row.GrantedAt,
		GrantedBy:   row.GrantedBy,
		ExpiresAt:   row.ExpiresAt,
	}
}
