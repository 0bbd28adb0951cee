package auth

// Administration permissions. These live in the Administration module's
// catalog and gate the management API itself.
const (
	PermAdmin       = "admin"
	PermUsersView   = "admin_users_view"
	PermUsersManage = "admin_users_manage"
	PermRolesManage = "admin_roles_manage"
	PermBulkExecute = "admin_bulk_execute"
	PermAuditView   = "admin_audit_view"
)

type PermissionChecker interface {
	CanViewUsers(userPermissions []string) bool
	CanManageUsers(userPermissions []string) bool
	CanManageRoles(userPermissions []string) bool
	CanExecuteBulk(userPermissions []string) bool
	CanViewAudit(userPermissions []string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) CanViewUsers(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermUsersView, PermUsersManage, PermAdmin})
}

func (c *DefaultPermissionChecker) CanManageUsers(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermUsersManage, PermAdmin})
}

func (c *DefaultPermissionChecker) CanManageRoles(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermRolesManage, PermAdmin})
}

func (c *DefaultPermissionChecker) CanExecuteBulk(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermBulkExecute, PermAdmin})
}

func (c *DefaultPermissionChecker) CanViewAudit(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermAuditView, PermAdmin})
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermAdmin})
}
