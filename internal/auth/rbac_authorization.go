package auth

import (
	"log/slog"
	"net/http"
)

// RBACAuthorization guards routes behind administration permissions. It runs
// after AuthMiddleware, which puts the principal in the request context.
type RBACAuthorization struct {
	checker PermissionChecker
	logger  *slog.Logger
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		checker: checker,
		logger:  logger,
	}
}

func (ra *RBACAuthorization) RequireViewUsers() func(http.Handler) http.Handler {
	return ra.require("view users", ra.checker.CanViewUsers)
}

func (ra *RBACAuthorization) RequireManageUsers() func(http.Handler) http.Handler {
	return ra.require("manage users", ra.checker.CanManageUsers)
}

func (ra *RBACAuthorization) RequireManageRoles() func(http.Handler) http.Handler {
	return ra.require("manage roles", ra.checker.CanManageRoles)
}

func (ra *RBACAuthorization) RequireExecuteBulk() func(http.Handler) http.Handler {
	return ra.require("execute bulk operations", ra.checker.CanExecuteBulk)
}

func (ra *RBACAuthorization) RequireViewAudit() func(http.Handler) http.Handler {
	return ra.require("view audit log", ra.checker.CanViewAudit)
}

// Middleware gates on one named permission.
func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return ra.require(permission, func(perms []string) bool {
		return ra.checker.HasAnyPermission(perms, []string{permission, PermAdmin})
	})
}

func (ra *RBACAuthorization) require(action string, allowed func([]string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: user not found in context", "action", action)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !allowed(user.Permissions) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"action", action,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
