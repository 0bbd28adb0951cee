package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/audit"
	"github.com/fleetops/access-management/internal/auth"
	"github.com/fleetops/access-management/internal/bulk"
	"github.com/fleetops/access-management/internal/grants"
	"github.com/fleetops/access-management/internal/module"
	"github.com/fleetops/access-management/internal/role"
	"github.com/fleetops/access-management/internal/transport/middleware"
	"github.com/fleetops/access-management/internal/transport/swagger"
	"github.com/fleetops/access-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth    *auth.Handler
	RBAC    *auth.RBACAuthorization
	Users   *user.Handler
	Roles   *role.Handler
	Modules *module.Handler
	Grants  *grants.Handler
	Bulk    *bulk.Handler
	Audit   *audit.Handler
}

// RegisterAllRoutes mounts the whole management API under /api/v1. Every
// route besides auth and health sits behind the bearer-token middleware and
// an administration-permission guard.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, cfg *internal.Config, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	openAPIPath := cfg.Server.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Modules != nil {
				pr.Get("/modules", h.Modules.GetModules)
				pr.Get("/modules/{id}", h.Modules.GetModule)
			}

			if h.Users != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Group(func(vr chi.Router) {
						vr.Use(h.RBAC.RequireViewUsers())
						vr.Get("/", h.Users.GetUsers)
						vr.Get("/{id}", h.Users.GetUser)
						vr.Get("/{id}/drift", h.Users.GetDrift)
					})

					ur.Group(func(mr chi.Router) {
						mr.Use(h.RBAC.RequireManageUsers())
						mr.Post("/", h.Users.CreateUser)
						mr.Patch("/{id}", h.Users.UpdateUser)
						mr.Delete("/{id}", h.Users.DeleteUser)
					})

					if h.Grants != nil {
						ur.Group(func(gr chi.Router) {
							gr.Use(h.RBAC.RequireManageUsers())
							gr.Get("/{id}/grants", h.Grants.GetGrants)
							gr.Post("/{id}/grants/toggle", h.Grants.TogglePermission)
							gr.Post("/{id}/grants/toggle-module", h.Grants.ToggleModule)
						})
					}

					if h.Roles != nil {
						ur.Group(func(rr chi.Router) {
							rr.Use(h.RBAC.RequireManageRoles())
							rr.Get("/{id}/role/preview", h.Roles.PreviewRoleChange)
							rr.Post("/{id}/role", h.Roles.AssignRole)
						})
					}
				})
			}

			if h.Roles != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.Use(h.RBAC.RequireViewUsers())
					rr.Get("/", h.Roles.GetRoles)
					rr.Get("/{id}", h.Roles.GetRole)
					if h.Users != nil {
						rr.Get("/{id}/users", h.Users.GetUsersByRole)
					}
				})
			}

			if h.Bulk != nil {
				pr.Route("/bulk-operations", func(br chi.Router) {
					br.Use(h.RBAC.RequireExecuteBulk())
					br.Post("/", h.Bulk.CreateOperation)
					br.Get("/", h.Bulk.ListOperations)
					br.Get("/{id}", h.Bulk.GetOperation)
				})
			}

			if h.Audit != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(h.RBAC.RequireViewAudit())
					ar.Get("/audit", h.Audit.GetEntries)
				})
			}
		})
	})
}
