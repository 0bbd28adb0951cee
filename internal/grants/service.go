package grants

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/module"
)

// AccessRepository persists a user's module access rows.
type AccessRepository interface {
	ListForUser(userID string) ([]ModuleAccess, error)
	ReplaceForUser(userID string, rows []ModuleAccess) error
}

// CatalogRepository resolves modules and permissions from the catalog.
type CatalogRepository interface {
	GetByID(id string) (*module.Module, error)
	PermissionsByIDs(ids []string) ([]module.Permission, error)
}

// UserDirectory answers existence checks so grant edits fail fast on unknown
// users instead of writing orphan rows.
type UserDirectory interface {
	Exists(userID string) (bool, error)
}

type Service struct {
	access  AccessRepository
	catalog CatalogRepository
	users   UserDirectory
	bus     *events.EventBus
	logger  *slog.Logger
}

func NewService(access AccessRepository, catalog CatalogRepository, users UserDirectory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		access:  access,
		catalog: catalog,
		users:   users,
		bus:     bus,
		logger:  logger,
	}
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]ModuleAccess, error) {
	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.access.ListForUser(userID)
	if err != nil {
		s.logger.Error("failed to load module access", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load module access", err)
	}
	return rows, nil
}

// Toggle enables or disables a single permission for the user, enforcing the
// catalog and module-active checks before persisting.
func (s *Service) Toggle(ctx context.Context, userID, moduleID, permissionID string, enabled bool) ([]ModuleAccess, error) {
	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}

	mod, err := s.catalog.GetByID(moduleID)
	if err != nil {
		s.logger.Warn("toggle on unknown module", "module_id", moduleID, "user_id", userID)
		return nil, internal.ErrModuleNotFound
	}
	if !mod.HasPermissionID(permissionID) {
		s.logger.Warn("toggle on permission outside module catalog",
			"module_id", moduleID,
			"permission_id", permissionID)
		return nil, internal.ErrUnknownPermission
	}
	if enabled && !mod.IsActive {
		return nil, internal.ErrModuleInactive
	}

	rows, err := s.access.ListForUser(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load module access", err)
	}

	actor := internal.ActorFromContext(ctx)
	updated := TogglePermission(rows, moduleID, permissionID, enabled, actor, time.Now())

	if err := s.access.ReplaceForUser(userID, updated); err != nil {
		s.logger.Error("failed to persist module access", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to persist module access", err)
	}

	s.publishToggle(ctx, userID, actor, moduleID, []string{permissionID}, enabled)

	s.logger.Info("permission toggled",
		"user_id", userID,
		"module_id", moduleID,
		"permission_id", permissionID,
		"enabled", enabled)

	return updated, nil
}

// ToggleModule grants or revokes the whole module catalog for the user.
func (s *Service) ToggleModule(ctx context.Context, userID, moduleID string, enabled bool) ([]ModuleAccess, error) {
	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}

	mod, err := s.catalog.GetByID(moduleID)
	if err != nil {
		return nil, internal.ErrModuleNotFound
	}
	if enabled && !mod.IsActive {
		return nil, internal.ErrModuleInactive
	}

	rows, err := s.access.ListForUser(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load module access", err)
	}

	actor := internal.ActorFromContext(ctx)
	updated := ToggleAllModulePermissions(rows, mod, enabled, actor, time.Now())

	if err := s.access.ReplaceForUser(userID, updated); err != nil {
		s.logger.Error("failed to persist module access", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to persist module access", err)
	}

	s.publishToggle(ctx, userID, actor, moduleID, mod.PermissionIDs(), enabled)

	s.logger.Info("module access toggled",
		"user_id", userID,
		"module_id", moduleID,
		"enabled", enabled)

	return updated, nil
}

// Grant adds permissions, grouped by their owning module, to the user. Used
// by the bulk coordinator where the caller supplies bare permission ids.
func (s *Service) Grant(ctx context.Context, userID string, permissionIDs []string) error {
	return s.applyByPermissionIDs(ctx, userID, permissionIDs, true)
}

// Revoke removes permissions from the user, pruning emptied module rows.
func (s *Service) Revoke(ctx context.Context, userID string, permissionIDs []string) error {
	return s.applyByPermissionIDs(ctx, userID, permissionIDs, false)
}

func (s *Service) applyByPermissionIDs(ctx context.Context, userID string, permissionIDs []string, enabled bool) error {
	if len(permissionIDs) == 0 {
		return internal.NewValidationError("permission_ids is required", internal.ErrCodeValidationFailed)
	}
	if err := s.ensureUser(userID); err != nil {
		return err
	}

	perms, err := s.catalog.PermissionsByIDs(permissionIDs)
	if err != nil {
		return internal.NewInternalError("failed to resolve permissions", err)
	}
	if len(perms) != len(permissionIDs) {
		return internal.ErrUnknownPermission
	}

	rows, err := s.access.ListForUser(userID)
	if err != nil {
		return internal.NewInternalError("failed to load module access", err)
	}

	actor := internal.ActorFromContext(ctx)
	now := time.Now()
	byModule := make(map[string][]string)
	for _, p := range perms {
		rows = TogglePermission(rows, p.ModuleID, p.ID, enabled, actor, now)
		byModule[p.ModuleID] = append(byModule[p.ModuleID], p.ID)
	}

	if err := s.access.ReplaceForUser(userID, rows); err != nil {
		return internal.NewInternalError("failed to persist module access", err)
	}

	for moduleID, ids := range byModule {
		s.publishToggle(ctx, userID, actor, moduleID, ids, enabled)
	}
	return nil
}

// Stats reports per-module grant statistics against the full module catalog.
func (s *Service) Stats(ctx context.Context, userID string, modules []*module.Module) (map[string]ModuleStats, error) {
	rows, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]ModuleStats, len(modules))
	for _, mod := range modules {
		stats[mod.ID] = StatsForModule(rows, mod)
	}
	return stats, nil
}

func (s *Service) ensureUser(userID string) error {
	exists, err := s.users.Exists(userID)
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if !exists {
		return internal.ErrUserNotFound
	}
	return nil
}

func (s *Service) publishToggle(ctx context.Context, userID, actor, moduleID string, permissionIDs []string, enabled bool) {
	if s.bus == nil {
		return
	}
	var event events.Event
	if enabled {
		event = events.NewPermissionGrantedEvent(userID, actor, moduleID, permissionIDs)
	} else {
		event = events.NewPermissionRevokedEvent(userID, actor, moduleID, permissionIDs)
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish permission event", "error", err, "user_id", userID)
	}
}
