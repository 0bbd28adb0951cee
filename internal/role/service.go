package role

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
)

// Repository defines data access for the role catalog.
type Repository interface {
	GetByID(id string) (*Role, error)
	GetByName(name string) (*Role, error)
	GetAll() ([]*Role, error)
	AdjustUserCount(id string, delta int) error
}

// UserStore is the slice of the user layer the assignment editor needs:
// the current role, the live granted-permission count, and the role swap
// itself.
type UserStore interface {
	RoleOf(userID string) (*Role, error)
	GrantedPermissionCount(userID string) (int, error)
	SetRole(userID string, r *Role, updatedAt time.Time) error
}

type Service struct {
	repo   Repository
	users  UserStore
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, users UserStore, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		bus:    bus,
		logger: logger,
	}
}

func (s *Service) List() ([]*Role, error) {
	roles, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (s *Service) GetByID(id string) (*Role, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get role", "error", err, "role_id", id)
		return nil, internal.ErrRoleNotFound
	}
	return r, nil
}

// PreviewChange computes the old-versus-new permission counts and the
// significance verdict for a candidate role, without applying anything.
func (s *Service) PreviewChange(ctx context.Context, userID, candidateRoleID string) (*ChangePreview, error) {
	current, err := s.users.RoleOf(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	candidate, err := s.repo.GetByID(candidateRoleID)
	if err != nil {
		return nil, internal.ErrRoleNotFound
	}

	grantedCount, err := s.users.GrantedPermissionCount(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to count granted permissions", err)
	}

	return &ChangePreview{
		UserID:                   userID,
		CurrentRoleID:            current.ID,
		CurrentRoleName:          current.Name,
		CandidateRoleID:          candidate.ID,
		CandidateRoleName:        candidate.Name,
		CurrentPermissionCount:   grantedCount,
		CandidatePermissionCount: len(candidate.Permissions),
		Significant:              HasSignificantChange(current.Name, candidate.Name, grantedCount, len(candidate.Permissions)),
		CurrentSecurityLevel:     SecurityLevel(current.Name),
		CandidateSecurityLevel:   SecurityLevel(candidate.Name),
	}, nil
}

// Assign replaces the user's role wholesale. Significant changes must be
// confirmed; the confirmation error carries the preview so callers can render
// it. Module access grants are deliberately left untouched; the drift report
// surfaces the divergence instead.
func (s *Service) Assign(ctx context.Context, userID, roleID string, confirmed bool) (*ChangePreview, error) {
	preview, err := s.PreviewChange(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}

	if preview.Significant && !confirmed {
		s.logger.Info("role change requires confirmation",
			"user_id", userID,
			"from_role", preview.CurrentRoleName,
			"to_role", preview.CandidateRoleName)
		return nil, internal.ErrConfirmRequired.WithDetails(preview)
	}

	candidate, err := s.repo.GetByID(roleID)
	if err != nil {
		return nil, internal.ErrRoleNotFound
	}

	if err := s.users.SetRole(userID, candidate, time.Now()); err != nil {
		s.logger.Error("failed to set role", "error", err, "user_id", userID, "role_id", roleID)
		return nil, internal.NewInternalError("failed to set role", err)
	}

	if preview.CurrentRoleID != candidate.ID {
		if err := s.repo.AdjustUserCount(preview.CurrentRoleID, -1); err != nil {
			s.logger.Error("failed to adjust user count", "error", err, "role_id", preview.CurrentRoleID)
		}
		if err := s.repo.AdjustUserCount(candidate.ID, 1); err != nil {
			s.logger.Error("failed to adjust user count", "error", err, "role_id", candidate.ID)
		}
	}

	actor := internal.ActorFromContext(ctx)
	if s.bus != nil {
		event := events.NewRoleAssignedEvent(userID, actor,
			preview.CurrentRoleID, preview.CurrentRoleName,
			candidate.ID, candidate.Name)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish role assigned event", "error", err, "user_id", userID)
		}
	}

	s.logger.Info("role assigned",
		"user_id", userID,
		"from_role", preview.CurrentRoleName,
		"to_role", candidate.Name,
		"significant", preview.Significant)

	return preview, nil
}

// Demote moves the user to the default system role. Errors when the user
// already holds it, so bulk remove_role reports honest per-item outcomes.
func (s *Service) Demote(ctx context.Context, userID string) error {
	current, err := s.users.RoleOf(userID)
	if err != nil {
		return internal.ErrUserNotFound
	}

	fallback, err := s.repo.GetByName(DefaultRoleName)
	if err != nil {
		return internal.NewInternalError("default role is missing", err)
	}

	if current.ID == fallback.ID {
		return internal.NewConflictError("user already holds the default role", internal.ErrCodeAlreadyDefaultRole)
	}

	if _, err := s.Assign(ctx, userID, fallback.ID, true); err != nil {
		return err
	}
	return nil
}
