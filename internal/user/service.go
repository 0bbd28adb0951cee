package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/role"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository defines data access for user records.
type Repository interface {
	GetByID(id string) (*User, error)
	GetByIDs(ids []string) ([]*User, error)
	List(limit, offset int) ([]*User, error)
	ListByRole(roleID string) ([]*User, error)
	Create(u *User) error
	Update(u *User) error
	Delete(id string) error
	UpdateStatus(id string, status Status, updatedAt time.Time) error
	Exists(id string) (bool, error)
}

// RoleDirectory resolves roles when creating users.
type RoleDirectory interface {
	GetByID(id string) (*role.Role, error)
}

type Service struct {
	repo       Repository
	roles      RoleDirectory
	bus        *events.EventBus
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, roles RoleDirectory, bus *events.EventBus, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		roles:      roles,
		bus:        bus,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.List(limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return users, nil
}

func (s *Service) ListByRole(ctx context.Context, roleID string) ([]*User, error) {
	users, err := s.repo.ListByRole(roleID)
	if err != nil {
		s.logger.Error("failed to list users by role", "error", err, "role_id", roleID)
		return nil, internal.NewInternalError("failed to list users by role", err)
	}
	return users, nil
}

// AddUser mints a user_-prefixed id, hashes the password and persists the
// record with the resolved role.
func (s *Service) AddUser(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("user validation failed", "error", err)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	r, err := s.roles.GetByID(dto.RoleID)
	if err != nil {
		return nil, internal.ErrRoleNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := &User{
		ID:           fmt.Sprintf("user_%s", uuid.New().String()),
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: string(hash),
		EmployeeID:   dto.EmployeeID,
		Department:   dto.Department,
		Avatar:       dto.Avatar,
		Role:         *r,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.publishUpdate(ctx, u.ID, "created")
	s.logger.Info("user created", "user_id", u.ID, "email", u.Email, "role", r.Name)

	return u, nil
}

// UpdateUser applies the patch and stamps updated_at.
func (s *Service) UpdateUser(ctx context.Context, id string, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Email != nil {
		u.Email = *dto.Email
	}
	if dto.Department != nil {
		u.Department = *dto.Department
	}
	if dto.Avatar != nil {
		u.Avatar = *dto.Avatar
	}
	if dto.Status != nil {
		u.Status = Status(*dto.Status)
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.publishUpdate(ctx, id, "updated")
	s.logger.Info("user updated", "user_id", id)

	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return internal.ErrUserNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.publishUpdate(ctx, id, "deleted")
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// SetStatus flips the user's status. No-op transitions fail so bulk
// activate/deactivate report honest per-item outcomes.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return internal.NewValidationError("invalid status", internal.ErrCodeInvalidStatus)
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return internal.ErrUserNotFound
	}

	if u.Status == status {
		switch status {
		case StatusActive:
			return internal.NewConflictError("user is already active", internal.ErrCodeAlreadyActive)
		case StatusInactive:
			return internal.NewConflictError("user is already inactive", internal.ErrCodeAlreadyInactive)
		default:
			return internal.NewConflictError("user already has this status", internal.ErrCodeInvalidStatus)
		}
	}

	if err := s.repo.UpdateStatus(id, status, time.Now()); err != nil {
		s.logger.Error("failed to update user status", "error", err, "user_id", id, "status", status)
		return internal.NewInternalError("failed to update user status", err)
	}

	s.publishUpdate(ctx, id, fmt.Sprintf("status:%s", status))
	s.logger.Info("user status changed", "user_id", id, "status", status)
	return nil
}

// Drift reports the divergence between the user's grants and the role
// template.
func (s *Service) Drift(ctx context.Context, id string) (*DriftReport, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	report := u.Drift()
	return &report, nil
}

func (s *Service) publishUpdate(ctx context.Context, userID, change string) {
	if s.bus == nil {
		return
	}
	actor := internal.ActorFromContext(ctx)
	if err := s.bus.Publish(ctx, events.NewUserUpdatedEvent(userID, actor, change)); err != nil {
		s.logger.Error("failed to publish user event", "error", err, "user_id", userID)
	}
}
