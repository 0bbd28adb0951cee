package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/role"
	"github.com/fleetops/access-management/internal/user"
	"github.com/google/uuid"
)

// pollInterval is how often the worker checks for pending jobs it was not
// woken up for (jobs enqueued before the worker started, or by another
// process).
const pollInterval = 5 * time.Second

// JobRepository persists bulk runs and their live counters.
type JobRepository interface {
	Create(j *Job) error
	Update(j *Job) error
	GetByID(id string) (*Job, error)
	NextPending() (*Job, error)
	List(limit int) ([]*Job, error)
}

// UserLoader fetches the selected users.
type UserLoader interface {
	GetByIDs(ids []string) ([]*user.User, error)
}

// StatusSetter flips a user's status (activate/deactivate items).
type StatusSetter interface {
	SetStatus(ctx context.Context, id string, status user.Status) error
}

// RoleAssigner applies role swaps; remove_role demotes to the default role.
type RoleAssigner interface {
	Assign(ctx context.Context, userID, roleID string, confirmed bool) (*role.ChangePreview, error)
	Demote(ctx context.Context, userID string) error
}

// GrantEditor applies permission grants and revokes.
type GrantEditor interface {
	Grant(ctx context.Context, userID string, permissionIDs []string) error
	Revoke(ctx context.Context, userID string, permissionIDs []string) error
}

// Service enqueues bulk jobs and drains them with a single worker so runs
// stay strictly sequential.
type Service struct {
	repo        JobRepository
	users       UserLoader
	status      StatusSetter
	roles       RoleAssigner
	grantEditor GrantEditor
	bus         *events.EventBus
	logger      *slog.Logger
	wake        chan struct{}
}

func NewService(repo JobRepository, users UserLoader, status StatusSetter, roles RoleAssigner, grantEditor GrantEditor, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		status:      status,
		roles:       roles,
		grantEditor: grantEditor,
		bus:         bus,
		logger:      logger,
		wake:        make(chan struct{}, 1),
	}
}

// Enqueue validates the request against the current selection and persists a
// pending job for the worker.
func (s *Service) Enqueue(ctx context.Context, dto CreateOperationDTO) (*Job, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	targets, err := s.loadSelection(dto.UserIDs)
	if err != nil {
		return nil, err
	}

	coord := NewCoordinator()
	coord.SelectAll(targets)
	if !coord.CanExecute(OperationType(dto.Type)) {
		if coord.Selection().Len() == 0 {
			return nil, internal.ErrEmptySelection
		}
		return nil, internal.NewValidationError("no selected user is eligible for this operation", internal.ErrCodeValidationFailed)
	}

	job := &Job{
		ID:            uuid.New().String(),
		Type:          OperationType(dto.Type),
		Status:        JobPending,
		UserIDs:       coord.Selection().UserIDs(),
		RoleID:        dto.RoleID,
		PermissionIDs: dto.PermissionIDs,
		Reason:        dto.Reason,
		InitiatedBy:   internal.ActorFromContext(ctx),
		Total:         coord.Selection().Len(),
		CreatedAt:     time.Now(),
	}

	if err := s.repo.Create(job); err != nil {
		s.logger.Error("failed to persist bulk job", "error", err, "type", dto.Type)
		return nil, internal.NewInternalError("failed to persist bulk job", err)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.Info("bulk job enqueued",
		"job_id", job.ID,
		"type", job.Type,
		"total", job.Total,
		"initiated_by", job.InitiatedBy)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrJobNotFound
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	jobs, err := s.repo.List(limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list bulk jobs", err)
	}
	return jobs, nil
}

// Run drains pending jobs until the context is cancelled. A single worker
// keeps runs sequential end to end.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("bulk worker started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		s.drain(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("bulk worker stopped")
			return
		case <-s.wake:
		case <-ticker.C:
		}
	}
}

func (s *Service) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := s.repo.NextPending()
		if err != nil {
			return
		}
		if err := s.process(ctx, job); err != nil {
			s.logger.Error("bulk job failed", "error", err, "job_id", job.ID)
		}
	}
}

// process runs one job: users are acted on in selection order, counters are
// persisted after every item so the job row is pollable mid-run.
func (s *Service) process(ctx context.Context, job *Job) error {
	now := time.Now()
	job.Status = JobRunning
	job.StartedAt = &now
	if err := s.repo.Update(job); err != nil {
		return err
	}

	targets, err := s.loadSelection(job.UserIDs)
	if err != nil {
		job.Status = JobFailed
		done := time.Now()
		job.CompletedAt = &done
		_ = s.repo.Update(job)
		return err
	}

	coord := NewCoordinator()
	coord.SelectAll(targets)

	op := Operation{
		Type:          job.Type,
		RoleID:        job.RoleID,
		PermissionIDs: job.PermissionIDs,
		Reason:        job.Reason,
	}

	ctx = internal.ContextWithActor(ctx, job.InitiatedBy)

	result, err := coord.Execute(ctx, op, s.applyItem, func(p Progress) {
		job.Completed = p.Completed
		job.Failed = p.Failed
		if updateErr := s.repo.Update(job); updateErr != nil {
			s.logger.Error("failed to persist bulk progress", "error", updateErr, "job_id", job.ID)
		}
	})
	if err != nil {
		job.Status = JobFailed
		done := time.Now()
		job.CompletedAt = &done
		_ = s.repo.Update(job)
		return err
	}

	job.Errors = result.Errors
	if coord.State() == StateFailed {
		job.Status = JobFailed
	} else {
		job.Status = JobCompleted
	}
	done := time.Now()
	job.CompletedAt = &done
	if err := s.repo.Update(job); err != nil {
		return err
	}

	if s.bus != nil {
		event := events.NewBulkCompletedEvent(job.ID, string(job.Type), job.InitiatedBy, result.AffectedUsers, len(result.Errors))
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish bulk completed event", "error", err, "job_id", job.ID)
		}
	}

	s.logger.Info("bulk job finished",
		"job_id", job.ID,
		"type", job.Type,
		"status", job.Status,
		"affected", result.AffectedUsers,
		"failed", len(result.Errors))

	return nil
}

// applyItem maps the operation type onto the real per-user action; the
// action's error is the item's outcome.
func (s *Service) applyItem(ctx context.Context, op Operation, u *user.User) error {
	switch op.Type {
	case OpAssignRole:
		_, err := s.roles.Assign(ctx, u.ID, op.RoleID, true)
		return err
	case OpRemoveRole:
		return s.roles.Demote(ctx, u.ID)
	case OpGrantPermission:
		return s.grantEditor.Grant(ctx, u.ID, op.PermissionIDs)
	case OpRevokePermission:
		return s.grantEditor.Revoke(ctx, u.ID, op.PermissionIDs)
	case OpActivate:
		return s.status.SetStatus(ctx, u.ID, user.StatusActive)
	case OpDeactivate:
		return s.status.SetStatus(ctx, u.ID, user.StatusInactive)
	default:
		return internal.NewValidationError("unknown operation type", internal.ErrCodeValidationFailed)
	}
}

// loadSelection fetches the users and restores the request's ordering, since
// the repository does not guarantee IN-clause order.
func (s *Service) loadSelection(ids []string) ([]*user.User, error) {
	fetched, err := s.users.GetByIDs(ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load selected users", err)
	}

	byID := make(map[string]*user.User, len(fetched))
	for _, u := range fetched {
		byID[u.ID] = u
	}

	ordered := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, internal.ErrUserNotFound.WithDetails(map[string]string{"user_id": id})
		}
		ordered = append(ordered, u)
	}
	return ordered, nil
}
