package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
)

// Repository persists and queries audit entries.
type Repository interface {
	Insert(e Entry) error
	ListByUser(targetUserID string, limit int) ([]Entry, error)
	List(limit int) ([]Entry, error)
}

// Recorder turns access events into audit entries. It subscribes to every
// access.* event type and writes one row per event.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// RegisterEventHandlers wires the recorder onto the bus.
func (r *Recorder) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeUserUpdated, r.onUserUpdated)
	bus.Subscribe(events.EventTypeRoleAssigned, r.onRoleAssigned)
	bus.Subscribe(events.EventTypePermissionGranted, r.onPermissionChange)
	bus.Subscribe(events.EventTypePermissionRevoked, r.onPermissionChange)
	bus.Subscribe(events.EventTypeBulkCompleted, r.onBulkCompleted)
}

func (r *Recorder) onUserUpdated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserUpdatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}
	return r.insert(Entry{
		Actor:        e.Actor,
		Action:       event.EventType(),
		TargetUserID: e.UserID,
		Detail:       e.Change,
		CreatedAt:    event.OccurredAt(),
	})
}

func (r *Recorder) onRoleAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RoleAssignedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}
	return r.insert(Entry{
		Actor:        e.Actor,
		Action:       event.EventType(),
		TargetUserID: e.UserID,
		Detail:       fmt.Sprintf("%s -> %s", e.FromRoleName, e.ToRoleName),
		CreatedAt:    event.OccurredAt(),
	})
}

func (r *Recorder) onPermissionChange(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PermissionChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}
	return r.insert(Entry{
		Actor:        e.Actor,
		Action:       event.EventType(),
		TargetUserID: e.UserID,
		Detail:       fmt.Sprintf("module=%s permissions=%s", e.ModuleID, strings.Join(e.PermissionIDs, ",")),
		CreatedAt:    event.OccurredAt(),
	})
}

func (r *Recorder) onBulkCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.BulkCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}
	return r.insert(Entry{
		Actor:     e.Actor,
		Action:    event.EventType(),
		Detail:    fmt.Sprintf("job=%s type=%s affected=%d failed=%d", e.JobID, e.OperationType, e.AffectedUsers, e.FailedUsers),
		CreatedAt: event.OccurredAt(),
	})
}

func (r *Recorder) insert(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := r.repo.Insert(e); err != nil {
		r.logger.Error("failed to write audit entry", "error", err, "action", e.Action)
		return err
	}
	return nil
}

// Service answers audit queries for the API.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, targetUserID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var (
		entries []Entry
		err     error
	)
	if targetUserID != "" {
		entries, err = s.repo.ListByUser(targetUserID, limit)
	} else {
		entries, err = s.repo.List(limit)
	}
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}
	return entries, nil
}
