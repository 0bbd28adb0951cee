package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserUpdated       = "access.user_updated"
	EventTypeRoleAssigned      = "access.role_assigned"
	EventTypePermissionGranted = "access.permission_granted"
	EventTypePermissionRevoked = "access.permission_revoked"
	EventTypeBulkCompleted     = "access.bulk_completed"
)

type UserUpdatedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Actor  string `json:"actor"`
	Change string `json:"change"`
}

func NewUserUpdatedEvent(userID, actor, change string) *UserUpdatedEvent {
	return &UserUpdatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserUpdated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"actor":   actor,
				"change":  change,
			},
		},
		UserID: userID,
		Actor:  actor,
		Change: change,
	}
}

type RoleAssignedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	Actor        string `json:"actor"`
	FromRoleID   string `json:"from_role_id"`
	FromRoleName string `json:"from_role_name"`
	ToRoleID     string `json:"to_role_id"`
	ToRoleName   string `json:"to_role_name"`
}

func NewRoleAssignedEvent(userID, actor, fromRoleID, fromRoleName, toRoleID, toRoleName string) *RoleAssignedEvent {
	return &RoleAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRoleAssigned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":        userID,
				"actor":          actor,
				"from_role_id":   fromRoleID,
				"from_role_name": fromRoleName,
				"to_role_id":     toRoleID,
				"to_role_name":   toRoleName,
			},
		},
		UserID:       userID,
		Actor:        actor,
		FromRoleID:   fromRoleID,
		FromRoleName: fromRoleName,
		ToRoleID:     toRoleID,
		ToRoleName:   toRoleName,
	}
}

type PermissionChangeEvent struct {
	BaseEvent
	UserID        string   `json:"user_id"`
	Actor         string   `json:"actor"`
	ModuleID      string   `json:"module_id"`
	PermissionIDs []string `json:"permission_ids"`
}

func NewPermissionGrantedEvent(userID, actor, moduleID string, permissionIDs []string) *PermissionChangeEvent {
	return newPermissionChangeEvent(EventTypePermissionGranted, userID, actor, moduleID, permissionIDs)
}

func NewPermissionRevokedEvent(userID, actor, moduleID string, permissionIDs []string) *PermissionChangeEvent {
	return newPermissionChangeEvent(EventTypePermissionRevoked, userID, actor, moduleID, permissionIDs)
}

func newPermissionChangeEvent(eventType, userID, actor, moduleID string, permissionIDs []string) *PermissionChangeEvent {
	return &PermissionChangeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":        userID,
				"actor":          actor,
				"module_id":      moduleID,
				"permission_ids": permissionIDs,
			},
		},
		UserID:        userID,
		Actor:         actor,
		ModuleID:      moduleID,
		PermissionIDs: permissionIDs,
	}
}

type BulkCompletedEvent struct {
	BaseEvent
	JobID         string `json:"job_id"`
	OperationType string `json:"operation_type"`
	Actor         string `json:"actor"`
	AffectedUsers int    `json:"affected_users"`
	FailedUsers   int    `json:"failed_users"`
}

func NewBulkCompletedEvent(jobID, operationType, actor string, affectedUsers, failedUsers int) *BulkCompletedEvent {
	return &BulkCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBulkCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"job_id":         jobID,
				"operation_type": operationType,
				"actor":          actor,
				"affected_users": affectedUsers,
				"failed_users":   failedUsers,
			},
		},
		JobID:         jobID,
		OperationType: operationType,
		Actor:         actor,
		AffectedUsers: affectedUsers,
		FailedUsers:   failedUsers,
	}
}
