package bulk

import "time"

// Job is the persisted record of one bulk operation run. Counters are
// updated after every processed user so progress stays pollable.
type Job struct {
	ID            string      `gorm:"primaryKey"`
	Type          string      `gorm:"column:type;not null"`
	Status        string      `gorm:"column:status;default:pending"`
	UserIDs       []string    `gorm:"column:user_ids;serializer:json;not null"`
	RoleID        string      `gorm:"column:role_id"`
	PermissionIDs []string    `gorm:"column:permission_ids;serializer:json"`
	Reason        string      `gorm:"column:reason"`
	InitiatedBy   string      `gorm:"column:initiated_by"`
	Total         int         `gorm:"column:total;default:0"`
	Completed     int         `gorm:"column:completed;default:0"`
	Failed        int         `gorm:"column:failed;default:0"`
	Errors        []ItemError `gorm:"column:errors;serializer:json"`
	CreatedAt     time.Time   `gorm:"column:created_at;default:now()"`
	StartedAt     *time.Time  `gorm:"column:started_at"`
	CompletedAt   *time.Time  `gorm:"column:completed_at"`
}

func (Job) TableName() string {
	return "bulk_jobs"
}

type ItemError struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Error    string `json:"error"`
}
