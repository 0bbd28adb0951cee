package audit

import "time"

type Entry struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Actor        string    `gorm:"column:actor;index"`
	Action       string    `gorm:"column:action;not null"`
	TargetUserID string    `gorm:"column:target_user_id;index"`
	Detail       string    `gorm:"column:detail"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
