package access

import "time"

// ModuleAccess is the persisted grant record binding a user to a module.
// Rows with an empty permission list are never written; revoking the last
// permission deletes the row.
type ModuleAccess struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	UserID      string     `gorm:"column:user_id;uniqueIndex:idx_user_module;not null"`
	ModuleID    string     `gorm:"column:module_id;uniqueIndex:idx_user_module;not null"`
	Permissions []string   `gorm:"column:permissions;serializer:json;not null"`
	AccessLevel string     `gorm:"column:access_level;default:view"`
	GrantedAt   time.Time  `gorm:"column:granted_at"`
	GrantedBy   string     `gorm:"column:granted_by"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
}

func (ModuleAccess) TableName() string {
	return "module_access"
}
