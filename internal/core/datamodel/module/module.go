package module

import "time"

type Module struct {
	ID          string       `gorm:"primaryKey"`
	Name        string       `gorm:"column:name;uniqueIndex;not null"`
	Description string       `gorm:"column:description"`
	Icon        string       `gorm:"column:icon"`
	Color       string       `gorm:"column:color"`
	IsActive    bool         `gorm:"column:is_active;default:true"`
	Permissions []Permission `gorm:"foreignKey:ModuleID"`
	CreatedAt   time.Time    `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;default:now()"`
}

func (Module) TableName() string {
	return "modules"
}

type Permission struct {
	ID          string    `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	ModuleID    string    `gorm:"column:module_id;index;not null"`
	Action      string    `gorm:"column:action;not null"`
	Resource    string    `gorm:"column:resource"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
}

func (Permission) TableName() string {
	return "permissions"
}
