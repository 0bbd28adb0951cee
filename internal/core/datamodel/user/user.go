package user

import "time"

type User struct {
	ID           string     `gorm:"primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	EmployeeID   *string    `gorm:"column:employee_id"`
	Department   string     `gorm:"column:department"`
	Avatar       string     `gorm:"column:avatar"`
	RoleID       string     `gorm:"column:role_id;index;not null"`
	Status       string     `gorm:"column:status;default:active"`
	LastLogin    *time.Time `gorm:"column:last_login"`
	CreatedAt    time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}
