package user

import (
	"errors"
	"strings"
)

// CreateUserDTO is the payload for POST /users.
type CreateUserDTO struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Department string  `json:"department,omitempty"`
	Avatar     string  `json:"avatar,omitempty"`
	RoleID     string  `json:"role_id"`
}

func (d CreateUserDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if d.Email == "" || !strings.Contains(d.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(d.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if d.RoleID == "" {
		return errors.New("role_id is required")
	}
	return nil
}

// UpdateUserDTO is the payload for PATCH /users/{id}. Nil fields are left
// unchanged.
type UpdateUserDTO struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
	Status     *string `json:"status,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	if d.Name != nil && strings.TrimSpace(*d.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if d.Email != nil && !strings.Contains(*d.Email, "@") {
		return errors.New("email must be valid")
	}
	if d.Status != nil && !Status(*d.Status).Valid() {
		return errors.New("status must be one of active, inactive, suspended")
	}
	return nil
}
