package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fleetops/access-management/internal/auth"
	accessDatamodel "github.com/fleetops/access-management/internal/core/datamodel/access"
	userDatamodel "github.com/fleetops/access-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// Repository implements auth.UserRepository over the users, role_permissions
// and module_access tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(email string) (string, string, string, error) {
	var passwordHash, userID, status string
	query := `SELECT id, password_hash, status FROM users WHERE email = ?`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash, &status); err != nil {
		if err == sql.ErrNoRows {
			return "", "", "", fmt.Errorf("user not found")
		}
		return "", "", "", err
	}
	return passwordHash, userID, status, nil
}

// GetUserWithPermissions resolves the principal's effective permissions: the
// union of the role template and every module access grant.
func (r *Repository) GetUserWithPermissions(userID string) (*auth.User, error) {
	var record userDatamodel.User
	if err := r.db.Select("id", "email", "role_id").Where("id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var permissions []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		permissions = append(permissions, id)
	}

	templateQuery := `SELECT p.id
	                  FROM permissions p
	                  JOIN role_permissions rp ON rp.permission_id = p.id
	                  WHERE rp.role_id = ?`
	rows, err := r.db.Raw(templateQuery, record.RoleID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var permID string
		if err := rows.Scan(&permID); err != nil {
			return nil, err
		}
		add(permID)
	}

	var accessRows []accessDatamodel.ModuleAccess
	if err := r.db.Where("user_id = ?", userID).Find(&accessRows).Error; err != nil {
		return nil, err
	}
	for _, row := range accessRows {
		for _, permID := range row.Permissions {
			add(permID)
		}
	}

	return &auth.User{
		ID:          record.ID,
		Email:       record.Email,
		Permissions: permissions,
	}, nil
}

func (r *Repository) TouchLastLogin(userID string, at time.Time) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login", at).Error
}
