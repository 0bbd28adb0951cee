package postgres

import (
	"time"

	accessDatamodel "github.com/fleetops/access-management/internal/core/datamodel/access"
	moduleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/module"
	roleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/role"
	userDatamodel "github.com/fleetops/access-management/internal/core/datamodel/user"
	"github.com/fleetops/access-management/internal/grants"
	"github.com/fleetops/access-management/internal/module"
	"github.com/fleetops/access-management/internal/role"
	"github.com/fleetops/access-management/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository plus the narrower views the role
// and grants services consume (role.UserStore, grants.UserDirectory).
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id string) (*user.User, error) {
	var record userDatamodel.User
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return r.hydrate(&record)
}

func (r *UserRepository) GetByIDs(ids []string) ([]*user.User, error) {
	var records []userDatamodel.User
	if err := r.db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return r.hydrateAll(records)
}

func (r *UserRepository) List(limit, offset int) ([]*user.User, error) {
	var records []userDatamodel.User
	err := r.db.Order("name ASC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(records)
}

func (r *UserRepository) ListByRole(roleID string) ([]*user.User, error) {
	var records []userDatamodel.User
	err := r.db.Where("role_id = ?", roleID).Order("name ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(records)
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(user.ToDataModel(u)).Error
}

func (r *UserRepository) Update(u *user.User) error {
	record := user.ToDataModel(u)
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"name":        record.Name,
			"email":       record.Email,
			"employee_id": record.EmployeeID,
			"department":  record.Department,
			"avatar":      record.Avatar,
			"role_id":     record.RoleID,
			"status":      record.Status,
			"updated_at":  record.UpdatedAt,
		}).Error
}

// Delete removes the user and their access rows in one transaction so no
// orphan grants survive.
func (r *UserRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&accessDatamodel.ModuleAccess{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&userDatamodel.User{}).Error
	})
}

func (r *UserRepository) UpdateStatus(id string, status user.Status, updatedAt time.Time) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": updatedAt,
		}).Error
}

func (r *UserRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&userDatamodel.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RoleOf returns the user's hydrated role, template permissions included.
func (r *UserRepository) RoleOf(userID string) (*role.Role, error) {
	var record userDatamodel.User
	if err := r.db.Select("role_id").Where("id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return r.loadRole(record.RoleID)
}

// GrantedPermissionCount counts the user's live grants across all module
// access rows.
func (r *UserRepository) GrantedPermissionCount(userID string) (int, error) {
	rows, err := r.loadAccess(userID)
	if err != nil {
		return 0, err
	}
	return grants.GrantedPermissionCount(rows), nil
}

// SetRole replaces the user's role wholesale and stamps updated_at.
func (r *UserRepository) SetRole(userID string, newRole *role.Role, updatedAt time.Time) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"role_id":    newRole.ID,
			"updated_at": updatedAt,
		}).Error
}

func (r *UserRepository) hydrateAll(records []userDatamodel.User) ([]*user.User, error) {
	users := make([]*user.User, 0, len(records))
	for i := range records {
		hydrated, err := r.hydrate(&records[i])
		if err != nil {
			return nil, err
		}
		users = append(users, hydrated)
	}
	return users, nil
}

func (r *UserRepository) hydrate(record *userDatamodel.User) (*user.User, error) {
	userRole, err := r.loadRole(record.RoleID)
	if err != nil {
		return nil, err
	}
	access, err := r.loadAccess(record.ID)
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(record, *userRole, access), nil
}

func (r *UserRepository) loadRole(roleID string) (*role.Role, error) {
	var record roleDatamodel.Role
	if err := r.db.Where("id = ?", roleID).First(&record).Error; err != nil {
		return nil, err
	}

	var permRecords []moduleDatamodel.Permission
	err := r.db.
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ?", record.ID).
		Find(&permRecords).Error
	if err != nil {
		return nil, err
	}

	permissions := make([]module.Permission, 0, len(permRecords))
	for i := range permRecords {
		permissions = append(permissions, module.PermissionFromDataModel(&permRecords[i]))
	}
	return role.FromDataModel(&record, permissions), nil
}

func (r *UserRepository) loadAccess(userID string) ([]grants.ModuleAccess, error) {
	var records []accessDatamodel.ModuleAccess
	err := r.db.Where("user_id = ?", userID).Order("module_id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	rows := make([]grants.ModuleAccess, 0, len(records))
	for i := range records {
		rows = append(rows, grants.FromDataModel(&records[i]))
	}
	return rows, nil
}
