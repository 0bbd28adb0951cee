package postgres

import (
	moduleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/module"
	roleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/role"
	"github.com/fleetops/access-management/internal/module"
	"github.com/fleetops/access-management/internal/role"
	"gorm.io/gorm"
)

// RoleRepository implements role.Repository using GORM.
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByID(id string) (*role.Role, error) {
	var record roleDatamodel.Role
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return r.hydrate(&record)
}

func (r *RoleRepository) GetByName(name string) (*role.Role, error) {
	var record roleDatamodel.Role
	if err := r.db.Where("name = ?", name).First(&record).Error; err != nil {
		return nil, err
	}
	return r.hydrate(&record)
}

func (r *RoleRepository) GetAll() ([]*role.Role, error) {
	var records []roleDatamodel.Role
	if err := r.db.Order("name ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	roles := make([]*role.Role, 0, len(records))
	for i := range records {
		hydrated, err := r.hydrate(&records[i])
		if err != nil {
			return nil, err
		}
		roles = append(roles, hydrated)
	}
	return roles, nil
}

func (r *RoleRepository) AdjustUserCount(id string, delta int) error {
	return r.db.Model(&roleDatamodel.Role{}).
		Where("id = ?", id).
		UpdateColumn("user_count", gorm.Expr("user_count + ?", delta)).Error
}

// hydrate attaches the role's template permissions from the join table.
func (r *RoleRepository) hydrate(record *roleDatamodel.Role) (*role.Role, error) {
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
	return role.FromDataModel(record, permissions), nil
}
