package postgres

import (
	moduleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/module"
	"github.com/fleetops/access-management/internal/module"
	"gorm.io/gorm"
)

// ModuleRepository implements module.Repository using GORM.
type ModuleRepository struct {
	db *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

func (r *ModuleRepository) GetByID(id string) (*module.Module, error) {
	var m moduleDatamodel.Module
	err := r.db.Preload("Permissions").Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return module.FromDataModel(&m), nil
}

func (r *ModuleRepository) GetAll(activeOnly bool) ([]*module.Module, error) {
	var records []moduleDatamodel.Module
	q := r.db.Preload("Permissions").Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}

	modules := make([]*module.Module, 0, len(records))
	for i := range records {
		modules = append(modules, module.FromDataModel(&records[i]))
	}
	return modules, nil
}

func (r *ModuleRepository) PermissionsByIDs(ids []string) ([]module.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []moduleDatamodel.Permission
	if err := r.db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}

	permissions := make([]module.Permission, 0, len(records))
	for i := range records {
		permissions = append(permissions, module.PermissionFromDataModel(&records[i]))
	}
	return permissions, nil
}
