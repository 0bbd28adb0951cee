package postgres

import (
	accessDatamodel "github.com/fleetops/access-management/internal/core/datamodel/access"
	"github.com/fleetops/access-management/internal/grants"
	"gorm.io/gorm"
)

// AccessRepository implements grants.AccessRepository using GORM.
type AccessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) ListForUser(userID string) ([]grants.ModuleAccess, error) {
	var records []accessDatamodel.ModuleAccess
	err := r.db.Where("user_id = ?", userID).Order("granted_at ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	rows := make([]grants.ModuleAccess, 0, len(records))
	for i := range records {
		rows = append(rows, grants.FromDataModel(&records[i]))
	}
	return rows, nil
}

// ReplaceForUser swaps the user's full grant set in one transaction so row
// pruning and additions stay consistent.
func (r *AccessRepository) ReplaceForUser(userID string, rows []grants.ModuleAccess) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&accessDatamodel.ModuleAccess{}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			record := grants.ToDataModel(userID, row)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
