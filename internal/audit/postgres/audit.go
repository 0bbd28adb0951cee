package postgres

import (
	"github.com/fleetops/access-management/internal/audit"
	auditDatamodel "github.com/fleetops/access-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditRepository implements audit.Repository using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(e audit.Entry) error {
	record := audit.ToDataModel(e)
	record.ID = 0
	return r.db.Create(record).Error
}

func (r *AuditRepository) ListByUser(targetUserID string, limit int) ([]audit.Entry, error) {
	var records []auditDatamodel.Entry
	err := r.db.Where("target_user_id = ?", targetUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return convert(records), nil
}

func (r *AuditRepository) List(limit int) ([]audit.Entry, error) {
	var records []auditDatamodel.Entry
	err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return convert(records), nil
}

func convert(records []auditDatamodel.Entry) []audit.Entry {
	entries := make([]audit.Entry, 0, len(records))
	for i := range records {
		entries = append(entries, audit.FromDataModel(&records[i]))
	}
	return entries
}
