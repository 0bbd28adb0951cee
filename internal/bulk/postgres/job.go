package postgres

import (
	"github.com/fleetops/access-management/internal/bulk"
	bulkDatamodel "github.com/fleetops/access-management/internal/core/datamodel/bulk"
	"gorm.io/gorm"
)

// JobRepository implements bulk.JobRepository using GORM.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(j *bulk.Job) error {
	return r.db.Create(bulk.ToDataModel(j)).Error
}

func (r *JobRepository) Update(j *bulk.Job) error {
	return r.db.Save(bulk.ToDataModel(j)).Error
}

func (r *JobRepository) GetByID(id string) (*bulk.Job, error) {
	var record bulkDatamodel.Job
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return bulk.FromDataModel(&record), nil
}

// NextPending returns the oldest pending job; gorm.ErrRecordNotFound when the
// queue is empty.
func (r *JobRepository) NextPending() (*bulk.Job, error) {
	var record bulkDatamodel.Job
	err := r.db.Where("status = ?", bulk.JobPending).
		Order("created_at ASC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return bulk.FromDataModel(&record), nil
}

func (r *JobRepository) List(limit int) ([]*bulk.Job, error) {
	var records []bulkDatamodel.Job
	err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]*bulk.Job, 0, len(records))
	for i := range records {
		jobs = append(jobs, bulk.FromDataModel(&records[i]))
	}
	return jobs, nil
}
