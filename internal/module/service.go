package module

import (
	"log/slog"

	"github.com/fleetops/access-management/internal"
)

// Repository defines data access for the module catalog.
type Repository interface {
	GetByID(id string) (*Module, error)
	GetAll(activeOnly bool) ([]*Module, error)
	PermissionsByIDs(ids []string) ([]Permission, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(activeOnly bool) ([]*Module, error) {
	modules, err := s.repo.GetAll(activeOnly)
	if err != nil {
		s.logger.Error("failed to list modules", "error", err)
		return nil, internal.NewInternalError("failed to list modules", err)
	}
	return modules, nil
}

func (s *Service) GetByID(id string) (*Module, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get module", "error", err, "module_id", id)
		return nil, internal.ErrModuleNotFound
	}
	return m, nil
}
