package role_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/module"
	"github.com/fleetops/access-management/internal/role"
)

func TestRoleService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Service Suite")
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func roleWithPermissions(id, name string, permissionIDs ...string) *role.Role {
	r := &role.Role{ID: id, Name: name}
	for _, pid := range permissionIDs {
		r.Permissions = append(r.Permissions, module.Permission{ID: pid, Name: pid})
	}
	return r
}

// mockRoleRepository implements role.Repository in memory.
type mockRoleRepository struct {
	roles      map[string]*role.Role
	userCounts map[string]int
	getError   error
}

func newMockRoleRepository(roles ...*role.Role) *mockRoleRepository {
	m := &mockRoleRepository{
		roles:      make(map[string]*role.Role),
		userCounts: make(map[string]int),
	}
	for _, r := range roles {
		m.roles[r.ID] = r
	}
	return m
}

func (m *mockRoleRepository) GetByID(id string) (*role.Role, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	r, ok := m.roles[id]
	if !ok {
		return nil, errors.New("role not found")
	}
	return r, nil
}

func (m *mockRoleRepository) GetByName(name string) (*role.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, errors.New("role not found")
}

func (m *mockRoleRepository) GetAll() ([]*role.Role, error) {
	out := make([]*role.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRoleRepository) AdjustUserCount(id string, delta int) error {
	m.userCounts[id] += delta
	return nil
}

// mockUserStore implements role.UserStore for a single user.
type mockUserStore struct {
	currentRole  *role.Role
	grantedCount int
	setRoleError error
	roleError    error
}

func (m *mockUserStore) RoleOf(userID string) (*role.Role, error) {
	if m.roleError != nil {
		return nil, m.roleError
	}
	return m.currentRole, nil
}

func (m *mockUserStore) GrantedPermissionCount(userID string) (int, error) {
	return m.grantedCount, nil
}

func (m *mockUserStore) SetRole(userID string, r *role.Role, updatedAt time.Time) error {
	if m.setRoleError != nil {
		return m.setRoleError
	}
	m.currentRole = r
	return nil
}

var _ = Describe("SecurityLevel", func() {
	It("should classify role names case-insensitively", func() {
		Expect(role.SecurityLevel("Admin")).To(Equal(module.RiskCritical))
		Expect(role.SecurityLevel("ADMIN")).To(Equal(module.RiskCritical))
		Expect(role.SecurityLevel("Fleet Manager")).To(Equal(module.RiskHigh))
		Expect(role.SecurityLevel("mechanic")).To(Equal(module.RiskMedium))
		Expect(role.SecurityLevel("Driver")).To(Equal(module.RiskLow))
		Expect(role.SecurityLevel("")).To(Equal(module.RiskLow))
	})
})

var _ = Describe("HasSignificantChange", func() {
	It("should flag any role whose name contains Admin", func() {
		Expect(role.HasSignificantChange("System Admin", "Driver", 5, 5)).To(BeTrue())
		Expect(role.HasSignificantChange("Driver", "Fleet Admin", 5, 5)).To(BeTrue())
	})

	It("should not flag lowercase admin substrings", func() {
		Expect(role.HasSignificantChange("administrator", "Driver", 5, 5)).To(BeFalse())
	})

	It("should flag permission count deltas above the threshold", func() {
		Expect(role.HasSignificantChange("Driver", "Mechanic", 10, 6)).To(BeTrue())
		Expect(role.HasSignificantChange("Driver", "Mechanic", 2, 6)).To(BeTrue())
	})

	It("should not flag deltas at or below the threshold", func() {
		Expect(role.HasSignificantChange("Driver", "Mechanic", 9, 6)).To(BeFalse())
		Expect(role.HasSignificantChange("Driver", "Mechanic", 6, 6)).To(BeFalse())
	})
})

var _ = Describe("RoleService", func() {
	var (
		service *role.Service
		repo    *mockRoleRepository
		users   *mockUserStore
		viewer  *role.Role
		driver  *role.Role
		admin   *role.Role
		ctx     context.Context
	)

	BeforeEach(func() {
		viewer = roleWithPermissions("role_viewer", "Viewer", "ev_view", "fuel_view")
		driver = roleWithPermissions("role_driver", "Driver", "ev_view", "fuel_view", "fuel_create")
		admin = roleWithPermissions("role_admin", "System Admin",
			"ev_view", "ev_update", "ev_manage", "fuel_view", "fuel_create", "fuel_delete",
			"admin_users_view", "admin_users_manage")

		repo = newMockRoleRepository(viewer, driver, admin)
		users = &mockUserStore{currentRole: driver, grantedCount: 3}
		logger := newTestLogger()
		service = role.NewService(repo, users, events.NewEventBus(logger), logger)
		ctx = internal.ContextWithActor(context.Background(), "user_admin")
	})

	Describe("PreviewChange", func() {
		It("should compare the live granted count against the candidate template", func() {
			preview, err := service.PreviewChange(ctx, "user_1", viewer.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(preview.CurrentRoleName).To(Equal("Driver"))
			Expect(preview.CandidateRoleName).To(Equal("Viewer"))
			Expect(preview.CurrentPermissionCount).To(Equal(3))
			Expect(preview.CandidatePermissionCount).To(Equal(2))
			Expect(preview.Significant).To(BeFalse())
		})

		It("should mark moves onto an Admin role significant", func() {
			preview, err := service.PreviewChange(ctx, "user_1", admin.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(preview.Significant).To(BeTrue())
			Expect(preview.CandidateSecurityLevel).To(Equal(module.RiskLow))
		})

		It("should mark large permission count deltas significant", func() {
			users.grantedCount = 12

			preview, err := service.PreviewChange(ctx, "user_1", viewer.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(preview.Significant).To(BeTrue())
		})

		It("should reject an unknown candidate role", func() {
			_, err := service.PreviewChange(ctx, "user_1", "role_ghost")

			Expect(err).To(Equal(internal.ErrRoleNotFound))
		})
	})

	Describe("Assign", func() {
		It("should apply an insignificant change without confirmation", func() {
			preview, err := service.Assign(ctx, "user_1", viewer.ID, false)

			Expect(err).ToNot(HaveOccurred())
			Expect(preview.CandidateRoleID).To(Equal(viewer.ID))
			Expect(users.currentRole.ID).To(Equal(viewer.ID))
			Expect(repo.userCounts[driver.ID]).To(Equal(-1))
			Expect(repo.userCounts[viewer.ID]).To(Equal(1))
		})

		It("should refuse a significant change without confirmation and carry the preview", func() {
			preview, err := service.Assign(ctx, "user_1", admin.ID, false)

			Expect(preview).To(BeNil())
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeConfirmRequired))
			carried, ok := appErr.Details.(*role.ChangePreview)
			Expect(ok).To(BeTrue())
			Expect(carried.CandidateRoleID).To(Equal(admin.ID))
			Expect(users.currentRole.ID).To(Equal(driver.ID))
		})

		It("should apply a significant change once confirmed", func() {
			preview, err := service.Assign(ctx, "user_1", admin.ID, true)

			Expect(err).ToNot(HaveOccurred())
			Expect(preview.Significant).To(BeTrue())
			Expect(users.currentRole.ID).To(Equal(admin.ID))
		})

		It("should not corrupt the shared confirmation error across calls", func() {
			_, first := service.Assign(ctx, "user_1", admin.ID, false)
			Expect(first).To(HaveOccurred())

			Expect(internal.ErrConfirmRequired.Details).To(BeNil())
		})

		It("should not adjust user counts when reassigning the same role", func() {
			_, err := service.Assign(ctx, "user_1", driver.ID, false)

			Expect(err).ToNot(HaveOccurred())
			Expect(repo.userCounts).To(BeEmpty())
		})

		It("should reject unknown users", func() {
			users.roleError = errors.New("no such user")

			_, err := service.Assign(ctx, "user_ghost", viewer.ID, false)

			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})

	Describe("Demote", func() {
		It("should move the user to the default role", func() {
			err := service.Demote(ctx, "user_1")

			Expect(err).ToNot(HaveOccurred())
			Expect(users.currentRole.Name).To(Equal(role.DefaultRoleName))
		})

		It("should conflict when the user already holds the default role", func() {
			users.currentRole = viewer

			err := service.Demote(ctx, "user_1")

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAlreadyDefaultRole))
		})

		It("should fail when the default role is missing", func() {
			delete(repo.roles, viewer.ID)

			err := service.Demote(ctx, "user_1")

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})
})
