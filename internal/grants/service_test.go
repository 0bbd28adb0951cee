package grants_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/grants"
	"github.com/fleetops/access-management/internal/module"
)

// mockAccessRepository implements grants.AccessRepository in memory.
type mockAccessRepository struct {
	rows         map[string][]grants.ModuleAccess
	listError    error
	replaceError error
}

func newMockAccessRepository() *mockAccessRepository {
	return &mockAccessRepository{rows: make(map[string][]grants.ModuleAccess)}
}

func (m *mockAccessRepository) ListForUser(userID string) ([]grants.ModuleAccess, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	return m.rows[userID], nil
}

func (m *mockAccessRepository) ReplaceForUser(userID string, rows []grants.ModuleAccess) error {
	if m.replaceError != nil {
		return m.replaceError
	}
	m.rows[userID] = rows
	return nil
}

// mockCatalog implements grants.CatalogRepository over a fixed module set.
type mockCatalog struct {
	modules map[string]*module.Module
}

func newMockCatalog(modules ...*module.Module) *mockCatalog {
	c := &mockCatalog{modules: make(map[string]*module.Module)}
	for _, mod := range modules {
		c.modules[mod.ID] = mod
	}
	return c
}

func (m *mockCatalog) GetByID(id string) (*module.Module, error) {
	mod, ok := m.modules[id]
	if !ok {
		return nil, errors.New("module not found")
	}
	return mod, nil
}

func (m *mockCatalog) PermissionsByIDs(ids []string) ([]module.Permission, error) {
	var out []module.Permission
	for _, id := range ids {
		for _, mod := range m.modules {
			for _, p := range mod.Permissions {
				if p.ID == id {
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

// mockUserDirectory implements grants.UserDirectory.
type mockUserDirectory struct {
	known map[string]bool
}

func (m *mockUserDirectory) Exists(userID string) (bool, error) {
	return m.known[userID], nil
}

var _ = Describe("GrantsService", func() {
	var (
		service   *grants.Service
		access    *mockAccessRepository
		catalog   *mockCatalog
		directory *mockUserDirectory
		ctx       context.Context
	)

	BeforeEach(func() {
		access = newMockAccessRepository()
		catalog = newMockCatalog(
			fleetModule("fuel", true, "fuel_view", "fuel_create", "fuel_delete"),
			fleetModule("ev", true, "ev_view", "ev_update"),
			fleetModule("legacy", false, "legacy_view"),
		)
		directory = &mockUserDirectory{known: map[string]bool{"user_1": true}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = grants.NewService(access, catalog, directory, events.NewEventBus(logger), logger)
		ctx = internal.ContextWithActor(context.Background(), "user_admin")
	})

	Describe("Toggle", func() {
		It("should grant a permission and stamp the acting user", func() {
			rows, err := service.Toggle(ctx, "user_1", "fuel", "fuel_view", true)

			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].GrantedBy).To(Equal("user_admin"))
			Expect(access.rows["user_1"]).To(Equal(rows))
		})

		It("should reject a permission outside the module catalog", func() {
			rows, err := service.Toggle(ctx, "user_1", "fuel", "ev_view", true)

			Expect(err).To(Equal(internal.ErrUnknownPermission))
			Expect(rows).To(BeNil())
		})

		It("should reject enabling on an inactive module", func() {
			rows, err := service.Toggle(ctx, "user_1", "legacy", "legacy_view", true)

			Expect(err).To(Equal(internal.ErrModuleInactive))
			Expect(rows).To(BeNil())
		})

		It("should still allow disabling on an inactive module", func() {
			access.rows["user_1"] = []grants.ModuleAccess{{
				ModuleID:    "legacy",
				Permissions: []string{"legacy_view"},
				AccessLevel: grants.AccessLevelView,
				GrantedAt:   time.Now(),
			}}

			rows, err := service.Toggle(ctx, "user_1", "legacy", "legacy_view", false)

			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("should reject an unknown module", func() {
			_, err := service.Toggle(ctx, "user_1", "nope", "fuel_view", true)

			Expect(err).To(Equal(internal.ErrModuleNotFound))
		})

		It("should reject an unknown user", func() {
			_, err := service.Toggle(ctx, "user_ghost", "fuel", "fuel_view", true)

			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})

	Describe("ToggleModule", func() {
		It("should grant the full catalog at admin level", func() {
			rows, err := service.ToggleModule(ctx, "user_1", "fuel", true)

			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Permissions).To(Equal([]string{"fuel_view", "fuel_create", "fuel_delete"}))
			Expect(rows[0].AccessLevel).To(Equal(grants.AccessLevelAdmin))
		})

		It("should revoke the whole module row on disable", func() {
			_, err := service.ToggleModule(ctx, "user_1", "fuel", true)
			Expect(err).ToNot(HaveOccurred())

			rows, err := service.ToggleModule(ctx, "user_1", "fuel", false)

			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("should reject enabling an inactive module", func() {
			_, err := service.ToggleModule(ctx, "user_1", "legacy", true)

			Expect(err).To(Equal(internal.ErrModuleInactive))
		})
	})

	Describe("Grant and Revoke", func() {
		It("should group bare permission ids by their owning module", func() {
			err := service.Grant(ctx, "user_1", []string{"fuel_view", "ev_view"})

			Expect(err).ToNot(HaveOccurred())
			rows := access.rows["user_1"]
			Expect(rows).To(HaveLen(2))
			Expect(grants.HasPermission(rows, "fuel", "fuel_view")).To(BeTrue())
			Expect(grants.HasPermission(rows, "ev", "ev_view")).To(BeTrue())
		})

		It("should prune emptied module rows on revoke", func() {
			Expect(service.Grant(ctx, "user_1", []string{"fuel_view", "ev_view"})).To(Succeed())

			Expect(service.Revoke(ctx, "user_1", []string{"fuel_view"})).To(Succeed())

			rows := access.rows["user_1"]
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].ModuleID).To(Equal("ev"))
		})

		It("should reject ids the catalog does not know", func() {
			err := service.Grant(ctx, "user_1", []string{"fuel_view", "made_up"})

			Expect(err).To(Equal(internal.ErrUnknownPermission))
			Expect(access.rows["user_1"]).To(BeEmpty())
		})

		It("should reject an empty permission list", func() {
			err := service.Grant(ctx, "user_1", nil)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Stats", func() {
		It("should report per-module statistics against the catalog", func() {
			Expect(service.Grant(ctx, "user_1", []string{"fuel_view", "fuel_create"})).To(Succeed())

			mods := []*module.Module{catalog.modules["fuel"], catalog.modules["ev"]}
			stats, err := service.Stats(ctx, "user_1", mods)

			Expect(err).ToNot(HaveOccurred())
			Expect(stats["fuel"].Granted).To(Equal(2))
			Expect(stats["fuel"].Percentage).To(Equal(67))
			Expect(stats["ev"].Granted).To(Equal(0))
			Expect(stats["ev"].Percentage).To(Equal(0))
		})
	})
})
