package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"time"

	accessDatamodel "github.com/fleetops/access-management/internal/core/datamodel/access"
	auditDatamodel "github.com/fleetops/access-management/internal/core/datamodel/audit"
	bulkDatamodel "github.com/fleetops/access-management/internal/core/datamodel/bulk"
	moduleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/module"
	roleDatamodel "github.com/fleetops/access-management/internal/core/datamodel/role"
	userDatamodel "github.com/fleetops/access-management/internal/core/datamodel/user"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with the fleet module catalog, system roles and demo users.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
		lg := logger.LoggerWrapper()

		gormDB, _, err := openPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			if err := clearSeedData(gormDB); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			lg.Info("existing data cleared")
		}

		if err := seedDatabase(gormDB, lg); err != nil {
			log.Fatalf("failed to seed: %v", err)
		}
		fmt.Println("seed complete")
	},
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&moduleDatamodel.Module{},
		&moduleDatamodel.Permission{},
		&roleDatamodel.Role{},
		&roleDatamodel.RolePermission{},
		&userDatamodel.User{},
		&accessDatamodel.ModuleAccess{},
		&bulkDatamodel.Job{},
		&auditDatamodel.Entry{},
	)
}

func clearSeedData(db *gorm.DB) error {
	tables := []string{
		"audit_entries", "bulk_jobs", "module_access",
		"role_permissions", "users", "roles", "permissions", "modules",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedPermission struct {
	ID       string
	Name     string
	Action   string
	Resource string
}

type seedModule struct {
	ID          string
	Name        string
	Description string
	Icon        string
	IsActive    bool
	Permissions []seedPermission
}

var fleetModules = []seedModule{
	{
		ID: "ev", Name: "EV Monitoring", Description: "Charge levels, telemetry and battery health", Icon: "bolt", IsActive: true,
		Permissions: []seedPermission{
			{"ev_view", "View EV telemetry", "view", "ev"},
			{"ev_update", "Edit EV settings", "update", "ev"},
			{"ev_manage", "Manage EV fleet", "manage", "ev"},
		},
	},
	{
		ID: "fuel", Name: "Fuel Tracking", Description: "Fuel consumption and refueling logs", Icon: "fuel", IsActive: true,
		Permissions: []seedPermission{
			{"fuel_view", "View fuel logs", "view", "fuel"},
			{"fuel_create", "Record refueling", "create", "fuel"},
			{"fuel_delete", "Delete fuel records", "delete", "fuel"},
		},
	},
	{
		ID: "maintenance", Name: "Maintenance", Description: "Service schedules and repair orders", Icon: "wrench", IsActive: true,
		Permissions: []seedPermission{
			{"maintenance_view", "View service schedules", "view", "maintenance"},
			{"maintenance_create", "Open repair orders", "create", "maintenance"},
			{"maintenance_execute", "Execute maintenance jobs", "execute", "maintenance"},
			{"maintenance_manage", "Manage maintenance plans", "manage", "maintenance"},
		},
	},
	{
		ID: "drivers", Name: "Drivers", Description: "Driver profiles and assignments", Icon: "user", IsActive: true,
		Permissions: []seedPermission{
			{"drivers_view", "View driver profiles", "view", "drivers"},
			{"drivers_update", "Edit driver assignments", "update", "drivers"},
			{"drivers_manage", "Manage driver pool", "manage", "drivers"},
		},
	},
	{
		ID: "reports", Name: "Reports", Description: "Utilization and cost reporting", Icon: "chart", IsActive: true,
		Permissions: []seedPermission{
			{"reports_view", "View reports", "view", "reports"},
			{"reports_execute", "Run report exports", "execute", "reports"},
		},
	},
	{
		ID: "admin", Name: "Administration", Description: "User, role and permission administration", Icon: "shield", IsActive: true,
		Permissions: []seedPermission{
			{"admin_users_view", "View users", "view", "admin"},
			{"admin_users_manage", "Manage users", "manage", "admin"},
			{"admin_roles_manage", "Manage roles", "manage", "admin"},
			{"admin_bulk_execute", "Execute bulk operations", "execute", "admin"},
			{"admin_audit_view", "View the audit log", "view", "admin"},
		},
	},
}

type seedRole struct {
	ID            string
	Name          string
	Description   string
	Color         string
	IsSystemRole  bool
	PermissionIDs []string
}

var fleetRoles = []seedRole{
	{
		ID: "role_admin", Name: "Admin", Description: "Full platform administration", Color: "#dc2626", IsSystemRole: true,
		PermissionIDs: []string{
			"ev_view", "ev_update", "ev_manage",
			"fuel_view", "fuel_create", "fuel_delete",
			"maintenance_view", "maintenance_create", "maintenance_execute", "maintenance_manage",
			"drivers_view", "drivers_update", "drivers_manage",
			"reports_view", "reports_execute",
			"admin_users_view", "admin_users_manage", "admin_roles_manage", "admin_bulk_execute", "admin_audit_view",
		},
	},
	{
		ID: "role_fleet_manager", Name: "Fleet Manager", Description: "Day-to-day fleet operations", Color: "#2563eb", IsSystemRole: true,
		PermissionIDs: []string{
			"ev_view", "ev_update",
			"fuel_view", "fuel_create",
			"maintenance_view", "maintenance_create",
			"drivers_view", "drivers_update",
			"reports_view", "reports_execute",
			"admin_users_view",
		},
	},
	{
		ID: "role_mechanic", Name: "Mechanic", Description: "Workshop and maintenance staff", Color: "#d97706", IsSystemRole: true,
		PermissionIDs: []string{
			"maintenance_view", "maintenance_create", "maintenance_execute",
			"ev_view", "fuel_view",
		},
	},
	{
		ID: "role_driver", Name: "Driver", Description: "Vehicle operators", Color: "#16a34a", IsSystemRole: true,
		PermissionIDs: []string{
			"ev_view", "fuel_view", "fuel_create",
		},
	},
	{
		ID: "role_viewer", Name: "Viewer", Description: "Read-only access", Color: "#6b7280", IsSystemRole: true,
		PermissionIDs: []string{
			"ev_view", "fuel_view", "maintenance_view", "drivers_view", "reports_view",
		},
	},
}

type seedUser struct {
	ID         string
	Name       string
	Email      string
	Department string
	RoleID     string
	Status     string
	Access     []accessDatamodel.ModuleAccess
}

// seedDatabase is idempotent: existing rows are left alone so it can run on
// every demo boot.
func seedDatabase(db *gorm.DB, lg *slog.Logger) error {
	now := time.Now()

	for _, m := range fleetModules {
		record := moduleDatamodel.Module{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Icon:        m.Icon,
			IsActive:    m.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := firstOrCreate(db, &moduleDatamodel.Module{}, "id = ?", m.ID, &record); err != nil {
			return fmt.Errorf("module %s: %w", m.ID, err)
		}
		for _, p := range m.Permissions {
			permRecord := moduleDatamodel.Permission{
				ID:       p.ID,
				Name:     p.Name,
				ModuleID: m.ID,
				Action:   p.Action,
				Resource: p.Resource,
			}
			if err := firstOrCreate(db, &moduleDatamodel.Permission{}, "id = ?", p.ID, &permRecord); err != nil {
				return fmt.Errorf("permission %s: %w", p.ID, err)
			}
		}
	}

	for _, r := range fleetRoles {
		record := roleDatamodel.Role{
			ID:           r.ID,
			Name:         r.Name,
			Description:  r.Description,
			Color:        r.Color,
			IsSystemRole: r.IsSystemRole,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := firstOrCreate(db, &roleDatamodel.Role{}, "id = ?", r.ID, &record); err != nil {
			return fmt.Errorf("role %s: %w", r.ID, err)
		}
		for _, pid := range r.PermissionIDs {
			link := roleDatamodel.RolePermission{RoleID: r.ID, PermissionID: pid}
			if err := db.Where("role_id = ? AND permission_id = ?", r.ID, pid).
				FirstOrCreate(&link).Error; err != nil {
				return fmt.Errorf("role permission %s/%s: %w", r.ID, pid, err)
			}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	demoUsers := []seedUser{
		{
			ID: "user_demo_admin", Name: "Ayesha Khan", Email: "ayesha@fleetops.dev",
			Department: "Platform", RoleID: "role_admin", Status: "active",
		},
		{
			ID: "user_demo_manager", Name: "Marcus Webb", Email: "marcus@fleetops.dev",
			Department: "Operations", RoleID: "role_fleet_manager", Status: "active",
		},
		{
			ID: "user_demo_mechanic", Name: "Jonas Meyer", Email: "jonas@fleetops.dev",
			Department: "Workshop", RoleID: "role_mechanic", Status: "active",
		},
		{
			ID: "user_demo_driver", Name: "Reema Patel", Email: "reema@fleetops.dev",
			Department: "Logistics", RoleID: "role_driver", Status: "active",
			Access: []accessDatamodel.ModuleAccess{
				{
					UserID:      "user_demo_driver",
					ModuleID:    "ev",
					Permissions: []string{"ev_view"},
					AccessLevel: "view",
					GrantedAt:   now,
					GrantedBy:   "user_demo_admin",
				},
			},
		},
		{
			ID: "user_demo_viewer", Name: "Tom Oyelaran", Email: "tom@fleetops.dev",
			Department: "Finance", RoleID: "role_viewer", Status: "inactive",
		},
	}

	for _, u := range demoUsers {
		record := userDatamodel.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: string(hash),
			Department:   u.Department,
			RoleID:       u.RoleID,
			Status:       u.Status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := firstOrCreate(db, &userDatamodel.User{}, "id = ?", u.ID, &record); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
		for _, row := range u.Access {
			var count int64
			if err := db.Model(&accessDatamodel.ModuleAccess{}).
				Where("user_id = ? AND module_id = ?", row.UserID, row.ModuleID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				if err := db.Create(&row).Error; err != nil {
					return fmt.Errorf("module access %s/%s: %w", row.UserID, row.ModuleID, err)
				}
			}
		}
	}

	if err := refreshRoleUserCounts(db); err != nil {
		return err
	}

	lg.Info("database seeded",
		"modules", len(fleetModules),
		"roles", len(fleetRoles),
		"users", len(demoUsers))
	return nil
}

func firstOrCreate(db *gorm.DB, model interface{}, query string, arg interface{}, record interface{}) error {
	var count int64
	if err := db.Model(model).Where(query, arg).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(record).Error
}

func refreshRoleUserCounts(db *gorm.DB) error {
	var roles []roleDatamodel.Role
	if err := db.Find(&roles).Error; err != nil {
		return err
	}
	for _, r := range roles {
		var count int64
		if err := db.Model(&userDatamodel.User{}).Where("role_id = ?", r.ID).Count(&count).Error; err != nil {
			return err
		}
		if err := db.Model(&roleDatamodel.Role{}).
			Where("id = ?", r.ID).
			UpdateColumn("user_count", count).Error; err != nil {
			return err
		}
	}
	return nil
}
