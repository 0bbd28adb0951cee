package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/audit"
	auditPostgres "github.com/fleetops/access-management/internal/audit/postgres"
	"github.com/fleetops/access-management/internal/auth"
	authPostgres "github.com/fleetops/access-management/internal/auth/postgres"
	"github.com/fleetops/access-management/internal/bulk"
	bulkPostgres "github.com/fleetops/access-management/internal/bulk/postgres"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/grants"
	grantsPostgres "github.com/fleetops/access-management/internal/grants/postgres"
	"github.com/fleetops/access-management/internal/module"
	modulePostgres "github.com/fleetops/access-management/internal/module/postgres"
	"github.com/fleetops/access-management/internal/role"
	rolePostgres "github.com/fleetops/access-management/internal/role/postgres"
	"github.com/fleetops/access-management/internal/transport/rest"
	"github.com/fleetops/access-management/internal/transport/swagger"
	"github.com/fleetops/access-management/internal/user"
	userPostgres "github.com/fleetops/access-management/internal/user/postgres"
	"github.com/fleetops/access-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	SQLDB  *sql.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Bulk   *bulk.Service
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr, "demo", demoMode)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go deps.Bulk.Run(workerCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		stopWorker()
		if deps.SQLDB != nil {
			if err := deps.SQLDB.Close(); err != nil {
				deps.Logger.Error("database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		stopWorker()
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	if path := config.Server.OpenAPIPath; path != "" {
		if err := swagger.ValidateSpec(context.Background(), path); err != nil {
			return nil, fmt.Errorf("invalid OpenAPI document %s: %w", path, err)
		}
		lg.Info("OpenAPI document validated", "path", path)
	}

	var (
		gormDB *gorm.DB
		sqlDB  *sql.DB
	)
	if demoMode {
		gormDB, err = openDemoDB(lg)
	} else {
		gormDB, sqlDB, err = openPostgres(config.Database)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB == nil {
		sqlDB, err = gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap database handle: %w", err)
		}
	}

	bus := events.NewEventBus(lg)

	userRepo := userPostgres.NewUserRepository(gormDB)
	roleRepo := rolePostgres.NewRoleRepository(gormDB)
	moduleRepo := modulePostgres.NewModuleRepository(gormDB)
	accessRepo := grantsPostgres.NewAccessRepository(gormDB)
	jobRepo := bulkPostgres.NewJobRepository(gormDB)
	auditRepo := auditPostgres.NewAuditRepository(gormDB)
	authRepo := authPostgres.NewRepository(gormDB)

	auditRecorder := audit.NewRecorder(auditRepo, lg)
	auditRecorder.RegisterEventHandlers(bus)

	moduleService := module.NewService(moduleRepo, lg)
	grantsService := grants.NewService(accessRepo, moduleRepo, userRepo, bus, lg)
	roleService := role.NewService(roleRepo, userRepo, bus, lg)
	userService := user.NewService(userRepo, roleRepo, bus, lg, config.Security.BCryptCost)
	bulkService := bulk.NewService(jobRepo, userRepo, userService, roleService, grantsService, bus, lg)
	auditService := audit.NewService(auditRepo, lg)

	tokenGenerator := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGenerator, lg)
	rbac := auth.NewRBACAuthorization(auth.NewPermissionChecker(), lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, rest.Handlers{
		Auth:    auth.NewHandler(authService),
		RBAC:    rbac,
		Users:   user.NewHandler(userService),
		Roles:   role.NewHandler(roleService),
		Modules: module.NewHandler(moduleService),
		Grants:  grants.NewHandler(grantsService, moduleService),
		Bulk:    bulk.NewHandler(bulkService),
		Audit:   audit.NewHandler(auditService),
	}, config, lg)

	return &Dependencies{
		Config: config,
		SQLDB:  sqlDB,
		GormDB: gormDB,
		Router: router,
		Bulk:   bulkService,
		Logger: lg,
	}, nil
}

// openPostgres connects through sqlx/pgx and layers GORM over the same
// connection pool.
func openPostgres(cfg internal.DatabaseConfig) (*gorm.DB, *sql.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: dbConn.DB}), &gorm.Config{})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm over connection: %w", err)
	}

	return gormDB, dbConn.DB, nil
}

// openDemoDB builds an in-memory SQLite database with the full schema and
// demo data, for running the service without Postgres.
func openDemoDB(lg *slog.Logger) (*gorm.DB, error) {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	if err := autoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("failed to migrate demo schema: %w", err)
	}

	if err := seedDatabase(gormDB, lg); err != nil {
		return nil, fmt.Errorf("failed to seed demo data: %w", err)
	}

	lg.Info("demo database ready")
	return gormDB, nil
}
