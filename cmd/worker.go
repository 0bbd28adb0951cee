package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetops/access-management/internal/audit"
	auditPostgres "github.com/fleetops/access-management/internal/audit/postgres"
	"github.com/fleetops/access-management/internal/bulk"
	bulkPostgres "github.com/fleetops/access-management/internal/bulk/postgres"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/grants"
	grantsPostgres "github.com/fleetops/access-management/internal/grants/postgres"
	modulePostgres "github.com/fleetops/access-management/internal/module/postgres"
	"github.com/fleetops/access-management/internal/role"
	rolePostgres "github.com/fleetops/access-management/internal/role/postgres"
	"github.com/fleetops/access-management/internal/user"
	userPostgres "github.com/fleetops/access-management/internal/user/postgres"
	"github.com/fleetops/access-management/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that drain queued work outside the API server.`,
}

var bulkWorkerCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Start the bulk operation worker",
	Long:  `Drain pending bulk jobs sequentially. Run this when the API server runs with its embedded worker disabled.`,
	Run: func(cmd *cobra.Command, args []string) {
		startBulkWorker()
	},
}

func init() {
	workerCmd.AddCommand(bulkWorkerCmd)
}

func startBulkWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	gormDB, sqlDB, err := openPostgres(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	bus := events.NewEventBus(lg)

	userRepo := userPostgres.NewUserRepository(gormDB)
	roleRepo := rolePostgres.NewRoleRepository(gormDB)
	moduleRepo := modulePostgres.NewModuleRepository(gormDB)
	accessRepo := grantsPostgres.NewAccessRepository(gormDB)
	jobRepo := bulkPostgres.NewJobRepository(gormDB)
	auditRepo := auditPostgres.NewAuditRepository(gormDB)

	auditRecorder := audit.NewRecorder(auditRepo, lg)
	auditRecorder.RegisterEventHandlers(bus)

	grantsService := grants.NewService(accessRepo, moduleRepo, userRepo, bus, lg)
	roleService := role.NewService(roleRepo, userRepo, bus, lg)
	userService := user.NewService(userRepo, roleRepo, bus, lg, bcrypt.DefaultCost)
	bulkService := bulk.NewService(jobRepo, userRepo, userService, roleService, grantsService, bus, lg)

	ctx, cancel := context.WithCancel(context.Background())
	go bulkService.Run(ctx)

	lg.Info("bulk worker is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	lg.Info("received signal, shutting down bulk worker", "signal", sig)
	cancel()
}
