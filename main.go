package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"tenantbase-backend/internal/config"
	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	"tenantbase-backend/internal/features/projects"
	"tenantbase-backend/internal/features/restores"
	restores_core "tenantbase-backend/internal/features/restores/core"
	"tenantbase-backend/internal/features/restores/restoring"
	"tenantbase-backend/internal/features/restores/swapping"
	"tenantbase-backend/internal/features/restores/validation"
	"tenantbase-backend/internal/features/storages"
	system_healthcheck "tenantbase-backend/internal/features/system/healthcheck"
	"tenantbase-backend/internal/storage"
	cache_utils "tenantbase-backend/internal/util/cache"
	"tenantbase-backend/internal/util/logger"
	"tenantbase-backend/internal/util/tools"
)

func main() {
	env := config.GetEnv()
	log := logger.GetLogger()

	db, err := storage.Connect(env)
	if err != nil {
		log.Error("Failed to connect to metadata database", "error", err)
		os.Exit(1)
	}

	if err := storage.Migrate(db); err != nil {
		log.Error("Failed to migrate metadata database", "error", err)
		os.Exit(1)
	}

	tenantDb, err := sqlx.Connect("postgres", env.TenantDsn())
	if err != nil {
		log.Error("Failed to connect to tenant cluster", "error", err)
		os.Exit(1)
	}

	valkeyClient, err := cache_utils.NewValkeyClient(env)
	if err != nil {
		log.Error("Failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	storageService, err := storages.NewStorageService(env, log)
	if err != nil {
		log.Error("Failed to create object storage service", "error", err)
		os.Exit(1)
	}

	commandRunner := tools.NewExecCommandRunner(log)

	projectRepository := projects.NewProjectRepository(db)
	projectService := projects.NewProjectService(projectRepository, log)

	backupRepository := backups.NewBackupRepository(db)
	backupService := backups.NewBackupService(
		backupRepository,
		projectService,
		storageService,
		commandRunner,
		env,
		log,
	)

	auditLogRepository := audit_logs.NewAuditLogRepository(db)
	auditLogService := audit_logs.NewAuditLogService(auditLogRepository, log)

	restoreRepository := restores_core.NewRestoreRepository(db)
	schemaValidator := validation.NewSchemaValidator(tenantDb, log)
	payloadStash := restoring.NewValkeyPayloadStash(valkeyClient, log)

	sessionFactory := restoring.SessionFactory(
		func(ctx context.Context) (restoring.SchemaSession, error) {
			return swapping.NewSession(ctx, env.TenantDsn(), log)
		},
	)

	restoreService := restoring.NewRestoreService(
		restoreRepository,
		backupService,
		projectService,
		sessionFactory,
		schemaValidator,
		payloadStash,
		auditLogService,
		commandRunner,
		env,
		log,
	)

	schemaCleaner := restoring.NewSchemaCleaner(
		restoreRepository,
		sessionFactory,
		auditLogService,
		log,
	)

	healthcheckService := system_healthcheck.NewHealthcheckService(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go restoring.NewCleanupBackgroundService(schemaCleaner, log).Run(ctx)
	go audit_logs.NewAuditLogBackgroundService(auditLogService, log).Run(ctx)

	router := gin.Default()
	api := router.Group("/api/v1")

	projects.NewProjectController(projectService, projectRepository).RegisterRoutes(api)
	backups.NewBackupController(backupService).RegisterRoutes(api)
	restores.NewRestoreController(restoreService, schemaCleaner).RegisterRoutes(api)
	audit_logs.NewAuditLogController(auditLogService).RegisterRoutes(api)
	system_healthcheck.NewHealthcheckController(healthcheckService).RegisterRoutes(api)

	server := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	go func() {
		log.Info("Starting server", "port", env.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down server gracefully", "error", err)
	}
}
