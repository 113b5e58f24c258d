package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"tenantbase-backend/internal/config"
	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	"tenantbase-backend/internal/features/projects"
	restores_core "tenantbase-backend/internal/features/restores/core"
)

// Connect opens the platform metadata database. Every repository receives this
// handle explicitly; there is no package-level database state.
func Connect(env *config.Env) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(env.MetadataDsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema for all persisted models. The partial unique
// index enforces the invariant that a project has at most one in-flight
// restore; the insert path relies on the resulting 23505.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&projects.Project{},
		&backups.Backup{},
		&restores_core.Restore{},
		&audit_logs.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_restores_one_in_flight_per_project
		ON restores (project_id)
		WHERE status NOT IN ('completed', 'failed', 'rolled_back')
	`).Error; err != nil {
		return fmt.Errorf("failed to create in-flight restore index: %w", err)
	}

	return nil
}
