package restoring

import (
	"context"
	"log/slog"
	"time"

	audit_logs "tenantbase-backend/internal/features/audit_logs"
	restores_core "tenantbase-backend/internal/features/restores/core"
)

// SchemaCleaner drops renamed-aside schemas whose retention window has
// elapsed. Dropping the old schema is the point of no return for rollback, so
// the sweep only touches schemas that are unambiguously past retention.
type SchemaCleaner struct {
	restoreStore   RestoreStore
	sessionFactory SessionFactory
	auditLog       AuditWriter
	logger         *slog.Logger
}

func NewSchemaCleaner(
	restoreStore RestoreStore,
	sessionFactory SessionFactory,
	auditLog AuditWriter,
	logger *slog.Logger,
) *SchemaCleaner {
	return &SchemaCleaner{
		restoreStore:   restoreStore,
		sessionFactory: sessionFactory,
		auditLog:       auditLog,
		logger:         logger,
	}
}

// CleanupOldSchemas runs one sweep. Failures are isolated per restore: a
// schema that cannot be dropped is logged and retried on the next sweep, and
// never blocks the rest of the batch.
func (c *SchemaCleaner) CleanupOldSchemas(ctx context.Context) (*CleanupResult, error) {
	due, err := c.restoreStore.FindDueForCleanup(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}

	if len(due) == 0 {
		return result, nil
	}

	session, err := c.sessionFactory(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	for _, restore := range due {
		if err := c.cleanupOne(ctx, session, restore); err != nil {
			c.logger.Error(
				"Failed to clean up old schema",
				"restoreId", restore.ID,
				"oldSchemaName", *restore.OldSchemaName,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Cleaned++
	}

	if result.Cleaned > 0 || result.Failed > 0 {
		c.logger.Info(
			"Old schema cleanup sweep finished",
			"cleaned", result.Cleaned,
			"failed", result.Failed,
		)
	}

	return result, nil
}

func (c *SchemaCleaner) cleanupOne(
	ctx context.Context,
	session SchemaSession,
	restore *restores_core.Restore,
) error {
	// an in-flight rollback on the same project must not race the drop
	if err := session.TryAcquireLock(ctx, restore.ProjectID); err != nil {
		return err
	}
	defer session.ReleaseLock(ctx, restore.ProjectID)

	oldSchema := *restore.OldSchemaName

	exists, err := session.SchemaExists(ctx, oldSchema)
	if err != nil {
		return err
	}

	if exists {
		if err := session.DropSchema(ctx, oldSchema); err != nil {
			return err
		}
	}

	// a schema already gone still gets its dropped timestamp so the sweep
	// stops picking the row up
	droppedAt := time.Now().UTC()
	restore.OldSchemaDroppedAt = &droppedAt
	if err := c.restoreStore.Save(restore); err != nil {
		return err
	}

	c.auditLog.Write(
		audit_logs.AuditActionOldSchemaDropped,
		restore.ProjectID,
		&restore.ID,
		audit_logs.AuditDetails{"oldSchemaName": oldSchema},
	)

	return nil
}
