package restoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	restores_core "tenantbase-backend/internal/features/restores/core"
)

// BackupProvider is the slice of the backup collaborator the restore engine
// consumes.
type BackupProvider interface {
	GetBackup(id uuid.UUID) (*backups.Backup, error)
	CreateBackup(ctx context.Context, projectID uuid.UUID, reason, createdBy string) (*backups.Backup, error)
	DownloadPayload(ctx context.Context, backup *backups.Backup) ([]byte, error)
	EnvelopeKeys(backup *backups.Backup) (encryptedDataKey, dataKeyIV, payloadIV []byte, err error)
}

type ProjectProvider interface {
	GetLiveSchemaName(projectID uuid.UUID) (string, error)
}

// SchemaSession is one dedicated tenant-cluster connection holding the
// advisory lock and issuing DDL for the duration of a destructive phase.
type SchemaSession interface {
	TryAcquireLock(ctx context.Context, projectID uuid.UUID) error
	ReleaseLock(ctx context.Context, projectID uuid.UUID)
	RenameSchema(ctx context.Context, from, to string) error
	DropSchema(ctx context.Context, name string) error
	SchemaExists(ctx context.Context, name string) (bool, error)
	Close(ctx context.Context)
}

type SessionFactory func(ctx context.Context) (SchemaSession, error)

type SchemaValidator interface {
	Validate(ctx context.Context, restoredSchema, originalSchema string) (*restores_core.ValidationResults, error)
}

// PayloadStash holds the decrypted dump between initiation and execution.
// Take removes the payload; a nil result means it expired.
type PayloadStash interface {
	Put(restoreID uuid.UUID, payload []byte) error
	Take(restoreID uuid.UUID) []byte
}

type AuditWriter interface {
	Write(
		action audit_logs.AuditAction,
		projectID uuid.UUID,
		restoreID *uuid.UUID,
		details audit_logs.AuditDetails,
	)
}

type RestoreStore interface {
	Create(restore *restores_core.Restore) error
	Save(restore *restores_core.Restore) error
	FindByID(id uuid.UUID) (*restores_core.Restore, error)
	FindByProjectID(projectID uuid.UUID, limit, offset int) ([]*restores_core.Restore, int64, error)
	FindDueForCleanup(now time.Time) ([]*restores_core.Restore, error)
}
