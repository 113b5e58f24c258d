package restoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tenantbase-backend/internal/config"
	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	restores_core "tenantbase-backend/internal/features/restores/core"
	"tenantbase-backend/internal/features/restores/swapping"
	"tenantbase-backend/internal/util/encryption"
	"tenantbase-backend/internal/util/tools"
)

// RestoreService sequences a restore attempt: download, decryption,
// pre-restore snapshot, schema swap, external restore tool, validation and the
// commit/rollback decisions. Each status is persisted before the next phase
// runs, so a crash leaves a record an operator can reason about.
type RestoreService struct {
	restoreStore   RestoreStore
	backupService  BackupProvider
	projectService ProjectProvider
	sessionFactory SessionFactory
	validator      SchemaValidator
	payloadStash   PayloadStash
	auditLog       AuditWriter
	commandRunner  tools.CommandRunner
	env            *config.Env
	logger         *slog.Logger
}

func NewRestoreService(
	restoreStore RestoreStore,
	backupService BackupProvider,
	projectService ProjectProvider,
	sessionFactory SessionFactory,
	validator SchemaValidator,
	payloadStash PayloadStash,
	auditLog AuditWriter,
	commandRunner tools.CommandRunner,
	env *config.Env,
	logger *slog.Logger,
) *RestoreService {
	return &RestoreService{
		restoreStore:   restoreStore,
		backupService:  backupService,
		projectService: projectService,
		sessionFactory: sessionFactory,
		validator:      validator,
		payloadStash:   payloadStash,
		auditLog:       auditLog,
		commandRunner:  commandRunner,
		env:            env,
		logger:         logger,
	}
}

// InitiateRestore validates the backup, creates the restore record, downloads
// and decrypts the payload, takes the pre-restore snapshot and stages the
// plaintext for execution. No schema is touched here: every failure in this
// phase leaves the tenant exactly as it was.
func (s *RestoreService) InitiateRestore(
	ctx context.Context,
	backupID uuid.UUID,
	initiatedBy string,
	initiatedByType restores_core.InitiatorType,
) (*restores_core.Restore, error) {
	backup, err := s.backupService.GetBackup(backupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get backup %s: %w", backupID, err)
	}

	if backup.Status != backups.BackupStatusCompleted {
		return nil, fmt.Errorf("%w: backup %s is %s", restores_core.ErrBackupNotRestorable, backup.ID, backup.Status)
	}

	liveSchema, err := s.projectService.GetLiveSchemaName(backup.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := swapping.ValidateSchemaName(liveSchema); err != nil {
		return nil, err
	}

	restore := &restores_core.Restore{
		ProjectID:       backup.ProjectID,
		BackupID:        backup.ID,
		Status:          restores_core.RestoreStatusPending,
		InitiatedBy:     initiatedBy,
		InitiatedByType: initiatedByType,
	}

	// the partial unique index makes this the single gate against concurrent
	// restores for one project
	if err := s.restoreStore.Create(restore); err != nil {
		return nil, err
	}

	s.auditLog.Write(
		audit_logs.AuditActionRestoreInitiated,
		restore.ProjectID,
		&restore.ID,
		audit_logs.AuditDetails{
			"backupId":        backup.ID.String(),
			"initiatedBy":     initiatedBy,
			"initiatedByType": string(initiatedByType),
		},
	)

	if err := s.setStatus(restore, restores_core.RestoreStatusDownloading); err != nil {
		return nil, err
	}

	ciphertext, err := s.backupService.DownloadPayload(ctx, backup)
	if err != nil {
		return nil, s.failRestore(restore, fmt.Errorf("failed to download backup payload: %w", err))
	}

	masterKey, err := s.env.MasterKey()
	if err != nil {
		return nil, s.failRestore(restore, err)
	}

	encryptedDataKey, dataKeyIV, payloadIV, err := s.backupService.EnvelopeKeys(backup)
	if err != nil {
		return nil, s.failRestore(restore, err)
	}

	plaintext, err := encryption.DecryptEnvelope(
		ciphertext,
		encryptedDataKey,
		dataKeyIV,
		payloadIV,
		masterKey,
	)
	if err != nil {
		return nil, s.failRestore(restore, err)
	}

	if backup.Checksum != nil && *backup.Checksum != "" {
		if encryption.Checksum(plaintext) != *backup.Checksum {
			return nil, s.failRestore(restore, restores_core.ErrIntegrityCheckFailed)
		}
	}

	maxBytes := int64(s.env.MaxRestorePayloadMB) * 1024 * 1024
	if int64(len(plaintext)) > maxBytes {
		return nil, s.failRestore(restore, fmt.Errorf(
			"%w: %d bytes, ceiling %d",
			restores_core.ErrPayloadTooLarge,
			len(plaintext),
			maxBytes,
		))
	}

	if err := s.setStatus(restore, restores_core.RestoreStatusCreatingPreRestoreBackup); err != nil {
		return nil, err
	}

	snapshot, err := s.backupService.CreateBackup(
		ctx,
		restore.ProjectID,
		"pre_restore_snapshot",
		"system",
	)
	if err != nil {
		return nil, s.failRestore(restore, fmt.Errorf("failed to create pre-restore snapshot: %w", err))
	}

	restore.PreRestoreBackupID = &snapshot.ID
	if err := s.restoreStore.Save(restore); err != nil {
		return nil, err
	}

	if err := s.payloadStash.Put(restore.ID, plaintext); err != nil {
		return nil, s.failRestore(restore, fmt.Errorf("failed to stage restore payload: %w", err))
	}

	s.logger.Info(
		"Restore initiated",
		"restoreId", restore.ID,
		"projectId", restore.ProjectID,
		"backupId", backup.ID,
		"payloadBytes", len(plaintext),
	)

	return restore, nil
}

// ExecuteRestore runs the destructive phase: rename the live schema aside,
// recreate it from the staged dump, validate, and commit or compensate. Once
// the restore tool has started there is no cancellation; the attempt runs to
// a terminal state or is forcibly timed out.
func (s *RestoreService) ExecuteRestore(ctx context.Context, restoreID uuid.UUID) error {
	restore, err := s.restoreStore.FindByID(restoreID)
	if err != nil {
		return fmt.Errorf("failed to get restore %s: %w", restoreID, err)
	}

	if restore.Status != restores_core.RestoreStatusCreatingPreRestoreBackup {
		return fmt.Errorf("restore %s is not ready for execution (status %s)", restoreID, restore.Status)
	}

	liveSchema, err := s.projectService.GetLiveSchemaName(restore.ProjectID)
	if err != nil {
		return s.failRestore(restore, err)
	}

	// a caller disconnect must not kill the tool mid-restore; from here on the
	// attempt runs to a terminal state or the tool's own wall clock expires
	ctx = context.WithoutCancel(ctx)

	session, err := s.sessionFactory(ctx)
	if err != nil {
		return s.failRestore(restore, fmt.Errorf("failed to open tenant session: %w", err))
	}
	defer session.Close(ctx)

	// lock before consuming the stash so a losing concurrent call is rejected
	// as retryable without burning the staged payload
	if err := session.TryAcquireLock(ctx, restore.ProjectID); err != nil {
		if errors.Is(err, restores_core.ErrLockUnavailable) {
			return err
		}
		return s.failRestore(restore, err)
	}
	defer session.ReleaseLock(ctx, restore.ProjectID)

	// re-read under the lock: a concurrent call may have driven this restore
	// to a terminal state between the precondition check and the lock
	restore, err = s.restoreStore.FindByID(restoreID)
	if err != nil {
		return fmt.Errorf("failed to get restore %s: %w", restoreID, err)
	}
	if restore.Status != restores_core.RestoreStatusCreatingPreRestoreBackup {
		return fmt.Errorf("restore %s is not ready for execution (status %s)", restoreID, restore.Status)
	}

	payload := s.payloadStash.Take(restore.ID)
	if payload == nil {
		// most likely an instance restart between initiation and execution
		return s.failRestore(restore, restores_core.ErrPayloadExpired)
	}

	now := time.Now().UTC()
	oldSchema := swapping.OldSchemaName(now)

	if err := session.RenameSchema(ctx, liveSchema, oldSchema); err != nil {
		// live schema untouched, nothing to compensate
		return s.failRestore(restore, fmt.Errorf("failed to rename live schema aside: %w", err))
	}

	restore.OldSchemaName = &oldSchema
	restore.StartedAt = &now
	restore.Status = restores_core.RestoreStatusRestoring
	if err := s.restoreStore.Save(restore); err != nil {
		// the persisted schema name is the operator's only handle on the aside
		// schema; without it the tool must not run. Put the original back.
		if renameErr := session.RenameSchema(ctx, oldSchema, liveSchema); renameErr != nil {
			return s.manualIntervention(restore, oldSchema, liveSchema, fmt.Sprintf(
				"state persist failed and compensating rename failed; original data is in schema %q: persist: %v; rename: %v",
				oldSchema, err, renameErr,
			))
		}

		restore.OldSchemaName = nil
		restore.StartedAt = nil
		return s.failRestore(restore, fmt.Errorf(
			"failed to persist restore state before running restore tool: %w", err,
		))
	}

	if err := s.runRestoreTool(ctx, payload); err != nil {
		return s.compensateToolFailure(ctx, session, restore, liveSchema, oldSchema, err)
	}

	if err := s.setStatus(restore, restores_core.RestoreStatusValidating); err != nil {
		// same rule as above: no phase proceeds past an unpersisted status
		persistErr := fmt.Errorf("failed to persist validating status: %w", err)
		if swapErr := s.threeWaySwap(ctx, session, liveSchema, oldSchema); swapErr != nil {
			return s.manualIntervention(restore, oldSchema, liveSchema, fmt.Sprintf(
				"state persist failed and swap-back failed; schemas left as %q (restored data) and %q (original data): persist: %v; swap: %v",
				liveSchema, oldSchema, err, swapErr,
			))
		}
		return s.failRestore(restore, persistErr)
	}

	results, err := s.validator.Validate(ctx, liveSchema, oldSchema)
	if err != nil {
		// cannot judge the restored schema; keep both schemas for an operator
		return s.failRestore(restore, fmt.Errorf(
			"validation could not run (restored schema %s, original kept as %s): %w",
			liveSchema, oldSchema, err,
		))
	}

	restore.ValidationResults = results

	if !results.ValidationPassed {
		return s.swapBackAfterFailedValidation(ctx, session, restore, liveSchema, oldSchema)
	}

	completedAt := time.Now().UTC()
	cleanupAt := completedAt.Add(time.Duration(s.env.OldSchemaRetentionHours) * time.Hour)

	restore.Status = restores_core.RestoreStatusCompleted
	restore.CompletedAt = &completedAt
	restore.OldSchemaCleanupAt = &cleanupAt
	if err := s.restoreStore.Save(restore); err != nil {
		return fmt.Errorf("failed to persist completed restore: %w", err)
	}

	s.auditLog.Write(
		audit_logs.AuditActionRestoreCompleted,
		restore.ProjectID,
		&restore.ID,
		audit_logs.AuditDetails{
			"oldSchemaName": oldSchema,
			"tableCount":    results.TableCount,
		},
	)

	s.logger.Info(
		"Restore completed",
		"restoreId", restore.ID,
		"projectId", restore.ProjectID,
		"oldSchemaName", oldSchema,
	)

	return nil
}

// RollbackRestore reverses a completed restore while the old schema is still
// within its retention window.
func (s *RestoreService) RollbackRestore(ctx context.Context, restoreID uuid.UUID) error {
	restore, err := s.restoreStore.FindByID(restoreID)
	if err != nil {
		return fmt.Errorf("failed to get restore %s: %w", restoreID, err)
	}

	if restore.Status != restores_core.RestoreStatusCompleted {
		return fmt.Errorf("%w: status is %s", restores_core.ErrRollbackNotAllowed, restore.Status)
	}

	if restore.OldSchemaDroppedAt != nil || restore.OldSchemaName == nil {
		return restores_core.ErrOldSchemaDropped
	}

	liveSchema, err := s.projectService.GetLiveSchemaName(restore.ProjectID)
	if err != nil {
		return err
	}

	// same rule as execution: a caller disconnect must not abort a swap mid-leg
	ctx = context.WithoutCancel(ctx)

	session, err := s.sessionFactory(ctx)
	if err != nil {
		return fmt.Errorf("failed to open tenant session: %w", err)
	}
	defer session.Close(ctx)

	if err := session.TryAcquireLock(ctx, restore.ProjectID); err != nil {
		return err
	}
	defer session.ReleaseLock(ctx, restore.ProjectID)

	oldSchema := *restore.OldSchemaName

	exists, err := session.SchemaExists(ctx, oldSchema)
	if err != nil {
		return err
	}
	if !exists {
		return restores_core.ErrOldSchemaDropped
	}

	if err := s.threeWaySwap(ctx, session, liveSchema, oldSchema); err != nil {
		message := fmt.Sprintf(
			"rollback swap failed (live %s, old %s): %v",
			liveSchema, oldSchema, err,
		)
		restore.Error = &message
		if saveErr := s.restoreStore.Save(restore); saveErr != nil {
			s.logger.Error("Failed to persist rollback failure", "restoreId", restore.ID, "error", saveErr)
		}
		return fmt.Errorf("%w: %s", restores_core.ErrManualInterventionRequired, message)
	}

	droppedAt := time.Now().UTC()
	restore.Status = restores_core.RestoreStatusRolledBack
	restore.OldSchemaDroppedAt = &droppedAt
	if err := s.restoreStore.Save(restore); err != nil {
		return fmt.Errorf("failed to persist rolled back restore: %w", err)
	}

	s.auditLog.Write(
		audit_logs.AuditActionRestoreRolledBack,
		restore.ProjectID,
		&restore.ID,
		audit_logs.AuditDetails{"oldSchemaName": oldSchema},
	)

	s.logger.Info("Restore rolled back", "restoreId", restore.ID, "projectId", restore.ProjectID)

	return nil
}

func (s *RestoreService) GetRestoreStatus(restoreID uuid.UUID) (*RestoreStatusResponse, error) {
	restore, err := s.restoreStore.FindByID(restoreID)
	if err != nil {
		return nil, err
	}

	return &RestoreStatusResponse{
		Restore: restore,
		Backup:  restore.Backup,
	}, nil
}

func (s *RestoreService) ListRestores(
	projectID uuid.UUID,
	limit int,
	offset int,
) (*ListRestoresResponse, error) {
	restores, total, err := s.restoreStore.FindByProjectID(projectID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &ListRestoresResponse{
		Restores: restores,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// runRestoreTool feeds the plaintext dump to psql against the freed live
// name. The dump recreates the schema and all its objects; ON_ERROR_STOP
// turns any mid-dump error into a nonzero exit.
func (s *RestoreService) runRestoreTool(ctx context.Context, payload []byte) error {
	timeout := time.Duration(s.env.RestoreToolTimeoutMinutes) * time.Minute
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--host", s.env.TenantDbHost,
		"--port", strconv.Itoa(s.env.TenantDbPort),
		"--username", s.env.TenantDbUser,
		"--dbname", s.env.TenantDbName,
		"--no-psqlrc",
		"--set", "ON_ERROR_STOP=1",
		"--quiet",
	}

	result, err := s.commandRunner.Run(
		toolCtx,
		s.env.PsqlPath,
		args,
		payload,
		[]string{"PGPASSWORD=" + s.env.TenantDbPassword},
	)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return fmt.Errorf("restore tool failed: %w: %s", err, stderr)
	}

	return nil
}

// compensateToolFailure restores service after the external tool failed: drop
// whatever partial schema the tool left behind and rename the original back.
// A single attempt; if it fails too, both schema names are recorded for
// manual operator intervention.
func (s *RestoreService) compensateToolFailure(
	ctx context.Context,
	session SchemaSession,
	restore *restores_core.Restore,
	liveSchema string,
	oldSchema string,
	toolErr error,
) error {
	s.logger.Error(
		"Restore tool failed, attempting compensating rename",
		"restoreId", restore.ID,
		"oldSchemaName", oldSchema,
		"error", toolErr,
	)

	compensationErr := session.DropSchema(ctx, liveSchema)
	if compensationErr == nil {
		compensationErr = session.RenameSchema(ctx, oldSchema, liveSchema)
	}

	if compensationErr != nil {
		return s.manualIntervention(restore, oldSchema, liveSchema, fmt.Sprintf(
			"restore tool failed and compensation failed; schemas left as %q (original data) and possibly %q (partial restore): tool: %v; compensation: %v",
			oldSchema, liveSchema, toolErr, compensationErr,
		))
	}

	// original schema back in service
	return s.failRestore(restore, toolErr)
}

// swapBackAfterFailedValidation performs the 3-way swap that puts the
// original data back in service: restored schema parked aside, old schema
// renamed back, parked schema dropped.
func (s *RestoreService) swapBackAfterFailedValidation(
	ctx context.Context,
	session SchemaSession,
	restore *restores_core.Restore,
	liveSchema string,
	oldSchema string,
) error {
	s.logger.Warn(
		"Restored schema failed validation, swapping original back",
		"restoreId", restore.ID,
		"validationErrors", restore.ValidationResults.ValidationErrors,
	)

	if err := s.threeWaySwap(ctx, session, liveSchema, oldSchema); err != nil {
		return s.manualIntervention(restore, oldSchema, liveSchema, fmt.Sprintf(
			"validation failed and swap-back failed; schemas left as %q (bad restore) and %q (original data): %v",
			liveSchema, oldSchema, err,
		))
	}

	return s.failRestore(restore, restores_core.ErrValidationFailed)
}

// manualIntervention records the terminal state where automatic compensation
// failed: both schema names on the record, audit entry, and a non-retryable
// error naming them for the operator.
func (s *RestoreService) manualIntervention(
	restore *restores_core.Restore,
	oldSchema string,
	liveSchema string,
	message string,
) error {
	restore.Error = &message
	restore.Status = restores_core.RestoreStatusFailed
	if err := s.restoreStore.Save(restore); err != nil {
		s.logger.Error("Failed to persist manual intervention state", "restoreId", restore.ID, "error", err)
	}

	s.auditLog.Write(
		audit_logs.AuditActionRestoreFailed,
		restore.ProjectID,
		&restore.ID,
		audit_logs.AuditDetails{
			"oldSchemaName":      oldSchema,
			"liveSchemaName":     liveSchema,
			"manualIntervention": true,
		},
	)

	return fmt.Errorf("%w: %s", restores_core.ErrManualInterventionRequired, message)
}

// threeWaySwap: current live schema -> failed_<ts>, old schema -> live name,
// drop failed_<ts>.
func (s *RestoreService) threeWaySwap(
	ctx context.Context,
	session SchemaSession,
	liveSchema string,
	oldSchema string,
) error {
	failedSchema := swapping.FailedSchemaName(time.Now().UTC())

	if err := session.RenameSchema(ctx, liveSchema, failedSchema); err != nil {
		return err
	}

	if err := session.RenameSchema(ctx, oldSchema, liveSchema); err != nil {
		return err
	}

	if err := session.DropSchema(ctx, failedSchema); err != nil {
		return err
	}

	return nil
}

func (s *RestoreService) setStatus(
	restore *restores_core.Restore,
	status restores_core.RestoreStatus,
) error {
	restore.Status = status
	return s.restoreStore.Save(restore)
}

// failRestore persists the terminal failed state and the audit entry before
// the error propagates. Failures are never swallowed and never retried once
// schemas have been touched; retrying is the caller's decision.
func (s *RestoreService) failRestore(restore *restores_core.Restore, cause error) error {
	message := cause.Error()
	completedAt := time.Now().UTC()

	restore.Status = restores_core.RestoreStatusFailed
	restore.Error = &message
	restore.CompletedAt = &completedAt

	if err := s.restoreStore.Save(restore); err != nil {
		s.logger.Error("Failed to persist failed restore", "restoreId", restore.ID, "error", err)
	}

	details := audit_logs.AuditDetails{"error": message}
	if restore.OldSchemaName != nil {
		details["oldSchemaName"] = *restore.OldSchemaName
	}

	s.auditLog.Write(
		audit_logs.AuditActionRestoreFailed,
		restore.ProjectID,
		&restore.ID,
		details,
	)

	return cause
}
