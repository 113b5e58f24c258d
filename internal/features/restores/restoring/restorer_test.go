package restoring

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantbase-backend/internal/config"
	audit_logs "tenantbase-backend/internal/features/audit_logs"
	"tenantbase-backend/internal/features/backups"
	restores_core "tenantbase-backend/internal/features/restores/core"
	"tenantbase-backend/internal/util/encryption"
)

type restoreFixture struct {
	store     *MockRestoreStore
	backups   *MockBackupProvider
	projects  *MockProjectProvider
	session   *MockSchemaSession
	validator *MockSchemaValidator
	stash     *MockPayloadStash
	audit     *MockAuditWriter
	runner    *MockCommandRunner
	env       *config.Env
	service   *RestoreService

	plaintext []byte
	backup    *backups.Backup
}

func newRestoreFixture(t *testing.T) *restoreFixture {
	t.Helper()

	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}

	plaintext := []byte("CREATE SCHEMA tenant_live;\nCREATE TABLE tenant_live.users (id uuid);\n")

	envelope, err := encryption.EncryptEnvelope(plaintext, masterKey)
	require.NoError(t, err)

	checksum := encryption.Checksum(plaintext)
	projectID := uuid.New()

	backup := &backups.Backup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    backups.BackupStatusCompleted,
		Checksum:  &checksum,
	}

	snapshot := &backups.Backup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    backups.BackupStatusCompleted,
	}

	f := &restoreFixture{
		store: NewMockRestoreStore(),
		backups: &MockBackupProvider{
			Backup:           backup,
			Payload:          envelope.Ciphertext,
			Snapshot:         snapshot,
			EncryptedDataKey: envelope.EncryptedDataKey,
			DataKeyIV:        envelope.DataKeyIV,
			PayloadIV:        envelope.PayloadIV,
		},
		projects:  &MockProjectProvider{SchemaName: "tenant_live"},
		session:   NewMockSchemaSession(),
		validator: &MockSchemaValidator{Results: &restores_core.ValidationResults{TableCount: 5, ExpectedTableCount: 5, ValidationPassed: true}},
		stash:     NewMockPayloadStash(),
		audit:     &MockAuditWriter{},
		runner:    &MockCommandRunner{},
		env: &config.Env{
			MasterKeyHex:              hex.EncodeToString(masterKey),
			PsqlPath:                  "psql",
			TenantDbHost:              "localhost",
			TenantDbPort:              5432,
			TenantDbUser:              "tenantbase",
			TenantDbPassword:          "tenantbase",
			TenantDbName:              "tenants",
			RestoreToolTimeoutMinutes: 1,
			MaxRestorePayloadMB:       100,
			OldSchemaRetentionHours:   24,
		},
		plaintext: plaintext,
		backup:    backup,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.service = NewRestoreService(
		f.store,
		f.backups,
		f.projects,
		MockSessionFactory(f.session),
		f.validator,
		f.stash,
		f.audit,
		f.runner,
		f.env,
		log,
	)

	return f
}

func (f *restoreFixture) initiate(t *testing.T) *restores_core.Restore {
	t.Helper()

	restore, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)
	require.NoError(t, err)

	return restore
}

func Test_InitiateRestore_HappyPath_StagesPayloadAndSnapshot(t *testing.T) {
	f := newRestoreFixture(t)

	restore := f.initiate(t)

	stored := f.store.Get(restore.ID)
	require.NotNil(t, stored)
	assert.Equal(t, restores_core.RestoreStatusCreatingPreRestoreBackup, stored.Status)
	require.NotNil(t, stored.PreRestoreBackupID)
	assert.Equal(t, f.backups.Snapshot.ID, *stored.PreRestoreBackupID)

	assert.Equal(t, f.plaintext, f.stash.Peek(restore.ID))
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreInitiated)
}

func Test_InitiateRestore_BackupNotCompleted_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	f.backup.Status = backups.BackupStatusInProgress

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	assert.ErrorIs(t, err, restores_core.ErrBackupNotRestorable)
	assert.Empty(t, f.audit.Actions())
}

func Test_InitiateRestore_SecondConcurrentRestore_Rejected(t *testing.T) {
	f := newRestoreFixture(t)

	f.initiate(t)

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	assert.ErrorIs(t, err, restores_core.ErrRestoreAlreadyRunning)
}

func Test_InitiateRestore_ChecksumMismatch_FailsRestore(t *testing.T) {
	f := newRestoreFixture(t)
	wrong := "0000000000000000000000000000000000000000000000000000000000000000"
	f.backup.Checksum = &wrong

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	assert.ErrorIs(t, err, restores_core.ErrIntegrityCheckFailed)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreFailed)
}

func Test_InitiateRestore_TamperedPayload_FailsWithDecryptionError(t *testing.T) {
	f := newRestoreFixture(t)
	f.backups.Payload[0] ^= 0x01

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	assert.ErrorIs(t, err, encryption.ErrDecryptionFailed)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreFailed)
}

func Test_InitiateRestore_PayloadOverCeiling_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	f.env.MaxRestorePayloadMB = 0

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	assert.ErrorIs(t, err, restores_core.ErrPayloadTooLarge)
}

func Test_InitiateRestore_MissingMasterKey_FailsRestore(t *testing.T) {
	f := newRestoreFixture(t)
	f.env.MasterKeyHex = ""

	_, err := f.service.InitiateRestore(
		context.Background(),
		f.backup.ID,
		"ops@example.com",
		restores_core.InitiatorTypeAdmin,
	)

	require.Error(t, err)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreFailed)
}

func Test_ExecuteRestore_HappyPath_CompletesAndSchedulesCleanup(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	err := f.service.ExecuteRestore(context.Background(), restore.ID)
	require.NoError(t, err)

	require.Len(t, f.session.Renames, 1)
	assert.Equal(t, "tenant_live", f.session.Renames[0][0])
	assert.True(t, strings.HasPrefix(f.session.Renames[0][1], "old_"))

	assert.Equal(t, "psql", f.runner.Name)
	assert.Equal(t, f.plaintext, f.runner.Stdin)

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusCompleted, stored.Status)
	require.NotNil(t, stored.OldSchemaName)
	require.NotNil(t, stored.CompletedAt)
	require.NotNil(t, stored.OldSchemaCleanupAt)
	assert.WithinDuration(
		t,
		stored.CompletedAt.Add(24*time.Hour),
		*stored.OldSchemaCleanupAt,
		time.Second,
	)

	assert.True(t, f.session.Released)
	assert.True(t, f.session.Closed)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreCompleted)
}

func Test_ExecuteRestore_NotInitiated_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	stored := f.store.Get(restore.ID)
	stored.Status = restores_core.RestoreStatusCompleted
	require.NoError(t, f.store.Save(stored))

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	require.Error(t, err)
	assert.Empty(t, f.session.Renames)
}

func Test_ExecuteRestore_ExpiredPayload_FailsRestore(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	f.stash.Take(restore.ID)

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrPayloadExpired)
	assert.Equal(t, restores_core.RestoreStatusFailed, f.store.Get(restore.ID).Status)
	assert.Empty(t, f.session.Renames)
}

func Test_ExecuteRestore_LockUnavailable_IsRetryable(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.session.LockErr = restores_core.ErrLockUnavailable

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrLockUnavailable)

	// record stays executable and the staged payload is never consumed
	assert.Equal(
		t,
		restores_core.RestoreStatusCreatingPreRestoreBackup,
		f.store.Get(restore.ID).Status,
	)
	assert.Equal(t, f.plaintext, f.stash.Peek(restore.ID))
	assert.Empty(t, f.session.Renames)
}

func Test_ExecuteRestore_TerminalUnderLock_RejectedWithoutFailing(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	// a concurrent call finishes between the precondition check and the lock
	f.session.LockHook = func() {
		stored := f.store.Get(restore.ID)
		stored.Status = restores_core.RestoreStatusCompleted
		require.NoError(t, f.store.Save(stored))
	}

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	require.Error(t, err)
	assert.NotErrorIs(t, err, restores_core.ErrPayloadExpired)

	// the terminal state is never overwritten and the payload stays staged
	assert.Equal(t, restores_core.RestoreStatusCompleted, f.store.Get(restore.ID).Status)
	assert.Equal(t, f.plaintext, f.stash.Peek(restore.ID))
	assert.Empty(t, f.session.Renames)
	assert.NotContains(t, f.audit.Actions(), audit_logs.AuditActionRestoreFailed)
}

func Test_ExecuteRestore_CancelledCallerContext_ToolStillRuns(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.service.ExecuteRestore(ctx, restore.ID)
	require.NoError(t, err)

	// the tool saw a live context despite the caller being gone
	assert.NoError(t, f.runner.CtxErr)
	assert.Equal(t, restores_core.RestoreStatusCompleted, f.store.Get(restore.ID).Status)
}

func Test_ExecuteRestore_RestoringPersistFailure_PutsOriginalBack(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.store.FailSaveOnStatus = restores_core.RestoreStatusRestoring

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, ErrMockSaveFailure)

	// original renamed back before anything destructive, tool never invoked
	require.Len(t, f.session.Renames, 2)
	assert.Equal(t, "tenant_live", f.session.Renames[0][0])
	assert.True(t, strings.HasPrefix(f.session.Renames[1][0], "old_"))
	assert.Equal(t, "tenant_live", f.session.Renames[1][1])
	assert.Empty(t, f.runner.Name)

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	assert.Nil(t, stored.OldSchemaName)
}

func Test_ExecuteRestore_RestoringPersistAndRenameFailure_RequiresManualIntervention(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.store.FailSaveOnStatus = restores_core.RestoreStatusRestoring
	// second rename is the compensating one
	f.session.FailRenameCall = 2
	f.session.FailRenameErr = errors.New("rename rejected")

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrManualInterventionRequired)
	assert.Empty(t, f.runner.Name)

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "old_")
}

func Test_ExecuteRestore_ValidatingPersistFailure_SwapsOriginalBack(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.store.FailSaveOnStatus = restores_core.RestoreStatusValidating

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, ErrMockSaveFailure)

	// live -> old_*, then the swap-back: live -> failed_*, old_* -> live
	require.Len(t, f.session.Renames, 3)
	assert.Equal(t, "tenant_live", f.session.Renames[1][0])
	assert.True(t, strings.HasPrefix(f.session.Renames[1][1], "failed_"))
	assert.Equal(t, "tenant_live", f.session.Renames[2][1])
	require.Len(t, f.session.Drops, 1)
	assert.True(t, strings.HasPrefix(f.session.Drops[0], "failed_"))

	assert.Equal(t, restores_core.RestoreStatusFailed, f.store.Get(restore.ID).Status)
}

func Test_ExecuteRestore_ToolFailure_CompensatesWithOriginalSchema(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.runner.Err = ErrMockToolFailure

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, ErrMockToolFailure)

	// partial restore dropped, original renamed back under the live name
	require.Len(t, f.session.Drops, 1)
	assert.Equal(t, "tenant_live", f.session.Drops[0])
	require.Len(t, f.session.Renames, 2)
	assert.True(t, strings.HasPrefix(f.session.Renames[1][0], "old_"))
	assert.Equal(t, "tenant_live", f.session.Renames[1][1])

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreFailed)
}

func Test_ExecuteRestore_CompensationFailure_RequiresManualIntervention(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.runner.Err = ErrMockToolFailure
	f.session.DropErrs["tenant_live"] = errors.New("drop rejected")

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrManualInterventionRequired)

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "tenant_live")
	assert.Contains(t, *stored.Error, *stored.OldSchemaName)
}

func Test_ExecuteRestore_ValidationFailure_SwapsOriginalBack(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.validator.Results = &restores_core.ValidationResults{
		TableCount:         0,
		ExpectedTableCount: 5,
		ValidationPassed:   false,
		ValidationErrors:   []string{"restored schema contains no tables"},
	}

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrValidationFailed)

	// live -> old_*, then 3-way swap: live -> failed_*, old_* -> live, drop failed_*
	require.Len(t, f.session.Renames, 3)
	assert.Equal(t, "tenant_live", f.session.Renames[1][0])
	assert.True(t, strings.HasPrefix(f.session.Renames[1][1], "failed_"))
	assert.True(t, strings.HasPrefix(f.session.Renames[2][0], "old_"))
	assert.Equal(t, "tenant_live", f.session.Renames[2][1])
	require.Len(t, f.session.Drops, 1)
	assert.True(t, strings.HasPrefix(f.session.Drops[0], "failed_"))

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	require.NotNil(t, stored.ValidationResults)
	assert.False(t, stored.ValidationResults.ValidationPassed)
}

func Test_ExecuteRestore_ValidationSwapBackFailure_RequiresManualIntervention(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.validator.Results = &restores_core.ValidationResults{
		TableCount:       0,
		ValidationPassed: false,
	}
	// second rename is the first leg of the swap-back
	f.session.FailRenameCall = 2
	f.session.FailRenameErr = errors.New("rename rejected")

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrManualInterventionRequired)

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, *stored.OldSchemaName)
}

func Test_ExecuteRestore_ValidatorError_FailsWithoutSwap(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)
	f.validator.Err = errors.New("tenant cluster unreachable")

	err := f.service.ExecuteRestore(context.Background(), restore.ID)

	require.Error(t, err)
	assert.NotErrorIs(t, err, restores_core.ErrValidationFailed)

	// both schemas stay put for the operator
	require.Len(t, f.session.Renames, 1)
	assert.Empty(t, f.session.Drops)
	assert.Equal(t, restores_core.RestoreStatusFailed, f.store.Get(restore.ID).Status)
}

func Test_ExecuteRestore_ValidatorReceivesBothSchemas(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	require.NoError(t, f.service.ExecuteRestore(context.Background(), restore.ID))

	assert.Equal(t, "tenant_live", f.validator.RestoredSchema)
	assert.True(t, strings.HasPrefix(f.validator.OriginalSchema, "old_"))
}

func completedRestore(t *testing.T, f *restoreFixture) *restores_core.Restore {
	t.Helper()

	restore := f.initiate(t)
	require.NoError(t, f.service.ExecuteRestore(context.Background(), restore.ID))

	stored := f.store.Get(restore.ID)
	f.session.ExistingSchemas[*stored.OldSchemaName] = true

	return stored
}

func Test_RollbackRestore_HappyPath_SwapsOldSchemaBack(t *testing.T) {
	f := newRestoreFixture(t)
	restore := completedRestore(t, f)
	oldSchema := *restore.OldSchemaName
	renamesBefore := len(f.session.Renames)

	err := f.service.RollbackRestore(context.Background(), restore.ID)
	require.NoError(t, err)

	require.Len(t, f.session.Renames, renamesBefore+2)
	assert.Equal(t, "tenant_live", f.session.Renames[renamesBefore][0])
	assert.Equal(t, oldSchema, f.session.Renames[renamesBefore+1][0])
	assert.Equal(t, "tenant_live", f.session.Renames[renamesBefore+1][1])

	stored := f.store.Get(restore.ID)
	assert.Equal(t, restores_core.RestoreStatusRolledBack, stored.Status)
	assert.NotNil(t, stored.OldSchemaDroppedAt)
	assert.Contains(t, f.audit.Actions(), audit_logs.AuditActionRestoreRolledBack)
}

func Test_RollbackRestore_NonCompletedRestore_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	restore := f.initiate(t)

	err := f.service.RollbackRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrRollbackNotAllowed)
}

func Test_RollbackRestore_AfterOldSchemaDropped_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	restore := completedRestore(t, f)

	droppedAt := time.Now().UTC()
	restore.OldSchemaDroppedAt = &droppedAt
	require.NoError(t, f.store.Save(restore))

	err := f.service.RollbackRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrOldSchemaDropped)
}

func Test_RollbackRestore_OldSchemaMissing_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	restore := completedRestore(t, f)
	f.session.ExistingSchemas[*restore.OldSchemaName] = false

	err := f.service.RollbackRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrOldSchemaDropped)
}

func Test_RollbackRestore_SecondRollback_Rejected(t *testing.T) {
	f := newRestoreFixture(t)
	restore := completedRestore(t, f)

	require.NoError(t, f.service.RollbackRestore(context.Background(), restore.ID))

	err := f.service.RollbackRestore(context.Background(), restore.ID)

	assert.ErrorIs(t, err, restores_core.ErrRollbackNotAllowed)
}
