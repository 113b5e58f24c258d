package backups

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tenantbase-backend/internal/config"
	"tenantbase-backend/internal/features/projects"
	"tenantbase-backend/internal/features/storages"
	"tenantbase-backend/internal/util/encryption"
	"tenantbase-backend/internal/util/tools"
)

const dumpTimeout = 10 * time.Minute

// BackupService captures and serves encrypted schema dumps. The restore engine
// consumes it for backup lookup, payload download and the pre-restore
// snapshot.
type BackupService struct {
	backupRepository *BackupRepository
	projectService   *projects.ProjectService
	storageService   *storages.StorageService
	commandRunner    tools.CommandRunner
	env              *config.Env
	logger           *slog.Logger
}

func NewBackupService(
	backupRepository *BackupRepository,
	projectService *projects.ProjectService,
	storageService *storages.StorageService,
	commandRunner tools.CommandRunner,
	env *config.Env,
	logger *slog.Logger,
) *BackupService {
	return &BackupService{
		backupRepository: backupRepository,
		projectService:   projectService,
		storageService:   storageService,
		commandRunner:    commandRunner,
		env:              env,
		logger:           logger,
	}
}

func (s *BackupService) GetBackup(id uuid.UUID) (*Backup, error) {
	return s.backupRepository.FindByID(id)
}

func (s *BackupService) GetBackupsForProject(projectID uuid.UUID) ([]*Backup, error) {
	return s.backupRepository.FindByProjectID(projectID)
}

// CreateBackup dumps the project's live schema, envelope-encrypts the dump and
// uploads it. Used by operators and as the pre-restore safety snapshot.
func (s *BackupService) CreateBackup(
	ctx context.Context,
	projectID uuid.UUID,
	reason string,
	createdBy string,
) (*Backup, error) {
	schemaName, err := s.projectService.GetLiveSchemaName(projectID)
	if err != nil {
		return nil, err
	}

	backup := &Backup{
		ProjectID: projectID,
		Status:    BackupStatusInProgress,
		Reason:    reason,
		CreatedBy: createdBy,
	}

	if err := s.backupRepository.Save(backup); err != nil {
		return nil, fmt.Errorf("failed to create backup record: %w", err)
	}

	plaintext, err := s.dumpSchema(ctx, schemaName)
	if err != nil {
		return nil, s.failBackup(backup, err)
	}

	masterKey, err := s.env.MasterKey()
	if err != nil {
		return nil, s.failBackup(backup, err)
	}

	envelope, err := encryption.EncryptEnvelope(plaintext, masterKey)
	if err != nil {
		return nil, s.failBackup(backup, err)
	}

	bucket := s.env.S3Bucket
	key := fmt.Sprintf("backups/%s/%s.dump.enc", projectID, backup.ID)

	if err := s.storageService.PutObject(ctx, bucket, key, envelope.Ciphertext); err != nil {
		return nil, s.failBackup(backup, err)
	}

	checksum := encryption.Checksum(plaintext)
	now := time.Now().UTC()

	backup.Status = BackupStatusCompleted
	backup.StorageBucket = bucket
	backup.StorageKey = key
	backup.EncryptedDataKey = base64.StdEncoding.EncodeToString(envelope.EncryptedDataKey)
	backup.DataKeyIV = base64.StdEncoding.EncodeToString(envelope.DataKeyIV)
	backup.PayloadIV = base64.StdEncoding.EncodeToString(envelope.PayloadIV)
	backup.Checksum = &checksum
	backup.SizeBytes = int64(len(envelope.Ciphertext))
	backup.CompletedAt = &now

	if err := s.backupRepository.Save(backup); err != nil {
		return nil, fmt.Errorf("failed to save completed backup: %w", err)
	}

	s.logger.Info(
		"Backup completed",
		"backupId", backup.ID,
		"projectId", projectID,
		"sizeBytes", backup.SizeBytes,
	)

	return backup, nil
}

// DownloadPayload fetches the raw encrypted blob for a backup. Decryption is
// the caller's concern.
func (s *BackupService) DownloadPayload(ctx context.Context, backup *Backup) ([]byte, error) {
	if backup.StorageBucket == "" || backup.StorageKey == "" {
		return nil, fmt.Errorf("backup %s has no storage location", backup.ID)
	}

	return s.storageService.GetObject(ctx, backup.StorageBucket, backup.StorageKey)
}

// EnvelopeKeys decodes the stored wrapping material for a backup.
func (s *BackupService) EnvelopeKeys(backup *Backup) (encryptedDataKey, dataKeyIV, payloadIV []byte, err error) {
	encryptedDataKey, err = base64.StdEncoding.DecodeString(backup.EncryptedDataKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("backup %s has malformed encrypted data key: %w", backup.ID, err)
	}

	dataKeyIV, err = base64.StdEncoding.DecodeString(backup.DataKeyIV)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("backup %s has malformed data key IV: %w", backup.ID, err)
	}

	payloadIV, err = base64.StdEncoding.DecodeString(backup.PayloadIV)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("backup %s has malformed payload IV: %w", backup.ID, err)
	}

	return encryptedDataKey, dataKeyIV, payloadIV, nil
}

func (s *BackupService) dumpSchema(ctx context.Context, schemaName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, dumpTimeout)
	defer cancel()

	args := []string{
		"--host", s.env.TenantDbHost,
		"--port", strconv.Itoa(s.env.TenantDbPort),
		"--username", s.env.TenantDbUser,
		"--dbname", s.env.TenantDbName,
		"--schema", schemaName,
		"--format", "plain",
		"--no-owner",
		"--no-privileges",
	}

	result, err := s.commandRunner.Run(
		ctx,
		s.env.PgDumpPath,
		args,
		nil,
		[]string{"PGPASSWORD=" + s.env.TenantDbPassword},
	)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return nil, fmt.Errorf("pg_dump failed: %w: %s", err, stderr)
	}

	return result.Stdout, nil
}

func (s *BackupService) failBackup(backup *Backup, cause error) error {
	message := cause.Error()
	backup.Status = BackupStatusFailed
	backup.FailMessage = &message

	if err := s.backupRepository.Save(backup); err != nil {
		s.logger.Error("Failed to save failed backup", "backupId", backup.ID, "error", err)
	}

	return cause
}
