package audit_logs

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const auditLogRetention = 90 * 24 * time.Hour

type AuditLogService struct {
	auditLogRepository *AuditLogRepository
	logger             *slog.Logger
}

func NewAuditLogService(
	auditLogRepository *AuditLogRepository,
	logger *slog.Logger,
) *AuditLogService {
	return &AuditLogService{
		auditLogRepository: auditLogRepository,
		logger:             logger,
	}
}

// Write appends one lifecycle transition. Callers write the audit entry before
// propagating a failure; a failed audit write is logged but never masks the
// original error.
func (s *AuditLogService) Write(
	action AuditAction,
	projectID uuid.UUID,
	restoreID *uuid.UUID,
	details AuditDetails,
) {
	entry := &AuditLog{
		ProjectID: projectID,
		RestoreID: restoreID,
		Action:    action,
		Details:   details,
	}

	if err := s.auditLogRepository.Save(entry); err != nil {
		s.logger.Error(
			"Failed to write audit log",
			"action", action,
			"projectId", projectID,
			"error", err,
		)
	}
}

func (s *AuditLogService) GetLogsForRestore(restoreID uuid.UUID) ([]*AuditLog, error) {
	return s.auditLogRepository.FindByRestoreID(restoreID)
}

func (s *AuditLogService) CleanOldAuditLogs() error {
	cutoff := time.Now().UTC().Add(-auditLogRetention)

	deleted, err := s.auditLogRepository.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		s.logger.Info("Cleaned old audit logs", "deleted", deleted)
	}

	return nil
}
