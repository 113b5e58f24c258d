package audit_logs

import (
	"context"
	"log/slog"
	"time"
)

const cleanupInterval = 1 * time.Hour

type AuditLogBackgroundService struct {
	auditLogService *AuditLogService
	logger          *slog.Logger
}

func NewAuditLogBackgroundService(
	auditLogService *AuditLogService,
	logger *slog.Logger,
) *AuditLogBackgroundService {
	return &AuditLogBackgroundService{
		auditLogService: auditLogService,
		logger:          logger,
	}
}

func (s *AuditLogBackgroundService) Run(ctx context.Context) {
	s.logger.Info("Starting audit log cleanup background service")

	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.auditLogService.CleanOldAuditLogs(); err != nil {
				s.logger.Error("Failed to clean old audit logs", "error", err)
			}
		}
	}
}
