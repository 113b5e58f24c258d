package restoring

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 1 * time.Hour

// CleanupBackgroundService runs the old-schema sweep on a fixed interval.
type CleanupBackgroundService struct {
	cleaner *SchemaCleaner
	logger  *slog.Logger
}

func NewCleanupBackgroundService(
	cleaner *SchemaCleaner,
	logger *slog.Logger,
) *CleanupBackgroundService {
	return &CleanupBackgroundService{
		cleaner: cleaner,
		logger:  logger,
	}
}

func (s *CleanupBackgroundService) Run(ctx context.Context) {
	s.logger.Info("Starting old schema cleanup background service")

	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.cleaner.CleanupOldSchemas(ctx); err != nil {
				s.logger.Error("Failed to run old schema cleanup sweep", "error", err)
			}
		}
	}
}
