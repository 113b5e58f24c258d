package restoring

import (
	"tenantbase-backend/internal/features/backups"
	restores_core "tenantbase-backend/internal/features/restores/core"
)

type RestoreStatusResponse struct {
	Restore *restores_core.Restore `json:"restore"`
	Backup  *backups.Backup        `json:"backup"`
}

type ListRestoresResponse struct {
	Restores []*restores_core.Restore `json:"restores"`
	Total    int64                    `json:"total"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// CleanupResult reports one sweep: schemas dropped and per-item failures left
// for operator follow-up.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
	Failed  int `json:"failed"`
}
