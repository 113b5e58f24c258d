package restores_core

type RestoreStatus string

const (
	RestoreStatusPending                  RestoreStatus = "pending"
	RestoreStatusDownloading              RestoreStatus = "downloading"
	RestoreStatusCreatingPreRestoreBackup RestoreStatus = "creating_pre_restore_backup"
	RestoreStatusRestoring                RestoreStatus = "restoring"
	RestoreStatusValidating               RestoreStatus = "validating"
	RestoreStatusCompleted                RestoreStatus = "completed"
	RestoreStatusFailed                   RestoreStatus = "failed"
	RestoreStatusRolledBack               RestoreStatus = "rolled_back"
)

// IsTerminal reports whether the status ends the lifecycle. The in-flight
// uniqueness constraint covers exactly the non-terminal statuses.
func (s RestoreStatus) IsTerminal() bool {
	switch s {
	case RestoreStatusCompleted, RestoreStatusFailed, RestoreStatusRolledBack:
		return true
	default:
		return false
	}
}

type InitiatorType string

const (
	InitiatorTypeUser   InitiatorType = "user"
	InitiatorTypeAdmin  InitiatorType = "admin"
	InitiatorTypeSystem InitiatorType = "system"
)
