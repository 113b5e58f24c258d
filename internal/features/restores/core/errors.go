package restores_core

import "errors"

var (
	// ErrRestoreAlreadyRunning maps the in-flight uniqueness violation: the
	// project already has a non-terminal restore. Caller-visible 409.
	ErrRestoreAlreadyRunning = errors.New("a restore is already running for this project")

	// ErrLockUnavailable means the tenant lock is held. Retryable at the
	// caller's discretion; the engine never queues or waits for it.
	ErrLockUnavailable = errors.New("tenant restore lock is held by another operation")

	// ErrBackupNotRestorable rejects backups whose status is not completed.
	ErrBackupNotRestorable = errors.New("backup is not in completed status")

	// ErrPayloadTooLarge rejects payloads above the fixed ceiling. A scope
	// boundary, not a transient condition.
	ErrPayloadTooLarge = errors.New("decrypted payload exceeds the restore size ceiling")

	// ErrIntegrityCheckFailed covers checksum mismatches on the decrypted
	// payload. Treated identically to a decryption failure.
	ErrIntegrityCheckFailed = errors.New("payload checksum does not match recorded checksum")

	// ErrValidationFailed means the restored schema did not pass structural
	// validation; the original schema has been swapped back into service.
	ErrValidationFailed = errors.New("restored schema failed validation")

	// ErrManualInterventionRequired means the compensating rename failed too:
	// both schema names are recorded on the restore for an operator.
	ErrManualInterventionRequired = errors.New("restore failed and compensation failed; manual intervention required")

	// ErrRollbackNotAllowed rejects rollback outside the completed status.
	ErrRollbackNotAllowed = errors.New("rollback is only allowed for completed restores")

	// ErrOldSchemaDropped rejects rollback after the retention window closed.
	ErrOldSchemaDropped = errors.New("old schema has already been dropped")

	// ErrPayloadExpired means the staged payload was no longer in the cache
	// when execution started.
	ErrPayloadExpired = errors.New("staged restore payload expired or missing from cache")
)
