package audit_logs

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionRestoreInitiated  AuditAction = "restore_initiated"
	AuditActionRestoreCompleted  AuditAction = "restore_completed"
	AuditActionRestoreFailed     AuditAction = "restore_failed"
	AuditActionRestoreRolledBack AuditAction = "restore_rolled_back"
	AuditActionOldSchemaDropped  AuditAction = "old_schema_dropped"
)

// AuditDetails is an arbitrary structured payload stored as jsonb.
type AuditDetails map[string]interface{}

func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *AuditDetails) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, d)
	case string:
		return json.Unmarshal([]byte(raw), d)
	default:
		return errors.New("unsupported audit details type")
	}
}

// AuditLog is append-only: rows are written on every restore lifecycle
// transition and never updated.
type AuditLog struct {
	ID        uuid.UUID    `json:"id"        gorm:"column:id;type:uuid;primaryKey"`
	ProjectID uuid.UUID    `json:"projectId" gorm:"column:project_id;type:uuid;not null;index"`
	RestoreID *uuid.UUID   `json:"restoreId" gorm:"column:restore_id;type:uuid;index"`
	Action    AuditAction  `json:"action"    gorm:"column:action;type:text;not null"`
	Details   AuditDetails `json:"details"   gorm:"column:details;type:jsonb"`

	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;default:now()"`
}

func (a *AuditLog) TableName() string {
	return "audit_logs"
}
