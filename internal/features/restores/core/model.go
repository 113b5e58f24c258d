package restores_core

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"tenantbase-backend/internal/features/backups"
)

// ValidationResults is the structural report produced after the restore tool
// finishes. Only TableCount-based rules decide ValidationPassed; everything
// else is diagnostic.
type ValidationResults struct {
	TableCount         int            `json:"tableCount"`
	ExpectedTableCount int            `json:"expectedTableCount"`
	KeyTablesExist     bool           `json:"keyTablesExist"`
	MissingKeyTables   []string       `json:"missingKeyTables"`
	SampleRowCounts    map[string]int `json:"sampleRowCounts"`
	ValidationPassed   bool           `json:"validationPassed"`
	ValidationErrors   []string       `json:"validationErrors"`
}

func (v ValidationResults) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *ValidationResults) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, v)
	case string:
		return json.Unmarshal([]byte(raw), v)
	default:
		return errors.New("unsupported validation results type")
	}
}

// Restore is one restore attempt. Rows are created by initiation, mutated only
// by the orchestrator phases, and never deleted.
type Restore struct {
	ID        uuid.UUID     `json:"id"        gorm:"column:id;type:uuid;primaryKey"`
	ProjectID uuid.UUID     `json:"projectId" gorm:"column:project_id;type:uuid;not null;index"`
	BackupID  uuid.UUID     `json:"backupId"  gorm:"column:backup_id;type:uuid;not null"`
	Backup    *backups.Backup `json:"backup"  gorm:"foreignKey:BackupID"`

	Status RestoreStatus `json:"status" gorm:"column:status;type:text;not null"`

	InitiatedBy     string        `json:"initiatedBy"     gorm:"column:initiated_by;type:text;not null"`
	InitiatedByType InitiatorType `json:"initiatedByType" gorm:"column:initiated_by_type;type:text;not null"`

	// OldSchemaName is set the moment the live schema is renamed aside and is
	// the handle for every compensation and cleanup path.
	OldSchemaName *string `json:"oldSchemaName" gorm:"column:old_schema_name;type:text"`

	// TempSchemaName predates this implementation and is never populated; the
	// column survives so rows written by the previous system still load.
	TempSchemaName *string `json:"tempSchemaName" gorm:"column:temp_schema_name;type:text"`

	PreRestoreBackupID *uuid.UUID `json:"preRestoreBackupId" gorm:"column:pre_restore_backup_id;type:uuid"`

	ValidationResults *ValidationResults `json:"validationResults" gorm:"column:validation_results;type:jsonb"`
	Error             *string            `json:"error"             gorm:"column:error"`

	CreatedAt          time.Time  `json:"createdAt"          gorm:"column:created_at;default:now()"`
	StartedAt          *time.Time `json:"startedAt"          gorm:"column:started_at"`
	CompletedAt        *time.Time `json:"completedAt"        gorm:"column:completed_at"`
	OldSchemaCleanupAt *time.Time `json:"oldSchemaCleanupAt" gorm:"column:old_schema_cleanup_at"`
	OldSchemaDroppedAt *time.Time `json:"oldSchemaDroppedAt" gorm:"column:old_schema_dropped_at"`
}

func (r *Restore) TableName() string {
	return "restores"
}
