package backups

import (
	"time"

	"github.com/google/uuid"
)

// Backup is the metadata row for one captured schema dump. The blob itself
// lives in object storage under StorageBucket/StorageKey, envelope-encrypted;
// the wrapped data key and both IVs are recorded here (base64), the KEK only
// in configuration.
type Backup struct {
	ID        uuid.UUID    `json:"id"        gorm:"column:id;type:uuid;primaryKey"`
	ProjectID uuid.UUID    `json:"projectId" gorm:"column:project_id;type:uuid;not null;index"`
	Status    BackupStatus `json:"status"    gorm:"column:status;type:text;not null"`

	Reason    string `json:"reason"    gorm:"column:reason;type:text"`
	CreatedBy string `json:"createdBy" gorm:"column:created_by;type:text"`

	StorageBucket string `json:"storageBucket" gorm:"column:storage_bucket;type:text"`
	StorageKey    string `json:"storageKey"    gorm:"column:storage_key;type:text"`

	EncryptedDataKey string  `json:"-"        gorm:"column:encrypted_data_key;type:text"`
	DataKeyIV        string  `json:"-"        gorm:"column:data_key_iv;type:text"`
	PayloadIV        string  `json:"-"        gorm:"column:payload_iv;type:text"`
	Checksum         *string `json:"checksum" gorm:"column:checksum;type:text"`

	SizeBytes   int64   `json:"sizeBytes" gorm:"column:size_bytes;default:0"`
	FailMessage *string `json:"failMessage" gorm:"column:fail_message"`

	CreatedAt   time.Time  `json:"createdAt"   gorm:"column:created_at;default:now()"`
	CompletedAt *time.Time `json:"completedAt" gorm:"column:completed_at"`
}

func (b *Backup) TableName() string {
	return "backups"
}
