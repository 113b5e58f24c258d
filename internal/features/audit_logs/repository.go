package audit_logs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Save(log *AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	return r.db.Create(log).Error
}

func (r *AuditLogRepository) FindByRestoreID(restoreID uuid.UUID) ([]*AuditLog, error) {
	var logs []*AuditLog

	if err := r.db.
		Where("restore_id = ?", restoreID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *AuditLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&AuditLog{})
	return result.RowsAffected, result.Error
}
