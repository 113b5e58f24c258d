package backups

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BackupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

func (r *BackupRepository) Save(backup *Backup) error {
	if backup.ID == uuid.Nil {
		backup.ID = uuid.New()
		return r.db.Create(backup).Error
	}

	return r.db.Save(backup).Error
}

func (r *BackupRepository) FindByID(id uuid.UUID) (*Backup, error) {
	var backup Backup

	if err := r.db.Where("id = ?", id).First(&backup).Error; err != nil {
		return nil, err
	}

	return &backup, nil
}

func (r *BackupRepository) FindByProjectID(projectID uuid.UUID) ([]*Backup, error) {
	var backups []*Backup

	if err := r.db.
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&backups).Error; err != nil {
		return nil, err
	}

	return backups, nil
}
