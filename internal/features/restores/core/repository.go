package restores_core

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

type RestoreRepository struct {
	db *gorm.DB
}

func NewRestoreRepository(db *gorm.DB) *RestoreRepository {
	return &RestoreRepository{db: db}
}

// Create inserts a fresh restore record. The partial unique index on
// project_id over non-terminal statuses makes this the atomic "only one
// in-flight restore per project" gate; a violation surfaces as
// ErrRestoreAlreadyRunning.
func (r *RestoreRepository) Create(restore *Restore) error {
	if restore.ID == uuid.Nil {
		restore.ID = uuid.New()
	}

	err := r.db.Omit("Backup").Create(restore).Error
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrRestoreAlreadyRunning
	}

	return err
}

func (r *RestoreRepository) Save(restore *Restore) error {
	return r.db.Omit("Backup").Save(restore).Error
}

func (r *RestoreRepository) FindByID(id uuid.UUID) (*Restore, error) {
	var restore Restore

	if err := r.db.
		Preload("Backup").
		Where("id = ?", id).
		First(&restore).Error; err != nil {
		return nil, err
	}

	return &restore, nil
}

func (r *RestoreRepository) FindByProjectID(
	projectID uuid.UUID,
	limit int,
	offset int,
) ([]*Restore, int64, error) {
	var total int64
	if err := r.db.
		Model(&Restore{}).
		Where("project_id = ?", projectID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var restores []*Restore
	if err := r.db.
		Preload("Backup").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&restores).Error; err != nil {
		return nil, 0, err
	}

	return restores, total, nil
}

// FindDueForCleanup returns completed restores whose retention window has
// elapsed and whose old schema still exists.
func (r *RestoreRepository) FindDueForCleanup(now time.Time) ([]*Restore, error) {
	var restores []*Restore

	if err := r.db.
		Where("status = ?", RestoreStatusCompleted).
		Where("old_schema_cleanup_at IS NOT NULL AND old_schema_cleanup_at <= ?", now).
		Where("old_schema_dropped_at IS NULL").
		Where("old_schema_name IS NOT NULL").
		Order("old_schema_cleanup_at ASC").
		Find(&restores).Error; err != nil {
		return nil, err
	}

	return restores, nil
}
