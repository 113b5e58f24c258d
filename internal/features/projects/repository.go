package projects

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Save(project *Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
		return r.db.Create(project).Error
	}

	return r.db.Save(project).Error
}

func (r *ProjectRepository) FindByID(id uuid.UUID) (*Project, error) {
	var project Project

	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}
