package projects

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type ProjectService struct {
	projectRepository *ProjectRepository
	logger            *slog.Logger
}

func NewProjectService(
	projectRepository *ProjectRepository,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepository: projectRepository,
		logger:            logger,
	}
}

func (s *ProjectService) GetProjectByID(id uuid.UUID) (*Project, error) {
	return s.projectRepository.FindByID(id)
}

// GetLiveSchemaName resolves the schema currently answering to the project.
func (s *ProjectService) GetLiveSchemaName(projectID uuid.UUID) (string, error) {
	project, err := s.projectRepository.FindByID(projectID)
	if err != nil {
		return "", fmt.Errorf("failed to get project %s: %w", projectID, err)
	}

	if project.SchemaName == "" {
		return "", fmt.Errorf("project %s has no live schema", projectID)
	}

	return project.SchemaName, nil
}
