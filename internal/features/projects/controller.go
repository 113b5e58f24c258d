package projects

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProjectController struct {
	projectService    *ProjectService
	projectRepository *ProjectRepository
}

func NewProjectController(
	projectService *ProjectService,
	projectRepository *ProjectRepository,
) *ProjectController {
	return &ProjectController{
		projectService:    projectService,
		projectRepository: projectRepository,
	}
}

func (c *ProjectController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/projects", c.CreateProject)
	router.GET("/projects/:id", c.GetProject)
}

type CreateProjectRequest struct {
	Name       string `json:"name"       binding:"required"`
	SchemaName string `json:"schemaName" binding:"required"`
}

// CreateProject
// @Summary Register a project
// @Description Register a tenant project and the schema that serves it
// @Tags projects
// @Accept json
// @Produce json
// @Param request body CreateProjectRequest true "Project data"
// @Success 201 {object} Project
// @Failure 400
// @Failure 500
// @Router /projects [post]
func (c *ProjectController) CreateProject(ctx *gin.Context) {
	var request CreateProjectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := &Project{
		Name:       request.Name,
		SchemaName: request.SchemaName,
	}

	if err := c.projectRepository.Save(project); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, project)
}

// GetProject
// @Summary Get a project
// @Description Get a project by id
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} Project
// @Failure 400
// @Failure 404
// @Router /projects/{id} [get]
func (c *ProjectController) GetProject(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	project, err := c.projectService.GetProjectByID(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, project)
}
