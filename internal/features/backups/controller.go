package backups

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BackupController struct {
	backupService *BackupService
}

func NewBackupController(backupService *BackupService) *BackupController {
	return &BackupController{backupService: backupService}
}

func (c *BackupController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/backups", c.CreateBackup)
	router.GET("/backups", c.GetBackups)
	router.GET("/backups/:id", c.GetBackup)
}

type CreateBackupRequest struct {
	ProjectID uuid.UUID `json:"projectId" binding:"required"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"createdBy" binding:"required"`
}

// CreateBackup
// @Summary Create a backup
// @Description Dump, encrypt and upload the project's live schema
// @Tags backups
// @Accept json
// @Produce json
// @Param request body CreateBackupRequest true "Backup creation data"
// @Success 201 {object} Backup
// @Failure 400
// @Failure 500
// @Router /backups [post]
func (c *BackupController) CreateBackup(ctx *gin.Context) {
	var request CreateBackupRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reason := request.Reason
	if reason == "" {
		reason = "manual"
	}

	backup, err := c.backupService.CreateBackup(
		ctx.Request.Context(),
		request.ProjectID,
		reason,
		request.CreatedBy,
	)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, backup)
}

// GetBackups
// @Summary Get backups for a project
// @Description Get backups for the specified project, newest first
// @Tags backups
// @Produce json
// @Param project_id query string true "Project ID"
// @Success 200 {array} Backup
// @Failure 400
// @Failure 500
// @Router /backups [get]
func (c *BackupController) GetBackups(ctx *gin.Context) {
	projectID, err := uuid.Parse(ctx.Query("project_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	backups, err := c.backupService.GetBackupsForProject(projectID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, backups)
}

// GetBackup
// @Summary Get a backup
// @Description Get a single backup by id
// @Tags backups
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} Backup
// @Failure 400
// @Failure 404
// @Router /backups/{id} [get]
func (c *BackupController) GetBackup(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid backup ID"})
		return
	}

	backup, err := c.backupService.GetBackup(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, backup)
}
