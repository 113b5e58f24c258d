package restores

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	restores_core "tenantbase-backend/internal/features/restores/core"
	"tenantbase-backend/internal/features/restores/restoring"
)

type RestoreController struct {
	restoreService *restoring.RestoreService
	schemaCleaner  *restoring.SchemaCleaner
}

func NewRestoreController(
	restoreService *restoring.RestoreService,
	schemaCleaner *restoring.SchemaCleaner,
) *RestoreController {
	return &RestoreController{
		restoreService: restoreService,
		schemaCleaner:  schemaCleaner,
	}
}

func (c *RestoreController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/restores", c.InitiateRestore)
	router.POST("/restores/:id/execute", c.ExecuteRestore)
	router.POST("/restores/:id/rollback", c.RollbackRestore)
	router.GET("/restores/:id", c.GetRestore)
	router.GET("/restores", c.GetRestores)
	router.POST("/restores/cleanup", c.RunCleanup)
}

type InitiateRestoreRequest struct {
	BackupID        uuid.UUID                   `json:"backupId"        binding:"required"`
	InitiatedBy     string                      `json:"initiatedBy"     binding:"required"`
	InitiatedByType restores_core.InitiatorType `json:"initiatedByType" binding:"required"`
}

type GetRestoresRequest struct {
	ProjectID string `form:"project_id" binding:"required"`
	Limit     int    `form:"limit,default=10"`
	Offset    int    `form:"offset,default=0"`
}

// InitiateRestore
// @Summary Initiate a restore
// @Description Create a restore attempt for a backup, download and decrypt the payload and take the pre-restore snapshot
// @Tags restores
// @Accept json
// @Produce json
// @Param request body InitiateRestoreRequest true "Restore initiation data"
// @Success 201 {object} restores_core.Restore
// @Failure 400
// @Failure 409
// @Failure 500
// @Router /restores [post]
func (c *RestoreController) InitiateRestore(ctx *gin.Context) {
	var request InitiateRestoreRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restore, err := c.restoreService.InitiateRestore(
		ctx.Request.Context(),
		request.BackupID,
		request.InitiatedBy,
		request.InitiatedByType,
	)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, restore)
}

// ExecuteRestore
// @Summary Execute an initiated restore
// @Description Run the schema swap, restore tool and validation for an initiated restore
// @Tags restores
// @Param id path string true "Restore ID"
// @Success 200 {object} map[string]string
// @Failure 400
// @Failure 409
// @Failure 500
// @Router /restores/{id}/execute [post]
func (c *RestoreController) ExecuteRestore(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid restore ID"})
		return
	}

	if err := c.restoreService.ExecuteRestore(ctx.Request.Context(), id); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "restore completed successfully"})
}

// RollbackRestore
// @Summary Roll back a completed restore
// @Description Swap the retained pre-restore schema back into service
// @Tags restores
// @Param id path string true "Restore ID"
// @Success 200 {object} map[string]string
// @Failure 400
// @Failure 409
// @Failure 410
// @Failure 500
// @Router /restores/{id}/rollback [post]
func (c *RestoreController) RollbackRestore(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid restore ID"})
		return
	}

	if err := c.restoreService.RollbackRestore(ctx.Request.Context(), id); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "restore rolled back successfully"})
}

// GetRestore
// @Summary Get restore status
// @Description Get a restore attempt with its source backup
// @Tags restores
// @Produce json
// @Param id path string true "Restore ID"
// @Success 200 {object} restoring.RestoreStatusResponse
// @Failure 400
// @Failure 404
// @Router /restores/{id} [get]
func (c *RestoreController) GetRestore(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid restore ID"})
		return
	}

	response, err := c.restoreService.GetRestoreStatus(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetRestores
// @Summary Get restores for a project
// @Description Get paginated restore attempts for the specified project
// @Tags restores
// @Produce json
// @Param project_id query string true "Project ID"
// @Param limit query int false "Number of items per page" default(10)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {object} restoring.ListRestoresResponse
// @Failure 400
// @Failure 500
// @Router /restores [get]
func (c *RestoreController) GetRestores(ctx *gin.Context) {
	var request GetRestoresRequest
	if err := ctx.ShouldBindQuery(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID, err := uuid.Parse(request.ProjectID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	response, err := c.restoreService.ListRestores(projectID, request.Limit, request.Offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// RunCleanup
// @Summary Run the old schema cleanup sweep
// @Description Drop renamed-aside schemas whose retention window has elapsed
// @Tags restores
// @Produce json
// @Success 200 {object} restoring.CleanupResult
// @Failure 500
// @Router /restores/cleanup [post]
func (c *RestoreController) RunCleanup(ctx *gin.Context) {
	result, err := c.schemaCleaner.CleanupOldSchemas(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, restores_core.ErrRestoreAlreadyRunning),
		errors.Is(err, restores_core.ErrLockUnavailable):
		return http.StatusConflict
	case errors.Is(err, restores_core.ErrOldSchemaDropped):
		return http.StatusGone
	case errors.Is(err, restores_core.ErrBackupNotRestorable),
		errors.Is(err, restores_core.ErrRollbackNotAllowed),
		errors.Is(err, restores_core.ErrPayloadTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, restores_core.ErrManualInterventionRequired):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
