package audit_logs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditLogController struct {
	auditLogService *AuditLogService
}

func NewAuditLogController(auditLogService *AuditLogService) *AuditLogController {
	return &AuditLogController{auditLogService: auditLogService}
}

func (c *AuditLogController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/restores/:id/audit", c.GetLogsForRestore)
}

// GetLogsForRestore
// @Summary Get the audit trail for a restore
// @Description Get all lifecycle transitions recorded for a restore attempt
// @Tags audit
// @Produce json
// @Param id path string true "Restore ID"
// @Success 200 {array} AuditLog
// @Failure 400
// @Failure 500
// @Router /restores/{id}/audit [get]
func (c *AuditLogController) GetLogsForRestore(ctx *gin.Context) {
	restoreID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid restore ID"})
		return
	}

	logs, err := c.auditLogService.GetLogsForRestore(restoreID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, logs)
}
