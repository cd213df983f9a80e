package importer

import (
	"errors"
	"net/http"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

// rowSource pulls already-normalized rows from an external location,
// e.g. a Google Sheets range.
type rowSource interface {
	FetchRows(spreadsheetID, readRange string) (NormalizedTable, error)
}

type ImportHandler struct {
	Planner *PlannerService
	Source  rowSource
}

func NewImportHandler(planner *PlannerService, source rowSource) *ImportHandler {
	return &ImportHandler{Planner: planner, Source: source}
}

func (h *ImportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/imports/dry-run", security.Authorize("admin"), h.DryRun)
	router.POST("/imports/sheet", security.Authorize("admin"), h.DryRunFromSheet)
	router.POST("/imports/:token/apply", security.Authorize("admin"), h.Apply)
	router.DELETE("/imports/:token", security.Authorize("admin"), h.Cancel)
}

func (h *ImportHandler) DryRun(c *gin.Context) {
	var table NormalizedTable
	if err := c.ShouldBindJSON(&table); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	h.buildPlan(c, table)
}

type sheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" binding:"required"`
	ReadRange     string `json:"read_range" binding:"required"`
}

func (h *ImportHandler) DryRunFromSheet(c *gin.Context) {
	if h.Source == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Sheet import source is not configured"})
		return
	}

	var req sheetImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	table, err := h.Source.FetchRows(req.SpreadsheetID, req.ReadRange)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Unable to read spreadsheet", "details": err.Error()})
		return
	}

	h.buildPlan(c, table)
}

func (h *ImportHandler) buildPlan(c *gin.Context, table NormalizedTable) {
	plan, err := h.Planner.BuildPlan(table)
	if err != nil {
		if errors.Is(err, ErrNoArticles) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "No article identifiers found, import refused"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to build import plan", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   plan.Token,
		"summary": plan.Summary,
		"plan":    plan,
	})
}

func (h *ImportHandler) Apply(c *gin.Context) {
	report, err := h.Planner.ApplyPlan(c.Param("token"))
	if err != nil {
		if custom_error.IsPlanNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Import apply failed, token is still valid", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ImportHandler) Cancel(c *gin.Context) {
	if err := h.Planner.CancelPlan(c.Param("token")); err != nil {
		if custom_error.IsPlanNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to cancel import plan", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
