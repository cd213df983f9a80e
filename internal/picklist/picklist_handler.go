package picklist

import (
	"net/http"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type PicklistHandler struct {
	Allocations *AllocationService
	Subtract    *SubtractService
}

func NewPicklistHandler(allocations *AllocationService, subtract *SubtractService) *PicklistHandler {
	return &PicklistHandler{
		Allocations: allocations,
		Subtract:    subtract,
	}
}

func (h *PicklistHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/picklist/allocate", security.Authorize("user"), h.Allocate)
	router.GET("/picklist", security.Authorize("user"), h.GetPicklist)
	router.DELETE("/picklist", security.Authorize("user"), h.ClearPicklist)
	router.POST("/stock/subtract", security.Authorize("admin"), h.SubtractBatch)
}

type allocateRequest struct {
	DeptID  string  `json:"dept_id" binding:"required"`
	Article string  `json:"article" binding:"required"`
	Qty     float64 `json:"qty" binding:"required"`
}

func (h *PicklistHandler) Allocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	result, err := h.Allocations.Allocate(currentUserID(c), req.DeptID, req.Article, req.Qty)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PicklistHandler) GetPicklist(c *gin.Context) {
	lines, err := h.Allocations.List(currentUserID(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to retrieve picklist", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, lines)
}

func (h *PicklistHandler) ClearPicklist(c *gin.Context) {
	if err := h.Allocations.Clear(currentUserID(c)); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type subtractRequest struct {
	Items []SubtractItem `json:"items" binding:"required"`
}

func (h *PicklistHandler) SubtractBatch(c *gin.Context) {
	var req subtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	report, err := h.Subtract.SubtractBatch(req.Items)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func currentUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}

func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case custom_error.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case custom_error.IsLockContention(err):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Item is busy, try again", "details": err.Error()})
	case custom_error.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Operation failed", "details": err.Error()})
	}
}
