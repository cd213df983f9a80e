package ledger

import (
	"net/http"

	custom_error "stockdesk/pkg/errors"
	"stockdesk/pkg/models"
	"stockdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	StockRepository *StockRepository
}

func NewStockHandler(sr *StockRepository) *StockHandler {
	return &StockHandler{StockRepository: sr}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stock", security.Authorize("user"), h.ListStock)
	router.GET("/stock/search", security.Authorize("user"), h.SearchStock)
	router.GET("/stock/:deptID/:article", security.Authorize("user"), h.GetStockItem)
}

// ListStock returns the rows of one department, active rows only unless
// all=true is passed.
func (h *StockHandler) ListStock(c *gin.Context) {
	deptID := c.Query("dept_id")
	if deptID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'dept_id' is required"})
		return
	}

	var items []models.StockItem
	var err error
	if c.Query("all") == "true" {
		items, err = h.StockRepository.ListByDepartments([]string{deptID})
	} else {
		items, err = h.StockRepository.ListActiveByDepartments([]string{deptID})
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list stock items", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *StockHandler) GetStockItem(c *gin.Context) {
	item, err := h.StockRepository.Get(c.Param("deptID"), c.Param("article"))
	if err != nil {
		if custom_error.IsNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Stock item not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to retrieve stock item", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *StockHandler) SearchStock(c *gin.Context) {
	searchQuery := c.Query("q")
	if searchQuery == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	items, err := h.StockRepository.Search(searchQuery, c.Query("dept_id"), 30)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to search stock items", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, items)
}
