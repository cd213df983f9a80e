package cards

import (
	"net/http"

	"stockdesk/pkg/models"
	"stockdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	Cache *CardCache
}

func NewCardHandler(cache *CardCache) *CardHandler {
	return &CardHandler{Cache: cache}
}

func (h *CardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cards/:deptID/:article", security.Authorize("user"), h.GetCard)
	router.PATCH("/cards/:deptID/:article/image", security.Authorize("moderator"), h.UpdateImageRef)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	key := models.StockKey{DeptID: c.Param("deptID"), Article: c.Param("article")}

	payload, imageRef, err := h.Cache.GetOrRender(key)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to render card", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"card": payload, "image_ref": imageRef})
}

type updateImageRequest struct {
	ImageRef string `json:"image_ref" binding:"required"`
}

func (h *CardHandler) UpdateImageRef(c *gin.Context) {
	var req updateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	key := models.StockKey{DeptID: c.Param("deptID"), Article: c.Param("article")}
	if err := h.Cache.UpdateImageRef(key, req.ImageRef); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to update image reference", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
