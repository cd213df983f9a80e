package routes

import (
	"log"
	"os"

	"stockdesk/internal/container"
	"stockdesk/internal/middleware"
	"stockdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

func RegisterPublicRoutes(router *gin.Engine, c *container.Container) {
	c.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, c *container.Container) {
	protectedRoutes := router.Group("/api")
	protectedRoutes.Use(security.JWTMiddleware())

	c.StockHandler.RegisterRoutes(protectedRoutes)
	c.CardHandler.RegisterRoutes(protectedRoutes)
	c.PicklistHandler.RegisterRoutes(protectedRoutes)
	c.ImportHandler.RegisterRoutes(protectedRoutes)
	c.UserHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine) {
	router.GET("/health", middleware.HealthCheckMiddleware())

	openapiFilePath := "./docs/index.html"
	if _, err := os.Stat(openapiFilePath); err == nil {
		router.GET("/openapi.html", func(c *gin.Context) {
			c.File(openapiFilePath)
		})
		log.Println("Route docs/index.html registered successfully.")
	} else {
		log.Printf("Warning: %s not found. Route /openapi.html will not be registered.\n", openapiFilePath)
	}
}
