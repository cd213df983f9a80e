package main

import (
	"context"
	"log"
	"time"

	"stockdesk/cmd"
	"stockdesk/internal/config"
	"stockdesk/internal/container"
	"stockdesk/internal/database"
	"stockdesk/internal/logger"
	"stockdesk/internal/middleware"
	"stockdesk/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(ctx)
}

func main() {
	cfg := config.New()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	zapLogger := logger.NewLogger()
	defer zapLogger.Sync()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	appContainer := container.NewAppContainer(db, cfg, zapLogger)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))

	routes.RegisterUtilityRoutes(router)
	routes.RegisterPublicRoutes(router, appContainer)
	routes.RegisterProtectedRoutes(router, appContainer)

	if err := router.Run(cfg.AppHost); err != nil {
		panic(err)
	}
}
