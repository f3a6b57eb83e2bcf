package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"biblios/internal/adapters/http/middleware"
	"biblios/internal/adapters/http/routes"
	"biblios/internal/adapters/persistence/models"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/config"
	"biblios/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "biblios/docs" // Swagger docs
)

// @title Biblios Circulation API
// @version 1.0
// @description Library circulation backend: catalog, patrons, loans, holds and fines.

// @contact.name API Support

// @host localhost:3000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed admin account and default categories
	if err := config.SeedMasterData(db); err != nil {
		log.Printf("⚠️ Warning: Failed to seed master data: %v", err)
	}

	// Start the hourly sweep: expire lapsed holds, flag overdue loans,
	// prune expired refresh tokens
	sweepService := services.NewSweepService(
		db,
		repositories.NewLoanRepository(db),
		repositories.NewItemRepository(db),
		repositories.NewRefreshTokenRepository(db),
	)
	sweepService.Start()
	defer sweepService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Biblios Circulation API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
