package routes

import (
	"biblios/internal/adapters/http/handlers"
	"biblios/internal/adapters/http/middleware"
	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/config"
	"biblios/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	patronRepo := repositories.NewPatronRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	// Initialize services
	authService := services.NewAuthService(patronRepo, refreshTokenRepo, cfg)
	patronService := services.NewPatronService(patronRepo, loanRepo)
	catalogService := services.NewCatalogService(db, itemRepo, categoryRepo, loanRepo)
	circulationService := services.NewCirculationService(db, loanRepo, itemRepo, patronRepo, cfg.Circulation)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, patronService, cfg)
	patronHandler := handlers.NewPatronHandler(patronService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	circulationHandler := handlers.NewCirculationHandler(circulationService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	patronRoutes := apiV1.Group("/patrons")
	patronRoutes.Use(middleware.AuthMiddleware(cfg))
	setupPatronRoutes(patronRoutes, patronHandler, circulationHandler)

	categoryRoutes := apiV1.Group("/categories")
	setupCategoryRoutes(categoryRoutes, catalogHandler, cfg)

	itemRoutes := apiV1.Group("/items")
	setupItemRoutes(itemRoutes, catalogHandler, circulationHandler, cfg)

	loanRoutes := apiV1.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	setupLoanRoutes(loanRoutes, circulationHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.Refresh)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout", middleware.AuthMiddleware(cfg), handler.Logout)
	router.Post("/change-password", middleware.AuthMiddleware(cfg), handler.ChangePassword)
}

// setupPatronRoutes configures patron registry routes (authenticated)
func setupPatronRoutes(router fiber.Router, handler *handlers.PatronHandler, circulation *handlers.CirculationHandler) {
	router.Get("/", middleware.StaffOnly(), handler.List)
	router.Get("/:id", handler.Get)
	router.Put("/:id", handler.UpdateProfile)
	router.Patch("/:id/role", middleware.AdminOnly(), handler.ChangeRole)
	router.Patch("/:id/active", middleware.StaffOnly(), handler.SetActive)
	router.Get("/:id/active-loans", handler.ActiveLoans)
	router.Get("/:id/loans", circulation.ListByPatron)
}

// setupCategoryRoutes configures category routes
func setupCategoryRoutes(router fiber.Router, handler *handlers.CatalogHandler, cfg *config.Config) {
	// Public reads
	router.Get("/", handler.ListCategories)
	router.Get("/:id", handler.GetCategory)
	router.Get("/:id/items", handler.ListItemsByCategory)

	// Staff writes
	router.Post("/", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.CreateCategory)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.UpdateCategory)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.DeleteCategory)
}

// setupItemRoutes configures catalog item routes
func setupItemRoutes(router fiber.Router, handler *handlers.CatalogHandler, circulation *handlers.CirculationHandler, cfg *config.Config) {
	// Public reads
	router.Get("/", handler.ListItems)
	router.Get("/:id", handler.GetItem)

	// Staff writes
	router.Post("/", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.CreateItem)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.UpdateItem)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), handler.DeleteItem)
	router.Get("/:id/loans", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), circulation.ListByItem)
}

// setupLoanRoutes configures loan ledger routes (authenticated)
func setupLoanRoutes(router fiber.Router, handler *handlers.CirculationHandler) {
	router.Post("/", handler.Borrow)
	router.Post("/reserve", handler.Reserve)
	router.Get("/", middleware.StaffOnly(), handler.List)
	router.Get("/overdue", middleware.StaffOnly(), handler.ListOverdue)
	router.Get("/stats", middleware.StaffOnly(), handler.GetStats)
	router.Get("/:id", handler.Get)
	router.Patch("/:id/confirm", middleware.StaffOnly(), handler.Confirm)
	router.Patch("/:id/renew", handler.Renew)
	router.Patch("/:id/return", middleware.StaffOnly(), handler.Return)
	router.Patch("/:id/pay-fine", middleware.StaffOnly(), handler.PayFine)
	router.Delete("/:id", middleware.AdminOnly(), handler.Remove)
}
