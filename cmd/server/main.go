package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"declarehub/internal/adapters/http/middleware"
	"declarehub/internal/adapters/http/routes"
	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/config"
	"declarehub/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// @title DeclareHub API
// @version 1.0
// @description Declaration lifecycle and credit ledger API
// @BasePath /api/v1
// @schemes https

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

	// Seed admin user and starter templates
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed data: %v", err)
	}

	// Background jobs: overdue sweep, ledger maintenance, token cleanup
	creditService := services.NewCreditService(repositories.NewCreditRepository(db))
	taskService := services.NewTaskService(
		repositories.NewTaskRepository(db),
		repositories.NewEmployeeRepository(db),
		repositories.NewTemplateRepository(db),
		services.NewLicenseService(cfg, creditService),
		services.NewNotificationService(cfg),
		cfg,
	)
	authService := services.NewAuthService(
		repositories.NewUserRepository(db),
		repositories.NewRefreshTokenRepository(db),
		cfg,
	)
	cronService := services.NewCronService(taskService, creditService, authService, cfg.Credit.AlertDays)
	cronService.Start()
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "DeclareHub API v1.0",
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
