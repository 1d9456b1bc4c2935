package routes

import (
	"declarehub/internal/adapters/http/handlers"
	"declarehub/internal/adapters/http/middleware"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/config"
	"declarehub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	employeeRepo := repositories.NewEmployeeRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	creditRepo := repositories.NewCreditRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	notifyService := services.NewNotificationService(cfg)
	creditService := services.NewCreditService(creditRepo)
	licenseService := services.NewLicenseService(cfg, creditService)
	taskService := services.NewTaskService(taskRepo, employeeRepo, templateRepo, licenseService, notifyService, cfg)
	reviewService := services.NewReviewService(submissionRepo)
	submissionService := services.NewSubmissionService(
		db, submissionRepo, taskService, reviewService, creditService, licenseService, notifyService, cfg,
	)
	verificationService := services.NewVerificationService(
		verificationRepo, submissionRepo, employeeRepo, creditService, licenseService,
		services.NewCIPCChecker(cfg), services.NewCreditCheckChecker(cfg),
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	declareHandler := handlers.NewDeclareHandler(taskService, submissionService)
	taskHandler := handlers.NewTaskHandler(taskService)
	reviewHandler := handlers.NewReviewHandler(reviewService, submissionService, verificationService)
	creditHandler := handlers.NewCreditHandler(creditService, licenseService)
	directoryHandler := handlers.NewDirectoryHandler(employeeRepo, templateRepo)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, declareHandler, taskHandler,
		reviewHandler, creditHandler, directoryHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	declareHandler *handlers.DeclareHandler,
	taskHandler *handlers.TaskHandler,
	reviewHandler *handlers.ReviewHandler,
	creditHandler *handlers.CreditHandler,
	directoryHandler *handlers.DirectoryHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Public declaration routes (token is the only credential)
	declareRoutes := router.Group("/declare")
	declareRoutes.Use(middleware.DeclareRateLimiter())
	declareRoutes.Use(middleware.NoCacheHeaders())
	setupDeclareRoutes(declareRoutes, declareHandler)

	// Task management routes (HR/Admin)
	taskRoutes := router.Group("/tasks")
	taskRoutes.Use(middleware.AuthMiddleware(cfg))
	taskRoutes.Use(middleware.HROrAdmin())
	setupTaskRoutes(taskRoutes, taskHandler)

	// Review routes (Manager/Admin)
	reviewRoutes := router.Group("/review")
	reviewRoutes.Use(middleware.AuthMiddleware(cfg))
	reviewRoutes.Use(middleware.ManagerOrAdmin())
	setupReviewRoutes(reviewRoutes, reviewHandler)

	// Submission routes (Manager/Admin)
	submissionRoutes := router.Group("/submissions")
	submissionRoutes.Use(middleware.AuthMiddleware(cfg))
	submissionRoutes.Use(middleware.ManagerOrAdmin())
	setupSubmissionRoutes(submissionRoutes, reviewHandler)

	// Credit ledger routes (Admin only)
	creditRoutes := router.Group("/credits")
	creditRoutes.Use(middleware.AuthMiddleware(cfg))
	creditRoutes.Use(middleware.AdminOnly())
	setupCreditRoutes(creditRoutes, creditHandler)

	// Directory routes (HR/Admin)
	directoryRoutes := router.Group("")
	directoryRoutes.Use(middleware.AuthMiddleware(cfg))
	directoryRoutes.Use(middleware.HROrAdmin())
	setupDirectoryRoutes(directoryRoutes, directoryHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (throttled)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupDeclareRoutes configures the public token-addressed routes
func setupDeclareRoutes(router fiber.Router, handler *handlers.DeclareHandler) {
	router.Get("/:token", handler.Resolve)
	router.Put("/:token/draft", handler.SaveDraft)
	router.Post("/:token/submit", handler.Submit)
}

// setupTaskRoutes configures task management routes
func setupTaskRoutes(router fiber.Router, handler *handlers.TaskHandler) {
	router.Post("/", handler.Issue)
	router.Post("/bulk", handler.IssueBulk)
	router.Get("/", handler.List)
	router.Put("/due-date", handler.ExtendDueDateBulk)
	router.Get("/:id", handler.GetByID)
	router.Put("/:id/due-date", handler.ExtendDueDate)
	router.Put("/:id/cancel", handler.Cancel)
	router.Post("/:id/resend-link", handler.ResendLink)
}

// setupReviewRoutes configures manager review routes
func setupReviewRoutes(router fiber.Router, handler *handlers.ReviewHandler) {
	router.Get("/pending", handler.Pending)
	router.Get("/badge", handler.Badge)
	router.Put("/:id/approve", handler.Approve)
	router.Put("/:id/reject", handler.Reject)
}

// setupSubmissionRoutes configures submission inspection routes
func setupSubmissionRoutes(router fiber.Router, handler *handlers.ReviewHandler) {
	router.Get("/:id", handler.GetSubmission)
	router.Get("/:id/chain", handler.Chain)
	router.Post("/:id/verify", handler.Verify)
	router.Get("/:id/verifications", handler.Verifications)
}

// setupCreditRoutes configures credit ledger routes
func setupCreditRoutes(router fiber.Router, handler *handlers.CreditHandler) {
	router.Get("/balance", handler.Balance)
	router.Post("/load", handler.Load)
	router.Get("/expiring", handler.Expiring)
	router.Get("/history", handler.History)
	router.Post("/sync", handler.Sync)
}

// setupDirectoryRoutes configures employee and template master data routes
func setupDirectoryRoutes(router fiber.Router, handler *handlers.DirectoryHandler) {
	router.Get("/employees", handler.ListEmployees)
	router.Post("/employees", handler.CreateEmployee)
	router.Get("/employees/:id", handler.GetEmployee)
	router.Get("/templates", middleware.MasterDataCache(), handler.ListTemplates)
	router.Post("/templates", handler.CreateTemplate)
}
