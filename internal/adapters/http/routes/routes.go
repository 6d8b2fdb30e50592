package routes

import (
	"time"

	"royal-collector/internal/adapters/http/handlers"
	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/config"
	"royal-collector/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Cases     *services.CaseService
	Ledger    *services.LedgerService
	Alerts    *services.AlertService
	Dashboard *services.DashboardService
}

// Setup configures all routes for the application. ping reports database health.
func Setup(app *fiber.App, cfg *config.Config, svc Services, ping func() error) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, ping)
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	userHandler := handlers.NewUserHandler(svc.Users)
	caseHandler := handlers.NewCaseHandler(svc.Cases)
	transactionHandler := handlers.NewTransactionHandler(svc.Ledger)
	alertHandler := handlers.NewAlertHandler(svc.Alerts)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)

	auth := middleware.AuthMiddleware(cfg, svc.Auth)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(time.Hour), swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.NoCacheHeaders())
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", auth, authHandler.Me)

	// User routes
	userRoutes := apiV1.Group("/users", auth)
	userRoutes.Get("/workers", userHandler.ListWorkers)
	userRoutes.Put("/me", userHandler.UpdateMe)
	userRoutes.Get("/", middleware.AdminOnly(), userHandler.ListUsers)
	userRoutes.Put("/:id", middleware.AdminOnly(), userHandler.UpdateUser)
	userRoutes.Put("/:id/verify", middleware.AdminOnly(), userHandler.VerifyUser)
	userRoutes.Delete("/:id", middleware.AdminOnly(), userHandler.DeleteUser)

	// Case routes; per-case authorization lives in the services
	caseRoutes := apiV1.Group("/cases", auth)
	caseRoutes.Post("/", caseHandler.CreateCase)
	caseRoutes.Get("/", caseHandler.ListCases)
	caseRoutes.Get("/:id", caseHandler.GetCase)
	caseRoutes.Put("/:id/status", middleware.AdminOnly(), caseHandler.UpdateCaseStatus)
	caseRoutes.Delete("/:id", caseHandler.DeleteCase)
	caseRoutes.Post("/:id/alert", caseHandler.SendReminder)

	// Transaction routes
	transactionRoutes := apiV1.Group("/transactions", auth)
	transactionRoutes.Post("/", transactionHandler.RecordTransaction)
	transactionRoutes.Get("/", transactionHandler.ListTransactions)
	transactionRoutes.Delete("/:id", middleware.AdminOnly(), transactionHandler.RevertTransaction)
	transactionRoutes.Put("/:id/verify", middleware.AdminOnly(), transactionHandler.VerifyTransaction)

	// Alert routes
	alertRoutes := apiV1.Group("/alerts", auth)
	alertRoutes.Get("/", alertHandler.ListAlerts)
	alertRoutes.Post("/", middleware.StaffOnly(), alertHandler.CreateAlert)
	alertRoutes.Put("/:id/stop", middleware.StaffOnly(), alertHandler.StopAlert)

	// Dashboard
	apiV1.Get("/dashboard", auth, dashboardHandler.GetDashboard)

	// Reports
	apiV1.Get("/reports/daily-collection", auth, dashboardHandler.DailyCollection)
}
