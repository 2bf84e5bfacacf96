package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/workstead/workstead/internal/auth"
	"github.com/workstead/workstead/internal/handlers"
	"github.com/workstead/workstead/internal/middleware"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/mail"
)

// Dependencies carries everything the router needs to wire its handlers.
type Dependencies struct {
	DB        *gorm.DB
	JWT       *iauth.JWTService
	Executor  *query.Executor
	Mailer    mail.Mailer
	RateStore middleware.RateStore

	Auth      *services.AuthService
	Users     *services.UserService
	Companies *services.CompanyService
	Tasks     *services.TaskService
	Reports   *services.ReportService
	Dashboard *services.DashboardService
	Reset     *services.PasswordResetService

	// RateLimit is requests per window per client IP and path.
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("query executor must be provided")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer must be provided")
	}

	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	rateWindow := deps.RateLimitWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(deps.RateStore, rateLimit, rateWindow))

	// Health and metrics endpoints (public)
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler, err := handlers.NewAuthHandler(deps.Auth, deps.Users, deps.Reset)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
		auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	emailHandler, err := handlers.NewEmailHandler(deps.Mailer)
	if err != nil {
		return nil, err
	}

	requireAuth := middleware.Auth(deps.JWT)
	anyAdmin := middleware.RequireRole(models.RoleSuperAdmin, models.RoleCompanyAdmin)

	// The email proxy sits outside /api but still requires a session.
	r.POST("/send-email", requireAuth, emailHandler.Send)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	companyHandler, err := handlers.NewCompanyHandler(deps.Companies, deps.Executor)
	if err != nil {
		return nil, err
	}
	companies := api.Group("/companies")
	{
		companies.GET("", companyHandler.List)
		companies.GET("/:id", companyHandler.Get)
		companies.POST("", middleware.RequireRole(models.RoleSuperAdmin), companyHandler.Create)
		companies.PATCH("/:id", anyAdmin, companyHandler.Update)
		companies.DELETE("/:id", middleware.RequireRole(models.RoleSuperAdmin), companyHandler.Delete)
	}

	userHandler, err := handlers.NewUserHandler(deps.Users, deps.Executor)
	if err != nil {
		return nil, err
	}
	users := api.Group("/users")
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", anyAdmin, userHandler.Create)
		users.PATCH("/:id", userHandler.Update)
		users.DELETE("/:id", anyAdmin, userHandler.Delete)
	}

	taskHandler, err := handlers.NewTaskHandler(deps.Tasks, deps.Executor)
	if err != nil {
		return nil, err
	}
	tasks := api.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.GET("/:id", taskHandler.Get)
		tasks.POST("", anyAdmin, taskHandler.Create)
		tasks.PATCH("/:id", taskHandler.Update)
		tasks.DELETE("/:id", anyAdmin, taskHandler.Delete)
	}

	reportHandler, err := handlers.NewReportHandler(deps.Reports, deps.Executor)
	if err != nil {
		return nil, err
	}
	reports := api.Group("/reports")
	{
		accident := reports.Group("/accident")
		{
			accident.GET("", reportHandler.ListAccidents)
			accident.GET("/:id", reportHandler.GetAccident)
			accident.POST("", reportHandler.CreateAccident)
			accident.PATCH("/:id", reportHandler.UpdateAccident)
			accident.POST("/:id/submit", reportHandler.SubmitAccident)
			accident.POST("/:id/approve", anyAdmin, reportHandler.ApproveAccident)
			accident.DELETE("/:id", reportHandler.DeleteAccident)
		}

		illness := reports.Group("/illness")
		{
			illness.GET("", reportHandler.ListIllnesses)
			illness.GET("/:id", reportHandler.GetIllness)
			illness.POST("", reportHandler.CreateIllness)
			illness.PATCH("/:id", reportHandler.UpdateIllness)
			illness.POST("/:id/submit", reportHandler.SubmitIllness)
			illness.POST("/:id/approve", anyAdmin, reportHandler.ApproveIllness)
			illness.DELETE("/:id", reportHandler.DeleteIllness)
		}

		departure := reports.Group("/departure")
		{
			departure.GET("", reportHandler.ListDepartures)
			departure.GET("/:id", reportHandler.GetDeparture)
			departure.POST("", reportHandler.CreateDeparture)
			departure.PATCH("/:id", reportHandler.UpdateDeparture)
			departure.POST("/:id/submit", reportHandler.SubmitDeparture)
			departure.POST("/:id/approve", anyAdmin, reportHandler.ApproveDeparture)
			departure.DELETE("/:id", reportHandler.DeleteDeparture)
		}
	}

	dashboardHandler, err := handlers.NewDashboardHandler(deps.Dashboard, deps.Executor)
	if err != nil {
		return nil, err
	}
	api.GET("/dashboard/summary", dashboardHandler.Summary)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
