package router

import (
	"net/http"
	"time"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/handler"
	"github.com/cursolab/campus-backend/internal/middleware"
	"github.com/cursolab/campus-backend/internal/response"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Student    *handler.StudentHandler
	Course     *handler.CourseHandler
	Enrollment *handler.EnrollmentHandler
	Task       *handler.TaskHandler
	Dashboard  *handler.DashboardHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Reads are public; every mutation requires an operator JWT.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	requireOperator := middleware.RequireOperatorJWT(authService)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())

	// ─── 1. Auth (Rate Limited) ────────────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", requireOperator, handlers.Auth.Me)
	}

	// ─── 2. Students ───────────────────────────────────────────────────
	students := api.Group("/students")
	{
		students.GET("", handlers.Student.List)
		students.GET("/:id", handlers.Student.Get)
		students.POST("", requireOperator, handlers.Student.Create)
		students.PUT("/:id", requireOperator, handlers.Student.Update)
		students.DELETE("/:id", requireOperator, handlers.Student.Delete)
	}

	// ─── 3. Courses ────────────────────────────────────────────────────
	courses := api.Group("/courses")
	{
		courses.GET("", handlers.Course.List)
		courses.GET("/:id", handlers.Course.Get)
		courses.POST("", requireOperator, handlers.Course.Create)
		courses.PUT("/:id", requireOperator, handlers.Course.Update)
		courses.DELETE("/:id", requireOperator, handlers.Course.Delete)
	}

	// ─── 4. Enrollments ────────────────────────────────────────────────
	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", handlers.Enrollment.List)
		enrollments.GET("/passing", handlers.Enrollment.Passing)
		enrollments.GET("/overview", handlers.Enrollment.Overview)
		enrollments.POST("/overview/reload", requireOperator, handlers.Enrollment.ReloadOverview)
		enrollments.GET("/:id", handlers.Enrollment.Get)
		enrollments.POST("", requireOperator, handlers.Enrollment.Create)
		enrollments.PUT("/:id", requireOperator, handlers.Enrollment.Update)
		enrollments.DELETE("/:id", requireOperator, handlers.Enrollment.Delete)
	}

	// ─── 5. Tasks ──────────────────────────────────────────────────────
	tasks := api.Group("/tasks")
	{
		tasks.GET("", handlers.Task.List)
		tasks.POST("", requireOperator, handlers.Task.Create)
		tasks.PATCH("/:id/toggle", requireOperator, handlers.Task.Toggle)
		tasks.PUT("/:id", requireOperator, handlers.Task.Update)
		tasks.DELETE("/:id", requireOperator, handlers.Task.Delete)
	}

	// ─── 6. Dashboard ──────────────────────────────────────────────────
	api.GET("/dashboard", requireOperator, handlers.Dashboard.GetDashboardData)

	// ─── 7. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/changes", handlers.WS.Changes)
	}

	return router
}
