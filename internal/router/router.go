package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Exam          *handler.ExamHandler
	Live          *handler.LiveHandler
	Result        *handler.ResultHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter guards the login endpoints; nil disables it.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		login := auth.Group("")
		if authLimiter != nil {
			login.Use(authLimiter.Middleware())
		}
		login.POST("/student/login", handlers.Auth.StudentLogin)
		login.POST("/admin/login", handlers.Auth.AdminLogin)

		// Logout only needs a well-formed token: a student whose session was
		// already replaced must still be able to leave cleanly.
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.POST("/admin/logout", middleware.RequireAdminJWT(authService), handlers.Auth.AdminLogout)

		auth.GET("/student/me",
			middleware.RequireStudentJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.GetStudentProfile,
		)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/live-exams", handlers.StudentPortal.ListLiveExams)
		studentAPI.POST("/exams/:exam_id/attempt", handlers.StudentPortal.StartAttempt)
		studentAPI.GET("/attempt", handlers.StudentPortal.GetAttempt)
		studentAPI.GET("/results", handlers.StudentPortal.ListResults)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempt/stream", handlers.WS.AttemptStream)
		ws.GET("/student/live", handlers.WS.LiveStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		exams := adminAPI.Group("/exams")
		{
			exams.GET("", middleware.RequirePermission(model.PermissionExamsRead), handlers.Exam.ListExams)
			exams.POST("", middleware.RequirePermission(model.PermissionExamsWrite), handlers.Exam.CreateExam)
			exams.GET("/:exam_id", middleware.RequirePermission(model.PermissionExamsRead), handlers.Exam.GetExam)
			exams.POST("/:exam_id/publish", middleware.RequirePermission(model.PermissionExamsPublish), handlers.Exam.PublishExam)
		}

		liveGroup := adminAPI.Group("/live")
		liveGroup.Use(middleware.RequirePermission(model.PermissionLiveControl))
		{
			liveGroup.GET("", handlers.Live.ListLive)
			liveGroup.POST("", handlers.Live.GoLive)
			liveGroup.GET("/available", handlers.Live.ListAvailable)
			liveGroup.GET("/stream", handlers.Live.StreamLive)
			liveGroup.DELETE("/:exam_id", handlers.Live.StopLive)
		}

		results := adminAPI.Group("/results")
		{
			results.GET("", middleware.RequireAnyPermission(model.PermissionResultsRead, model.PermissionResultsWrite), handlers.Result.ListResults)
			results.PUT("", middleware.RequirePermission(model.PermissionResultsWrite), handlers.Result.UpsertResult)
		}

		students := adminAPI.Group("/students")
		{
			students.GET("", middleware.RequirePermission(model.PermissionStudentsRead), handlers.StudentMgmt.ListStudents)
			students.POST("", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.StudentMgmt.CreateStudent)
			students.POST("/:id/reset-session", middleware.RequirePermission(model.PermissionStudentsWrite), handlers.StudentMgmt.ResetStudentSession)
		}

		adminAPI.GET("/system", middleware.RequirePermission(model.PermissionLiveControl), handlers.System.Status)
	}

	return router
}
