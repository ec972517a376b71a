package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/config"
	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
	"github.com/classbridge/records-admin-service/internal/handler/http/middleware"
	"github.com/classbridge/records-admin-service/internal/service"
	"github.com/classbridge/records-admin-service/internal/utils/metrics"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	AuthService    *service.AuthService
	TokenService   *service.TokenService
	AuditService   *service.AuditLogService
	RecordsService *service.RecordsService
	Users          repository.UserRepository
	RateLimiter    middleware.RateLimiter
	Registry       *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics
	Config         *config.Config
	Logger         *zap.Logger
}

// SetupRouter wires the middleware stack and all routes.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.CorsMiddleware(deps.Config.CORS.AllowedOrigins))
	router.Use(middleware.MetricsMiddleware(deps.HTTPMetrics))

	authHandler := NewAuthHandler(deps.Logger, deps.AuthService, deps.Config)
	sessionHandler := NewSessionHandler(deps.Logger, deps.TokenService, deps.AuditService)
	adminAuditHandler := NewAdminAuditHandler(deps.Logger, deps.AuditService)
	recordsHandler := NewRecordsHandler(deps.Logger, deps.RecordsService, deps.Users)

	router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login",
				middleware.RateLimitMiddleware(deps.RateLimiter, "login", deps.Config.RateLimit.Login, deps.Logger),
				authHandler.Login)
			auth.POST("/refresh-token",
				middleware.RateLimitMiddleware(deps.RateLimiter, "refresh", deps.Config.RateLimit.Refresh, deps.Logger),
				authHandler.Refresh)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(deps.AuthService, deps.Logger))
		{
			protectedAuth := protected.Group("/auth")
			{
				protectedAuth.POST("/logout", authHandler.Logout)
				protectedAuth.POST("/logout-all", authHandler.LogoutAll)
			}

			me := protected.Group("/me")
			{
				me.GET("/sessions", sessionHandler.ListSessions)
				me.GET("/sessions/:id", sessionHandler.GetSession)
				me.DELETE("/sessions/:id", sessionHandler.RevokeSession)
			}

			records := protected.Group("/")
			{
				districts := records.Group("/districts")
				{
					districts.GET("", recordsHandler.ListDistricts)
					districts.GET("/:id", recordsHandler.GetDistrict)
					districts.GET("/:id/cascade-info", recordsHandler.DistrictCascadeInfo)
					districts.POST("", middleware.RequireRoles(deps.Logger, entity.RoleAdmin), recordsHandler.CreateDistrict)
					districts.PUT("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin), recordsHandler.UpdateDistrict)
					districts.DELETE("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin), recordsHandler.DeleteDistrict)
				}

				schools := records.Group("/schools")
				{
					schools.GET("", recordsHandler.ListSchools)
					schools.GET("/:id", recordsHandler.GetSchool)
					schools.GET("/:id/cascade-info", recordsHandler.SchoolCascadeInfo)
					schools.POST("", middleware.RequireRoles(deps.Logger, entity.RoleAdmin, entity.RoleDistrictOfficer), recordsHandler.CreateSchool)
					schools.PUT("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin, entity.RoleDistrictOfficer), recordsHandler.UpdateSchool)
					schools.DELETE("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin), recordsHandler.DeleteSchool)
				}

				teachers := records.Group("/teachers")
				{
					teachers.GET("", recordsHandler.ListTeachers)
					teachers.GET("/:id", recordsHandler.GetTeacher)
					teachers.POST("", middleware.RequireRoles(deps.Logger, entity.RoleAdmin, entity.RoleDistrictOfficer, entity.RoleSchoolAdmin), recordsHandler.CreateTeacher)
					teachers.PUT("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin, entity.RoleDistrictOfficer, entity.RoleSchoolAdmin), recordsHandler.UpdateTeacher)
					teachers.DELETE("/:id", middleware.RequireRoles(deps.Logger, entity.RoleAdmin, entity.RoleDistrictOfficer), recordsHandler.DeleteTeacher)
				}
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRoles(deps.Logger, entity.RoleAdmin))
			{
				admin.GET("/audit-logs", adminAuditHandler.List)
				admin.GET("/audit-logs/stats", adminAuditHandler.Stats)
				admin.GET("/audit-logs/queue", adminAuditHandler.QueueStats)
				admin.PUT("/audit-logs/maintenance", adminAuditHandler.SetMaintenanceMode)
			}
		}
	}

	return router
}
