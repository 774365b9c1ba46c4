package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"user-center/internal/config"
	"user-center/internal/middleware"
	"user-center/internal/model"
	"user-center/internal/pkg/logging"
	"user-center/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(r *gin.Engine, logger *logging.AuditLogger) {
	cfg := config.Get()

	// 全局中间件：关联 ID 最先挂上，日志与恢复都依赖它
	r.Use(middleware.Correlation())
	if cfg.Security.EnableSecurityHeaders {
		r.Use(middleware.SecurityHeaders())
	}
	r.Use(middleware.Actor(cfg.JWT.Secret))
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.SQLCapture(logger))
	r.Use(middleware.Recovery(logger))

	// 速率限制器
	limiter := middleware.NewRateLimiter(cfg.Security.RateLimit, time.Minute)
	writeLimiter := middleware.NewRateLimiter(cfg.Security.WriteRateLimit, time.Minute)
	writeLimit := middleware.RateLimit(writeLimiter, cfg.Security.RetryAfterSecs)
	r.Use(middleware.RateLimit(limiter, cfg.Security.RetryAfterSecs))

	svc := service.NewUserService(model.DB, logger)
	userHandler := NewUserHandler(svc, logger)
	healthHandler := NewHealthHandler()
	auditHandler := NewAuditHandler(logger)

	// 健康检查
	r.GET("/health", healthHandler.Health)

	// 当前认证用户
	r.GET("/user", userHandler.Current)

	// 用户管理
	users := r.Group("/users")
	{
		users.GET("", userHandler.List)
		users.GET("/search", userHandler.Search)
		users.GET("/stats", userHandler.Stats)
		users.GET("/:id", userHandler.Show) // 路径参数是用户编号

		users.POST("", writeLimit, userHandler.Create)
		users.PUT("/:id", writeLimit, userHandler.Update)
		users.DELETE("/:id", writeLimit, userHandler.Delete)
		users.DELETE("/:id/force", writeLimit, userHandler.ForceDelete)
		users.POST("/:id/restore", writeLimit, userHandler.Restore)
		users.POST("/:id/enable", writeLimit, userHandler.Enable)
		users.POST("/:id/disable", writeLimit, userHandler.Disable)
		users.POST("/:id/lock", writeLimit, userHandler.Lock)
		users.POST("/:id/unlock", writeLimit, userHandler.Unlock)
		users.POST("/bulk-delete", writeLimit, userHandler.BulkDelete)
	}

	// 审计日志
	audit := r.Group("/audit-logs")
	{
		audit.GET("", auditHandler.List)
		audit.GET("/stats", auditHandler.Stats)
	}
}
