package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"elective-helper/config"
	"elective-helper/internal/api/handler"
	"elective-helper/internal/api/middleware"
	"elective-helper/pkg/jwt"
	"elective-helper/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		blacklist middleware.BlacklistChecker
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db, rdb))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 纯计算接口（无需会话）
		v1.POST("/segments/parse", h.Elective.ParseSegments)
		v1.POST("/conflicts/detect", h.Elective.DetectConflicts)

		// 会话模块（无需认证）
		v1.POST("/sessions", h.Session.CreateSession)

		// 需要会话的路由
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(jwtMgr, blacklist))
		{
			authorized.DELETE("/sessions/current", h.Session.RevokeSession)

			// 页面分析（每次页面加载调用一次）
			authorized.POST("/pages/analyze",
				middleware.RateLimit(limiter, cfg.RateLimit.AnalyzeLimit, cfg.RateLimit.AnalyzeWindow),
				h.Elective.AnalyzePage,
			)

			// 已选课程快照
			snapshot := authorized.Group("/snapshot")
			{
				snapshot.GET("", h.Elective.GetSnapshot)
				snapshot.PUT("", h.Elective.SaveSnapshot)
				snapshot.DELETE("", h.Elective.ClearSnapshot)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/timetable.xlsx", h.Export.ExportTimetable)
				export.GET("/timetable.ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

// healthCheck 数据库必须可用；Redis 仅报告状态
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		code := http.StatusOK

		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				status["status"] = "degraded"
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				status["redis"] = "unavailable"
			}
		}

		c.JSON(code, status)
	}
}
