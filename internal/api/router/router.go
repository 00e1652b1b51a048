package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"weekly-planner/config"
	"weekly-planner/internal/api/handler"
	"weekly-planner/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时（Redis 不可用）写接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	writeLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)

	api := r.Group("/api")
	{
		// 周计划模块
		schedules := api.Group("/schedules")
		{
			schedules.GET("", h.Schedule.ListSchedules)
			schedules.POST("", writeLimit, h.Schedule.CreateSchedule)
			schedules.GET("/templates/all", h.Schedule.ListTemplates)
			schedules.GET("/:id", h.Schedule.GetSchedule)
			schedules.PUT("/:id", writeLimit, h.Schedule.UpdateSchedule)
			schedules.DELETE("/:id", writeLimit, h.Schedule.DeleteSchedule)
			schedules.POST("/:id/timeslots", writeLimit, h.Schedule.AddTimeSlot)
			schedules.DELETE("/:id/timeslots", writeLimit, h.Schedule.RemoveTimeSlot)
			schedules.GET("/:id/stats", h.Schedule.GetStats)
			schedules.GET("/:id/export", h.Schedule.ExportSchedule)
		}
	}

	return r
}
