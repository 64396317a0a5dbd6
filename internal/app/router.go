package app

import (
	"english_bot_backend/internal/config"
	"english_bot_backend/internal/middleware"
	"english_bot_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 消息网关接入面
	router.GET("/", c.health.Root)
	router.POST("/webhook", c.webhook.Handle)

	// 运维面
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.Health)

		admin := api.Group("/admin")
		{
			admin.POST("/login", c.auth.Login)

			authorized := admin.Group("")
			authorized.Use(middleware.AuthMiddleware(cfg))
			{
				authorized.GET("/lessons", c.lesson.ListLessons)
				authorized.POST("/lessons", c.lesson.CreateLesson)
				authorized.GET("/lessons/:id", c.lesson.GetLesson)
				authorized.PUT("/lessons/:id", c.lesson.UpdateLesson)
				authorized.DELETE("/lessons/:id", c.lesson.DeleteLesson)
				authorized.GET("/sessions", c.lesson.ListSessions)
			}
		}
	}
}
