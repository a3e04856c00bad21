// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/Corphon/TaleWeaver/internal/config"
	"github.com/Corphon/TaleWeaver/internal/di"
	"github.com/Corphon/TaleWeaver/internal/services"
	"github.com/Corphon/TaleWeaver/internal/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	container := di.GetContainer()

	cfg, ok := container.Get("config").(*config.Config)
	if !ok {
		return nil, fmt.Errorf("配置未正确初始化")
	}

	// 只从容器获取服务，不创建新实例
	libraryService, ok := container.Get("library").(*services.LibraryService)
	if !ok {
		return nil, fmt.Errorf("故事库服务未正确初始化")
	}

	itemService, ok := container.Get("item").(*services.ItemService)
	if !ok {
		return nil, fmt.Errorf("物品服务未正确初始化")
	}

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("会话服务未正确初始化")
	}

	handler := NewHandler(libraryService, itemService, sessionService)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())
	r.Use(DefaultRateLimit())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// WebSocket 支持
	r.GET("/ws/session/:id", handler.SessionWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// ===============================
		// 故事相关路由
		// ===============================
		storiesGroup := api.Group("/stories")
		{
			storiesGroup.GET("", handler.GetStories)
			storiesGroup.POST("", handler.CreateStory)
			storiesGroup.POST("/import", handler.ImportStory)
			storiesGroup.GET("/:id", handler.GetStory)
			storiesGroup.DELETE("/:id", handler.DeleteStory)
			storiesGroup.GET("/:id/export", handler.ExportStory)

			// 故事编辑路由
			eventsGroup := storiesGroup.Group("/:id/events")
			{
				eventsGroup.POST("", handler.AddEvent)
				eventsGroup.DELETE("/:event_id", handler.DeleteEvent)
				eventsGroup.POST("/:event_id/first", handler.SetFirstEvent)
				eventsGroup.POST("/:event_id/options", handler.AddOption)
				eventsGroup.DELETE("/:event_id/options/:option_id", handler.DeleteOption)
			}

			// 物品模板路由
			itemsGroup := storiesGroup.Group("/:id/items")
			{
				itemsGroup.GET("", handler.GetItems)
				itemsGroup.POST("", handler.AddItem)
				itemsGroup.GET("/:item_id", handler.GetItem)
				itemsGroup.DELETE("/:item_id", handler.DeleteItem)
			}
		}

		// ===============================
		// 存档相关路由
		// ===============================
		savesGroup := api.Group("/saves")
		{
			savesGroup.GET("", handler.GetSaves)
			savesGroup.DELETE("/:title", handler.DeleteSave)
		}

		// ===============================
		// 游玩会话路由
		// ===============================
		sessionsGroup := api.Group("/sessions")
		{
			sessionsGroup.POST("", handler.StartSession)
			sessionsGroup.GET("/:id", handler.GetSessionState)
			sessionsGroup.POST("/:id/input", SessionRateLimit(), handler.HandleSessionInput)
			sessionsGroup.POST("/:id/save", handler.SaveSession)
			sessionsGroup.DELETE("/:id", handler.EndSession)
		}

		// 调试路由
		api.GET("/ws/status", handler.GetWebSocketStatus)
		api.GET("/metrics", func(c *gin.Context) {
			c.JSON(http.StatusOK, utils.GetMetricsCollector().GetMetrics())
		})
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
