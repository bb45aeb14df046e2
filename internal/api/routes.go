package api

import (
	"net/http"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/auth"
	"github.com/brokenfulcrum/elixr-task-service/internal/config"
	"github.com/brokenfulcrum/elixr-task-service/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	DB             *gorm.DB
	Hub            *websocket.Hub
	TokenValidator *auth.TokenValidator
	TaskController *TaskController
	UserController *UserController
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, deps *RouterDeps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: false,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	// 健康检查
	healthController := NewHealthController(deps.DB, deps.Hub)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 事件流端点: WebSocket 与 SSE 都是事件总线的订阅面
	if deps.Hub != nil {
		router.GET("/ws/events", websocket.Handler(deps.Hub, deps.TokenValidator))
		router.GET("/sse/events", SSEHandler(deps.Hub, deps.TokenValidator))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", deps.TaskController.Create)
			tasks.POST("/complete", deps.TaskController.Complete)
		}

		users := v1.Group("/users")
		{
			users.POST("", deps.UserController.Create)
			users.GET("/:user_id/tasks", deps.TaskController.List)
			users.GET("/:user_id/tasks/:task_id", deps.TaskController.Get)
		}
	}

	// 未匹配的路由返回 JSON 404 而不是 HTML
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
