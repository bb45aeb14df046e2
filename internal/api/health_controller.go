package api

import (
	"net/http"

	"github.com/brokenfulcrum/elixr-task-service/internal/database"
	"github.com/brokenfulcrum/elixr-task-service/internal/metrics"
	"github.com/brokenfulcrum/elixr-task-service/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db  *gorm.DB
	hub *websocket.Hub
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, hub *websocket.Hub) *HealthController {
	return &HealthController{db: db, hub: hub}
}

// Check 健康检查
// @Summary      健康检查
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]interface{})

	if database.CheckHealth(c.db) {
		checks["database"] = "healthy"
		// 顺带刷新连接池指标
		_ = metrics.UpdateDatabaseConnections(c.db)
	} else {
		status = "unhealthy"
		checks["database"] = "unhealthy"
	}

	if c.hub != nil {
		checks["event_subscribers"] = c.hub.ClientCount()
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status": status,
		"checks": checks,
	})
}
