package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/auth"
	"github.com/brokenfulcrum/elixr-task-service/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// heartbeatInterval SSE 心跳间隔,保持代理层不断开空闲连接
const heartbeatInterval = 30 * time.Second

// SSEHandler 生命周期事件 SSE 流
// 订阅端收到的是 bus 发布的事件帧;validator 非 nil 时要求有效 token
func SSEHandler(hub *websocket.Hub, validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validator != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			if _, err := validator.ValidateToken(token); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲

		// 以无连接订阅端的身份挂到 Hub 上
		client := websocket.NewClient(uuid.New().String(), c.Query("user_id"), hub, nil)
		hub.Register <- client
		defer func() {
			hub.Unregister <- client
		}()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case message, ok := <-client.Send:
				if !ok {
					return
				}
				fmt.Fprintf(c.Writer, "data: %s\n\n", message)
				flusher.Flush()
			case <-ticker.C:
				fmt.Fprintf(c.Writer, ": heartbeat %d\n\n", time.Now().Unix())
				flusher.Flush()
			}
		}
	}
}
