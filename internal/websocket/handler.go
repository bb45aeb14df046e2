package websocket

import (
	"net/http"

	"github.com/brokenfulcrum/elixr-task-service/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin 校验交给前置的 CORS 层
		return true
	},
}

// Handler 事件流 WebSocket 处理器
// validator 非 nil 时要求 query 参数携带有效 token
func Handler(hub *Hub, validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")

		if validator != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			// token 主体优先于 query 参数
			if claims.Subject != "" {
				userID = claims.Subject
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		client := NewClient(uuid.New().String(), userID, hub, conn)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
