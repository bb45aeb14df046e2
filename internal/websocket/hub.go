package websocket

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub 管理所有事件订阅端(WebSocket 连接与 SSE 流)
type Hub struct {
	// clients 已注册的订阅端
	clients map[*Client]bool

	// Register 注册新订阅端
	Register chan *Client

	// Unregister 注销订阅端
	Unregister chan *Client

	// broadcast 广播到所有订阅端
	broadcast chan []byte

	logger *logrus.Logger

	// mu 保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Run 运行 Hub,由容器在独立 goroutine 中启动
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish 非阻塞广播
// Hub 队列满时丢弃消息并记录日志,不拖慢请求路径
func (h *Hub) Publish(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("hub broadcast queue full, dropping message")
	}
}

// ClientCount 获取订阅端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
