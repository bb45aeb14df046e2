package bus

import (
	"context"
	"encoding/json"

	"github.com/brokenfulcrum/elixr-task-service/internal/metrics"
	"github.com/brokenfulcrum/elixr-task-service/internal/websocket"
	"github.com/google/uuid"
)

// Frame 推送给订阅端的事件帧
type Frame struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// HubPublisher 把事件广播给所有 WebSocket/SSE 订阅端
// 广播是尽力而为的,订阅端掉线不算发布失败
type HubPublisher struct {
	hub *websocket.Hub
}

// NewHubPublisher 创建 Hub 发布器
func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Publish 广播事件帧
func (p *HubPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	frame := Frame{
		ID:      uuid.New().String(),
		Topic:   topic,
		Payload: payload,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	p.hub.Publish(data)
	metrics.RecordEventPublished(topic, true)
	return nil
}
