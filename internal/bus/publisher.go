package bus

import "context"

// Publisher 事件发布器
// 核心在存储写入成功之后才调用 Publish;发布失败必须向上返回,
// 调用方据此知道"状态已持久化但通知不保证送达"
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
