package bus

import "context"

// MultiPublisher 顺序扇出到多个发布器
// 所有发布器都会被调用,返回遇到的第一个错误
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher 创建组合发布器
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish 依次发布到每个发布器
func (p *MultiPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var firstErr error
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, topic, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
