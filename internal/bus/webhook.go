package bus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultPublishTimeout 默认推送超时
const defaultPublishTimeout = 10 * time.Second

// WebhookPublisher 通过 HTTP Webhook 发布事件
type WebhookPublisher struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewWebhookPublisher 创建 Webhook 发布器
func NewWebhookPublisher(endpoint string, timeout time.Duration, logger *logrus.Logger) *WebhookPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &WebhookPublisher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Publish 推送事件到 Webhook
// 传输错误或非 2xx 响应都视为发布失败
func (p *WebhookPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		metrics.RecordEventPublished(topic, false)
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", topic)
	req.Header.Set("X-Event-ID", uuid.New().String())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.RecordEventPublished(topic, false)
		p.logger.WithFields(logrus.Fields{
			"topic":    topic,
			"endpoint": p.endpoint,
		}).WithError(err).Error("failed to publish event")
		return fmt.Errorf("failed to publish event %q: %w", topic, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordEventPublished(topic, false)
		p.logger.WithFields(logrus.Fields{
			"topic":    topic,
			"endpoint": p.endpoint,
			"status":   resp.StatusCode,
		}).Error("webhook rejected event")
		return fmt.Errorf("webhook rejected event %q: status %d", topic, resp.StatusCode)
	}

	metrics.RecordEventPublished(topic, true)
	p.logger.WithFields(logrus.Fields{
		"topic":    topic,
		"endpoint": p.endpoint,
	}).Debug("event published")
	return nil
}
