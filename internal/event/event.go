package event

import (
	"encoding/json"

	"github.com/brokenfulcrum/elixr-task-service/internal/model"
)

// 事件主题,与事件类型同名
const (
	TopicTaskCreated   = "TaskCreatedEvent"
	TopicTaskCompleted = "TaskCompletedEvent"
	TopicUserCreated   = "UserCreatedEvent"
)

// TaskCreatedEvent 任务创建事件
// 任务持久化成功后发布,携带完整任务快照
type TaskCreatedEvent struct {
	Task *model.Task `json:"task"`
}

// TaskCompletedEvent 任务完成事件
// 既是下游消费的事件结构,也是 complete 接口的入站请求体:
// 本服务是完成通知的接收方而不是发布方
type TaskCompletedEvent struct {
	UserID string          `json:"user_id" binding:"required"`
	TaskID string          `json:"task_id" binding:"required"`
	Status string          `json:"status" binding:"required"`
	Result json.RawMessage `json:"result"`
}

// UserInfo 用户标识
type UserInfo struct {
	UserID string `json:"user_id" binding:"required"`
}

// UserCreatedEvent 用户创建事件(仅入站),触发用户落库
type UserCreatedEvent struct {
	User *UserInfo `json:"user" binding:"required"`
}
