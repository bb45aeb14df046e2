package model

import "fmt"

// TaskStatus 任务状态
// 任务状态是一个封闭枚举,所有入站状态值必须先通过 ParseTaskStatus 校验
type TaskStatus string

const (
	// StatusQueued 已入队,create 创建的任务固定为该状态
	StatusQueued TaskStatus = "Queued"
	// StatusRunning 执行中
	StatusRunning TaskStatus = "Running"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed 已失败
	StatusFailed TaskStatus = "Failed"
)

// knownStatuses 已知状态集合
var knownStatuses = map[TaskStatus]bool{
	StatusQueued:    true,
	StatusRunning:   true,
	StatusCompleted: true,
	StatusFailed:    true,
}

// ParseTaskStatus 解析状态字符串
// 未知状态返回错误,调用方不应使用返回的零值
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !knownStatuses[status] {
		return "", fmt.Errorf("unknown task status: %q", s)
	}
	return status, nil
}

// Valid 检查状态是否为已知状态
func (s TaskStatus) Valid() bool {
	return knownStatuses[s]
}

// String 返回状态字符串
func (s TaskStatus) String() string {
	return string(s)
}
