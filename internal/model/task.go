package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Task 任务数据模型
// 使用 (parent, task_id) 联合主键,任务 ID 仅在所属用户作用域内唯一
type Task struct {
	Parent          string          `gorm:"primaryKey;type:varchar(128)" json:"-"`
	TaskID          string          `gorm:"primaryKey;type:varchar(64)" json:"task_id"`
	Data            json.RawMessage `gorm:"type:jsonb;not null" json:"data"`
	ObjectPath      string          `gorm:"type:varchar(255)" json:"object_path"`
	CreatedBy       string          `gorm:"type:varchar(64);not null;index" json:"created_by"` // 创建后不再变更
	Status          TaskStatus      `gorm:"type:varchar(32);not null;index" json:"status"`
	Result          json.RawMessage `gorm:"type:jsonb" json:"result"`
	DurationSeconds int64           `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;index" json:"updated_at"`
	LastPublishTime *time.Time      `json:"last_publish_time"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (t *Task) Validate() error {
	if t.Parent == "" {
		return errors.New("task parent scope is required")
	}
	if t.TaskID == "" {
		return errors.New("task ID is required")
	}
	if t.CreatedBy == "" {
		return errors.New("task creator is required")
	}
	if !t.Status.Valid() {
		return errors.New("task status is invalid")
	}
	return nil
}
