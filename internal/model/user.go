package model

import (
	"encoding/json"
	"errors"
	"time"
)

// User 用户数据模型
// 用户由外部的 UserCreatedEvent 创建,本服务只写入一次,从不删除
type User struct {
	UserID string `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	// Tasks 占位字段,保留与历史文档结构的兼容,当前未使用
	Tasks     json.RawMessage `gorm:"type:jsonb;not null" json:"tasks"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (u *User) Validate() error {
	if u.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}
