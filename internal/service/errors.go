package service

import "errors"

// 服务层错误分类
// 控制器只通过 errors.Is 匹配这些哨兵错误来决定 HTTP 状态码,
// 底层原因通过 %w 包装保留在错误链上用于诊断
var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 用户已存在
	ErrUserExists = errors.New("user already exists")
	// ErrTaskNotFound 指定作用域下任务不存在
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists 指定作用域下任务 ID 已存在
	ErrTaskExists = errors.New("task already exists")
	// ErrInvalidStatus 未知的任务状态值
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrInvalidScope 父级作用域解析失败
	ErrInvalidScope = errors.New("failed to resolve parent scope")
	// ErrPublishFailed 存储写入已成功但事件发布失败
	// 调用方必须把它理解为"任务已存在,通知是否送达不确定"
	ErrPublishFailed = errors.New("event publish failed")
)
