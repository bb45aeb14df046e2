package utils

import (
	"errors"
	"regexp"
)

// 校验错误
var (
	ErrEmptyID     = errors.New("ID cannot be empty")
	ErrIDTooLong   = errors.New("ID too long (max 64 characters)")
	ErrIDMalformed = errors.New("ID contains invalid characters")
)

// idPattern 合法 ID: 字母、数字、下划线、中划线
// 斜杠被显式排除,否则会破坏父级作用域路径的推导
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID 校验用户 ID 或任务 ID
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(id) > 64 {
		return ErrIDTooLong
	}
	if !idPattern.MatchString(id) {
		return ErrIDMalformed
	}
	return nil
}
