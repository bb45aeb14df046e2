package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/event"
	"github.com/brokenfulcrum/elixr-task-service/internal/model"
	"github.com/brokenfulcrum/elixr-task-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserService 用户服务接口
// 用户由外部的 UserCreatedEvent 触发落库,本服务不做更多账号管理
type UserService interface {
	Create(ctx context.Context, evt *event.UserCreatedEvent) error
}

// userService 用户服务实现
type userService struct {
	users  repository.UserRepository
	logger *logrus.Logger
}

// NewUserService 创建用户服务
func NewUserService(users repository.UserRepository, logger *logrus.Logger) UserService {
	return &userService{users: users, logger: logger}
}

// Create 根据用户创建事件落库
// 已存在返回 ErrUserExists,文档只含占位的空任务列表
func (s *userService) Create(ctx context.Context, evt *event.UserCreatedEvent) error {
	if evt.User == nil || evt.User.UserID == "" {
		return errors.New("user ID is required")
	}
	userID := evt.User.UserID

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check user %q: %w", userID, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrUserExists, userID)
	}

	now := time.Now().UTC().Truncate(time.Second)
	user := &model.User{
		UserID:    userID,
		Tasks:     json.RawMessage(`[]`),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrUserExists, userID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("user created")
	return nil
}
