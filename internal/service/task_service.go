package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/bus"
	"github.com/brokenfulcrum/elixr-task-service/internal/event"
	"github.com/brokenfulcrum/elixr-task-service/internal/metrics"
	"github.com/brokenfulcrum/elixr-task-service/internal/model"
	"github.com/brokenfulcrum/elixr-task-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// completionFieldMask task_complete 允许写入的字段
// 掩码之外的列(created_by、object_path、created_at、data)绝不被完成写入触碰
var completionFieldMask = []string{
	"status",
	"result",
	"duration_seconds",
	"updated_at",
	"last_publish_time",
}

// TaskService 任务生命周期服务接口
type TaskService interface {
	Create(ctx context.Context, req *CreateTaskRequest) (*model.Task, error)
	Complete(ctx context.Context, evt *event.TaskCompletedEvent) (*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	List(ctx context.Context, userID string) ([]*model.Task, error)
}

// CreateTaskRequest 创建任务请求
// @Description 创建任务的请求参数
type CreateTaskRequest struct {
	UserID     string          `json:"user_id" example:"u1" binding:"required"`        // 所属用户 ID
	TaskID     string          `json:"task_id" example:"t1" binding:"required"`        // 调用方提供的任务 ID,在用户作用域内唯一
	ObjectPath string          `json:"object_path" example:"gs://bucket/obj"`          // 外部制品位置
	TaskData   json.RawMessage `json:"task_data" swaggertype:"object"`                 // 任务负载,缺省为 {}
}

// taskService 任务生命周期服务实现
type taskService struct {
	users     repository.UserRepository
	tasks     repository.TaskRepository
	publisher bus.Publisher
	logger    *logrus.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(users repository.UserRepository, tasks repository.TaskRepository, publisher bus.Publisher, logger *logrus.Logger) TaskService {
	return &taskService{
		users:     users,
		tasks:     tasks,
		publisher: publisher,
		logger:    logger,
	}
}

// Create 创建任务
// 前置检查按序短路: 用户存在 -> 作用域可解析 -> 任务不重复,
// 之后先持久化再发布 TaskCreatedEvent。持久化失败不发布任何事件;
// 发布失败时任务已持久存在,错误照样返回给调用方
func (s *taskService) Create(ctx context.Context, req *CreateTaskRequest) (*model.Task, error) {
	exists, err := s.users.Exists(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user %q: %w", req.UserID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, req.UserID)
	}

	parent, err := repository.ParentPath(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	taskExists, err := s.tasks.Exists(ctx, parent, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to check task %q: %w", req.TaskID, err)
	}
	if taskExists {
		return nil, fmt.Errorf("%w: %s", ErrTaskExists, req.TaskID)
	}

	data := req.TaskData
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	now := time.Now().UTC().Truncate(time.Second)
	task := &model.Task{
		Parent:     parent,
		TaskID:     req.TaskID,
		Data:       data,
		ObjectPath: req.ObjectPath,
		CreatedBy:  req.UserID,
		Status:     model.StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		// 存储层唯一约束是并发创建者之间的最后仲裁
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrTaskExists, req.TaskID)
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	metrics.RecordTaskCreated()

	s.logger.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"task_id": req.TaskID,
	}).Info("task created")

	payload, err := json.Marshal(&event.TaskCreatedEvent{Task: task})
	if err != nil {
		return task, fmt.Errorf("%w: marshal: %v", ErrPublishFailed, err)
	}
	if err := s.publisher.Publish(ctx, event.TopicTaskCreated, payload); err != nil {
		// 任务已持久化,不回滚;调用方必须得知通知不保证送达
		return task, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	return task, nil
}

// Complete 接收外部 worker 的完成通知并持久化
// 只按字段掩码写入,不发布 TaskCompletedEvent:
// 完成事件由 worker 侧发出,本服务是该通知的消费方
func (s *taskService) Complete(ctx context.Context, evt *event.TaskCompletedEvent) (*model.Task, error) {
	status, err := model.ParseTaskStatus(evt.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	exists, err := s.users.Exists(ctx, evt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user %q: %w", evt.UserID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, evt.UserID)
	}

	parent, err := repository.ParentPath(evt.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	if _, err := s.tasks.FindByID(ctx, parent, evt.TaskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, evt.TaskID)
		}
		return nil, fmt.Errorf("failed to get task %q: %w", evt.TaskID, err)
	}

	partial := &model.Task{
		Status:          status,
		Result:          evt.Result,
		DurationSeconds: 0,
		UpdatedAt:       time.Now().UTC().Truncate(time.Second),
		LastPublishTime: nil, // 完成写入总是清空上次发布时间
	}
	updated, err := s.tasks.UpdateFields(ctx, parent, evt.TaskID, completionFieldMask, partial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, evt.TaskID)
		}
		return nil, fmt.Errorf("failed to update task %q: %w", evt.TaskID, err)
	}
	metrics.RecordTaskCompleted(status.String())

	s.logger.WithFields(logrus.Fields{
		"user_id": evt.UserID,
		"task_id": evt.TaskID,
		"status":  status.String(),
	}).Info("task completion recorded")

	return updated, nil
}

// Get 获取任务
func (s *taskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user %q: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	parent, err := repository.ParentPath(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	task, err := s.tasks.FindByID(ctx, parent, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get task %q: %w", taskID, err)
	}
	return task, nil
}

// List 列出用户的全部任务
func (s *taskService) List(ctx context.Context, userID string) ([]*model.Task, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user %q: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	parent, err := repository.ParentPath(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	tasks, err := s.tasks.FindByParent(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for %q: %w", userID, err)
	}
	return tasks, nil
}
