package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/brokenfulcrum/elixr-task-service/internal/bus"
	"github.com/brokenfulcrum/elixr-task-service/internal/event"
	"github.com/brokenfulcrum/elixr-task-service/internal/model"
	"github.com/brokenfulcrum/elixr-task-service/internal/repository"
	"github.com/brokenfulcrum/elixr-task-service/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// publishCall 一次发布调用的记录
type publishCall struct {
	Topic   string
	Payload []byte
}

// recordingPublisher 记录发布调用顺序的发布器
type recordingPublisher struct {
	calls []publishCall
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.calls = append(p.calls, publishCall{Topic: topic, Payload: payload})
	return p.err
}

// failingTaskRepo 持久化必定失败的任务仓储,用于验证发布顺序
type failingTaskRepo struct {
	repository.TaskRepository
}

func (r *failingTaskRepo) Create(ctx context.Context, task *model.Task) error {
	return errors.New("store connectivity failure")
}

// testLogger 静默日志
func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupService 构造测试服务,返回服务与底层依赖
func setupService(t *testing.T) (service.TaskService, service.UserService, repository.TaskRepository, *recordingPublisher) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Task{}))

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	publisher := &recordingPublisher{}
	taskSvc := service.NewTaskService(userRepo, taskRepo, publisher, testLogger())
	userSvc := service.NewUserService(userRepo, testLogger())
	return taskSvc, userSvc, taskRepo, publisher
}

// createUser 落库一个测试用户
func createUser(t *testing.T, userSvc service.UserService, userID string) {
	err := userSvc.Create(context.Background(), &event.UserCreatedEvent{
		User: &event.UserInfo{UserID: userID},
	})
	require.NoError(t, err)
}

// TestTaskService_Create 场景 A: 创建任务成功
func TestTaskService_Create(t *testing.T) {
	taskSvc, userSvc, _, publisher := setupService(t)
	createUser(t, userSvc, "u1")

	task, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID:     "u1",
		TaskID:     "t1",
		ObjectPath: "gs://x",
	})
	require.NoError(t, err)

	assert.Equal(t, "t1", task.TaskID)
	assert.Equal(t, "u1", task.CreatedBy)
	assert.Equal(t, model.StatusQueued, task.Status)
	assert.Equal(t, "gs://x", task.ObjectPath)
	assert.JSONEq(t, `{}`, string(task.Data)) // 缺省负载
	assert.True(t, task.CreatedAt.Equal(task.UpdatedAt))

	// 持久化成功后恰好发布一次 TaskCreatedEvent
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, event.TopicTaskCreated, publisher.calls[0].Topic)

	var evt event.TaskCreatedEvent
	require.NoError(t, json.Unmarshal(publisher.calls[0].Payload, &evt))
	assert.Equal(t, "t1", evt.Task.TaskID)
}

// TestTaskService_Create_UserNotFound 测试用户不存在
func TestTaskService_Create_UserNotFound(t *testing.T) {
	taskSvc, _, _, publisher := setupService(t)

	_, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "ghost",
		TaskID: "t1",
	})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
	assert.Empty(t, publisher.calls)
}

// TestTaskService_Create_Conflict 场景 B: 重复创建返回冲突且只保留一条记录
func TestTaskService_Create_Conflict(t *testing.T) {
	taskSvc, userSvc, taskRepo, publisher := setupService(t)
	createUser(t, userSvc, "u1")

	_, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1", ObjectPath: "gs://x",
	})
	require.NoError(t, err)

	_, err = taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1", ObjectPath: "gs://y",
	})
	assert.ErrorIs(t, err, service.ErrTaskExists)

	// 存储里仍然只有一条 t1,且保持首次创建的内容
	tasks, err := taskRepo.FindByParent(context.Background(), "users/u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "gs://x", tasks[0].ObjectPath)

	// 冲突的创建不发布事件
	assert.Len(t, publisher.calls, 1)
}

// TestTaskService_Create_PersistFailure 持久化失败时绝不发布事件
func TestTaskService_Create_PersistFailure(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Task{}))

	userRepo := repository.NewUserRepository(db)
	publisher := &recordingPublisher{}
	taskSvc := service.NewTaskService(userRepo,
		&failingTaskRepo{repository.NewTaskRepository(db)}, publisher, testLogger())
	userSvc := service.NewUserService(userRepo, testLogger())
	createUser(t, userSvc, "u1")

	_, err = taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1",
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrPublishFailed)
	assert.Empty(t, publisher.calls)
}

// TestTaskService_Create_PublishFailure 发布失败时任务已持久化,错误照样返回
func TestTaskService_Create_PublishFailure(t *testing.T) {
	taskSvc, userSvc, taskRepo, publisher := setupService(t)
	createUser(t, userSvc, "u1")
	publisher.err = errors.New("bus unreachable")

	task, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1",
	})
	assert.ErrorIs(t, err, service.ErrPublishFailed)
	assert.NotNil(t, task)

	// 任务已持久存在,失败响应不代表没有副作用
	found, err := taskRepo.FindByID(context.Background(), "users/u1", "t1")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusQueued, found.Status)
}

// TestTaskService_Complete 场景 C: 完成任务并验证字段掩码隔离
func TestTaskService_Complete(t *testing.T) {
	taskSvc, userSvc, _, publisher := setupService(t)
	createUser(t, userSvc, "u1")

	created, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID:     "u1",
		TaskID:     "t1",
		ObjectPath: "gs://x",
		TaskData:   json.RawMessage(`{"input":1}`),
	})
	require.NoError(t, err)

	updated, err := taskSvc.Complete(context.Background(), &event.TaskCompletedEvent{
		UserID: "u1",
		TaskID: "t1",
		Status: "Completed",
		Result: json.RawMessage(`{"ok":true}`),
	})
	require.NoError(t, err)

	// 掩码内字段已写入
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.JSONEq(t, `{"ok":true}`, string(updated.Result))
	assert.Equal(t, int64(0), updated.DurationSeconds)
	assert.Nil(t, updated.LastPublishTime)

	// 掩码外字段保持创建时的值
	assert.Equal(t, "u1", updated.CreatedBy)
	assert.Equal(t, "gs://x", updated.ObjectPath)
	assert.JSONEq(t, `{"input":1}`, string(updated.Data))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	// 完成路径不发布事件: 本服务是完成通知的消费方
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, event.TopicTaskCreated, publisher.calls[0].Topic)
}

// TestTaskService_Complete_InvalidStatus 场景 E: 未知状态被拒绝且不产生任何写入
func TestTaskService_Complete_InvalidStatus(t *testing.T) {
	taskSvc, userSvc, taskRepo, _ := setupService(t)
	createUser(t, userSvc, "u1")

	_, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1",
	})
	require.NoError(t, err)

	_, err = taskSvc.Complete(context.Background(), &event.TaskCompletedEvent{
		UserID: "u1", TaskID: "t1", Status: "BOGUS",
	})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	// 重新读取确认状态未被改动
	found, err := taskRepo.FindByID(context.Background(), "users/u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, found.Status)
}

// TestTaskService_Complete_TaskNotFound 场景 D: 完成从未创建的任务
func TestTaskService_Complete_TaskNotFound(t *testing.T) {
	taskSvc, userSvc, _, _ := setupService(t)
	createUser(t, userSvc, "u1")

	_, err := taskSvc.Complete(context.Background(), &event.TaskCompletedEvent{
		UserID: "u1", TaskID: "never-created", Status: "Completed",
	})
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

// TestTaskService_Complete_UserNotFound 测试完成时用户不存在
func TestTaskService_Complete_UserNotFound(t *testing.T) {
	taskSvc, _, _, _ := setupService(t)

	_, err := taskSvc.Complete(context.Background(), &event.TaskCompletedEvent{
		UserID: "ghost", TaskID: "t1", Status: "Completed",
	})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

// TestTaskService_Get 测试读取任务
func TestTaskService_Get(t *testing.T) {
	taskSvc, userSvc, _, _ := setupService(t)
	createUser(t, userSvc, "u1")

	_, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
		UserID: "u1", TaskID: "t1",
	})
	require.NoError(t, err)

	task, err := taskSvc.Get(context.Background(), "u1", "t1")
	assert.NoError(t, err)
	assert.Equal(t, "t1", task.TaskID)

	_, err = taskSvc.Get(context.Background(), "u1", "t404")
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

// TestTaskService_List 测试列出任务
func TestTaskService_List(t *testing.T) {
	taskSvc, userSvc, _, _ := setupService(t)
	createUser(t, userSvc, "u1")

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := taskSvc.Create(context.Background(), &service.CreateTaskRequest{
			UserID: "u1", TaskID: id,
		})
		require.NoError(t, err)
	}

	tasks, err := taskSvc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, tasks, 3)

	_, err = taskSvc.List(context.Background(), "ghost")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

// 确保 bus.Publisher 接口被测试替身满足
var _ bus.Publisher = (*recordingPublisher)(nil)
