package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brokenfulcrum/elixr-task-service/internal/api"
	"github.com/brokenfulcrum/elixr-task-service/internal/config"
	"github.com/brokenfulcrum/elixr-task-service/internal/model"
	"github.com/brokenfulcrum/elixr-task-service/internal/repository"
	"github.com/brokenfulcrum/elixr-task-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// nopPublisher 丢弃所有事件的发布器
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return nil
}

// testConfig 路由测试配置
func testConfig() *config.Config {
	return &config.Config{
		Env: "development",
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			MaxAge:         3600,
		},
	}
}

// setupTestRouter 构造带内存数据库的完整路由
func setupTestRouter(t *testing.T) (*gin.Engine, repository.TaskRepository) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Task{}))

	log := logrus.New()
	log.SetOutput(io.Discard)
	api.SetLogger(log)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	taskSvc := service.NewTaskService(userRepo, taskRepo, nopPublisher{}, log)
	userSvc := service.NewUserService(userRepo, log)

	router := api.SetupRoutes(testConfig(), &api.RouterDeps{
		DB:             db,
		TaskController: api.NewTaskController(taskSvc),
		UserController: api.NewUserController(userSvc),
	})
	return router, taskRepo
}

// doJSON 发送 JSON 请求并返回响应
func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// seedUser 通过接口创建用户
func seedUser(t *testing.T, router *gin.Engine, userID string) {
	w := doJSON(router, http.MethodPost, "/api/v1/users", gin.H{
		"user": gin.H{"user_id": userID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

// TestTaskAPI_Create 测试创建任务接口
func TestTaskAPI_Create(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedUser(t, router, "u1")

	w := doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id":     "u1",
		"task_id":     "t1",
		"object_path": "gs://bucket/obj",
		"task_data":   gin.H{"input": 1},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "t1", data["task_id"])
	assert.Equal(t, "Queued", data["status"])
	assert.Equal(t, "u1", data["created_by"])
	// parent 是内部作用域,不外泄
	assert.NotContains(t, data, "parent")
}

// TestTaskAPI_Create_MissingFields 缺少必填字段返回 400
func TestTaskAPI_Create_MissingFields(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestTaskAPI_Create_UserNotFound 用户不存在返回 404
func TestTaskAPI_Create_UserNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id": "ghost",
		"task_id": "t1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTaskAPI_Create_Duplicate 重复任务返回 409
func TestTaskAPI_Create_Duplicate(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedUser(t, router, "u1")

	body := gin.H{"user_id": "u1", "task_id": "t1"}
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/tasks", body).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/tasks", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestTaskAPI_Complete 测试完成任务接口
func TestTaskAPI_Complete(t *testing.T) {
	router, taskRepo := setupTestRouter(t)
	seedUser(t, router, "u1")
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id":     "u1",
		"task_id":     "t1",
		"object_path": "gs://bucket/obj",
	}).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/tasks/complete", gin.H{
		"user_id": "u1",
		"task_id": "t1",
		"status":  "Failed",
		"result":  gin.H{"error": "worker crashed"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 数据库里掩码内字段已更新,掩码外字段原样
	task, err := taskRepo.FindByID(context.Background(), "users/u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, task.Status)
	assert.JSONEq(t, `{"error":"worker crashed"}`, string(task.Result))
	assert.Equal(t, int64(0), task.DurationSeconds)
	assert.Equal(t, "gs://bucket/obj", task.ObjectPath)
	assert.Equal(t, "u1", task.CreatedBy)
}

// TestTaskAPI_Complete_InvalidStatus 未知状态返回 400 且任务不被改动
func TestTaskAPI_Complete_InvalidStatus(t *testing.T) {
	router, taskRepo := setupTestRouter(t)
	seedUser(t, router, "u1")
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id": "u1",
		"task_id": "t1",
	}).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/tasks/complete", gin.H{
		"user_id": "u1",
		"task_id": "t1",
		"status":  "BOGUS",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	task, err := taskRepo.FindByID(context.Background(), "users/u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, task.Status)
}

// TestTaskAPI_Complete_TaskNotFound 完成不存在的任务返回 404
func TestTaskAPI_Complete_TaskNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedUser(t, router, "u1")

	w := doJSON(router, http.MethodPost, "/api/v1/tasks/complete", gin.H{
		"user_id": "u1",
		"task_id": "never-created",
		"status":  "Completed",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTaskAPI_Get 测试获取任务接口
func TestTaskAPI_Get(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedUser(t, router, "u1")
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id": "u1",
		"task_id": "t1",
	}).Code)

	w := doJSON(router, http.MethodGet, "/api/v1/users/u1/tasks/t1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/users/u1/tasks/t404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTaskAPI_List 测试列出任务接口
func TestTaskAPI_List(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedUser(t, router, "u1")
	for i := 1; i <= 3; i++ {
		require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/api/v1/tasks", gin.H{
			"user_id": "u1",
			"task_id": fmt.Sprintf("t%d", i),
		}).Code)
	}

	w := doJSON(router, http.MethodGet, "/api/v1/users/u1/tasks", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)
}

// TestTaskAPI_List_UserNotFound 列出不存在用户的任务返回 404
func TestTaskAPI_List_UserNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/users/ghost/tasks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTaskAPI_InvalidPathID 非法路径参数返回 400
func TestTaskAPI_InvalidPathID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/users/bad%20id/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAPI_NoRoute 未匹配路由返回 JSON 404
func TestAPI_NoRoute(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
