package api

import (
	"errors"
	"net/http"

	"github.com/brokenfulcrum/elixr-task-service/internal/event"
	"github.com/brokenfulcrum/elixr-task-service/internal/service"
	"github.com/brokenfulcrum/elixr-task-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// TaskController 任务控制器
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{
		taskService: taskService,
	}
}

// mapServiceError 把服务层错误分类映射到 HTTP 状态码
func mapServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		Error(ctx, http.StatusNotFound, "user not found", err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		Error(ctx, http.StatusNotFound, "task not found", err.Error())
	case errors.Is(err, service.ErrTaskExists):
		Error(ctx, http.StatusConflict, "task already exists", err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		Error(ctx, http.StatusBadRequest, "invalid task status", err.Error())
	case errors.Is(err, service.ErrPublishFailed):
		// 任务已持久化但事件发布失败,调用方必须感知到通知的不确定性
		Error(ctx, http.StatusInternalServerError, "task persisted but event publish failed", err.Error())
	default:
		Error(ctx, http.StatusInternalServerError, "internal server error", err.Error())
	}
}

// Create 创建任务
// @Summary      创建任务
// @Description  为指定用户创建任务,成功后发布 TaskCreatedEvent
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateTaskRequest true "任务信息"
// @Success      201  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /tasks [post]
func (c *TaskController) Create(ctx *gin.Context) {
	var req service.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.Create(ctx.Request.Context(), &req)
	if err != nil {
		mapServiceError(ctx, err)
		return
	}

	Created(ctx, task)
}

// Complete 记录任务完成
// @Summary      上报任务完成
// @Description  接收 worker 的完成通知,按字段掩码更新任务
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body event.TaskCompletedEvent true "完成通知"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /tasks/complete [post]
func (c *TaskController) Complete(ctx *gin.Context) {
	var evt event.TaskCompletedEvent
	if err := ctx.ShouldBindJSON(&evt); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.Complete(ctx.Request.Context(), &evt)
	if err != nil {
		mapServiceError(ctx, err)
		return
	}

	Success(ctx, gin.H{
		"status": "task updated",
		"task":   task,
	})
}

// Get 获取任务
// @Summary      获取任务详情
// @Tags         任务管理
// @Produce      json
// @Param        user_id path string true "用户 ID"
// @Param        task_id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{user_id}/tasks/{task_id} [get]
func (c *TaskController) Get(ctx *gin.Context) {
	userID := ctx.Param("user_id")
	taskID := ctx.Param("task_id")
	if err := utils.ValidateID(userID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}
	if err := utils.ValidateID(taskID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid task ID", err.Error())
		return
	}

	task, err := c.taskService.Get(ctx.Request.Context(), userID, taskID)
	if err != nil {
		mapServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// List 列出用户的任务
// @Summary      列出用户的全部任务
// @Tags         任务管理
// @Produce      json
// @Param        user_id path string true "用户 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{user_id}/tasks [get]
func (c *TaskController) List(ctx *gin.Context) {
	userID := ctx.Param("user_id")
	if err := utils.ValidateID(userID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	tasks, err := c.taskService.List(ctx.Request.Context(), userID)
	if err != nil {
		mapServiceError(ctx, err)
		return
	}

	Success(ctx, tasks)
}
