package api

import (
	"errors"
	"net/http"

	"github.com/brokenfulcrum/elixr-task-service/internal/event"
	"github.com/brokenfulcrum/elixr-task-service/internal/service"
	"github.com/gin-gonic/gin"
)

// UserController 用户控制器
type UserController struct {
	userService service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Create 创建用户
// @Summary      创建用户
// @Description  消费 UserCreatedEvent,把用户落库
// @Tags         用户管理
// @Accept       json
// @Produce      json
// @Param        request body event.UserCreatedEvent true "用户创建事件"
// @Success      201  {object}  Response
// @Failure      302  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users [post]
func (c *UserController) Create(ctx *gin.Context) {
	var evt event.UserCreatedEvent
	if err := ctx.ShouldBindJSON(&evt); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := c.userService.Create(ctx.Request.Context(), &evt); err != nil {
		if errors.Is(err, service.ErrUserExists) {
			// 保留源行为: 已存在返回 302 而不是 409
			Error(ctx, http.StatusFound, "user already exists", err.Error())
			return
		}
		Error(ctx, http.StatusInternalServerError, "failed to create user", err.Error())
		return
	}

	Created(ctx, gin.H{"status": "user created successfully"})
}
