package container

import (
	"fmt"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/auth"
	"github.com/brokenfulcrum/elixr-task-service/internal/bus"
	"github.com/brokenfulcrum/elixr-task-service/internal/config"
	"github.com/brokenfulcrum/elixr-task-service/internal/database"
	"github.com/brokenfulcrum/elixr-task-service/internal/metrics"
	"github.com/brokenfulcrum/elixr-task-service/internal/repository"
	"github.com/brokenfulcrum/elixr-task-service/internal/service"
	"github.com/brokenfulcrum/elixr-task-service/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 持有所有长生命周期的共享句柄(数据库、总线、Hub),
// 它们被并发使用但从不被请求路径修改
type Container struct {
	db             *gorm.DB
	hub            *websocket.Hub
	publisher      bus.Publisher
	tokenValidator *auth.TokenValidator
	taskService    service.TaskService
	userService    service.UserService
	collector      *metrics.Collector
	logger         *logrus.Logger
}

// NewContainer 创建依赖注入容器
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 初始化数据库,重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 事件订阅 Hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 3. 事件发布器: Hub 广播始终开启,Webhook 按配置启用
	publishers := []bus.Publisher{bus.NewHubPublisher(hub)}
	if cfg.Bus.WebhookURL != "" {
		publishers = append(publishers, bus.NewWebhookPublisher(
			cfg.Bus.WebhookURL,
			time.Duration(cfg.Bus.TimeoutSeconds)*time.Second,
			logger,
		))
	}
	publisher := bus.NewMultiPublisher(publishers...)

	// 4. 仓储与服务
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	taskService := service.NewTaskService(userRepo, taskRepo, publisher, logger)
	userService := service.NewUserService(userRepo, logger)

	// 5. 快照型指标采集
	collector := metrics.NewCollector(db, 30*time.Second)
	collector.Start()

	return &Container{
		db:             db,
		hub:            hub,
		publisher:      publisher,
		tokenValidator: auth.NewTokenValidator(cfg.Auth.TokenSecret),
		taskService:    taskService,
		userService:    userService,
		collector:      collector,
		logger:         logger,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取事件订阅 Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Publisher 获取事件发布器
func (c *Container) Publisher() bus.Publisher {
	return c.publisher
}

// TokenValidator 获取令牌校验器,未配置密钥时为 nil
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// UserService 获取用户服务
func (c *Container) UserService() service.UserService {
	return c.userService
}

// Close 释放容器持有的资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
