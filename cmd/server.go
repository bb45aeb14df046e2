/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brokenfulcrum/elixr-task-service/internal/api"
	"github.com/brokenfulcrum/elixr-task-service/internal/config"
	"github.com/brokenfulcrum/elixr-task-service/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the task lifecycle API server.
The server will listen on the configured host and port, persist tasks
to the configured database, and publish lifecycle events to the
configured event bus endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		api.SetLogger(logger)

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 配置热更新: 目前只热更日志级别
		if configPath != "" {
			watcher := config.NewWatcher(configPath)
			watcher.OnChange(func(newCfg *config.Config) {
				if level, err := logrus.ParseLevel(newCfg.Log.Level); err == nil {
					logger.SetLevel(level)
					logger.WithField("level", newCfg.Log.Level).Info("log level reloaded")
				}
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher disabled")
			}
			defer watcher.Stop()
		}

		// 5. 控制器与路由
		deps := &api.RouterDeps{
			DB:             ctr.DB(),
			Hub:            ctr.Hub(),
			TokenValidator: ctr.TokenValidator(),
			TaskController: api.NewTaskController(ctr.TaskService()),
			UserController: api.NewUserController(ctr.UserService()),
		}
		router := api.SetupRoutes(cfg, deps)

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("failed to start server")
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Fatal("server forced to shutdown")
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
}
