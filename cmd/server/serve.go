package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"guardianledger/internal/config"
	"guardianledger/internal/handler"
	"guardianledger/internal/infrastructure/cache"
	"guardianledger/internal/infrastructure/database"
	"guardianledger/internal/infrastructure/lock"
	"guardianledger/internal/infrastructure/logging"
	"guardianledger/internal/infrastructure/mq"
	"guardianledger/internal/job"
	"guardianledger/internal/service"
	"guardianledger/pkg/idgen"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务和后台任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := logging.New(&cfg.Log)

	// 初始化 ID 生成器
	idgen.Init(1)

	db, err := database.OpenMySQL(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	// 收到中断信号时取消，停止后台任务
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var locker service.ReviewLocker
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = lock.NewReviewLocker(redisClient)
		logger.Info("审核锁已启用", "redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
	}

	svcs := service.NewServices(db, cfg, locker, logger)

	var jobs []backgroundJob
	if cfg.Kafka.Enabled {
		producer, err := mq.DialKafka(&cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()

		jobs = append(jobs, job.NewOutboxSender(db, producer, cfg.Business.OutboxInterval(), cfg.Business.MaxRetryCount, logger))
	} else {
		logger.Warn("Kafka 未启用，消息保留在 outbox 表中")
	}

	jobs = append(jobs, job.NewReviewTimeoutJob(db, svcs.Transactions,
		cfg.Business.ReviewSweepInterval(), cfg.Business.ReviewTimeout(), logger))

	// 在关闭 producer 和数据库之前执行
	group := startJobs(ctx, jobs...)
	defer group.stop()

	if logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.SetupRouter(handler.NewHandler(svcs, logger), logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务...")

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务关闭异常", "err", err)
	}

	group.stop()
	logger.Info("后台任务已停止")

	logger.Info("服务已关闭")
	return nil
}
