package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/queue"
	"CareCircle/internal/service"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/push"
	"CareCircle/pkg/sms"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// 考虑之后循环启动不同的 snowflakeID
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// FCM 推送是 worker 的主要出口，初始化失败只降级不退出
	if err := push.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize push service", zap.Error(err))
		logger.Logger.Info("Push service will be disabled, reminders fall back to SMS where possible")
	}

	if err := sms.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize SMS service", zap.Error(err))
		logger.Logger.Info("SMS service will be disabled, SMS features may not work")
	}

	// 消费者通过接口调用 service 层，这里注入实现
	queue.SetEventProcessor(service.Event())
	queue.SetAlertDeliverer(service.Notification())
	queue.SetReportGenerator(service.Report())

	logger.Logger.Info("Worker service starting",
		zap.String("service", "carecircle-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 启动所有的消费者部分
	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}
