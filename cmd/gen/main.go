package main

// 建表/迁移命令：对所有模型执行 AutoMigrate
// 部署时独立运行，server/worker 启动不做任何 DDL

import (
	"go.uber.org/zap"

	"CareCircle/internal/model"
	"CareCircle/pkg/logger"
	"CareCircle/storage/database"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if err := database.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	err := database.DB().AutoMigrate(
		&model.Caregiver{},
		&model.SeniorProfile{},
		&model.ScheduleDefinition{},
		&model.ScheduledEvent{},
		&model.Alert{},
		&model.GuardrailPolicy{},
		&model.Subscription{},
		&model.NotificationTask{},
		&model.DeliveryAttempt{},
	)
	if err != nil {
		logger.Logger.Fatal("Migration failed", zap.Error(err))
	}

	logger.Logger.Info("Migration completed")
}
