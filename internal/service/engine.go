package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/queue"
	"CareCircle/pkg/logger"
)

var (
	coordinator     *engine.Coordinator
	coordinatorOnce sync.Once
)

// Engine 策略引擎协调器单例，service 层和调度器都从这里进入引擎
func Engine() *engine.Coordinator {
	coordinatorOnce.Do(func() {
		coordinator = engine.NewCoordinator(GormStore{}, engine.SystemClock{}, mqNotifier{}, lifecycleConfig(), nil)
	})
	return coordinator
}

// lifecycleConfig 从全局配置派生引擎生命周期参数
func lifecycleConfig() engine.LifecycleConfig {
	return engine.LifecycleConfig{
		GracePeriod:              time.Duration(config.Cfg.EventGraceMinutes) * time.Minute,
		ConsecutiveMissThreshold: config.Cfg.ConsecutiveMissThreshold,
	}
}

// mqNotifier 告警推送出口：告警已落库，这里只把分发消息投到队列，
// 真正的 FCM/短信投递由 worker 完成
type mqNotifier struct{}

func (mqNotifier) Push(ctx context.Context, alert model.Alert) {
	msg := &model.AlertDispatchMessage{
		AlertID:  alert.ID,
		SeniorID: alert.SeniorID,
	}
	if err := queue.PublishAlertDispatch(ctx, msg); err != nil {
		// fire-and-forget：投递失败不回滚告警，告警列表仍然可见
		logger.Logger.Error("Failed to enqueue alert dispatch",
			zap.Int64("alert_id", alert.ID),
			zap.String("type", string(alert.Type)),
			zap.Error(err),
		)
	}
}
