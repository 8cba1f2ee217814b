package schedule

// 排期展开调度器：每天滚动展开未来窗口的事件，并把临近事件投放为延迟消息

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/cache"
	"CareCircle/internal/service"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/metrics"
)

var (
	expandOnce sync.Once
	expandInst *ExpandScheduler
)

type ExpandScheduler struct {
	logger      *zap.Logger
	jobRunning  bool
	jobMu       sync.Mutex
	lastRunTime time.Time
}

func GetExpandScheduler() *ExpandScheduler {
	expandOnce.Do(func() {
		expandInst = &ExpandScheduler{
			logger: logger.Logger,
		}
	})
	return expandInst
}

// RunExpansion 对所有活跃定义做一轮滚动窗口展开
// 多实例部署时由分布式锁保证每轮只有一个实例执行
func (s *ExpandScheduler) RunExpansion(ctx context.Context) error {
	s.jobMu.Lock()
	if s.jobRunning {
		s.jobMu.Unlock()
		s.logger.Info("Expansion job already running, skipping")
		return nil
	}
	s.jobRunning = true
	s.jobMu.Unlock()

	defer func() {
		s.jobMu.Lock()
		s.jobRunning = false
		s.jobMu.Unlock()
	}()

	locked, err := cache.TryLock(ctx, "schedule:expand", 10*time.Minute)
	if err != nil {
		s.logger.Warn("Failed to acquire expansion lock, proceeding anyway", zap.Error(err))
	} else if !locked {
		s.logger.Info("Another instance is running expansion, skipping")
		return nil
	}
	defer cache.Unlock(ctx, "schedule:expand")

	startTime := time.Now()
	s.lastRunTime = startTime

	windowEnd := startTime.AddDate(0, 0, config.Cfg.ExpandWindowDays)
	result, errs := service.Engine().ExpandWindow(ctx, startTime, windowEnd)

	for _, e := range errs {
		s.logger.Warn("Expansion error", zap.Error(e))
	}
	if result.Created > 0 {
		metrics.RecordEventsExpanded(int64(result.Created))
	}

	s.logger.Info("Expansion completed",
		zap.Int("definitions", result.Definitions),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("error_count", len(errs)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if len(errs) > 0 {
		return fmt.Errorf("expansion completed with %d errors", len(errs))
	}
	return nil
}

// DispatchUpcoming 把未来 within 内到点的事件投放为延迟消息
func (s *ExpandScheduler) DispatchUpcoming(ctx context.Context, within time.Duration) error {
	dispatched, err := service.Event().DispatchDueEvents(ctx, within)
	if err != nil {
		return fmt.Errorf("dispatch due events: %w", err)
	}

	if dispatched > 0 {
		s.logger.Info("Upcoming events dispatched",
			zap.Int("count", dispatched),
			zap.Duration("horizon", within),
		)
	}
	return nil
}
