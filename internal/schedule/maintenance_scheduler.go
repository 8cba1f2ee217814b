package schedule

// 维护类调度器：漏服兜底扫描、订阅过期、周报/月报任务投递

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/internal/cache"
	"CareCircle/internal/model"
	"CareCircle/internal/queue"
	"CareCircle/internal/service"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/metrics"
	"CareCircle/storage/database"
)

var (
	maintenanceOnce sync.Once
	maintenanceInst *MaintenanceScheduler
)

type MaintenanceScheduler struct {
	logger *zap.Logger
}

func GetMaintenanceScheduler() *MaintenanceScheduler {
	maintenanceOnce.Do(func() {
		maintenanceInst = &MaintenanceScheduler{
			logger: logger.Logger,
		}
	})
	return maintenanceInst
}

// RunMissedSweep 批量漏服扫描兜底
// 正常路径是每个事件的延迟消息，这里兜住消息丢失和 worker 宕机的漏网
func (s *MaintenanceScheduler) RunMissedSweep(ctx context.Context) error {
	locked, err := cache.TryLock(ctx, "schedule:sweep", 5*time.Minute)
	if err != nil {
		s.logger.Warn("Failed to acquire sweep lock, proceeding anyway", zap.Error(err))
	} else if !locked {
		return nil
	}
	defer cache.Unlock(ctx, "schedule:sweep")

	result, errs := service.Engine().SweepMissedEvents(ctx)

	for _, e := range errs {
		s.logger.Warn("Missed sweep error", zap.Error(e))
	}
	if result.Swept > 0 {
		metrics.RecordEventsMissed(int64(result.Swept))
		s.logger.Info("Missed sweep completed",
			zap.Int("swept", result.Swept),
			zap.Int("races", result.Races),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("missed sweep completed with %d errors", len(errs))
	}
	return nil
}

// RunSubscriptionExpiry 把到期订阅落为 expired
func (s *MaintenanceScheduler) RunSubscriptionExpiry(ctx context.Context) error {
	locked, err := cache.TryLock(ctx, "schedule:subscription_expiry", 5*time.Minute)
	if err != nil {
		s.logger.Warn("Failed to acquire expiry lock, proceeding anyway", zap.Error(err))
	} else if !locked {
		return nil
	}
	defer cache.Unlock(ctx, "schedule:subscription_expiry")

	_, err = service.Subscription().ExpireDueSubscriptions(ctx)
	return err
}

// ScheduleReports 为所有活跃档案投递报告生成任务
// period 为 weekly 或 monthly，周期边界按服务器本地时间计算
func (s *MaintenanceScheduler) ScheduleReports(ctx context.Context, period string) error {
	now := time.Now()
	periodStart, periodEnd := reportPeriod(period, now)

	// 同一周期只投递一次
	lockKey := fmt.Sprintf("schedule:report:%s:%s", period, periodEnd)
	locked, err := cache.TryLock(ctx, lockKey, 48*time.Hour)
	if err != nil {
		s.logger.Warn("Failed to acquire report lock, proceeding anyway", zap.Error(err))
	} else if !locked {
		s.logger.Info("Reports already scheduled for period",
			zap.String("period", period),
			zap.String("period_end", periodEnd),
		)
		return nil
	}

	var profiles []model.SeniorProfile
	err = database.DB().WithContext(ctx).
		Where("active = ?", true).
		Find(&profiles).Error
	if err != nil {
		return fmt.Errorf("failed to query active profiles: %w", err)
	}

	published := 0
	for i := range profiles {
		msg := &model.ReportJobMessage{
			SeniorID:    profiles[i].ID,
			Period:      period,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}
		if err := queue.PublishReportJob(ctx, msg); err != nil {
			s.logger.Error("Failed to publish report job",
				zap.Int64("senior_id", profiles[i].ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	s.logger.Info("Report jobs scheduled",
		zap.String("period", period),
		zap.String("period_start", periodStart),
		zap.String("period_end", periodEnd),
		zap.Int("published", published),
	)
	return nil
}

// reportPeriod 计算周期边界（闭区间，格式 2006-01-02）
// weekly: 截止昨天的最近 7 天；monthly: 上一个自然月
func reportPeriod(period string, now time.Time) (string, string) {
	yesterday := now.AddDate(0, 0, -1)

	if period == "monthly" {
		firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		lastMonthEnd := firstOfThisMonth.AddDate(0, 0, -1)
		lastMonthStart := time.Date(lastMonthEnd.Year(), lastMonthEnd.Month(), 1, 0, 0, 0, 0, now.Location())
		return lastMonthStart.Format("2006-01-02"), lastMonthEnd.Format("2006-01-02")
	}

	return yesterday.AddDate(0, 0, -6).Format("2006-01-02"), yesterday.Format("2006-01-02")
}
