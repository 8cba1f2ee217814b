package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/schedule"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage"
)


func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()


	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 考虑与 worker 和 server 作区分
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", "carecircle-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)


	go runDailyExpansionLoop(ctx)
	go runDispatchLoop(ctx)
	go runMissedSweepLoop(ctx)
	go runSubscriptionExpiryLoop(ctx)
	go runReportLoop(ctx)


	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runDailyExpansionLoop 每天固定时间滚动展开未来窗口的用药事件
// 当前实现：每天本地时间 00:05 触发一次，启动时先补跑一轮
func runDailyExpansionLoop(ctx context.Context) {
	s := schedule.GetExpandScheduler()

	// 启动即展开一次，避免部署间隙漏掉当天的定义变更
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	if err := s.RunExpansion(runCtx); err != nil {
		logger.Logger.Error("Initial expansion run failed", zap.Error(err))
	}
	cancel()

	// 在 development 环境下，为了方便本地调试，将每日调度改为每 1 分钟执行一次
	if config.Cfg.Environment == "development" {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		logger.Logger.Info("Expansion scheduler running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				if err := s.RunExpansion(runCtx); err != nil {
					logger.Logger.Error("Expansion run failed (development interval)", zap.Error(err))
				}
				cancel()
			}
		}
	}

	for {
		// 计算下一次运行时间（今天/明天的 00:05）
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		delay := time.Until(next)
		logger.Logger.Info("Scheduled next expansion run",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := s.RunExpansion(runCtx); err != nil {
				logger.Logger.Error("Expansion run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// runDispatchLoop 周期性把临近的 pending 事件投放为延迟消息
// 当前实现：每 5 分钟扫描未来 10 分钟内到点的事件
func runDispatchLoop(ctx context.Context) {
	s := schedule.GetExpandScheduler()

	interval := 5 * time.Minute
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
		logger.Logger.Info("Dispatch loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if err := s.DispatchUpcoming(runCtx, 10*time.Minute); err != nil {
				logger.Logger.Error("Dispatch run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// runMissedSweepLoop 漏服兜底扫描，兜住延迟消息丢失的情况
func runMissedSweepLoop(ctx context.Context) {
	s := schedule.GetMaintenanceScheduler()

	interval := time.Duration(config.Cfg.MissedSweepIntervalMin) * time.Minute
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
		logger.Logger.Info("Missed sweep loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := s.RunMissedSweep(runCtx); err != nil {
				logger.Logger.Error("Missed sweep run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// runSubscriptionExpiryLoop 每小时把到期订阅落为 expired
func runSubscriptionExpiryLoop(ctx context.Context) {
	s := schedule.GetMaintenanceScheduler()

	interval := 1 * time.Hour
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if err := s.RunSubscriptionExpiry(runCtx); err != nil {
				logger.Logger.Error("Subscription expiry run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// runReportLoop 周一投周报，每月 1 号投月报
// 每小时检查一次，同一周期的重复投递由分布式锁挡掉
func runReportLoop(ctx context.Context) {
	s := schedule.GetMaintenanceScheduler()

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)

			if now.Weekday() == time.Monday {
				if err := s.ScheduleReports(runCtx, "weekly"); err != nil {
					logger.Logger.Error("Weekly report scheduling failed", zap.Error(err))
				}
			}
			if now.Day() == 1 {
				if err := s.ScheduleReports(runCtx, "monthly"); err != nil {
					logger.Logger.Error("Monthly report scheduling failed", zap.Error(err))
				}
			}
			cancel()
		}
	}
}
