package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CareCircle/internal/cache"
	"CareCircle/internal/model"
	"CareCircle/internal/queue"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
)

// 漏服扫描在宽限期结束后再留的缓冲，吸收消息投递和时钟误差
const sweepBuffer = time.Minute

// DispatchDueEvents 把即将到点的 pending 事件投放为延迟消息：
// slot 时间点的提醒消息 + 宽限期结束的漏服扫描消息。
// Redis 标记只是去重的快路径，消息级 SETNX 才是真正的幂等保证。
// 返回本轮投放的事件数。
func (s *EventService) DispatchDueEvents(ctx context.Context, horizon time.Duration) (int, error) {
	now := time.Now()
	grace := lifecycleConfig().GracePeriod

	// 下限往回拉一个宽限期，进程重启漏掉的事件还能补投扫描消息
	var events []model.ScheduledEvent
	err := database.DB().WithContext(ctx).
		Where("status = ?", model.EventStatusPending).
		Where("scheduled_at >= ? AND scheduled_at <= ?", now.Add(-grace), now.Add(horizon)).
		Order("scheduled_at ASC").
		Find(&events).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query due events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	labels, err := s.labelsFor(ctx, events)
	if err != nil {
		return 0, err
	}

	batchID, err := snowflake.NextID()
	if err != nil {
		return 0, fmt.Errorf("failed to generate batch ID: %w", err)
	}
	batch := fmt.Sprintf("dispatch_%d", batchID)

	dispatched := 0
	for i := range events {
		ev := &events[i]
		if err := s.dispatchOne(ctx, ev, labels[ev.DefinitionID], batch, grace, now); err != nil {
			logger.Logger.Warn("Failed to dispatch event",
				zap.Int64("event_id", ev.ID),
				zap.Error(err),
			)
			continue
		}
		dispatched++
	}

	if dispatched > 0 {
		logger.Logger.Info("Events dispatched",
			zap.String("batch_id", batch),
			zap.Int("count", dispatched),
		)
	}
	return dispatched, nil
}

func (s *EventService) dispatchOne(
	ctx context.Context,
	ev *model.ScheduledEvent,
	label, batch string,
	grace time.Duration,
	now time.Time,
) error {
	scheduled, err := cache.IsReminderScheduled(ctx, ev.ID)
	if err != nil {
		// Redis 不可用时照发，消费侧去重兜底
		logger.Logger.Warn("Failed to check reminder scheduled mark",
			zap.Int64("event_id", ev.ID),
			zap.Error(err),
		)
	}
	if !scheduled {
		delay := int(ev.ScheduledAt.Sub(now).Seconds())
		if delay < 0 {
			delay = 0
		}
		msg := &model.MedReminderMessage{
			BatchID:      batch,
			EventID:      ev.ID,
			SeniorID:     ev.SeniorID,
			Label:        label,
			EventDate:    ev.EventDate,
			Slot:         ev.Slot,
			DelaySeconds: delay,
		}
		if err := queue.PublishMedReminder(ctx, msg); err != nil {
			return err
		}
		if err := cache.MarkReminderScheduled(ctx, ev.ID); err != nil {
			logger.Logger.Warn("Failed to mark reminder scheduled",
				zap.Int64("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}

	scheduled, err = cache.IsSweepScheduled(ctx, ev.ID)
	if err != nil {
		logger.Logger.Warn("Failed to check sweep scheduled mark",
			zap.Int64("event_id", ev.ID),
			zap.Error(err),
		)
	}
	if !scheduled {
		sweepAt := ev.ScheduledAt.Add(grace + sweepBuffer)
		delay := int(sweepAt.Sub(now).Seconds())
		if delay < 0 {
			delay = 0
		}
		msg := &model.MissedSweepMessage{
			BatchID:      batch,
			EventID:      ev.ID,
			SeniorID:     ev.SeniorID,
			DelaySeconds: delay,
		}
		if err := queue.PublishMissedSweep(ctx, msg); err != nil {
			return err
		}
		if err := cache.MarkSweepScheduled(ctx, ev.ID); err != nil {
			logger.Logger.Warn("Failed to mark sweep scheduled",
				zap.Int64("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}
