package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CareCircle/internal/model"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/mq"
)

// 生产侧：把调度器算出的事件投到延迟交换机，routing key 与队列同名

// PublishMedReminder 投放用药提醒延迟消息，slot 时间点到达时由 worker 消费
func PublishMedReminder(ctx context.Context, msg *model.MedReminderMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("med_reminder_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Format(time.RFC3339)
	}

	delay := time.Duration(msg.DelaySeconds) * time.Second

	err := mq.PublishDelayedMessage(mq.DelayedExchange, mq.QueueMedReminder, delay, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish med reminder message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("event_id", msg.EventID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published med reminder message",
		zap.String("message_id", msg.MessageID),
		zap.String("batch_id", msg.BatchID),
		zap.Int64("event_id", msg.EventID),
		zap.Int64("senior_id", msg.SeniorID),
		zap.Int("delay_seconds", msg.DelaySeconds),
	)
	return nil
}

// PublishMissedSweep 投放漏服扫描延迟消息，宽限期结束后触发
func PublishMissedSweep(ctx context.Context, msg *model.MissedSweepMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("missed_sweep_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Format(time.RFC3339)
	}

	delay := time.Duration(msg.DelaySeconds) * time.Second

	err := mq.PublishDelayedMessage(mq.DelayedExchange, mq.QueueMissedSweep, delay, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish missed sweep message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("event_id", msg.EventID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published missed sweep message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("event_id", msg.EventID),
		zap.Int64("senior_id", msg.SeniorID),
		zap.Int("delay_seconds", msg.DelaySeconds),
	)
	return nil
}

// PublishAlertDispatch 投放告警分发消息，告警此时已经落库
func PublishAlertDispatch(ctx context.Context, msg *model.AlertDispatchMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("alert_dispatch_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Format(time.RFC3339)
	}

	// 告警不延迟，直接进队列
	err := mq.PublishMessage(mq.DelayedExchange, mq.QueueAlertDispatch, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish alert dispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("alert_id", msg.AlertID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published alert dispatch message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("alert_id", msg.AlertID),
		zap.Int64("senior_id", msg.SeniorID),
	)
	return nil
}

// PublishReportJob 投放周报/月报生成任务
func PublishReportJob(ctx context.Context, msg *model.ReportJobMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("report_job_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Format(time.RFC3339)
	}

	err := mq.PublishMessage(mq.DelayedExchange, mq.QueueReportJob, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish report job message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("senior_id", msg.SeniorID),
			zap.String("period", msg.Period),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published report job message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("senior_id", msg.SeniorID),
		zap.String("period", msg.Period),
	)
	return nil
}
