package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/internal/cache"
	"CareCircle/internal/model"
	"CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/storage/mq"
)

// 消费侧依赖 service 层，但 service 层也要发消息，
// 为避免 import cycle 这里只声明接口，由 worker 启动时注入实现

type EventProcessor interface {
	// ProcessReminder slot 时间点触发的提醒处理
	ProcessReminder(ctx context.Context, eventID int64) error
	// ProcessMissedSweep 宽限期结束后的单事件漏服判定
	ProcessMissedSweep(ctx context.Context, eventID int64) error
}

type AlertDeliverer interface {
	// DeliverAlert 根据已落库的告警执行推送/短信投递
	DeliverAlert(ctx context.Context, alertID int64) error
}

type ReportGenerator interface {
	GenerateReport(ctx context.Context, seniorID int64, period, periodStart, periodEnd string) error
}

var (
	eventProcessor  EventProcessor
	alertDeliverer  AlertDeliverer
	reportGenerator ReportGenerator
)

// SetEventProcessor 设置事件处理服务（worker 启动时调用）
func SetEventProcessor(p EventProcessor) {
	eventProcessor = p
}

// SetAlertDeliverer 设置告警投递服务（worker 启动时调用）
func SetAlertDeliverer(d AlertDeliverer) {
	alertDeliverer = d
}

// SetReportGenerator 设置报告生成服务（worker 启动时调用）
func SetReportGenerator(g ReportGenerator) {
	reportGenerator = g
}

// StartMedReminderConsumer 启动用药提醒消费者
func StartMedReminderConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.MedReminderMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal med reminder message: %w", err)
		}

		// 【幂等性检查】使用 SETNX 原子性地检查并标记消息正在处理
		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 如果检查失败，继续处理（不阻塞业务），但可能重复处理
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.String("batch_id", msg.BatchID),
			)
			return errors.NewSkipMessageError(fmt.Sprintf("message %s already processed", msg.MessageID))
		}

		logger.Logger.Info("Processing med reminder",
			zap.String("message_id", msg.MessageID),
			zap.Int64("event_id", msg.EventID),
			zap.Int64("senior_id", msg.SeniorID),
			zap.String("slot", msg.Slot),
		)

		if eventProcessor == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("event processor not initialized")
		}

		if err := eventProcessor.ProcessReminder(ctx, msg.EventID); err != nil {
			if errors.IsSkipMessageError(err) {
				// 事件已被用户处理，消息标记完成后跳过
				cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour)
				return err
			}
			// 处理失败，取消标记，允许重试
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to process reminder: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.QueueMedReminder,
		ConsumerTag:   "med_reminder_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartMissedSweepConsumer 启动漏服扫描消费者
func StartMissedSweepConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.MissedSweepMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal missed sweep message: %w", err)
		}

		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.String("batch_id", msg.BatchID),
			)
			return errors.NewSkipMessageError(fmt.Sprintf("message %s already processed", msg.MessageID))
		}

		logger.Logger.Info("Processing missed sweep",
			zap.String("message_id", msg.MessageID),
			zap.Int64("event_id", msg.EventID),
			zap.Int64("senior_id", msg.SeniorID),
		)

		if eventProcessor == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("event processor not initialized")
		}

		if err := eventProcessor.ProcessMissedSweep(ctx, msg.EventID); err != nil {
			if errors.IsSkipMessageError(err) {
				// 竞态：用户已标记完成，事件不再 pending
				cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour)
				return err
			}
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to process missed sweep: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.QueueMissedSweep,
		ConsumerTag:   "missed_sweep_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartAlertDispatchConsumer 启动告警投递消费者
func StartAlertDispatchConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.AlertDispatchMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal alert dispatch message: %w", err)
		}

		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Int64("alert_id", msg.AlertID),
				zap.Error(err),
			)
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("alert_id", msg.AlertID),
			)
			return errors.NewSkipMessageError(fmt.Sprintf("message %s already processed", msg.MessageID))
		}

		logger.Logger.Info("Processing alert dispatch",
			zap.String("message_id", msg.MessageID),
			zap.Int64("alert_id", msg.AlertID),
			zap.Int64("senior_id", msg.SeniorID),
		)

		if alertDeliverer == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("alert deliverer not initialized")
		}

		if err := alertDeliverer.DeliverAlert(ctx, msg.AlertID); err != nil {
			if errors.IsSkipMessageError(err) {
				cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour)
				return err
			}
			if errors.IsNonRetryable(err) {
				// 配置类错误重试也不会成功，任务已落 failed，确认消息即可
				cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour)
				return err
			}
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to deliver alert: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.QueueAlertDispatch,
		ConsumerTag:   "alert_dispatch_consumer",
		PrefetchCount: 20,
		Handler:       handler,
	})
}

// StartReportJobConsumer 启动报告生成消费者
func StartReportJobConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.ReportJobMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal report job message: %w", err)
		}

		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("senior_id", msg.SeniorID),
			)
			return errors.NewSkipMessageError(fmt.Sprintf("message %s already processed", msg.MessageID))
		}

		logger.Logger.Info("Processing report job",
			zap.String("message_id", msg.MessageID),
			zap.Int64("senior_id", msg.SeniorID),
			zap.String("period", msg.Period),
		)

		if reportGenerator == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("report generator not initialized")
		}

		if err := reportGenerator.GenerateReport(ctx, msg.SeniorID, msg.Period, msg.PeriodStart, msg.PeriodEnd); err != nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to generate report: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.QueueReportJob,
		ConsumerTag:   "report_job_consumer",
		PrefetchCount: 5,
		Handler:       handler,
	})
}

// StartAllConsumers 启动所有消费者（worker 进程启动时调用）
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"med_reminder", StartMedReminderConsumer},
		{"missed_sweep", StartMissedSweepConsumer},
		{"alert_dispatch", StartAlertDispatchConsumer},
		{"report_job", StartReportJobConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()
}
