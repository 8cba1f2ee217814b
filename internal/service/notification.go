package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"CareCircle/internal/cache"
	"CareCircle/internal/model"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/metrics"
	"CareCircle/pkg/push"
	"CareCircle/pkg/sms"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
	"CareCircle/utils"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = &NotificationService{}
	})
	return notificationService
}

type NotificationService struct{}

// SendMedReminder 用药提醒：优先推老人设备，没有绑定时推照护者设备
func (s *NotificationService) SendMedReminder(
	ctx context.Context,
	ev *model.ScheduledEvent,
	def *model.ScheduleDefinition,
	profile *model.SeniorProfile,
) error {
	deviceToken := profile.DeviceToken
	if deviceToken == "" {
		caregiver, err := GormStore{}.GetCaregiver(ctx, profile.CaregiverID)
		if err != nil {
			return err
		}
		deviceToken = caregiver.DeviceToken
	}

	task, err := s.createTask(ctx, profile.CaregiverID, profile.ID, nil,
		model.NotificationCategoryMedReminder, model.NotificationChannelPush,
		model.JSONB{
			"event_id": ev.ID,
			"label":    def.Label,
			"slot":     ev.Slot,
		})
	if err != nil {
		return err
	}

	if deviceToken == "" {
		s.finishTask(ctx, task, model.NotificationTaskStatusFailed)
		return pkgerrors.NewSkipMessageError("no device token registered")
	}

	n := push.Notification{
		Title: "Medication reminder",
		Body:  fmt.Sprintf("Time for %s (%s)", def.Label, ev.Slot[:5]),
		Data: map[string]string{
			"kind":     "med_reminder",
			"event_id": fmt.Sprintf("%d", ev.PublicID),
		},
	}

	return s.deliverPush(ctx, task, deviceToken, n, nil)
}

// DeliverAlert 告警投递：推送照护者设备，critical 级别附加短信兜底
// 实现 queue.AlertDeliverer
func (s *NotificationService) DeliverAlert(ctx context.Context, alertID int64) error {
	var alert model.Alert
	if err := database.DB().WithContext(ctx).First(&alert, alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NewSkipMessageError(fmt.Sprintf("alert %d no longer exists", alertID))
		}
		return fmt.Errorf("failed to load alert: %w", err)
	}

	if alert.Suppressed {
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("alert %d is suppressed", alertID))
	}

	profile, err := GormStore{}.GetSeniorProfile(ctx, alert.SeniorID)
	if err != nil {
		return err
	}
	caregiver, err := GormStore{}.GetCaregiver(ctx, profile.CaregiverID)
	if err != nil {
		return err
	}

	highPriority := alert.Severity.AtLeast(model.SeverityUrgent)

	// 非紧急推送受每日限额约束，紧急及以上不受限
	if !highPriority {
		allowed, count, err := cache.CheckDailyPushLimit(ctx, caregiver.ID)
		if err == nil && !allowed {
			logger.Logger.Info("Daily push limit reached, alert kept in list only",
				zap.Int64("caregiver_id", caregiver.ID),
				zap.Int("count", count),
			)
			return pkgerrors.NewSkipMessageError("daily push limit reached")
		}
	}

	task, err := s.createTask(ctx, caregiver.ID, profile.ID, &alert.ID,
		model.NotificationCategoryAlertDispatch, model.NotificationChannelPush,
		model.JSONB{
			"alert_type": string(alert.Type),
			"severity":   string(alert.Severity),
		})
	if err != nil {
		return err
	}

	n := push.Notification{
		Title:        alertTitle(alert.Type, profile.DisplayName),
		Body:         alert.Message,
		HighPriority: highPriority,
		Data: map[string]string{
			"kind":     "alert",
			"alert_id": fmt.Sprintf("%d", alert.PublicID),
			"severity": string(alert.Severity),
		},
	}

	var smsFallback func(context.Context) error
	if alert.Severity.AtLeast(model.SeverityCritical) {
		smsFallback = func(ctx context.Context) error {
			return s.sendAlertSMS(ctx, caregiver, profile, alert)
		}
	}

	if err := s.deliverPush(ctx, task, caregiver.DeviceToken, n, smsFallback); err != nil {
		return err
	}

	if !highPriority {
		dateKey := time.Now().Format("2006-01-02")
		if err := cache.IncrementDailyPushCount(ctx, caregiver.ID, dateKey); err != nil {
			logger.Logger.Warn("Failed to increment daily push count", zap.Error(err))
		}
	}

	return nil
}

// SendReport 周报/月报推送
func (s *NotificationService) SendReport(
	ctx context.Context,
	caregiver *model.Caregiver,
	profile *model.SeniorProfile,
	title, body string,
	payload model.JSONB,
) error {
	task, err := s.createTask(ctx, caregiver.ID, profile.ID, nil,
		model.NotificationCategoryReport, model.NotificationChannelPush, payload)
	if err != nil {
		return err
	}

	n := push.Notification{
		Title: title,
		Body:  body,
		Data:  map[string]string{"kind": "report"},
	}

	return s.deliverPush(ctx, task, caregiver.DeviceToken, n, nil)
}

// deliverPush 执行推送并记录投递尝试，token 失效时标记并走短信兜底
func (s *NotificationService) deliverPush(
	ctx context.Context,
	task *model.NotificationTask,
	deviceToken string,
	n push.Notification,
	smsFallback func(context.Context) error,
) error {
	metrics.AddNotificationActiveTask(string(model.NotificationTaskStatusProcessing), string(task.Category))
	defer metrics.SubtractNotificationActiveTask(string(model.NotificationTaskStatusProcessing), string(task.Category))

	start := time.Now()

	if deviceToken == "" {
		s.recordAttempt(ctx, task.ID, model.NotificationChannelPush, model.DeliveryAttemptStatusFailed, "NO_TOKEN", "no device token registered")
		if smsFallback != nil {
			return s.fallbackToSMS(ctx, task, smsFallback)
		}
		s.finishTask(ctx, task, model.NotificationTaskStatusFailed)
		metrics.RecordNotificationFailed(string(task.Category), "push", "no_token", time.Since(start).Seconds())
		return pkgerrors.NewNonRetryableError("PUSH_NO_TOKEN", "no device token registered", fmt.Sprintf("task %d", task.TaskCode))
	}

	result, err := push.Send(ctx, deviceToken, n)
	duration := time.Since(start).Seconds()

	if err != nil {
		s.recordAttempt(ctx, task.ID, model.NotificationChannelPush, model.DeliveryAttemptStatusFailed, "PUSH_ERROR", err.Error())
		metrics.RecordNotificationFailed(string(task.Category), "push", "send_error", duration)

		if push.IsInvalidTokenError(err) {
			// token 失效不可重试，标记设备待重新绑定
			s.invalidateDeviceToken(ctx, task.CaregiverID)
			if smsFallback != nil {
				return s.fallbackToSMS(ctx, task, smsFallback)
			}
			s.finishTask(ctx, task, model.NotificationTaskStatusFailed)
			return pkgerrors.NewNonRetryableError("PUSH_TOKEN_INVALID", "device token is no longer valid", fmt.Sprintf("task %d", task.TaskCode))
		}

		if smsFallback != nil {
			if smsErr := s.fallbackToSMS(ctx, task, smsFallback); smsErr == nil {
				return nil
			}
		}

		s.retryOrFail(ctx, task)
		return fmt.Errorf("failed to send push: %w", err)
	}

	msgID := ""
	if result != nil {
		msgID = result.MessageID
	}
	s.recordAttempt(ctx, task.ID, model.NotificationChannelPush, model.DeliveryAttemptStatusSuccess, "OK", msgID)
	s.finishTask(ctx, task, model.NotificationTaskStatusSuccess)
	metrics.RecordNotificationSent(string(task.Category), "push", duration)

	return nil
}

func (s *NotificationService) fallbackToSMS(ctx context.Context, task *model.NotificationTask, send func(context.Context) error) error {
	start := time.Now()
	if err := send(ctx); err != nil {
		s.recordAttempt(ctx, task.ID, model.NotificationChannelSMS, model.DeliveryAttemptStatusFailed, "SMS_ERROR", err.Error())
		metrics.RecordNotificationFailed(string(task.Category), "sms", "send_error", time.Since(start).Seconds())
		s.retryOrFail(ctx, task)
		return err
	}

	s.recordAttempt(ctx, task.ID, model.NotificationChannelSMS, model.DeliveryAttemptStatusSuccess, "OK", "")
	s.finishTask(ctx, task, model.NotificationTaskStatusSuccess)
	metrics.RecordNotificationSent(string(task.Category), "sms", time.Since(start).Seconds())
	return nil
}

func (s *NotificationService) sendAlertSMS(ctx context.Context, caregiver *model.Caregiver, profile *model.SeniorProfile, alert model.Alert) error {
	if len(caregiver.PhoneCipher) == 0 {
		return fmt.Errorf("caregiver %d has no phone on file", caregiver.ID)
	}

	phone, err := utils.DecryptPhone(caregiver.PhoneCipher)
	if err != nil {
		return fmt.Errorf("failed to decrypt phone: %w", err)
	}

	_, err = sms.SendAlertSMS(ctx, phone, profile.DisplayName, string(alert.Type))
	return err
}

func (s *NotificationService) createTask(
	ctx context.Context,
	caregiverID, seniorID int64,
	alertID *int64,
	category model.NotificationCategory,
	channel model.NotificationChannel,
	payload model.JSONB,
) (*model.NotificationTask, error) {
	taskCode, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task code: %w", err)
	}

	task := &model.NotificationTask{
		TaskCode:    taskCode,
		CaregiverID: caregiverID,
		SeniorID:    seniorID,
		AlertID:     alertID,
		Category:    category,
		Channel:     channel,
		Payload:     payload,
		Status:      model.NotificationTaskStatusProcessing,
		ScheduledAt: time.Now(),
	}

	if err := database.DB().WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification task: %w", err)
	}
	return task, nil
}

func (s *NotificationService) recordAttempt(
	ctx context.Context,
	taskID int64,
	channel model.NotificationChannel,
	status model.DeliveryAttemptStatus,
	code, message string,
) {
	attempt := &model.DeliveryAttempt{
		TaskID:          taskID,
		Channel:         channel,
		Status:          status,
		ResponseCode:    &code,
		ResponseMessage: &message,
		AttemptedAt:     time.Now(),
	}
	if err := database.DB().WithContext(ctx).Create(attempt).Error; err != nil {
		logger.Logger.Warn("Failed to record delivery attempt",
			zap.Int64("task_id", taskID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) finishTask(ctx context.Context, task *model.NotificationTask, status model.NotificationTaskStatus) {
	now := time.Now()
	err := database.DB().WithContext(ctx).
		Model(&model.NotificationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": now,
		}).Error
	if err != nil {
		logger.Logger.Warn("Failed to update notification task status",
			zap.Int64("task_code", task.TaskCode),
			zap.Error(err),
		)
	}
}

const maxTaskRetries = 3

// retryOrFail 累计重试次数，超过上限落 failed
func (s *NotificationService) retryOrFail(ctx context.Context, task *model.NotificationTask) {
	task.RetryCount++
	metrics.RecordNotificationRetry(string(task.Category), "delivery_error")

	status := model.NotificationTaskStatusPending
	if task.RetryCount >= maxTaskRetries {
		status = model.NotificationTaskStatusFailed
	}

	err := database.DB().WithContext(ctx).
		Model(&model.NotificationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": task.RetryCount,
		}).Error
	if err != nil {
		logger.Logger.Warn("Failed to update notification task retry count",
			zap.Int64("task_code", task.TaskCode),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) invalidateDeviceToken(ctx context.Context, caregiverID int64) {
	err := database.DB().WithContext(ctx).
		Model(&model.Caregiver{}).
		Where("id = ?", caregiverID).
		Update("device_token_valid", false).Error
	if err != nil {
		logger.Logger.Warn("Failed to invalidate device token",
			zap.Int64("caregiver_id", caregiverID),
			zap.Error(err),
		)
	}
}

func alertTitle(t model.AlertType, seniorName string) string {
	switch t {
	case model.AlertTypeSOS:
		return fmt.Sprintf("SOS from %s", seniorName)
	case model.AlertTypeMedMissed:
		return fmt.Sprintf("%s missed a medication", seniorName)
	case model.AlertTypeAIRiskEscalation:
		return fmt.Sprintf("Wellness concern for %s", seniorName)
	case model.AlertTypeGeofenceExit:
		return fmt.Sprintf("%s left the safe zone", seniorName)
	case model.AlertTypeGeofenceEnter:
		return fmt.Sprintf("%s arrived at the safe zone", seniorName)
	case model.AlertTypeInactivity:
		return fmt.Sprintf("No recent activity from %s", seniorName)
	case model.AlertTypeLowBattery:
		return fmt.Sprintf("%s's device battery is low", seniorName)
	default:
		return fmt.Sprintf("Alert for %s", seniorName)
	}
}
