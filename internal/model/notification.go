package model

import "time"

// NotificationCategory 通知类别枚举
type NotificationCategory string

const (
	NotificationCategoryMedReminder   NotificationCategory = "med_reminder"   // 用药提醒（老人端）
	NotificationCategoryAlertDispatch NotificationCategory = "alert_dispatch" // 告警推送（照护者端）
	NotificationCategoryReport        NotificationCategory = "report"         // 周报/月报
)

// NotificationChannel 通知渠道枚举
type NotificationChannel string

const (
	NotificationChannelPush NotificationChannel = "push"
	NotificationChannelSMS  NotificationChannel = "sms"
)

// NotificationTaskStatus 通知任务状态枚举
type NotificationTaskStatus string

const (
	NotificationTaskStatusPending    NotificationTaskStatus = "pending"    // 待处理
	NotificationTaskStatusProcessing NotificationTaskStatus = "processing" // 处理中
	NotificationTaskStatusSuccess    NotificationTaskStatus = "success"    // 成功
	NotificationTaskStatusFailed     NotificationTaskStatus = "failed"     // 失败
)

// NotificationTask 通知任务模型
// 告警先落库再建任务，投递失败由 worker 重试，不回滚告警本身

type NotificationTask struct {
	BaseModel
	TaskCode    int64                  `gorm:"uniqueIndex;not null" json:"task_code"`
	CaregiverID int64                  `gorm:"not null;index:idx_notification_tasks_caregiver" json:"caregiver_id"`
	SeniorID    int64                  `gorm:"not null" json:"senior_id"`
	AlertID     *int64                 `gorm:"index:idx_notification_tasks_alert" json:"alert_id,omitempty"`
	Category    NotificationCategory   `gorm:"type:varchar(32);not null" json:"category"`
	Channel     NotificationChannel    `gorm:"type:varchar(16);not null" json:"channel"`
	Payload     JSONB                  `gorm:"type:jsonb;not null" json:"payload"`
	Status      NotificationTaskStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_notification_tasks_status" json:"status"`
	RetryCount  int                    `gorm:"type:smallint;not null;default:0" json:"retry_count"`
	ScheduledAt time.Time              `gorm:"type:timestamptz;not null;index:idx_notification_tasks_status" json:"scheduled_at"`
	ProcessedAt *time.Time             `gorm:"type:timestamptz" json:"processed_at,omitempty"`
}

// TableName 指定表名
func (NotificationTask) TableName() string {
	return "notification_tasks"
}

// DeliveryAttemptStatus 投递尝试状态枚举
type DeliveryAttemptStatus string

const (
	DeliveryAttemptStatusPending DeliveryAttemptStatus = "pending"
	DeliveryAttemptStatusSuccess DeliveryAttemptStatus = "success"
	DeliveryAttemptStatusFailed  DeliveryAttemptStatus = "failed"
)

// DeliveryAttempt 单次投递尝试记录，用于审计与重试判断
type DeliveryAttempt struct {
	BaseModel
	TaskID          int64                 `gorm:"not null;index:idx_delivery_attempts_task" json:"task_id"`
	Channel         NotificationChannel   `gorm:"type:varchar(16);not null" json:"channel"`
	Status          DeliveryAttemptStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ResponseCode    *string               `gorm:"type:varchar(32)" json:"response_code,omitempty"`
	ResponseMessage *string               `gorm:"type:varchar(255)" json:"response_message,omitempty"`
	AttemptedAt     time.Time             `gorm:"type:timestamptz;not null;default:now()" json:"attempted_at"`
}

// TableName 指定表名
func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}
