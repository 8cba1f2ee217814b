package model

// MQ 消息体定义，与 internal/queue 的 exchange/routing key 对应

// MedReminderMessage 用药提醒延迟消息（slot 时间点触发）
type MedReminderMessage struct {
	MessageID    string `json:"message_id"`
	BatchID      string `json:"batch_id"`
	EventID      int64  `json:"event_id"`
	SeniorID     int64  `json:"senior_id"`
	Label        string `json:"label"`
	EventDate    string `json:"event_date"`
	Slot         string `json:"slot"`
	ScheduledAt  string `json:"scheduled_at"` // RFC3339，消息生成时间
	DelaySeconds int    `json:"delay_seconds"`
}

// MissedSweepMessage 宽限期结束后的漏服扫描消息
// 消费时事件可能已经被用户标记完成，扫描必须容忍这种竞态
type MissedSweepMessage struct {
	MessageID    string `json:"message_id"`
	BatchID      string `json:"batch_id"`
	EventID      int64  `json:"event_id"`
	SeniorID     int64  `json:"senior_id"`
	ScheduledAt  string `json:"scheduled_at"`
	DelaySeconds int    `json:"delay_seconds"`
}

// AlertDispatchMessage 告警推送消息（告警已落库，只负责投递）
type AlertDispatchMessage struct {
	MessageID   string `json:"message_id"`
	AlertID     int64  `json:"alert_id"`
	SeniorID    int64  `json:"senior_id"`
	ScheduledAt string `json:"scheduled_at"`
}

// ReportJobMessage 周报/月报生成任务
type ReportJobMessage struct {
	MessageID   string `json:"message_id"`
	SeniorID    int64  `json:"senior_id"`
	Period      string `json:"period"` // weekly / monthly
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	ScheduledAt string `json:"scheduled_at"`
}
