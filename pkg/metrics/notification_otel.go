package metrics

import (
	"context"
)

// 包级包装函数，worker 和 service 直接调用，不必判空指标实例。

// RecordNotificationSent 记录通知投递成功
func RecordNotificationSent(category, channel string, duration float64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordNotificationSent(ctx, category, channel, duration)
	}
}

// RecordNotificationFailed 记录通知投递失败
func RecordNotificationFailed(category, channel, reason string, duration float64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordNotificationFailed(ctx, category, channel, reason, duration)
	}
}

// RecordNotificationRetry 记录通知重试
func RecordNotificationRetry(category, reason string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordNotificationRetry(ctx, category, reason)
	}
}

// RecordAlertTriggered 记录告警落库
func RecordAlertTriggered(alertType, severity string, suppressed bool) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordAlertTriggered(ctx, alertType, severity, suppressed)
	}
}

// RecordEventsExpanded 记录展开产生的事件数
func RecordEventsExpanded(count int64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordEventsExpanded(ctx, count)
	}
}

// RecordEventsMissed 记录判定 missed 的事件数
func RecordEventsMissed(count int64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.RecordEventsMissed(ctx, count)
	}
}

// AddNotificationActiveTask 增加活跃通知任务
func AddNotificationActiveTask(status, category string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.AddNotificationActiveTask(ctx, status, category)
	}
}

// SubtractNotificationActiveTask 减少活跃通知任务
func SubtractNotificationActiveTask(status, category string) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.SubtractNotificationActiveTask(ctx, status, category)
	}
}

// UpdateNotificationQueueLength 更新通知队列长度
func UpdateNotificationQueueLength(queueName string, length float64) {
	ctx := context.Background()
	m := GetMetrics()
	if m != nil {
		m.SetNotificationQueueLength(ctx, queueName, int64(length))
	}
}
