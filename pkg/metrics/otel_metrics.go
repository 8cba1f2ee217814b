package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 通知投递相关指标
	NotificationSentTotal   metric.Int64Counter
	NotificationDuration    metric.Float64Histogram
	NotificationRetryTotal  metric.Int64Counter
	NotificationActiveTasks metric.Int64UpDownCounter
	NotificationQueueLength metric.Int64UpDownCounter

	// 告警与调度相关指标
	AlertsTriggeredTotal  metric.Int64Counter
	AlertsSuppressedTotal metric.Int64Counter
	EventsExpandedTotal   metric.Int64Counter
	EventsMissedTotal     metric.Int64Counter

	// HTTP 相关指标
	HTTPServerRequestTotal   metric.Int64Counter
	HTTPServerDuration       metric.Float64Histogram
	HTTPServerRequestSize    metric.Int64Histogram
	HTTPServerResponseSize   metric.Int64Histogram
	HTTPServerActiveRequests metric.Int64UpDownCounter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("carecircle")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	// 通知投递相关指标
	metrics.NotificationSentTotal, err = meter.Int64Counter(
		"notification_sent_total",
		metric.WithDescription("Total number of notifications dispatched"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationDuration, err = meter.Float64Histogram(
		"notification_send_duration_seconds",
		metric.WithDescription("Time spent dispatching notifications in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationRetryTotal, err = meter.Int64Counter(
		"notification_retry_total",
		metric.WithDescription("Total number of notification retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationActiveTasks, err = meter.Int64UpDownCounter(
		"notification_active_tasks",
		metric.WithDescription("Number of currently active notification tasks"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationQueueLength, err = meter.Int64UpDownCounter(
		"notification_queue_length",
		metric.WithDescription("Number of messages in notification queues"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	// 告警与调度相关指标
	metrics.AlertsTriggeredTotal, err = meter.Int64Counter(
		"alerts_triggered_total",
		metric.WithDescription("Total number of alerts recorded"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	metrics.AlertsSuppressedTotal, err = meter.Int64Counter(
		"alerts_suppressed_total",
		metric.WithDescription("Total number of alerts persisted without push"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	metrics.EventsExpandedTotal, err = meter.Int64Counter(
		"events_expanded_total",
		metric.WithDescription("Total number of scheduled events created by expansion"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	metrics.EventsMissedTotal, err = meter.Int64Counter(
		"events_missed_total",
		metric.WithDescription("Total number of events swept to missed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordNotificationSent 记录通知投递成功
func (m *OTelMetrics) RecordNotificationSent(ctx context.Context, category, channel string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("category", category),
		attribute.String("status", "success"),
		attribute.String("channel", channel),
	}

	m.NotificationSentTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.NotificationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("channel", channel),
	))
}

// RecordNotificationFailed 记录通知投递失败
func (m *OTelMetrics) RecordNotificationFailed(ctx context.Context, category, channel, reason string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("category", category),
		attribute.String("status", "failed"),
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	}

	m.NotificationSentTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.NotificationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("channel", channel),
	))
}

// RecordNotificationRetry 记录通知重试
func (m *OTelMetrics) RecordNotificationRetry(ctx context.Context, category, reason string) {
	m.NotificationRetryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("retry_reason", reason),
	))
}

// RecordAlertTriggered 记录一条告警落库
func (m *OTelMetrics) RecordAlertTriggered(ctx context.Context, alertType, severity string, suppressed bool) {
	m.AlertsTriggeredTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", alertType),
		attribute.String("severity", severity),
	))
	if suppressed {
		m.AlertsSuppressedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", alertType),
			attribute.String("severity", severity),
		))
	}
}

// RecordEventsExpanded 记录一次展开产生的事件数
func (m *OTelMetrics) RecordEventsExpanded(ctx context.Context, count int64) {
	if count > 0 {
		m.EventsExpandedTotal.Add(ctx, count)
	}
}

// RecordEventsMissed 记录一次扫描判定 missed 的事件数
func (m *OTelMetrics) RecordEventsMissed(ctx context.Context, count int64) {
	if count > 0 {
		m.EventsMissedTotal.Add(ctx, count)
	}
}

// UpdateNotificationActiveTasks 更新活跃通知任务数
func (m *OTelMetrics) UpdateNotificationActiveTasks(ctx context.Context, status, category string, count int64) {
	m.NotificationActiveTasks.Add(ctx, count, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("category", category),
	))
}

// SetNotificationQueueLength 设置通知队列长度
func (m *OTelMetrics) SetNotificationQueueLength(ctx context.Context, queueName string, length int64) {
	m.NotificationQueueLength.Add(ctx, length, metric.WithAttributes(
		attribute.String("queue_name", queueName),
	))
}

// AddNotificationActiveTask 增加活跃通知任务
func (m *OTelMetrics) AddNotificationActiveTask(ctx context.Context, status, category string) {
	m.UpdateNotificationActiveTasks(ctx, status, category, 1)
}

// SubtractNotificationActiveTask 减少活跃通知任务
func (m *OTelMetrics) SubtractNotificationActiveTask(ctx context.Context, status, category string) {
	m.UpdateNotificationActiveTasks(ctx, status, category, -1)
}
