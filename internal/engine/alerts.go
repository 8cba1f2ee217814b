package engine

import (
	"time"

	"CareCircle/internal/model"
)

// Fact 告警分类器的输入：某个组件观察到的、值得告警的事实
type Fact struct {
	Type     model.AlertType
	SeniorID int64
	Message  string
	Payload  model.JSONB
	// Severity 显式指定时覆盖默认表（连续漏服升级、self_harm 升级等）
	Severity model.Severity
}

// defaultSeverity 类型到级别的固定映射
var defaultSeverity = map[model.AlertType]model.Severity{
	model.AlertTypeMedMissed:        model.SeverityWarning,
	model.AlertTypeSOS:              model.SeverityCritical,
	model.AlertTypeGeofenceExit:     model.SeverityUrgent,
	model.AlertTypeGeofenceEnter:    model.SeverityInfo,
	model.AlertTypeInactivity:       model.SeverityWarning,
	model.AlertTypeLowBattery:       model.SeverityInfo,
	model.AlertTypeAIRiskEscalation: model.SeverityUrgent,
	model.AlertTypeMessageUrgent:    model.SeverityUrgent,
}

// Classify 把事实规范化为告警记录，ID 由存储层分配
func Classify(fact Fact, now time.Time) model.Alert {
	severity := fact.Severity
	if severity == "" {
		severity = defaultSeverity[fact.Type]
	}
	if severity == "" {
		severity = model.SeverityInfo
	}

	return model.Alert{
		SeniorID:    fact.SeniorID,
		Type:        fact.Type,
		Severity:    severity,
		Message:     fact.Message,
		Payload:     fact.Payload,
		TriggeredAt: now,
	}
}

// QuietHours 免打扰时段，档案时区的本地挂钟时间
type QuietHours struct {
	Start string // HH:MM:SS
	End   string // HH:MM:SS，早于 Start 时表示跨午夜
}

// Contains 判断本地时间 localNow 是否落在免打扰时段内
func (q QuietHours) Contains(localNow time.Time) bool {
	if q.Start == "" || q.End == "" || q.Start == q.End {
		return false
	}

	start, err := time.Parse(slotLayout, q.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse(slotLayout, q.End)
	if err != nil {
		return false
	}

	nowSec := localNow.Hour()*3600 + localNow.Minute()*60 + localNow.Second()
	startSec := start.Hour()*3600 + start.Minute()*60 + start.Second()
	endSec := end.Hour()*3600 + end.Minute()*60 + end.Second()

	if startSec <= endSec {
		return nowSec >= startSec && nowSec < endSec
	}
	// 跨午夜，如 21:00 - 07:00
	return nowSec >= startSec || nowSec < endSec
}

// neverSuppressed 安全优先级高于偏好：SOS 和 self_harm 升级永不静默
func neverSuppressed(alert model.Alert) bool {
	if alert.Type == model.AlertTypeSOS {
		return true
	}
	if alert.Type == model.AlertTypeAIRiskEscalation && alert.Payload != nil {
		if cat, ok := alert.Payload["risk_category"].(string); ok && cat == string(model.RiskSelfHarm) {
			return true
		}
	}
	return false
}

// ShouldSuppress 推送抑制判定：抑制只影响推送，告警记录始终落库
//
// pushEnabled 来自照护者的按类型通知偏好；quiet 用档案时区解释，
// critical 级别不受免打扰影响。
func ShouldSuppress(alert model.Alert, pushEnabled bool, quiet QuietHours, tz *time.Location, now time.Time) bool {
	if neverSuppressed(alert) {
		return false
	}

	if !pushEnabled {
		return true
	}

	if quiet.Contains(now.In(tz)) && !alert.Severity.AtLeast(model.SeverityCritical) {
		return true
	}

	return false
}

// Acknowledge 照护者确认告警，幂等：已确认的告警返回 false 且不做任何修改
func Acknowledge(alert *model.Alert, caregiverID int64, now time.Time) bool {
	if alert.Acknowledged {
		return false
	}
	alert.Acknowledged = true
	alert.AcknowledgedBy = &caregiverID
	ackAt := now
	alert.AcknowledgedAt = &ackAt
	return true
}
