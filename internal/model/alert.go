package model

import "time"

// AlertType 告警类型枚举
type AlertType string

const (
	AlertTypeMedMissed       AlertType = "med_missed"
	AlertTypeSOS             AlertType = "sos"
	AlertTypeGeofenceExit    AlertType = "geofence_exit"
	AlertTypeGeofenceEnter   AlertType = "geofence_enter"
	AlertTypeInactivity      AlertType = "inactivity"
	AlertTypeLowBattery      AlertType = "low_battery"
	AlertTypeAIRiskEscalation AlertType = "ai_risk_escalation"
	AlertTypeMessageUrgent   AlertType = "message_urgent"
)

// Severity 告警严重级别枚举
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityUrgent   Severity = "urgent"
	SeverityCritical Severity = "critical"
)

// severityRank 用于比较级别高低
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityUrgent:   2,
	SeverityCritical: 3,
}

// AtLeast 判断当前级别是否不低于 other
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Alert 规范化后的告警记录，只追加、只确认，从不删除

type Alert struct {
	BaseModel
	PublicID int64     `gorm:"uniqueIndex;not null" json:"public_id"`
	SeniorID int64     `gorm:"not null;index:idx_alerts_senior" json:"senior_id"`
	Type     AlertType `gorm:"type:varchar(32);not null;index:idx_alerts_type" json:"type"`
	Severity Severity  `gorm:"type:varchar(16);not null" json:"severity"`
	Message  string    `gorm:"type:varchar(512);not null" json:"message"`
	Payload  JSONB     `gorm:"type:jsonb" json:"payload,omitempty"`

	// 推送是否被静默（免打扰/偏好抑制时仍然落库，只是不推）
	Suppressed bool `gorm:"not null;default:false" json:"suppressed"`

	// 确认信息，幂等：重复确认不报错
	Acknowledged     bool       `gorm:"not null;default:false;index:idx_alerts_ack" json:"acknowledged"`
	AcknowledgedBy   *int64     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt   *time.Time `gorm:"type:timestamptz" json:"acknowledged_at,omitempty"`

	TriggeredAt time.Time `gorm:"type:timestamptz;not null" json:"triggered_at"`
}

// TableName 指定表名
func (Alert) TableName() string {
	return "alerts"
}
