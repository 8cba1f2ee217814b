package dto

import "time"

type AlertItem struct {
	ID             string                 `json:"id"`
	SeniorID       string                 `json:"senior_id"`
	Type           string                 `json:"type"`
	Severity       string                 `json:"severity"`
	Message        string                 `json:"message"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Suppressed     bool                   `json:"suppressed"`
	Acknowledged   bool                   `json:"acknowledged"`
	AcknowledgedAt *time.Time             `json:"acknowledged_at,omitempty"`
	TriggeredAt    time.Time              `json:"triggered_at"`
}

type ListAlertsQuery struct {
	SeniorID     string `query:"senior_id"`
	Type         string `query:"type,omitempty"`
	Acknowledged string `query:"acknowledged,omitempty"` // "true" / "false" / 空
	Limit        int    `query:"limit,omitempty"`
}

// RaiseAlertRequest 手动上报告警（SOS 按钮等设备事实）
type RaiseAlertRequest struct {
	Type    string                 `json:"type" vd:"len($)>0"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
