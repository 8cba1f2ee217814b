package model

import "time"

// EventStatus 日程事件状态枚举
type EventStatus string

const (
	EventStatusPending EventStatus = "pending" // 待完成
	EventStatusTaken   EventStatus = "taken"   // 已完成（用户确认）
	EventStatusMissed  EventStatus = "missed"  // 超过宽限期自动标记
	EventStatusSkipped EventStatus = "skipped" // 用户主动跳过
)

// IsTerminal 是否终态，终态之后不允许任何状态迁移
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusTaken || s == EventStatusMissed || s == EventStatusSkipped
}

// ScheduledEvent 从 ScheduleDefinition 展开出的单次事件
// (definition, date, slot) 三元组唯一，保证重复展开不产生重复事件

type ScheduledEvent struct {
	BaseModel
	PublicID     int64       `gorm:"uniqueIndex;not null" json:"public_id"`
	DefinitionID int64       `gorm:"not null;uniqueIndex:idx_scheduled_events_dedupe" json:"definition_id"`
	SeniorID     int64       `gorm:"not null;index:idx_scheduled_events_senior" json:"senior_id"`
	EventDate    string      `gorm:"type:varchar(10);not null;uniqueIndex:idx_scheduled_events_dedupe" json:"event_date"` // YYYY-MM-DD，档案时区的本地日期
	Slot         string      `gorm:"type:varchar(8);not null;uniqueIndex:idx_scheduled_events_dedupe" json:"slot"`        // HH:MM:SS
	ScheduledAt  time.Time   `gorm:"type:timestamptz;not null;index:idx_scheduled_events_due" json:"scheduled_at"`
	Status       EventStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_scheduled_events_due" json:"status"`
	TakenAt      *time.Time  `gorm:"type:timestamptz" json:"taken_at,omitempty"` // 仅 status=taken 时有值
	Notes        string      `gorm:"type:varchar(255);not null;default:''" json:"notes,omitempty"`
}

// TableName 指定表名
func (ScheduledEvent) TableName() string {
	return "scheduled_events"
}
