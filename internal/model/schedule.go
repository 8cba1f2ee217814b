package model

// RecurrenceKind 重复规则枚举
type RecurrenceKind string

const (
	RecurrenceDaily    RecurrenceKind = "daily"     // 每天
	RecurrenceWeekly   RecurrenceKind = "weekly"    // 每周指定星期
	RecurrenceAsNeeded RecurrenceKind = "as_needed" // 按需，不做展开
)

// ScheduleDefinition 用药/日程定义，由照护者维护
// 历史事件还引用它时只做软停用，不物理删除

type ScheduleDefinition struct {
	BaseModel
	PublicID   int64          `gorm:"uniqueIndex;not null" json:"public_id"`
	SeniorID   int64          `gorm:"not null;index:idx_schedule_definitions_senior" json:"senior_id"`
	Label      string         `gorm:"type:varchar(128);not null" json:"label"` // 如 "Metformin 500mg"
	Recurrence RecurrenceKind `gorm:"type:varchar(16);not null" json:"recurrence"`

	// TimeSlots 每日时间槽，格式 HH:MM:SS，按老人档案时区解释
	TimeSlots StringArray `gorm:"type:jsonb;not null;default:'[]'" json:"time_slots"`

	// Weekdays 仅 weekly 生效：0=周日 ... 6=周六
	Weekdays StringArray `gorm:"type:jsonb;not null;default:'[]'" json:"weekdays,omitempty"`

	Active bool `gorm:"not null;default:true;index:idx_schedule_definitions_active" json:"active"`
}

// TableName 指定表名
func (ScheduleDefinition) TableName() string {
	return "schedule_definitions"
}
