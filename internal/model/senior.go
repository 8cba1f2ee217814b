package model

// SeniorProfile 被照护的老人档案，归属于某个照护者
// 时区、免打扰时段、认知等级都挂在这里，策略引擎按档案读取

type SeniorProfile struct {
	BaseModel
	PublicID    int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	CaregiverID int64  `gorm:"not null;index:idx_senior_profiles_caregiver" json:"caregiver_id"`
	DisplayName string `gorm:"type:varchar(64);not null" json:"display_name"`
	Active      bool   `gorm:"not null;default:true;index:idx_senior_profiles_active" json:"active"`

	// 时区与免打扰设置
	Timezone        string `gorm:"type:varchar(64);not null;default:'America/New_York'" json:"timezone"`
	QuietHoursStart string `gorm:"type:varchar(8);not null;default:'21:00:00'" json:"quiet_hours_start"` // 本地时间 HH:MM:SS
	QuietHoursEnd   string `gorm:"type:varchar(8);not null;default:'07:00:00'" json:"quiet_hours_end"`

	// AI 陪伴对话的语气与认知等级（0-3，数值越高表达越简单）
	CognitiveLevel int    `gorm:"type:smallint;not null;default:0" json:"cognitive_level"`
	Tone           Tone   `gorm:"type:varchar(16);not null;default:'friendly'" json:"tone"`
	CustomTone     string `gorm:"type:varchar(255);not null;default:''" json:"custom_tone,omitempty"`

	// 老人端设备推送 token（用药提醒直接推到老人设备）
	DeviceToken string `gorm:"type:varchar(255);not null;default:''" json:"-"`
}

// TableName 指定表名
func (SeniorProfile) TableName() string {
	return "senior_profiles"
}

// Tone AI 回复语气枚举
type Tone string

const (
	ToneFormal     Tone = "formal"
	ToneFriendly   Tone = "friendly"
	ToneNoNonsense Tone = "no_nonsense"
	ToneFunny      Tone = "funny"
	ToneCustom     Tone = "custom"
)
