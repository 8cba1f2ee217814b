package model

// CaregiverStatus 照护者账号状态枚举
type CaregiverStatus string

const (
	CaregiverStatusOnboarding CaregiverStatus = "onboarding" // 注册验证中
	CaregiverStatusActive     CaregiverStatus = "active"     // 正常使用
	CaregiverStatusDisabled   CaregiverStatus = "disabled"   // 已停用
)

// Caregiver 照护者模型（App 的登录账号）

type Caregiver struct {
	BaseModel
	PublicID    int64           `gorm:"uniqueIndex;not null" json:"public_id"`
	Nickname    string          `gorm:"type:varchar(64);not null;default:''" json:"nickname"`
	PhoneCipher []byte          `gorm:"type:bytea" json:"-"`                // 手机号密文，不对外暴露
	PhoneHash   *string         `gorm:"uniqueIndex;type:char(64)" json:"-"` // 手机号哈希，用于查询
	Status      CaregiverStatus `gorm:"type:varchar(16);not null;default:'onboarding';index:idx_caregivers_status" json:"status"`

	// 推送设备信息
	DeviceToken        string `gorm:"type:varchar(255);not null;default:''" json:"-"`
	DeviceTokenValid   bool   `gorm:"not null;default:true" json:"device_token_valid"`

	// 通知偏好：按告警类型开关推送，key = AlertType, value = bool
	NotificationPrefs JSONB `gorm:"type:jsonb;default:'{}'" json:"notification_prefs"`
}

// TableName 指定表名
func (Caregiver) TableName() string {
	return "caregivers"
}

// PushEnabledFor 返回该照护者是否接收某类型的推送
// 偏好表中没有记录的类型默认开启
func (c *Caregiver) PushEnabledFor(alertType AlertType) bool {
	if c.NotificationPrefs == nil {
		return true
	}
	v, ok := c.NotificationPrefs[string(alertType)]
	if !ok {
		return true
	}
	enabled, ok := v.(bool)
	if !ok {
		return true
	}
	return enabled
}
