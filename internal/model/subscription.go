package model

import "time"

// Tier 订阅档位枚举
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// SubscriptionStatus 订阅状态枚举
type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled" // 已取消但 endDate 前仍有权益
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Subscription 订阅记录
// 同一照护者同时最多一条 trial/active；取消后重新订阅会新建记录
// trial 状态隐含 tier=premium 且价格为 0

type Subscription struct {
	BaseModel
	PublicID    int64              `gorm:"uniqueIndex;not null" json:"public_id"`
	CaregiverID int64              `gorm:"not null;index:idx_subscriptions_caregiver" json:"caregiver_id"`
	Tier        Tier               `gorm:"type:varchar(16);not null" json:"tier"`
	Status      SubscriptionStatus `gorm:"type:varchar(16);not null;index:idx_subscriptions_status" json:"status"`
	PriceCents  int                `gorm:"not null;default:0" json:"price_cents"`
	AutoRenew   bool               `gorm:"not null;default:false" json:"auto_renew"`

	StartDate time.Time  `gorm:"type:timestamptz;not null" json:"start_date"`
	TrialEnd  *time.Time `gorm:"type:timestamptz" json:"trial_end,omitempty"`
	EndDate   *time.Time `gorm:"type:timestamptz" json:"end_date,omitempty"`
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}
