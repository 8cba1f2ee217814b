package engine

import (
	"time"

	"CareCircle/internal/model"
)

// 订阅生命周期：none -> trial -> active -> canceled -> expired
// 状态迁移单向，重新订阅总是新建记录

// EligibleForTrial 试用资格是一次性的终身授予：
// 只要存在过任何订阅记录（包括已过期的试用），就不再有资格
func EligibleForTrial(history []model.Subscription) bool {
	return len(history) == 0
}

// NewTrial 创建试用订阅，试用隐含 premium 档位且价格为 0
func NewTrial(caregiverID int64, trialDays int, now time.Time) model.Subscription {
	trialEnd := now.AddDate(0, 0, trialDays)
	return model.Subscription{
		CaregiverID: caregiverID,
		Tier:        model.TierPremium,
		Status:      model.SubscriptionStatusTrial,
		PriceCents:  0,
		StartDate:   now,
		TrialEnd:    &trialEnd,
	}
}

// Activate 购买确认：trial -> active（试用期内转正）或 pending -> active
func Activate(sub *model.Subscription, tier model.Tier, priceCents int, endDate time.Time, now time.Time) error {
	switch sub.Status {
	case model.SubscriptionStatusTrial:
		if sub.TrialEnd != nil && now.After(*sub.TrialEnd) {
			return ErrInvalidSubscriptionState
		}
	case model.SubscriptionStatusPending:
	default:
		return ErrInvalidSubscriptionState
	}

	sub.Status = model.SubscriptionStatusActive
	sub.Tier = tier
	sub.PriceCents = priceCents
	sub.EndDate = &endDate
	sub.AutoRenew = true
	return nil
}

// Cancel 用户取消：active -> canceled
// endDate 保持为已付费到期日，取消不立即收回权益
func Cancel(sub *model.Subscription, now time.Time) error {
	if sub.Status != model.SubscriptionStatusActive {
		return ErrInvalidSubscriptionState
	}
	sub.Status = model.SubscriptionStatusCanceled
	sub.AutoRenew = false
	return nil
}

// ExpireIfDue 定时扫描调用：到期的 trial/active/canceled 转为 expired
// 返回是否发生了状态变化
func ExpireIfDue(sub *model.Subscription, now time.Time) bool {
	switch sub.Status {
	case model.SubscriptionStatusTrial:
		if sub.TrialEnd != nil && now.After(*sub.TrialEnd) {
			sub.Status = model.SubscriptionStatusExpired
			return true
		}
	case model.SubscriptionStatusActive, model.SubscriptionStatusCanceled:
		if sub.EndDate != nil && now.After(*sub.EndDate) {
			sub.Status = model.SubscriptionStatusExpired
			return true
		}
	}
	return false
}

// EffectiveTier 解析某一时刻实际生效的订阅档位
//
// 纯函数，每次功能鉴权都会调用：订阅为空、已过期、或已取消且超过
// 付费到期日时一律回落到 free。trial 未过期时按记录档位（premium）计。
func EffectiveTier(sub *model.Subscription, now time.Time) model.Tier {
	if sub == nil {
		return model.TierFree
	}

	switch sub.Status {
	case model.SubscriptionStatusExpired, model.SubscriptionStatusPending:
		return model.TierFree
	case model.SubscriptionStatusTrial:
		if sub.TrialEnd != nil && now.After(*sub.TrialEnd) {
			return model.TierFree
		}
	case model.SubscriptionStatusCanceled, model.SubscriptionStatusActive:
		if sub.EndDate != nil && now.After(*sub.EndDate) {
			return model.TierFree
		}
	}

	return sub.Tier
}

// TierAtLeast 档位比较，free < basic < premium
func TierAtLeast(tier, required model.Tier) bool {
	rank := map[model.Tier]int{
		model.TierFree:    0,
		model.TierBasic:   1,
		model.TierPremium: 2,
	}
	return rank[tier] >= rank[required]
}
