package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

func TestTrialEligibilityIsLifetimeSingleUse(t *testing.T) {
	assert.True(t, EligibleForTrial(nil))

	// 任何历史记录（哪怕已过期）都会耗尽资格
	expired := model.Subscription{Status: model.SubscriptionStatusExpired}
	assert.False(t, EligibleForTrial([]model.Subscription{expired}))
}

func TestNewTrial(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sub := NewTrial(3, 14, now)

	assert.Equal(t, model.SubscriptionStatusTrial, sub.Status)
	assert.Equal(t, model.TierPremium, sub.Tier)
	assert.Zero(t, sub.PriceCents)
	require.NotNil(t, sub.TrialEnd)
	assert.Equal(t, now.AddDate(0, 0, 14), *sub.TrialEnd)
}

func TestActivateFromTrial(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sub := NewTrial(3, 14, now)

	endDate := now.AddDate(0, 1, 0)
	require.NoError(t, Activate(&sub, model.TierPremium, 1999, endDate, now.AddDate(0, 0, 7)))
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 1999, sub.PriceCents)
	assert.True(t, sub.AutoRenew)
}

func TestActivateAfterTrialEndRejected(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sub := NewTrial(3, 14, now)

	err := Activate(&sub, model.TierPremium, 1999, now.AddDate(0, 1, 0), now.AddDate(0, 0, 20))
	assert.ErrorIs(t, err, ErrInvalidSubscriptionState)
	assert.Equal(t, model.SubscriptionStatusTrial, sub.Status)
}

func TestCancelKeepsPaidPeriod(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	endDate := now.AddDate(0, 1, 0)
	sub := model.Subscription{
		Status:  model.SubscriptionStatusActive,
		Tier:    model.TierPremium,
		EndDate: &endDate,
	}

	require.NoError(t, Cancel(&sub, now))
	assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	assert.False(t, sub.AutoRenew)
	// 已付费期间权益保留
	assert.Equal(t, model.TierPremium, EffectiveTier(&sub, now.AddDate(0, 0, 10)))
	assert.Equal(t, model.TierFree, EffectiveTier(&sub, endDate.AddDate(0, 0, 1)))

	// 非 active 不可取消
	assert.ErrorIs(t, Cancel(&sub, now), ErrInvalidSubscriptionState)
}

func TestExpireIfDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	trial := NewTrial(3, 14, now)
	assert.False(t, ExpireIfDue(&trial, now.AddDate(0, 0, 13)))
	assert.True(t, ExpireIfDue(&trial, now.AddDate(0, 0, 15)))
	assert.Equal(t, model.SubscriptionStatusExpired, trial.Status)

	// 已过期不会重复迁移
	assert.False(t, ExpireIfDue(&trial, now.AddDate(0, 0, 16)))
}

func TestEffectiveTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, model.TierFree, EffectiveTier(nil, now))

	trial := NewTrial(3, 14, now)
	assert.Equal(t, model.TierPremium, EffectiveTier(&trial, now.AddDate(0, 0, 7)))
	// 记录未被定时扫描迁移也按 free 计
	assert.Equal(t, model.TierFree, EffectiveTier(&trial, now.AddDate(0, 0, 15)))

	endDate := now.AddDate(0, 1, 0)
	active := model.Subscription{
		Status:  model.SubscriptionStatusActive,
		Tier:    model.TierBasic,
		EndDate: &endDate,
	}
	assert.Equal(t, model.TierBasic, EffectiveTier(&active, now))
	assert.Equal(t, model.TierFree, EffectiveTier(&active, endDate.AddDate(0, 0, 1)))
}

func TestTierAtLeast(t *testing.T) {
	assert.True(t, TierAtLeast(model.TierPremium, model.TierBasic))
	assert.True(t, TierAtLeast(model.TierBasic, model.TierBasic))
	assert.False(t, TierAtLeast(model.TierFree, model.TierPremium))
}
