package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
)

var (
	subscriptionService *SubscriptionService
	subscriptionOnce    sync.Once
)

func Subscription() *SubscriptionService {
	subscriptionOnce.Do(func() {
		subscriptionService = &SubscriptionService{}
	})
	return subscriptionService
}

type SubscriptionService struct{}

// StartTrial 开始试用，资格终身一次：历史上存在过任何订阅记录即拒绝
func (s *SubscriptionService) StartTrial(ctx context.Context, userID string) (*dto.SubscriptionStatusResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	var history []model.Subscription
	err = database.DB().WithContext(ctx).
		Where("caregiver_id = ?", caregiver.ID).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription history: %w", err)
	}

	if !engine.EligibleForTrial(history) {
		return nil, pkgerrors.TrialAlreadyUsed
	}

	sub := engine.NewTrial(caregiver.ID, config.Cfg.TrialDays, time.Now())

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription ID: %w", err)
	}
	sub.PublicID = publicID

	if err := database.DB().WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create trial subscription: %w", err)
	}

	logger.Logger.Info("Trial started",
		zap.Int64("caregiver_id", caregiver.ID),
		zap.Time("trial_end", *sub.TrialEnd),
	)

	resp := toSubscriptionStatus(&sub, time.Now())
	return &resp, nil
}

// Activate 购买确认：trial 转正或 pending 激活
func (s *SubscriptionService) Activate(
	ctx context.Context,
	userID string,
	req dto.ActivateSubscriptionRequest,
) (*dto.SubscriptionStatusResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	tier := model.Tier(req.Tier)
	var priceCents int
	switch tier {
	case model.TierBasic:
		priceCents = config.Cfg.BasicPriceCents
	case model.TierPremium:
		priceCents = config.Cfg.PremiumPriceCents
	default:
		return nil, pkgerrors.SubscriptionInvalid
	}

	now := time.Now()
	sub, err := GormStore{}.GetSubscription(ctx, caregiver.ID)
	if err != nil {
		return nil, err
	}

	if sub == nil || sub.Status == model.SubscriptionStatusExpired {
		// 没有可转正的记录时新建一条 pending 再激活
		publicID, err := snowflake.NextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate subscription ID: %w", err)
		}
		sub = &model.Subscription{
			PublicID:    publicID,
			CaregiverID: caregiver.ID,
			Tier:        tier,
			Status:      model.SubscriptionStatusPending,
			StartDate:   now,
		}
		if err := database.DB().WithContext(ctx).Create(sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
	} else if sub.Status == model.SubscriptionStatusActive {
		return nil, pkgerrors.SubscriptionExists
	}

	endDate := now.AddDate(0, req.Months, 0)
	if err := engine.Activate(sub, tier, priceCents*req.Months, endDate, now); err != nil {
		if errors.Is(err, engine.ErrInvalidSubscriptionState) {
			return nil, pkgerrors.SubscriptionInvalid
		}
		return nil, err
	}

	err = database.DB().WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":      sub.Status,
			"tier":        sub.Tier,
			"price_cents": sub.PriceCents,
			"end_date":    sub.EndDate,
			"auto_renew":  sub.AutoRenew,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	logger.Logger.Info("Subscription activated",
		zap.Int64("caregiver_id", caregiver.ID),
		zap.String("tier", string(tier)),
		zap.Time("end_date", endDate),
	)

	resp := toSubscriptionStatus(sub, now)
	return &resp, nil
}

// Cancel 取消订阅，已付费期间权益保留到 end_date
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*dto.SubscriptionStatusResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub, err := GormStore{}.GetSubscription(ctx, caregiver.ID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.SubscriptionInvalid
	}

	if err := engine.Cancel(sub, now); err != nil {
		return nil, pkgerrors.SubscriptionInvalid
	}

	err = database.DB().WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":     sub.Status,
			"auto_renew": false,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	resp := toSubscriptionStatus(sub, now)
	return &resp, nil
}

// Status 当前订阅状态与实际生效档位
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*dto.SubscriptionStatusResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := GormStore{}.GetSubscription(ctx, caregiver.ID)
	if err != nil {
		return nil, err
	}

	resp := toSubscriptionStatus(sub, time.Now())
	return &resp, nil
}

// ExpireDueSubscriptions 定时扫描，把到期的 trial/active/canceled 落为 expired
// 返回本轮过期的条数
func (s *SubscriptionService) ExpireDueSubscriptions(ctx context.Context) (int, error) {
	now := time.Now()

	var subs []model.Subscription
	err := database.DB().WithContext(ctx).
		Where("status IN ?", []model.SubscriptionStatus{
			model.SubscriptionStatusTrial,
			model.SubscriptionStatusActive,
			model.SubscriptionStatusCanceled,
		}).
		Find(&subs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	expired := 0
	for i := range subs {
		sub := &subs[i]
		if !engine.ExpireIfDue(sub, now) {
			continue
		}

		err := database.DB().WithContext(ctx).
			Model(&model.Subscription{}).
			Where("id = ?", sub.ID).
			Update("status", model.SubscriptionStatusExpired).Error
		if err != nil {
			logger.Logger.Warn("Failed to expire subscription",
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		logger.Logger.Info("Subscriptions expired", zap.Int("count", expired))
	}
	return expired, nil
}

// EffectiveTierFor 功能鉴权用：照护者当前实际生效的档位
func (s *SubscriptionService) EffectiveTierFor(ctx context.Context, userID string) (model.Tier, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return model.TierFree, err
	}

	sub, err := GormStore{}.GetSubscription(ctx, caregiver.ID)
	if err != nil {
		return model.TierFree, err
	}

	return engine.EffectiveTier(sub, time.Now()), nil
}

func toSubscriptionStatus(sub *model.Subscription, now time.Time) dto.SubscriptionStatusResponse {
	if sub == nil {
		return dto.SubscriptionStatusResponse{
			Status:        "none",
			Tier:          string(model.TierFree),
			EffectiveTier: string(model.TierFree),
		}
	}

	start := sub.StartDate
	return dto.SubscriptionStatusResponse{
		Status:        string(sub.Status),
		Tier:          string(sub.Tier),
		EffectiveTier: string(engine.EffectiveTier(sub, now)),
		PriceCents:    sub.PriceCents,
		AutoRenew:     sub.AutoRenew,
		StartDate:     &start,
		TrialEnd:      sub.TrialEnd,
		EndDate:       sub.EndDate,
	}
}
