package engine

import (
	"context"
	"fmt"
	"time"

	"CareCircle/internal/model"
)

// Coordinator 把纯函数核心与协作者接口组装起来，
// 是调度器和 service 层进入引擎的唯一入口
type Coordinator struct {
	store    Store
	clock    Clock
	notifier Notifier
	cfg      LifecycleConfig
	matcher  TopicMatcher
}

// NewCoordinator 构造协调器，matcher 为 nil 时使用 ContainsFold
func NewCoordinator(store Store, clock Clock, notifier Notifier, cfg LifecycleConfig, matcher TopicMatcher) *Coordinator {
	if matcher == nil {
		matcher = ContainsFold
	}
	return &Coordinator{
		store:    store,
		clock:    clock,
		notifier: notifier,
		cfg:      cfg,
		matcher:  matcher,
	}
}

// ExpandResult 单次展开的统计
type ExpandResult struct {
	Definitions int
	Created     int
	Skipped     int
}

// ExpandWindow 对所有到期定义做幂等展开，不同档案互不影响：
// 单个档案失败不会中断整批
func (c *Coordinator) ExpandWindow(ctx context.Context, windowStart, windowEnd time.Time) (ExpandResult, []error) {
	var result ExpandResult
	var errs []error

	defs, err := c.store.GetDueScheduleDefinitions(ctx, c.clock.Now())
	if err != nil {
		return result, []error{fmt.Errorf("list due definitions: %w", err)}
	}

	for i := range defs {
		def := &defs[i]

		profile, err := c.store.GetSeniorProfile(ctx, def.SeniorID)
		if err != nil {
			errs = append(errs, fmt.Errorf("definition %d: load profile: %w", def.ID, err))
			continue
		}
		// 档案停用则跳过该档案的一切调度
		if !profile.Active {
			result.Skipped++
			continue
		}

		tz, err := time.LoadLocation(profile.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("definition %d: bad timezone %s: %w", def.ID, profile.Timezone, err))
			continue
		}

		existing, err := c.store.GetExistingEventKeys(ctx, def.ID, windowStart, windowEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("definition %d: load existing keys: %w", def.ID, err))
			continue
		}

		events, err := Expand(def, tz, existing, windowStart, windowEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("definition %d: expand: %w", def.ID, err))
			continue
		}

		result.Definitions++
		for j := range events {
			if err := c.store.UpsertEvent(ctx, &events[j]); err != nil {
				errs = append(errs, fmt.Errorf("definition %d: upsert event: %w", def.ID, err))
				continue
			}
			result.Created++
		}
	}

	return result, errs
}

// SweepResult 漏服扫描统计
type SweepResult struct {
	Swept int // 成功转为 missed 的事件数
	Races int // 乐观检查失败（用户已先完成）的事件数
}

// SweepMissedEvents 扫描宽限期已过仍 pending 的事件并判定 missed
//
// 乐观检查容忍与用户动作的竞态：存储中状态已离开 pending 时本次
// 扫描直接放弃该事件，终态不会被自动迁移覆盖。
func (c *Coordinator) SweepMissedEvents(ctx context.Context) (SweepResult, []error) {
	var result SweepResult
	var errs []error

	now := c.clock.Now()
	cutoff := now.Add(-c.cfg.GracePeriod)

	pending, err := c.store.GetPendingEventsOlderThan(ctx, cutoff)
	if err != nil {
		return result, []error{fmt.Errorf("list pending events: %w", err)}
	}

	for i := range pending {
		ev := &pending[i]

		prior, err := c.store.CountRecentConsecutiveMisses(ctx, ev.DefinitionID, ev.EventDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: count misses: %w", ev.ID, err))
			continue
		}

		fact, err := SweepMissed(ev, prior, c.cfg, now)
		if err != nil {
			// InvalidTransition / 宽限未到都不是故障，跳过即可
			continue
		}

		applied, err := c.store.UpdateEventStatus(ctx, ev, model.EventStatusPending)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: update status: %w", ev.ID, err))
			continue
		}
		if !applied {
			// 用户在扫描间隙完成了事件，竞态已由乐观检查化解
			result.Races++
			continue
		}

		result.Swept++
		if err := c.RecordFact(ctx, *fact); err != nil {
			errs = append(errs, fmt.Errorf("event %d: record alert: %w", ev.ID, err))
		}
	}

	return result, errs
}

// RecordFact 分类并持久化告警，再决定是否推送
//
// 持久化先于推送：推送失败或被抑制都不影响告警记录本身
func (c *Coordinator) RecordFact(ctx context.Context, fact Fact) error {
	alert := Classify(fact, c.clock.Now())

	profile, err := c.store.GetSeniorProfile(ctx, fact.SeniorID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	caregiver, err := c.store.GetCaregiver(ctx, profile.CaregiverID)
	if err != nil {
		return fmt.Errorf("load caregiver: %w", err)
	}

	tz, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		tz = time.UTC
	}

	quiet := QuietHours{Start: profile.QuietHoursStart, End: profile.QuietHoursEnd}
	alert.Suppressed = ShouldSuppress(alert, caregiver.PushEnabledFor(alert.Type), quiet, tz, c.clock.Now())

	if err := c.store.AppendAlert(ctx, &alert); err != nil {
		return fmt.Errorf("append alert: %w", err)
	}

	if !alert.Suppressed {
		c.notifier.Push(ctx, alert)
	}

	return nil
}

// EvaluateConversationTurn 执行护栏评估并记录升级告警
//
// AI 陪伴功能要求 premium 权益；AutoNotify=false 时告警仍然落库，
// 只是不触发主动推送。
func (c *Coordinator) EvaluateConversationTurn(ctx context.Context, seniorID int64, turn Turn) (Evaluation, error) {
	profile, err := c.store.GetSeniorProfile(ctx, seniorID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load profile: %w", err)
	}

	sub, err := c.store.GetSubscription(ctx, profile.CaregiverID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load subscription: %w", err)
	}
	if !TierAtLeast(EffectiveTier(sub, c.clock.Now()), model.TierPremium) {
		return Evaluation{}, ErrNotEntitled
	}

	policy, err := c.store.GetGuardrailPolicy(ctx, seniorID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load guardrail policy: %w", err)
	}

	eval := EvaluateTurn(turn, policy, profile, c.matcher)

	if eval.Escalate && eval.Alert != nil {
		alert := Classify(*eval.Alert, c.clock.Now())

		caregiver, err := c.store.GetCaregiver(ctx, profile.CaregiverID)
		if err != nil {
			return eval, fmt.Errorf("load caregiver: %w", err)
		}

		tz, err := time.LoadLocation(profile.Timezone)
		if err != nil {
			tz = time.UTC
		}
		quiet := QuietHours{Start: profile.QuietHoursStart, End: profile.QuietHoursEnd}

		suppressed := ShouldSuppress(alert, caregiver.PushEnabledFor(alert.Type), quiet, tz, c.clock.Now())
		alert.Suppressed = suppressed || !eval.Notify

		if err := c.store.AppendAlert(ctx, &alert); err != nil {
			return eval, fmt.Errorf("append alert: %w", err)
		}

		if !alert.Suppressed {
			c.notifier.Push(ctx, alert)
		}
	}

	return eval, nil
}
