package engine

import (
	"fmt"
	"time"

	"CareCircle/internal/model"
)

// LifecycleConfig 事件生命周期参数，来自 config，引擎不读全局配置
type LifecycleConfig struct {
	// GracePeriod 计划时间之后多久未确认自动判 missed
	GracePeriod time.Duration
	// ConsecutiveMissThreshold 连续漏服达到该次数时告警升级为 urgent
	ConsecutiveMissThreshold int
}

// DefaultLifecycleConfig 默认：60 分钟宽限期，连续 2 次升级
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		GracePeriod:              60 * time.Minute,
		ConsecutiveMissThreshold: 2,
	}
}

// MarkTaken 用户确认完成：pending -> taken，写入完成时间
func MarkTaken(ev *model.ScheduledEvent, now time.Time) error {
	if ev.Status != model.EventStatusPending {
		return fmt.Errorf("%w: %s -> taken", ErrInvalidTransition, ev.Status)
	}
	ev.Status = model.EventStatusTaken
	taken := now
	ev.TakenAt = &taken
	return nil
}

// MarkSkipped 用户主动跳过：pending -> skipped，不写完成时间
func MarkSkipped(ev *model.ScheduledEvent, now time.Time) error {
	if ev.Status != model.EventStatusPending {
		return fmt.Errorf("%w: %s -> skipped", ErrInvalidTransition, ev.Status)
	}
	ev.Status = model.EventStatusSkipped
	return nil
}

// SweepMissed 自动漏服判定：pending 且宽限期已过 -> missed
//
// priorConsecutiveMisses 是同一定义在本次之前已连续漏服的天数，
// 加上本次达到阈值时告警级别升为 urgent。返回的 Fact 交给告警分类器。
func SweepMissed(ev *model.ScheduledEvent, priorConsecutiveMisses int, cfg LifecycleConfig, now time.Time) (*Fact, error) {
	if ev.Status != model.EventStatusPending {
		return nil, fmt.Errorf("%w: %s -> missed", ErrInvalidTransition, ev.Status)
	}

	if !now.After(ev.ScheduledAt.Add(cfg.GracePeriod)) {
		return nil, ErrGraceNotElapsed
	}

	ev.Status = model.EventStatusMissed

	severity := model.SeverityWarning
	if priorConsecutiveMisses+1 >= cfg.ConsecutiveMissThreshold {
		severity = model.SeverityUrgent
	}

	return &Fact{
		Type:     model.AlertTypeMedMissed,
		SeniorID: ev.SeniorID,
		Severity: severity,
		Message:  fmt.Sprintf("Medication due at %s on %s was not taken", ev.Slot, ev.EventDate),
		Payload: model.JSONB{
			"event_id":           ev.ID,
			"definition_id":      ev.DefinitionID,
			"event_date":         ev.EventDate,
			"slot":               ev.Slot,
			"consecutive_misses": priorConsecutiveMisses + 1,
		},
	}, nil
}
