package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/pkg/metrics"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
)

// GormStore 引擎协作者的 PostgreSQL 实现
// 引擎只关心集合语义，所有 SQL 细节都收敛在这里
type GormStore struct{}

var _ engine.Store = (*GormStore)(nil)

func (GormStore) db(ctx context.Context) *gorm.DB {
	return database.DB().WithContext(ctx)
}

// GetDueScheduleDefinitions 返回所有激活的日程定义
// 档案停用的过滤交给 coordinator，保持此查询可独立复用
func (s GormStore) GetDueScheduleDefinitions(ctx context.Context, asOf time.Time) ([]model.ScheduleDefinition, error) {
	var defs []model.ScheduleDefinition
	err := s.db(ctx).
		Where("active = ?", true).
		Where("recurrence <> ?", model.RecurrenceAsNeeded).
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule definitions: %w", err)
	}
	return defs, nil
}

func (s GormStore) GetSeniorProfile(ctx context.Context, seniorID int64) (*model.SeniorProfile, error) {
	var profile model.SeniorProfile
	if err := s.db(ctx).First(&profile, seniorID).Error; err != nil {
		return nil, fmt.Errorf("failed to query senior profile %d: %w", seniorID, err)
	}
	return &profile, nil
}

func (s GormStore) GetCaregiver(ctx context.Context, caregiverID int64) (*model.Caregiver, error) {
	var caregiver model.Caregiver
	if err := s.db(ctx).First(&caregiver, caregiverID).Error; err != nil {
		return nil, fmt.Errorf("failed to query caregiver %d: %w", caregiverID, err)
	}
	return &caregiver, nil
}

func (s GormStore) GetExistingEventKeys(ctx context.Context, definitionID int64, windowStart, windowEnd time.Time) (map[engine.EventKey]struct{}, error) {
	var rows []struct {
		DefinitionID int64
		EventDate    string
		Slot         string
	}

	err := s.db(ctx).Model(&model.ScheduledEvent{}).
		Select("definition_id", "event_date", "slot").
		Where("definition_id = ?", definitionID).
		Where("scheduled_at >= ? AND scheduled_at < ?", windowStart, windowEnd).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query existing event keys: %w", err)
	}

	keys := make(map[engine.EventKey]struct{}, len(rows))
	for _, r := range rows {
		keys[engine.EventKey{DefinitionID: r.DefinitionID, Date: r.EventDate, Slot: r.Slot}] = struct{}{}
	}
	return keys, nil
}

// UpsertEvent (definition, date, slot) 冲突时不做任何事，保证并发展开幂等
func (s GormStore) UpsertEvent(ctx context.Context, event *model.ScheduledEvent) error {
	if event.PublicID == 0 {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate event ID: %w", err)
		}
		event.PublicID = id
	}

	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "definition_id"}, {Name: "event_date"}, {Name: "slot"}},
		DoNothing: true,
	}).Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

func (s GormStore) GetPendingEventsOlderThan(ctx context.Context, cutoff time.Time) ([]model.ScheduledEvent, error) {
	var events []model.ScheduledEvent
	err := s.db(ctx).
		Where("status = ?", model.EventStatusPending).
		Where("scheduled_at < ?", cutoff).
		Order("scheduled_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	return events, nil
}

// UpdateEventStatus 乐观更新：WHERE status=expected 保证用户动作和自动扫描
// 的竞态只有一方胜出，败方通过返回值感知
func (s GormStore) UpdateEventStatus(ctx context.Context, event *model.ScheduledEvent, expected model.EventStatus) (bool, error) {
	updates := map[string]interface{}{
		"status":   event.Status,
		"taken_at": event.TakenAt,
	}
	if event.Notes != "" {
		updates["notes"] = event.Notes
	}

	result := s.db(ctx).Model(&model.ScheduledEvent{}).
		Where("id = ? AND status = ?", event.ID, expected).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update event status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountRecentConsecutiveMisses 从 beforeDate 向前数连续 missed 的事件数，
// 碰到第一个非 missed 即停
func (s GormStore) CountRecentConsecutiveMisses(ctx context.Context, definitionID int64, beforeDate string) (int, error) {
	var statuses []model.EventStatus
	err := s.db(ctx).Model(&model.ScheduledEvent{}).
		Where("definition_id = ?", definitionID).
		Where("event_date < ?", beforeDate).
		Order("event_date DESC, slot DESC").
		Limit(30).
		Pluck("status", &statuses).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query recent events: %w", err)
	}

	count := 0
	for _, st := range statuses {
		if st != model.EventStatusMissed {
			break
		}
		count++
	}
	return count, nil
}

func (s GormStore) AppendAlert(ctx context.Context, alert *model.Alert) error {
	if alert.PublicID == 0 {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate alert ID: %w", err)
		}
		alert.PublicID = id
	}

	if err := s.db(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}

	metrics.RecordAlertTriggered(string(alert.Type), string(alert.Severity), alert.Suppressed)
	return nil
}

// GetGuardrailPolicy 档案没有显式策略时回落到保守默认值：
// 不屏蔽话题、不升级、summary_only
func (s GormStore) GetGuardrailPolicy(ctx context.Context, seniorID int64) (*model.GuardrailPolicy, error) {
	var policy model.GuardrailPolicy
	err := s.db(ctx).Where("senior_id = ?", seniorID).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.GuardrailPolicy{
				SeniorID:       seniorID,
				AvoidanceStyle: model.AvoidanceGentleRedirect,
				PrivacyMode:    model.PrivacySummaryOnly,
				AutoNotify:     true,
			}, nil
		}
		return nil, fmt.Errorf("failed to query guardrail policy: %w", err)
	}
	return &policy, nil
}

// GetSubscription 返回照护者最近一条订阅记录，从未订阅时返回 nil
func (s GormStore) GetSubscription(ctx context.Context, caregiverID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db(ctx).
		Where("caregiver_id = ?", caregiverID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &sub, nil
}
