package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/metrics"
	"CareCircle/storage/database"
)

var (
	eventService *EventService
	eventOnce    sync.Once
)

func Event() *EventService {
	eventOnce.Do(func() {
		eventService = &EventService{store: GormStore{}}
	})
	return eventService
}

type EventService struct {
	store GormStore
}

// ListEvents 查询某档案一段日期内的事件，附带定义的药品标签
func (s *EventService) ListEvents(
	ctx context.Context,
	userID string,
	q dto.ListEventsQuery,
) ([]dto.EventItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, q.SeniorID)
	if err != nil {
		return nil, err
	}

	db := database.DB().WithContext(ctx).
		Where("senior_id = ?", profile.ID)

	if q.From != "" {
		db = db.Where("event_date >= ?", q.From)
	}
	if q.To != "" {
		db = db.Where("event_date <= ?", q.To)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var events []model.ScheduledEvent
	if err := db.Order("scheduled_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	labels, err := s.labelsFor(ctx, events)
	if err != nil {
		return nil, err
	}

	items := make([]dto.EventItem, 0, len(events))
	for i := range events {
		ev := &events[i]
		items = append(items, dto.EventItem{
			ID:          fmt.Sprintf("%d", ev.PublicID),
			SeniorID:    q.SeniorID,
			Label:       labels[ev.DefinitionID],
			EventDate:   ev.EventDate,
			Slot:        ev.Slot,
			ScheduledAt: ev.ScheduledAt,
			Status:      string(ev.Status),
			TakenAt:     ev.TakenAt,
			Notes:       ev.Notes,
		})
	}
	return items, nil
}

// CompleteEvent 用户确认完成：pending -> taken
// 与自动漏服扫描的竞态由乐观更新化解，先到者胜出
func (s *EventService) CompleteEvent(ctx context.Context, userID, eventID, notes string) error {
	return s.transition(ctx, userID, eventID, notes, engine.MarkTaken)
}

// SkipEvent 用户主动跳过：pending -> skipped，不产生告警
func (s *EventService) SkipEvent(ctx context.Context, userID, eventID, notes string) error {
	return s.transition(ctx, userID, eventID, notes, engine.MarkSkipped)
}

func (s *EventService) transition(
	ctx context.Context,
	userID, eventID, notes string,
	apply func(*model.ScheduledEvent, time.Time) error,
) error {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return err
	}

	ev, err := s.resolveOwnedEvent(ctx, caregiver.ID, eventID)
	if err != nil {
		return err
	}

	if err := apply(ev, time.Now()); err != nil {
		if errors.Is(err, engine.ErrInvalidTransition) {
			return pkgerrors.EventAlreadyClosed
		}
		return err
	}
	ev.Notes = notes

	applied, err := s.store.UpdateEventStatus(ctx, ev, model.EventStatusPending)
	if err != nil {
		return err
	}
	if !applied {
		// 漏服扫描抢先落了 missed，或另一端设备已操作
		return pkgerrors.EventStatusConflict
	}

	return nil
}

// ProcessReminder slot 时间点消息触发：事件仍 pending 时给老人设备推提醒
// 实现 queue.EventProcessor
func (s *EventService) ProcessReminder(ctx context.Context, eventID int64) error {
	var ev model.ScheduledEvent
	if err := database.DB().WithContext(ctx).First(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NewSkipMessageError(fmt.Sprintf("event %d no longer exists", eventID))
		}
		return fmt.Errorf("failed to load event: %w", err)
	}

	if ev.Status != model.EventStatusPending {
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("event %d already %s", eventID, ev.Status))
	}

	profile, err := s.store.GetSeniorProfile(ctx, ev.SeniorID)
	if err != nil {
		return err
	}
	if !profile.Active {
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("senior %d inactive", profile.ID))
	}

	var def model.ScheduleDefinition
	if err := database.DB().WithContext(ctx).First(&def, ev.DefinitionID).Error; err != nil {
		return fmt.Errorf("failed to load definition: %w", err)
	}

	return Notification().SendMedReminder(ctx, &ev, &def, profile)
}

// ProcessMissedSweep 宽限期结束消息触发的单事件漏服判定
// 实现 queue.EventProcessor
func (s *EventService) ProcessMissedSweep(ctx context.Context, eventID int64) error {
	var ev model.ScheduledEvent
	if err := database.DB().WithContext(ctx).First(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NewSkipMessageError(fmt.Sprintf("event %d no longer exists", eventID))
		}
		return fmt.Errorf("failed to load event: %w", err)
	}

	if ev.Status != model.EventStatusPending {
		// 用户已经处理过，典型竞态，不算失败
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("event %d already %s", eventID, ev.Status))
	}

	prior, err := s.store.CountRecentConsecutiveMisses(ctx, ev.DefinitionID, ev.EventDate)
	if err != nil {
		return err
	}

	fact, err := engine.SweepMissed(&ev, prior, lifecycleConfig(), time.Now())
	if err != nil {
		if errors.Is(err, engine.ErrGraceNotElapsed) {
			// 时钟漂移导致消息早到，重试即可
			return fmt.Errorf("grace period not elapsed for event %d", eventID)
		}
		return pkgerrors.NewSkipMessageError(err.Error())
	}

	applied, err := s.store.UpdateEventStatus(ctx, &ev, model.EventStatusPending)
	if err != nil {
		return err
	}
	if !applied {
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("event %d resolved concurrently", eventID))
	}

	metrics.RecordEventsMissed(1)
	logger.Logger.Info("Event marked missed",
		zap.Int64("event_id", eventID),
		zap.Int("consecutive_misses", prior+1),
	)

	return Engine().RecordFact(ctx, *fact)
}

func (s *EventService) resolveOwnedEvent(ctx context.Context, caregiverID int64, eventID string) (*model.ScheduledEvent, error) {
	var idInt int64
	if _, err := fmt.Sscanf(eventID, "%d", &idInt); err != nil {
		return nil, pkgerrors.EventNotFound
	}

	var ev model.ScheduledEvent
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", idInt).
		First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.EventNotFound
		}
		return nil, fmt.Errorf("failed to query event: %w", err)
	}

	var profile model.SeniorProfile
	if err := database.DB().WithContext(ctx).First(&profile, ev.SeniorID).Error; err != nil {
		return nil, fmt.Errorf("failed to query senior profile: %w", err)
	}
	if profile.CaregiverID != caregiverID {
		return nil, pkgerrors.SeniorNotOwned
	}

	return &ev, nil
}

func (s *EventService) labelsFor(ctx context.Context, events []model.ScheduledEvent) (map[int64]string, error) {
	ids := make([]int64, 0, len(events))
	seen := make(map[int64]bool)
	for i := range events {
		if !seen[events[i].DefinitionID] {
			seen[events[i].DefinitionID] = true
			ids = append(ids, events[i].DefinitionID)
		}
	}
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	var defs []model.ScheduleDefinition
	err := database.DB().WithContext(ctx).
		Where("id IN ?", ids).
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	labels := make(map[int64]string, len(defs))
	for i := range defs {
		labels[defs[i].ID] = defs[i].Label
	}
	return labels, nil
}
