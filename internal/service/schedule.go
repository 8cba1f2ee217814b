package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"CareCircle/config"
	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/metrics"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
)

var (
	scheduleService *ScheduleService
	scheduleOnce    sync.Once
)

func Schedule() *ScheduleService {
	scheduleOnce.Do(func() {
		scheduleService = &ScheduleService{}
	})
	return scheduleService
}

type ScheduleService struct{}

// mapDefinitionError 引擎校验错误映射成业务错误码
func mapDefinitionError(err error) error {
	switch {
	case errors.Is(err, engine.ErrNoTimeSlots):
		return pkgerrors.ScheduleSlotsRequired
	case errors.Is(err, engine.ErrInvalidTimeSlot):
		return pkgerrors.ScheduleSlotInvalid
	case errors.Is(err, engine.ErrUnknownRecurrence):
		return pkgerrors.RecurrenceInvalid
	}
	return err
}

// CreateSchedule 创建日程定义，创建成功后立即对当前窗口做一次展开，
// 不用等到夜间调度
func (s *ScheduleService) CreateSchedule(
	ctx context.Context,
	userID, seniorID string,
	req dto.CreateScheduleRequest,
) (*dto.ScheduleItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}
	if !profile.Active {
		return nil, pkgerrors.SeniorInactive
	}

	def := model.ScheduleDefinition{
		SeniorID:   profile.ID,
		Label:      req.Label,
		Recurrence: model.RecurrenceKind(req.Recurrence),
		TimeSlots:  req.TimeSlots,
		Weekdays:   req.Weekdays,
		Active:     true,
	}

	if err := engine.ValidateDefinition(&def); err != nil {
		return nil, mapDefinitionError(err)
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule ID: %w", err)
	}
	def.PublicID = publicID

	if err := database.DB().WithContext(ctx).Create(&def).Error; err != nil {
		return nil, fmt.Errorf("failed to create schedule definition: %w", err)
	}

	logger.Logger.Info("Schedule definition created",
		zap.Int64("public_id", publicID),
		zap.Int64("senior_id", profile.ID),
		zap.String("recurrence", req.Recurrence),
	)

	s.expandNow(ctx)

	item := toScheduleItem(&def, profile.PublicID)
	return &item, nil
}

func (s *ScheduleService) ListSchedules(ctx context.Context, userID, seniorID string) ([]dto.ScheduleItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	var defs []model.ScheduleDefinition
	err = database.DB().WithContext(ctx).
		Where("senior_id = ?", profile.ID).
		Order("created_at ASC").
		Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule definitions: %w", err)
	}

	items := make([]dto.ScheduleItem, 0, len(defs))
	for i := range defs {
		items = append(items, toScheduleItem(&defs[i], profile.PublicID))
	}
	return items, nil
}

// UpdateSchedule 更新定义，时间槽变更只影响后续展开，已生成的事件不动
func (s *ScheduleService) UpdateSchedule(
	ctx context.Context,
	userID, scheduleID string,
	req dto.UpdateScheduleRequest,
) (*dto.ScheduleItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	def, profile, err := s.resolveOwnedSchedule(ctx, caregiver.ID, scheduleID)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		def.Label = *req.Label
	}
	if req.TimeSlots != nil {
		def.TimeSlots = *req.TimeSlots
	}
	if req.Weekdays != nil {
		def.Weekdays = *req.Weekdays
	}
	if req.Active != nil {
		def.Active = *req.Active
	}

	if err := engine.ValidateDefinition(def); err != nil {
		return nil, mapDefinitionError(err)
	}

	updates := map[string]interface{}{
		"label":      def.Label,
		"time_slots": def.TimeSlots,
		"weekdays":   def.Weekdays,
		"active":     def.Active,
	}
	err = database.DB().WithContext(ctx).
		Model(&model.ScheduleDefinition{}).
		Where("id = ?", def.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule definition: %w", err)
	}

	if def.Active {
		s.expandNow(ctx)
	}

	item := toScheduleItem(def, profile.PublicID)
	return &item, nil
}

// DeactivateSchedule 软停用：历史事件还引用定义，不做物理删除
func (s *ScheduleService) DeactivateSchedule(ctx context.Context, userID, scheduleID string) error {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return err
	}

	def, _, err := s.resolveOwnedSchedule(ctx, caregiver.ID, scheduleID)
	if err != nil {
		return err
	}

	err = database.DB().WithContext(ctx).
		Model(&model.ScheduleDefinition{}).
		Where("id = ?", def.ID).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate schedule definition: %w", err)
	}

	// 停用后窗口内还没到点的 pending 事件一并清掉
	err = database.DB().WithContext(ctx).
		Where("definition_id = ? AND status = ? AND scheduled_at > ?",
			def.ID, model.EventStatusPending, time.Now()).
		Delete(&model.ScheduledEvent{}).Error
	if err != nil {
		logger.Logger.Warn("Failed to remove future pending events",
			zap.Int64("definition_id", def.ID),
			zap.Error(err),
		)
	}

	return nil
}

// expandNow 对当前滚动窗口做一次同步展开，失败只记日志，
// 夜间调度会兜底补齐
func (s *ScheduleService) expandNow(ctx context.Context) {
	now := time.Now()
	windowEnd := now.AddDate(0, 0, config.Cfg.ExpandWindowDays)

	result, errs := Engine().ExpandWindow(ctx, now, windowEnd)
	for _, err := range errs {
		logger.Logger.Warn("Expansion error", zap.Error(err))
	}
	if result.Created > 0 {
		metrics.RecordEventsExpanded(int64(result.Created))
	}
}

func (s *ScheduleService) resolveOwnedSchedule(ctx context.Context, caregiverID int64, scheduleID string) (*model.ScheduleDefinition, *model.SeniorProfile, error) {
	var idInt int64
	if _, err := fmt.Sscanf(scheduleID, "%d", &idInt); err != nil {
		return nil, nil, pkgerrors.ScheduleNotFound
	}

	var def model.ScheduleDefinition
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", idInt).
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.ScheduleNotFound
		}
		return nil, nil, fmt.Errorf("failed to query schedule definition: %w", err)
	}

	var profile model.SeniorProfile
	if err := database.DB().WithContext(ctx).First(&profile, def.SeniorID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to query senior profile: %w", err)
	}
	if profile.CaregiverID != caregiverID {
		return nil, nil, pkgerrors.SeniorNotOwned
	}

	return &def, &profile, nil
}

func toScheduleItem(def *model.ScheduleDefinition, seniorPublicID int64) dto.ScheduleItem {
	return dto.ScheduleItem{
		ID:         fmt.Sprintf("%d", def.PublicID),
		SeniorID:   fmt.Sprintf("%d", seniorPublicID),
		Label:      def.Label,
		Recurrence: string(def.Recurrence),
		TimeSlots:  def.TimeSlots,
		Weekdays:   def.Weekdays,
		Active:     def.Active,
	}
}
