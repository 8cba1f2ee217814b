package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/storage/database"
)

var (
	seniorService *SeniorService
	seniorOnce    sync.Once
)

func Senior() *SeniorService {
	seniorOnce.Do(func() {
		seniorService = &SeniorService{}
	})
	return seniorService
}

type SeniorService struct{}

const slotLayout = "15:04:05"

func validateQuietHours(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	if _, err := time.Parse(slotLayout, start); err != nil {
		return pkgerrors.QuietHoursInvalid
	}
	if _, err := time.Parse(slotLayout, end); err != nil {
		return pkgerrors.QuietHoursInvalid
	}
	return nil
}

func validateTone(tone string) bool {
	switch model.Tone(tone) {
	case model.ToneFormal, model.ToneFriendly, model.ToneNoNonsense, model.ToneFunny, model.ToneCustom:
		return true
	}
	return false
}

// CreateSenior 创建老人档案，时区必须是合法 IANA 名称
func (s *SeniorService) CreateSenior(
	ctx context.Context,
	userID string,
	req dto.CreateSeniorRequest,
) (*dto.SeniorItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	tz := req.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, pkgerrors.TimezoneInvalid
	}

	if err := validateQuietHours(req.QuietHoursStart, req.QuietHoursEnd); err != nil {
		return nil, err
	}

	tone := req.Tone
	if tone == "" {
		tone = string(model.ToneFriendly)
	}
	if !validateTone(tone) {
		return nil, pkgerrors.Definition{Code: "TONE_INVALID", Message: "Unknown tone"}
	}

	if req.CognitiveLevel < 0 || req.CognitiveLevel > 3 {
		return nil, pkgerrors.Definition{Code: "COGNITIVE_LEVEL_INVALID", Message: "Cognitive level must be 0-3"}
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate senior ID: %w", err)
	}

	profile := model.SeniorProfile{
		PublicID:       publicID,
		CaregiverID:    caregiver.ID,
		DisplayName:    req.DisplayName,
		Active:         true,
		Timezone:       tz,
		CognitiveLevel: req.CognitiveLevel,
		Tone:           model.Tone(tone),
		CustomTone:     req.CustomTone,
	}
	if req.QuietHoursStart != "" {
		profile.QuietHoursStart = req.QuietHoursStart
		profile.QuietHoursEnd = req.QuietHoursEnd
	}

	if err := database.DB().WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create senior profile: %w", err)
	}

	logger.Logger.Info("Senior profile created",
		zap.Int64("public_id", publicID),
		zap.Int64("caregiver_id", caregiver.ID),
	)

	item := toSeniorItem(&profile)
	return &item, nil
}

func (s *SeniorService) ListSeniors(ctx context.Context, userID string) ([]dto.SeniorItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	var profiles []model.SeniorProfile
	err = database.DB().WithContext(ctx).
		Where("caregiver_id = ?", caregiver.ID).
		Order("created_at ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list senior profiles: %w", err)
	}

	items := make([]dto.SeniorItem, 0, len(profiles))
	for i := range profiles {
		items = append(items, toSeniorItem(&profiles[i]))
	}
	return items, nil
}

func (s *SeniorService) GetSenior(ctx context.Context, userID, seniorID string) (*dto.SeniorItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	item := toSeniorItem(profile)
	return &item, nil
}

// UpdateSenior 部分更新，Active=false 表示停用档案（停止一切调度）
func (s *SeniorService) UpdateSenior(
	ctx context.Context,
	userID, seniorID string,
	req dto.UpdateSeniorRequest,
) (*dto.SeniorItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, pkgerrors.TimezoneInvalid
		}
		updates["timezone"] = *req.Timezone
	}
	if req.QuietHoursStart != nil || req.QuietHoursEnd != nil {
		start := profile.QuietHoursStart
		end := profile.QuietHoursEnd
		if req.QuietHoursStart != nil {
			start = *req.QuietHoursStart
		}
		if req.QuietHoursEnd != nil {
			end = *req.QuietHoursEnd
		}
		if err := validateQuietHours(start, end); err != nil {
			return nil, err
		}
		updates["quiet_hours_start"] = start
		updates["quiet_hours_end"] = end
	}
	if req.CognitiveLevel != nil {
		if *req.CognitiveLevel < 0 || *req.CognitiveLevel > 3 {
			return nil, pkgerrors.Definition{Code: "COGNITIVE_LEVEL_INVALID", Message: "Cognitive level must be 0-3"}
		}
		updates["cognitive_level"] = *req.CognitiveLevel
	}
	if req.Tone != nil {
		if !validateTone(*req.Tone) {
			return nil, pkgerrors.Definition{Code: "TONE_INVALID", Message: "Unknown tone"}
		}
		updates["tone"] = *req.Tone
	}
	if req.CustomTone != nil {
		updates["custom_tone"] = *req.CustomTone
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.DeviceToken != nil {
		updates["device_token"] = *req.DeviceToken
	}

	if len(updates) == 0 {
		item := toSeniorItem(profile)
		return &item, nil
	}

	err = database.DB().WithContext(ctx).
		Model(&model.SeniorProfile{}).
		Where("id = ?", profile.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update senior profile: %w", err)
	}

	updated, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	item := toSeniorItem(updated)
	return &item, nil
}

func toSeniorItem(p *model.SeniorProfile) dto.SeniorItem {
	return dto.SeniorItem{
		ID:              fmt.Sprintf("%d", p.PublicID),
		DisplayName:     p.DisplayName,
		Active:          p.Active,
		Timezone:        p.Timezone,
		QuietHoursStart: p.QuietHoursStart,
		QuietHoursEnd:   p.QuietHoursEnd,
		CognitiveLevel:  p.CognitiveLevel,
		Tone:            string(p.Tone),
		CustomTone:      p.CustomTone,
	}
}
