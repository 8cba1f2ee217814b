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
	"CareCircle/storage/database"
)

var (
	alertService *AlertService
	alertOnce    sync.Once
)

func Alert() *AlertService {
	alertOnce.Do(func() {
		alertService = &AlertService{}
	})
	return alertService
}

type AlertService struct{}

const defaultAlertLimit = 50

func (s *AlertService) ListAlerts(
	ctx context.Context,
	userID string,
	q dto.ListAlertsQuery,
) ([]dto.AlertItem, error) {
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

	if q.Type != "" {
		db = db.Where("type = ?", q.Type)
	}
	if q.Acknowledged == "true" {
		db = db.Where("acknowledged = ?", true)
	} else if q.Acknowledged == "false" {
		db = db.Where("acknowledged = ?", false)
	}

	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = defaultAlertLimit
	}

	var alerts []model.Alert
	err = db.Order("triggered_at DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	items := make([]dto.AlertItem, 0, len(alerts))
	for i := range alerts {
		items = append(items, toAlertItem(&alerts[i], q.SeniorID))
	}
	return items, nil
}

// AcknowledgeAlert 确认告警，幂等：已确认的返回当前状态且不改确认人
func (s *AlertService) AcknowledgeAlert(ctx context.Context, userID, alertID string) (*dto.AlertItem, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	alert, profile, err := s.resolveOwnedAlert(ctx, caregiver.ID, alertID)
	if err != nil {
		return nil, err
	}

	if engine.Acknowledge(alert, caregiver.ID, time.Now()) {
		err = database.DB().WithContext(ctx).
			Model(&model.Alert{}).
			Where("id = ? AND acknowledged = ?", alert.ID, false).
			Updates(map[string]interface{}{
				"acknowledged":    true,
				"acknowledged_by": alert.AcknowledgedBy,
				"acknowledged_at": alert.AcknowledgedAt,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
		}
	}

	item := toAlertItem(alert, fmt.Sprintf("%d", profile.PublicID))
	return &item, nil
}

// RaiseAlert 手动上报设备事实（SOS 按钮、跌倒检测回调等），
// 走与自动告警完全相同的分类和抑制管线
func (s *AlertService) RaiseAlert(
	ctx context.Context,
	userID, seniorID string,
	req dto.RaiseAlertRequest,
) error {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return err
	}
	if !profile.Active {
		return pkgerrors.SeniorInactive
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("%s reported for %s", req.Type, profile.DisplayName)
	}

	fact := engine.Fact{
		Type:     model.AlertType(req.Type),
		SeniorID: profile.ID,
		Message:  message,
		Payload:  req.Payload,
	}

	logger.Logger.Info("Manual alert raised",
		zap.Int64("senior_id", profile.ID),
		zap.String("type", req.Type),
	)

	return Engine().RecordFact(ctx, fact)
}

func (s *AlertService) resolveOwnedAlert(ctx context.Context, caregiverID int64, alertID string) (*model.Alert, *model.SeniorProfile, error) {
	var idInt int64
	if _, err := fmt.Sscanf(alertID, "%d", &idInt); err != nil {
		return nil, nil, pkgerrors.AlertNotFound
	}

	var alert model.Alert
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", idInt).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.AlertNotFound
		}
		return nil, nil, fmt.Errorf("failed to query alert: %w", err)
	}

	var profile model.SeniorProfile
	if err := database.DB().WithContext(ctx).First(&profile, alert.SeniorID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to query senior profile: %w", err)
	}
	if profile.CaregiverID != caregiverID {
		return nil, nil, pkgerrors.SeniorNotOwned
	}

	return &alert, &profile, nil
}

func toAlertItem(a *model.Alert, seniorID string) dto.AlertItem {
	return dto.AlertItem{
		ID:             fmt.Sprintf("%d", a.PublicID),
		SeniorID:       seniorID,
		Type:           string(a.Type),
		Severity:       string(a.Severity),
		Message:        a.Message,
		Payload:        a.Payload,
		Suppressed:     a.Suppressed,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		TriggeredAt:    a.TriggeredAt,
	}
}
