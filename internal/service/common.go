package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"CareCircle/internal/model"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/storage/database"
)

// 所有资源都从 JWT 里的照护者 public_id 出发解析，
// 归属校验集中在这里，service 方法不用各自重复

func resolveCaregiver(ctx context.Context, userID string) (*model.Caregiver, error) {
	var userIDInt int64
	if _, err := fmt.Sscanf(userID, "%d", &userIDInt); err != nil {
		return nil, pkgerrors.InvalidUserID
	}

	var caregiver model.Caregiver
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", userIDInt).
		First(&caregiver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Unauthorized
		}
		return nil, fmt.Errorf("failed to query caregiver: %w", err)
	}
	return &caregiver, nil
}

// resolveOwnedSenior 按 public_id 查档案并校验归属
func resolveOwnedSenior(ctx context.Context, caregiverID int64, seniorPublicID string) (*model.SeniorProfile, error) {
	var idInt int64
	if _, err := fmt.Sscanf(seniorPublicID, "%d", &idInt); err != nil {
		return nil, pkgerrors.SeniorNotFound
	}

	var profile model.SeniorProfile
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", idInt).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.SeniorNotFound
		}
		return nil, fmt.Errorf("failed to query senior profile: %w", err)
	}

	if profile.CaregiverID != caregiverID {
		return nil, pkgerrors.SeniorNotOwned
	}
	return &profile, nil
}
