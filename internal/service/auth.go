package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"CareCircle/internal/cache"
	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/snowflake"
	"CareCircle/pkg/token"
	"CareCircle/storage/database"
	"CareCircle/utils"
)

var (
	authService *AuthService
	authOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = &AuthService{}
	})
	return authService
}

type AuthService struct{}

// VerifyCaptchaAndLogin 验证短信验证码后登录，手机号首次出现时注册新照护者
// 手机号只存密文和哈希，明文不落库
func (s *AuthService) VerifyCaptchaAndLogin(
	ctx context.Context,
	req dto.VerifyCaptchaRequest,
) (*dto.AuthResponse, error) {
	if err := Verification().VerifyCaptcha(ctx, req.Phone, req.Scene, req.Code); err != nil {
		return nil, err
	}

	phoneHash := utils.HashPhone(req.Phone)
	db := database.DB().WithContext(ctx)

	var caregiver model.Caregiver
	isNewUser := false

	err := db.Where("phone_hash = ?", phoneHash).First(&caregiver).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to query caregiver: %w", err)
		}

		publicID, err := snowflake.NextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate caregiver ID: %w", err)
		}

		phoneCipherBase64, err := utils.EncryptPhone(req.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt phone: %w", err)
		}
		phoneCipherBytes, err := base64.StdEncoding.DecodeString(phoneCipherBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode phone cipher: %w", err)
		}

		caregiver = model.Caregiver{
			PublicID:    publicID,
			Nickname:    req.Nickname,
			PhoneCipher: phoneCipherBytes,
			PhoneHash:   &phoneHash,
			Status:      model.CaregiverStatusActive,
		}

		if err := db.Create(&caregiver).Error; err != nil {
			return nil, fmt.Errorf("failed to create caregiver: %w", err)
		}

		isNewUser = true
		logger.Logger.Info("New caregiver registered",
			zap.Int64("public_id", publicID),
		)
	}

	if caregiver.Status == model.CaregiverStatusDisabled {
		return nil, pkgerrors.Unauthorized
	}

	userIDStr := fmt.Sprintf("%d", caregiver.PublicID)
	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := cache.SetRefreshToken(ctx, userIDStr, refreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token in Redis",
			zap.String("user_id", userIDStr),
			zap.Error(err),
		)
		// token 已经生成成功，不因缓存失败拒绝登录
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		Caregiver: dto.CaregiverSnapshot{
			ID:        userIDStr,
			Nickname:  caregiver.Nickname,
			Status:    string(caregiver.Status),
			IsNewUser: isNewUser,
		},
	}, nil
}

// RefreshToken 用 refresh token 换新的 token 对
func (s *AuthService) RefreshToken(
	ctx context.Context,
	refreshToken string,
) (*dto.AuthResponse, error) {
	userIDStr, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, pkgerrors.AuthCodeInvalid
	}

	if !cache.ValidateRefreshTokenExists(ctx, userIDStr, refreshToken) {
		return nil, pkgerrors.AuthCodeInvalid
	}

	caregiver, err := s.getByPublicIDString(ctx, userIDStr)
	if err != nil {
		return nil, err
	}

	accessToken, newRefreshToken, expiresIn, err := token.GenerateTokenPair(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := cache.SetRefreshToken(ctx, userIDStr, newRefreshToken); err != nil {
		logger.Logger.Warn("Failed to update refresh token in Redis",
			zap.String("user_id", userIDStr),
			zap.Error(err),
		)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
		Caregiver: dto.CaregiverSnapshot{
			ID:       userIDStr,
			Nickname: caregiver.Nickname,
			Status:   string(caregiver.Status),
		},
	}, nil
}

// RegisterDevice 绑定照护者的推送设备 token
func (s *AuthService) RegisterDevice(
	ctx context.Context,
	userID string,
	deviceToken string,
) error {
	caregiver, err := s.getByPublicIDString(ctx, userID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"device_token":       deviceToken,
		"device_token_valid": true,
	}
	err = database.DB().WithContext(ctx).
		Model(&model.Caregiver{}).
		Where("id = ?", caregiver.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update device token: %w", err)
	}
	return nil
}

// Logout 删除 refresh token，access token 到期自然失效
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return cache.DeleteRefreshToken(ctx, userID)
}

// getByPublicIDString 通用的 public_id 字符串解析 + 查询
func (s *AuthService) getByPublicIDString(ctx context.Context, userID string) (*model.Caregiver, error) {
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
