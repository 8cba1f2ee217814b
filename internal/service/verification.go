package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"CareCircle/config"
	"CareCircle/internal/cache"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/slider"
	"CareCircle/pkg/sms"
	"CareCircle/utils"
)

var (
	verificationService *VerificationService
	verifyOnce          sync.Once
)

func Verification() *VerificationService {
	verifyOnce.Do(func() {
		verificationService = &VerificationService{}
	})

	return verificationService
}

type VerificationService struct{}

func generateCaptchaCode() string {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// SendCaptcha 发送短信验证码，超过阈值后要求滑块验证
func (s *VerificationService) SendCaptcha(
	ctx context.Context,
	phone string,
	scene string,
	captchaVerifyParam string,
) error {
	if !utils.ValidatePhone(phone) {
		return pkgerrors.PhoneInvalid
	}

	phoneHash := utils.HashPhone(phone)

	count, err := cache.IncrCaptchaCount(ctx, phoneHash)
	if err != nil {
		return fmt.Errorf("failed to check captcha count: %w", err)
	}

	if count > config.Cfg.CaptchaMaxDaily {
		return pkgerrors.CaptchaRateLimited
	}

	needSlider := count > config.Cfg.CaptchaSliderThreshold

	if needSlider {
		if captchaVerifyParam == "" {
			return pkgerrors.VerificationSliderRequired
		}

		if !cache.ValidateSliderVerificationToken(ctx, phoneHash, captchaVerifyParam) {
			return pkgerrors.VerificationSliderFailed
		}
	}

	code := generateCaptchaCode()

	if err := cache.SetCaptcha(ctx, phoneHash, scene, code); err != nil {
		return fmt.Errorf("failed to store captcha: %w", err)
	}

	// 短信发送失败时删除已存储的验证码，避免用户拿不到码却占着额度
	if err := sms.SendCaptchaSMS(ctx, phone, code); err != nil {
		cache.DeleteCaptcha(ctx, phoneHash, scene)
		logger.Logger.Error("Failed to send captcha SMS",
			zap.String("phone", utils.MaskPhone(phone)),
			zap.Error(err),
		)

		if config.Cfg.IsDevelopment() {
			return fmt.Errorf("failed to send SMS: %w", err)
		}
	}

	return nil
}

// VerifySlider 验证滑块并换取后续发码用的 verification token
func (s *VerificationService) VerifySlider(
	ctx context.Context,
	phone string,
	sceneID string,
	captchaVerifyParam string,
) (string, time.Time, error) {
	phoneHash := utils.HashPhone(phone)

	if sceneID != config.Cfg.CaptchaSceneID {
		return "", time.Time{}, pkgerrors.VerificationSliderFailed
	}

	valid, err := slider.Verify(ctx, captchaVerifyParam, sceneID)
	if err != nil {
		logger.Logger.Error("Failed to verify slider token",
			zap.String("phone", utils.MaskPhone(phone)),
			zap.Error(err),
		)
		return "", time.Time{}, pkgerrors.VerificationSliderFailed
	}

	if !valid {
		logger.Logger.Warn("Slider verification failed",
			zap.String("phone", utils.MaskPhone(phone)),
		)
		return "", time.Time{}, pkgerrors.VerificationSliderFailed
	}

	verifyToken, err := cache.SetSliderVerificationToken(ctx, phoneHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate verify token: %w", err)
	}

	expiresAt := time.Now().Add(5 * time.Minute)
	return verifyToken, expiresAt, nil
}

// VerifyCaptcha 校验验证码，成功后立即删除，验证码是一次性的
func (s *VerificationService) VerifyCaptcha(
	ctx context.Context,
	phone string,
	scene string,
	code string,
) error {
	phoneHash := utils.HashPhone(phone)

	storedCode, err := cache.GetCaptcha(ctx, phoneHash, scene)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pkgerrors.VerificationCodeExpired
		}
		return fmt.Errorf("failed to get captcha: %w", err)
	}

	if storedCode != code {
		return pkgerrors.VerificationCodeInvalid
	}

	cache.DeleteCaptcha(ctx, phoneHash, scene)
	return nil
}
