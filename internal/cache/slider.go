package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"CareCircle/storage/redis"
)

// 滑块验证两段式：先验滑块拿 verification token，再携带 token 发验证码

const (
	sli = "slider"
)

func SetSliderToken(ctx context.Context, token string) error {
	key := redis.Key(sli, "token", token)
	return redis.Client().Set(ctx, key, "1", 5*time.Minute).Err()
}

func ValidateSliderToken(ctx context.Context, token string) bool {
	key := redis.Key(sli, "token", token)
	exists, _ := redis.Client().Exists(ctx, key).Result()
	return exists > 0
}

func DeleteSliderToken(ctx context.Context, token string) error {
	key := redis.Key(sli, "token", token)
	return redis.Client().Del(ctx, key).Err()
}

// SetSliderVerificationToken 存储滑块验证通过后的 token
// TTL: 10分钟（用于后续发送验证码时验证）
func SetSliderVerificationToken(ctx context.Context, phoneHash string) (string, error) {
	token := generateRandomToken()
	key := redis.Key(sli, "verify", phoneHash)
	err := redis.Client().Set(ctx, key, token, 10*time.Minute).Err()
	return token, err
}

// ValidateSliderVerificationToken 验证滑块验证 token
func ValidateSliderVerificationToken(ctx context.Context, phoneHash, token string) bool {
	key := redis.Key(sli, "verify", phoneHash)
	storedToken, err := redis.Client().Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return storedToken == token
}

func generateRandomToken() string {
	return uuid.New().String()
}
