package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/service"
	"CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/pkg/response"
)

// PremiumRequiredMiddleware AI 陪伴等高级功能的订阅门槛
// 每次请求实时解析生效档位，订阅过期立刻失去访问权
func PremiumRequiredMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userID, exists := GetUserID(ctx, c)
		if !exists {
			c.Abort()
			response.Error(ctx, c, errors.Unauthorized)
			return
		}

		tier, err := service.Subscription().EffectiveTierFor(ctx, userID)
		if err != nil {
			logger.Logger.Error("Failed to resolve effective tier",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			c.Abort()
			response.Error(ctx, c, err)
			return
		}

		if !engine.TierAtLeast(tier, model.TierPremium) {
			c.Abort()
			response.Error(ctx, c, errors.PremiumRequired)
			return
		}

		c.Next(ctx)
	}
}
