package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"CareCircle/internal/handler"
	"CareCircle/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware()) // 认证接口限流
	{
		auth.POST("/token/refresh", handler.RefreshToken)

		// 验证码相关路由
		captcha := auth.Group("/phone", middleware.CaptchaRateLimitMiddleware())
		{
			captcha.POST("/send-captcha", handler.SendCaptcha)
			captcha.POST("/verify-slider", handler.VerifySlider)
			captcha.POST("/verify", handler.VerifyCaptcha)
		}

		authed := auth.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/device", handler.RegisterDevice)
			authed.POST("/logout", handler.Logout)
		}
	}

	// 老人档案路由
	seniors := v1.Group("/seniors")
	seniors.Use(middleware.AuthMiddleware())
	{
		seniors.GET("", handler.ListSeniors)
		seniors.POST("", handler.CreateSenior)
		seniors.GET("/:senior_id", handler.GetSenior)
		seniors.PATCH("/:senior_id", handler.UpdateSenior)

		// 用药日程
		seniors.GET("/:senior_id/schedules", handler.ListSchedules)
		seniors.POST("/:senior_id/schedules", middleware.ScheduleSettingsRateLimitMiddleware(), handler.CreateSchedule)

		// 手动告警上报（SOS 等设备事实）
		seniors.POST("/:senior_id/alerts", handler.RaiseAlert)

		// AI 陪伴护栏策略
		seniors.GET("/:senior_id/guardrail", handler.GetGuardrailPolicy)
		seniors.PUT("/:senior_id/guardrail", handler.PutGuardrailPolicy)

		// 对话护栏评估，premium 权益门槛
		seniors.POST("/:senior_id/conversation/evaluate",
			middleware.PremiumRequiredMiddleware(), handler.EvaluateConversationTurn)
	}

	// 日程修改路由（按日程 ID 操作）
	schedules := v1.Group("/schedules")
	schedules.Use(middleware.AuthMiddleware())
	{
		schedules.PATCH("/:schedule_id", middleware.ScheduleSettingsRateLimitMiddleware(), handler.UpdateSchedule)
		schedules.DELETE("/:schedule_id", handler.DeactivateSchedule)
	}

	// 用药事件路由
	events := v1.Group("/events")
	events.Use(middleware.AuthMiddleware())
	{
		events.GET("", handler.ListEvents)
		events.POST("/:event_id/complete", handler.CompleteEvent)
		events.POST("/:event_id/skip", handler.SkipEvent)
	}

	// 告警路由
	alerts := v1.Group("/alerts")
	alerts.Use(middleware.AuthMiddleware())
	{
		alerts.GET("", handler.ListAlerts)
		alerts.POST("/:alert_id/ack", handler.AcknowledgeAlert)
	}

	// 订阅路由
	subscription := v1.Group("/subscription")
	subscription.Use(middleware.AuthMiddleware())
	{
		subscription.GET("", handler.GetSubscription)
		subscription.POST("/trial", handler.StartTrial)
		subscription.POST("/activate", handler.ActivateSubscription)
		subscription.POST("/cancel", handler.CancelSubscription)
	}
}
