package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"CareCircle/pkg/logger"
)

// FCMClient 基于 Firebase Cloud Messaging 的推送实现
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient 创建 FCM 客户端，credentialsFile 为服务账号 JSON 路径
func NewFCMClient(credentialsFile string) (*FCMClient, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("FCM credentials file is required")
	}

	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &FCMClient{client: client}, nil
}

func (c *FCMClient) buildMessage(deviceToken string, n Notification) *messaging.Message {
	androidPriority := "normal"
	sound := "default"
	channelID := "carecircle_reminders"
	if n.HighPriority {
		androidPriority = "high"
		sound = "alert"
		channelID = "carecircle_alerts"
	}

	return &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound:        sound,
				ChannelID:    channelID,
				DefaultSound: true,
			},
		},
	}
}

// Send 向单个设备推送
func (c *FCMClient) Send(ctx context.Context, deviceToken string, n Notification) (*SendResult, error) {
	if deviceToken == "" {
		return nil, fmt.Errorf("device token is empty")
	}

	messageID, err := c.client.Send(ctx, c.buildMessage(deviceToken, n))
	if err != nil {
		logger.Logger.Error("Failed to send push notification",
			zap.String("title", n.Title),
			zap.Bool("high_priority", n.HighPriority),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send push: %w", err)
	}

	logger.Logger.Debug("Push notification sent",
		zap.String("message_id", messageID),
		zap.String("title", n.Title),
	)

	return &SendResult{MessageID: messageID, Provider: "fcm"}, nil
}

// SendMulti 向多个设备推送相同内容
func (c *FCMClient) SendMulti(ctx context.Context, deviceTokens []string, n Notification) []error {
	errs := make([]error, len(deviceTokens))
	for i, token := range deviceTokens {
		_, errs[i] = c.Send(ctx, token, n)
	}
	return errs
}

// IsInvalidTokenError 判断错误是否表示设备 token 已失效，
// 失效的 token 应标记为无效而不是重试
func IsInvalidTokenError(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err)
}
