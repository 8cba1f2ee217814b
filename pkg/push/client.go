package push

import (
	"context"
	"fmt"
	"sync"

	"CareCircle/config"
	"CareCircle/pkg/logger"

	"go.uber.org/zap"
)

// Notification 一次推送的内容
type Notification struct {
	Title string
	Body  string
	// Data 自定义键值，客户端据此跳转到对应页面
	Data map[string]string
	// HighPriority 紧急告警使用高优先级通道和告警音
	HighPriority bool
}

// SendResult 单次推送结果
type SendResult struct {
	MessageID string
	Provider  string
}

// Client 推送客户端接口
type Client interface {
	// Send 向单个设备推送
	Send(ctx context.Context, deviceToken string, n Notification) (*SendResult, error)

	// SendMulti 向多个设备推送相同内容，返回每个 token 的错误（nil 表示成功）
	SendMulti(ctx context.Context, deviceTokens []string, n Notification) []error
}

var (
	pushClient Client
	pushOnce   sync.Once
	pushErr    error
)

// Init 初始化推送客户端
func Init() error {
	pushOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.PushProvider {
		case "fcm":
			pushClient, pushErr = NewFCMClient(cfg.FCMCredentialsFile)
		case "mock":
			pushClient = NewMockClient()
		default:
			pushErr = fmt.Errorf("unsupported push provider: %s", cfg.PushProvider)
		}

		if pushErr != nil {
			logger.Logger.Error("Failed to initialize push client", zap.Error(pushErr))
			return
		}

		logger.Logger.Info("Push client initialized successfully",
			zap.String("provider", cfg.PushProvider),
		)
	})

	return pushErr
}

func GetClient() Client {
	if pushClient == nil {
		panic("push client not initialized, call push.Init() first")
	}
	return pushClient
}

func Send(ctx context.Context, deviceToken string, n Notification) (*SendResult, error) {
	return GetClient().Send(ctx, deviceToken, n)
}

func SendMulti(ctx context.Context, deviceTokens []string, n Notification) []error {
	return GetClient().SendMulti(ctx, deviceTokens, n)
}
