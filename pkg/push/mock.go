package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type MockPush struct {
	DeviceToken  string
	Notification Notification
}

// MockClient 记录所有推送调用，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Sent  []MockPush
	seq   int

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Sent: make([]MockPush, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, deviceToken string, n Notification) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sent = append(m.Sent, MockPush{DeviceToken: deviceToken, Notification: n})

	if m.FailNext {
		m.FailNext = false
		return nil, errors.New("mock push send failure")
	}

	m.seq++
	return &SendResult{
		MessageID: fmt.Sprintf("mock-push-%d", m.seq),
		Provider:  "mock",
	}, nil
}

func (m *MockClient) SendMulti(ctx context.Context, deviceTokens []string, n Notification) []error {
	errs := make([]error, len(deviceTokens))
	for i, token := range deviceTokens {
		_, errs[i] = m.Send(ctx, token, n)
	}
	return errs
}
