package engine

import (
	"context"
	"time"

	"CareCircle/internal/model"
)

// 协作者接口：引擎本身只做纯计算，所有 I/O 通过注入的实现完成
// 生产实现在 internal/service（gorm）、pkg/push / internal/queue（投递）

// Clock 时间源，测试时注入固定时钟
type Clock interface {
	Now() time.Time
	// TimezoneFor 返回老人档案的 IANA 时区
	TimezoneFor(ctx context.Context, seniorID int64) (*time.Location, error)
}

// SystemClock 生产默认时钟，时区从 Store 读取档案后由调用方解析
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) TimezoneFor(ctx context.Context, seniorID int64) (*time.Location, error) {
	// 不持有 Store 的实现请使用 service.Clock()，这里兜底返回 UTC
	return time.UTC, nil
}

// Store 实体读写接口，Firestore 风格的集合查询抽象
type Store interface {
	// GetDueScheduleDefinitions 返回激活且需要展开的日程定义
	GetDueScheduleDefinitions(ctx context.Context, asOf time.Time) ([]model.ScheduleDefinition, error)

	GetSeniorProfile(ctx context.Context, seniorID int64) (*model.SeniorProfile, error)
	GetCaregiver(ctx context.Context, caregiverID int64) (*model.Caregiver, error)

	// GetExistingEventKeys 查询窗口内已展开的事件键，用于幂等展开
	GetExistingEventKeys(ctx context.Context, definitionID int64, windowStart, windowEnd time.Time) (map[EventKey]struct{}, error)

	UpsertEvent(ctx context.Context, event *model.ScheduledEvent) error

	// GetPendingEventsOlderThan 返回计划时间早于 cutoff 且仍为 pending 的事件
	GetPendingEventsOlderThan(ctx context.Context, cutoff time.Time) ([]model.ScheduledEvent, error)

	// UpdateEventStatus 乐观更新：仅当存储中状态仍为 expected 时写入，返回是否生效
	UpdateEventStatus(ctx context.Context, event *model.ScheduledEvent, expected model.EventStatus) (bool, error)

	// CountRecentConsecutiveMisses 统计该定义在 beforeDate 之前连续 missed 的天数
	CountRecentConsecutiveMisses(ctx context.Context, definitionID int64, beforeDate string) (int, error)

	AppendAlert(ctx context.Context, alert *model.Alert) error

	GetGuardrailPolicy(ctx context.Context, seniorID int64) (*model.GuardrailPolicy, error)
	GetSubscription(ctx context.Context, caregiverID int64) (*model.Subscription, error)
}

// Notifier 推送出口，fire-and-forget：投递失败不回滚告警，由实现方自行重试
type Notifier interface {
	Push(ctx context.Context, alert model.Alert)
}

// NopNotifier 空实现，测试或推送关闭时使用
type NopNotifier struct{}

func (NopNotifier) Push(ctx context.Context, alert model.Alert) {}
