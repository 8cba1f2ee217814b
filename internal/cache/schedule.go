package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"CareCircle/storage/redis"
)

const (
	// 用于记录调度状态，消息队列消费时快速判断是否可以跳过
	reminderScheduledPrefix = "event:reminder:scheduled"
	sweepScheduledPrefix    = "event:sweep:scheduled"
	expansionDonePrefix     = "expand:done"
	messageProcessedPrefix  = "message:processed"
	dailyPushPrefix         = "push:daily" // 每日非紧急推送限额

	scheduledTTL = 48 * time.Hour
	processedTTL = 48 * time.Hour

	// DailyPushLimit 每个照护者每天非紧急推送上限
	DailyPushLimit = 20
)

// IsReminderScheduled 检查事件的提醒消息是否已投放
func IsReminderScheduled(ctx context.Context, eventID int64) (bool, error) {
	key := redis.Key(reminderScheduledPrefix, fmt.Sprintf("%d", eventID))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder scheduled status: %w", err)
	}
	return result > 0, nil
}

// MarkReminderScheduled 标记事件的提醒消息已投放
func MarkReminderScheduled(ctx context.Context, eventID int64) error {
	key := redis.Key(reminderScheduledPrefix, fmt.Sprintf("%d", eventID))
	return redis.Client().Set(ctx, key, "1", scheduledTTL).Err()
}

// IsSweepScheduled 检查事件的漏服扫描消息是否已投放
func IsSweepScheduled(ctx context.Context, eventID int64) (bool, error) {
	key := redis.Key(sweepScheduledPrefix, fmt.Sprintf("%d", eventID))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check sweep scheduled status: %w", err)
	}
	return result > 0, nil
}

// MarkSweepScheduled 标记事件的漏服扫描消息已投放
func MarkSweepScheduled(ctx context.Context, eventID int64) error {
	key := redis.Key(sweepScheduledPrefix, fmt.Sprintf("%d", eventID))
	return redis.Client().Set(ctx, key, "1", scheduledTTL).Err()
}

// UnmarkEventScheduled 清除事件的投放标记（日程更新后重新投放用）
func UnmarkEventScheduled(ctx context.Context, eventID int64) error {
	keys := []string{
		redis.Key(reminderScheduledPrefix, fmt.Sprintf("%d", eventID)),
		redis.Key(sweepScheduledPrefix, fmt.Sprintf("%d", eventID)),
	}

	if err := redis.Client().Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to unmark event scheduled: %w", err)
	}
	return nil
}

// IsExpansionDone 检查某定义当日展开是否已执行
func IsExpansionDone(ctx context.Context, definitionID int64, date string) (bool, error) {
	key := redis.Key(expansionDonePrefix, date, fmt.Sprintf("%d", definitionID))
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check expansion status: %w", err)
	}
	return result > 0, nil
}

// MarkExpansionDone 标记某定义当日展开已执行
// 只是快速跳过用，真正的幂等由 (definition, date, slot) 唯一键保证
func MarkExpansionDone(ctx context.Context, definitionID int64, date string) error {
	key := redis.Key(expansionDonePrefix, date, fmt.Sprintf("%d", definitionID))
	return redis.Client().Set(ctx, key, "1", scheduledTTL).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	// SETNX：如果 key 不存在则设置，返回 true；如果已存在则返回 false
	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// ========== 每日推送限额 ==========

// GetDailyPushCount 获取照护者当日已收到的非紧急推送数
// dateKey 格式: "2006-01-02"
func GetDailyPushCount(ctx context.Context, caregiverID int64, dateKey string) (int, error) {
	key := redis.Key(dailyPushPrefix, fmt.Sprintf("%d", caregiverID), dateKey)
	count, err := redis.Client().Get(ctx, key).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily push count: %w", err)
	}
	return count, nil
}

// IncrementDailyPushCount 增加照护者当日推送计数，过期时间为次日零点
func IncrementDailyPushCount(ctx context.Context, caregiverID int64, dateKey string) error {
	key := redis.Key(dailyPushPrefix, fmt.Sprintf("%d", caregiverID), dateKey)

	now := time.Now()
	nextDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	ttl := nextDay.Sub(now)

	pipe := redis.Client().Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment daily push count: %w", err)
	}
	return nil
}

// CheckDailyPushLimit 检查照护者是否还能接收非紧急推送
func CheckDailyPushLimit(ctx context.Context, caregiverID int64) (bool, int, error) {
	dateKey := time.Now().Format("2006-01-02")
	count, err := GetDailyPushCount(ctx, caregiverID, dateKey)
	if err != nil {
		return true, 0, err // 出错时降级，允许发送
	}
	return count < DailyPushLimit, count, nil
}
