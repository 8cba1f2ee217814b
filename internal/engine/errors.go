package engine

import "errors"

// 引擎层的哨兵错误，出站时由 service 层映射成 pkg/errors 的业务错误码
var (
	// ErrInvalidTransition 试图从终态迁出，属于已被乐观检查化解的竞态，调用方记日志后丢弃
	ErrInvalidTransition = errors.New("invalid event status transition")

	// ErrGraceNotElapsed 宽限期未到，漏服扫描不应处理该事件
	ErrGraceNotElapsed = errors.New("grace period not elapsed")

	// ErrNoTimeSlots daily/weekly 定义必须至少有一个时间槽
	ErrNoTimeSlots = errors.New("schedule definition requires at least one time slot")

	// ErrInvalidTimeSlot 时间槽格式必须是 HH:MM:SS
	ErrInvalidTimeSlot = errors.New("invalid time slot format")

	// ErrUnknownRecurrence 未知的重复规则
	ErrUnknownRecurrence = errors.New("unknown recurrence kind")

	// ErrUnknownRiskCategory 策略引用了未知风险类别（保存时拒绝）
	ErrUnknownRiskCategory = errors.New("unknown risk category in escalation triggers")

	// ErrUnknownAvoidanceStyle 未知的话题回避方式
	ErrUnknownAvoidanceStyle = errors.New("unknown avoidance style")

	// ErrUnknownPrivacyMode 未知的隐私模式
	ErrUnknownPrivacyMode = errors.New("unknown privacy mode")

	// ErrTrialAlreadyUsed 试用资格是一次性的，存在过任何订阅记录即不可再试用
	ErrTrialAlreadyUsed = errors.New("trial eligibility already consumed")

	// ErrSubscriptionConflict 同一时间最多一条 trial/active 订阅
	ErrSubscriptionConflict = errors.New("an active or trial subscription already exists")

	// ErrInvalidSubscriptionState 当前状态不允许该订阅操作
	ErrInvalidSubscriptionState = errors.New("invalid subscription state for operation")

	// ErrNotEntitled 功能未在当前订阅档位内
	ErrNotEntitled = errors.New("feature not entitled by current subscription tier")
)
