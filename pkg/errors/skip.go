package errors

import "errors"

// SkipMessageError 表示消息应跳过而不是重试（重复消息、事件已被用户处理等）
// 消费侧遇到此错误直接 ack，不再放回队列。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

func NewSkipMessageError(reason string) *SkipMessageError {
	return &SkipMessageError{Reason: reason}
}

func IsSkipMessageError(err error) bool {
	var sme *SkipMessageError
	return errors.As(err, &sme)
}
