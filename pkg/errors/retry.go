package errors

import (
	"errors"
	"fmt"
)

// 短信参数错误，发送前校验用。
var (
	ErrSignNameRequired       = Definition{Code: "SMS_SIGN_NAME_REQUIRED", Message: "SMS sign name is required"}
	ErrTemplateCodeRequired   = Definition{Code: "SMS_TEMPLATE_CODE_REQUIRED", Message: "SMS template code is required"}
	ErrPhonesListEmpty        = Definition{Code: "SMS_PHONES_EMPTY", Message: "Phones list is empty"}
	ErrTemplateParamsMismatch = Definition{Code: "SMS_TEMPLATE_PARAMS_MISMATCH", Message: "Template params count must match phones count"}
)

// NonRetryableError 标记不应重试的投递错误（配置错误、参数错误等），
// 消费者遇到此类错误直接落任务为 failed，而不是放回队列。
type NonRetryableError struct {
	Code    string
	Message string
	Reason  string
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Reason)
}

func NewNonRetryableError(code, message, reason string) *NonRetryableError {
	return &NonRetryableError{Code: code, Message: message, Reason: reason}
}

// IsNonRetryable 判断错误链中是否含有不可重试标记
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}
