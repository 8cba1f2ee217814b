package errors

import "errors"

// 滑块验证相关哨兵错误，slider 包内部使用
var (
	ErrUnsupportedCaptchaProvider = errors.New("unsupported captcha provider")
	ErrCaptchaTokenRequired       = errors.New("captcha verify token is required")
	ErrCaptchaResponseNil         = errors.New("captcha service returned empty response")
	ErrCaptchaVerificationFailed  = errors.New("captcha verification failed")
)
