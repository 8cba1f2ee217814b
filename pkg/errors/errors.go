package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	AuthCodeInvalid            = Definition{Code: "AUTH_CODE_INVALID", Message: "Auth code invalid"}
	PhoneInvalid               = Definition{Code: "PHONE_INVALID", Message: "Invalid phone number"}
	PhoneAlreadyRegistered     = Definition{Code: "PHONE_ALREADY_REGISTERED", Message: "Phone already registered"}
	CaptchaRateLimited         = Definition{Code: "CAPTCHA_RATE_LIMITED", Message: "Captcha rate limited"}
	VerificationCodeExpired    = Definition{Code: "VERIFICATION_CODE_EXPIRED", Message: "Verification code expired"}
	VerificationCodeInvalid    = Definition{Code: "VERIFICATION_CODE_INVALID", Message: "Verification code invalid"}
	VerificationSliderRequired = Definition{Code: "VERIFICATION_SLIDER_REQUIRED", Message: "Slider verification required"}
	VerificationSliderFailed   = Definition{Code: "VERIFICATION_SLIDER_FAILED", Message: "Slider verification failed"}
	Unauthorized               = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID              = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TooManyRequests            = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 老人档案模块错误。
var (
	SeniorNotFound    = Definition{Code: "SENIOR_NOT_FOUND", Message: "Senior profile not found"}
	SeniorNotOwned    = Definition{Code: "SENIOR_NOT_OWNED", Message: "Senior profile belongs to another caregiver"}
	SeniorInactive    = Definition{Code: "SENIOR_INACTIVE", Message: "Senior profile is inactive"}
	TimezoneInvalid   = Definition{Code: "TIMEZONE_INVALID", Message: "Invalid IANA timezone"}
	QuietHoursInvalid = Definition{Code: "QUIET_HOURS_INVALID", Message: "Invalid quiet hours"}
)

// 日程模块错误。
var (
	ScheduleNotFound      = Definition{Code: "SCHEDULE_NOT_FOUND", Message: "Schedule definition not found"}
	ScheduleSlotsRequired = Definition{Code: "SCHEDULE_SLOTS_REQUIRED", Message: "Schedule requires at least one time slot"}
	ScheduleSlotInvalid   = Definition{Code: "SCHEDULE_SLOT_INVALID", Message: "Invalid time slot format"}
	RecurrenceInvalid     = Definition{Code: "RECURRENCE_INVALID", Message: "Invalid recurrence kind"}
)

// 事件模块错误。
var (
	EventNotFound       = Definition{Code: "EVENT_NOT_FOUND", Message: "Scheduled event not found"}
	EventAlreadyClosed  = Definition{Code: "EVENT_ALREADY_CLOSED", Message: "Event already in a terminal state"}
	EventStatusConflict = Definition{Code: "EVENT_STATUS_CONFLICT", Message: "Event status changed concurrently"}
)

// 告警模块错误。
var (
	AlertNotFound     = Definition{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}
	AlertAlreadyAcked = Definition{Code: "ALERT_ALREADY_ACKED", Message: "Alert already acknowledged"}
)

// 护栏策略模块错误。
var (
	PolicyNotFound        = Definition{Code: "POLICY_NOT_FOUND", Message: "Guardrail policy not found"}
	RiskCategoryInvalid   = Definition{Code: "RISK_CATEGORY_INVALID", Message: "Unknown risk category"}
	AvoidanceStyleInvalid = Definition{Code: "AVOIDANCE_STYLE_INVALID", Message: "Unknown avoidance style"}
	PrivacyModeInvalid    = Definition{Code: "PRIVACY_MODE_INVALID", Message: "Unknown privacy mode"}
)

// 订阅模块错误。
var (
	TrialAlreadyUsed    = Definition{Code: "TRIAL_ALREADY_USED", Message: "Trial already used"}
	SubscriptionExists  = Definition{Code: "SUBSCRIPTION_EXISTS", Message: "An active subscription already exists"}
	SubscriptionInvalid = Definition{Code: "SUBSCRIPTION_INVALID", Message: "Subscription state does not allow this operation"}
	PremiumRequired     = Definition{Code: "PREMIUM_REQUIRED", Message: "Premium subscription required"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	AuthCodeInvalid.Code:            AuthCodeInvalid,
	PhoneInvalid.Code:               PhoneInvalid,
	PhoneAlreadyRegistered.Code:     PhoneAlreadyRegistered,
	CaptchaRateLimited.Code:         CaptchaRateLimited,
	VerificationCodeExpired.Code:    VerificationCodeExpired,
	VerificationCodeInvalid.Code:    VerificationCodeInvalid,
	VerificationSliderRequired.Code: VerificationSliderRequired,
	VerificationSliderFailed.Code:   VerificationSliderFailed,
	Unauthorized.Code:               Unauthorized,
	InvalidUserID.Code:              InvalidUserID,
	TooManyRequests.Code:            TooManyRequests,
	SeniorNotFound.Code:             SeniorNotFound,
	SeniorNotOwned.Code:             SeniorNotOwned,
	SeniorInactive.Code:             SeniorInactive,
	TimezoneInvalid.Code:            TimezoneInvalid,
	QuietHoursInvalid.Code:          QuietHoursInvalid,
	ScheduleNotFound.Code:           ScheduleNotFound,
	ScheduleSlotsRequired.Code:      ScheduleSlotsRequired,
	ScheduleSlotInvalid.Code:        ScheduleSlotInvalid,
	RecurrenceInvalid.Code:          RecurrenceInvalid,
	EventNotFound.Code:              EventNotFound,
	EventAlreadyClosed.Code:         EventAlreadyClosed,
	EventStatusConflict.Code:        EventStatusConflict,
	AlertNotFound.Code:              AlertNotFound,
	AlertAlreadyAcked.Code:          AlertAlreadyAcked,
	PolicyNotFound.Code:             PolicyNotFound,
	RiskCategoryInvalid.Code:        RiskCategoryInvalid,
	AvoidanceStyleInvalid.Code:      AvoidanceStyleInvalid,
	PrivacyModeInvalid.Code:         PrivacyModeInvalid,
	TrialAlreadyUsed.Code:           TrialAlreadyUsed,
	SubscriptionExists.Code:         SubscriptionExists,
	SubscriptionInvalid.Code:        SubscriptionInvalid,
	PremiumRequired.Code:            PremiumRequired,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
