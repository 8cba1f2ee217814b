package dto

// 认证流程的请求/响应体，字段命名与 API 文档保持 snake_case

type SendCaptchaRequest struct {
	Phone       string `json:"phone" vd:"len($)>0"`
	Scene       string `json:"scene" vd:"len($)>0"` // register / login
	SliderToken string `json:"slider_token,omitempty"`
}

type VerifySliderRequest struct {
	Phone       string `json:"phone" vd:"len($)>0"`
	SceneID     string `json:"scene_id" vd:"len($)>0"`
	SliderToken string `json:"slider_token" vd:"len($)>0"`
}

type VerifySliderResponse struct {
	VerifyToken string `json:"verify_token"`
	ExpiresAt   string `json:"expires_at"`
}

type VerifyCaptchaRequest struct {
	Phone    string `json:"phone" vd:"len($)>0"`
	Scene    string `json:"scene" vd:"len($)>0"`
	Code     string `json:"code" vd:"len($)>0"`
	Nickname string `json:"nickname,omitempty"` // 注册场景可带昵称
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" vd:"len($)>0"`
}

type CaregiverSnapshot struct {
	ID        string `json:"id"` // public_id 字符串
	Nickname  string `json:"nickname"`
	Status    string `json:"status"`
	IsNewUser bool   `json:"is_new_user"`
}

type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	ExpiresIn    int               `json:"expires_in"`
	Caregiver    CaregiverSnapshot `json:"caregiver"`
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token" vd:"len($)>0"`
}
