package dto

// CreateSeniorRequest 创建老人档案
type CreateSeniorRequest struct {
	DisplayName     string `json:"display_name" vd:"len($)>0 && len($)<=64"`
	Timezone        string `json:"timezone,omitempty"`
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`
	CognitiveLevel  int    `json:"cognitive_level,omitempty"`
	Tone            string `json:"tone,omitempty"`
	CustomTone      string `json:"custom_tone,omitempty"`
}

// UpdateSeniorRequest 更新老人档案，指针字段区分"未传"与"清空"
type UpdateSeniorRequest struct {
	DisplayName     *string `json:"display_name,omitempty"`
	Timezone        *string `json:"timezone,omitempty"`
	QuietHoursStart *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string `json:"quiet_hours_end,omitempty"`
	CognitiveLevel  *int    `json:"cognitive_level,omitempty"`
	Tone            *string `json:"tone,omitempty"`
	CustomTone      *string `json:"custom_tone,omitempty"`
	Active          *bool   `json:"active,omitempty"`
	DeviceToken     *string `json:"device_token,omitempty"`
}

type SeniorItem struct {
	ID              string `json:"id"` // public_id 字符串
	DisplayName     string `json:"display_name"`
	Active          bool   `json:"active"`
	Timezone        string `json:"timezone"`
	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`
	CognitiveLevel  int    `json:"cognitive_level"`
	Tone            string `json:"tone"`
	CustomTone      string `json:"custom_tone,omitempty"`
}
