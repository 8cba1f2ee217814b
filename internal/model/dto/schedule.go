package dto

// CreateScheduleRequest 创建日程定义
type CreateScheduleRequest struct {
	Label      string   `json:"label" vd:"len($)>0 && len($)<=128"`
	Recurrence string   `json:"recurrence" vd:"len($)>0"` // daily / weekly / as_needed
	TimeSlots  []string `json:"time_slots"`               // HH:MM:SS
	Weekdays   []string `json:"weekdays,omitempty"`       // "0"-"6"，仅 weekly
}

// UpdateScheduleRequest 更新日程定义
type UpdateScheduleRequest struct {
	Label     *string   `json:"label,omitempty"`
	TimeSlots *[]string `json:"time_slots,omitempty"`
	Weekdays  *[]string `json:"weekdays,omitempty"`
	Active    *bool     `json:"active,omitempty"`
}

type ScheduleItem struct {
	ID         string   `json:"id"`
	SeniorID   string   `json:"senior_id"`
	Label      string   `json:"label"`
	Recurrence string   `json:"recurrence"`
	TimeSlots  []string `json:"time_slots"`
	Weekdays   []string `json:"weekdays,omitempty"`
	Active     bool     `json:"active"`
}
