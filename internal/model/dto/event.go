package dto

import "time"

type EventItem struct {
	ID          string     `json:"id"`
	SeniorID    string     `json:"senior_id"`
	Label       string     `json:"label"`
	EventDate   string     `json:"event_date"`
	Slot        string     `json:"slot"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Status      string     `json:"status"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// EventActionRequest 完成/跳过事件时的可选备注
type EventActionRequest struct {
	Notes string `json:"notes,omitempty"`
}

type ListEventsQuery struct {
	SeniorID string `query:"senior_id"`
	From     string `query:"from"` // YYYY-MM-DD
	To       string `query:"to"`
	Status   string `query:"status,omitempty"`
}
