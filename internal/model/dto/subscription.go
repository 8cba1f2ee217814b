package dto

import "time"

// ActivateSubscriptionRequest 购买确认，支付回调或客户端凭据校验后调用
type ActivateSubscriptionRequest struct {
	Tier   string `json:"tier" vd:"len($)>0"` // basic / premium
	Months int    `json:"months" vd:"$>0"`
}

type SubscriptionStatusResponse struct {
	Status        string     `json:"status"` // none / trial / active / canceled / expired
	Tier          string     `json:"tier"`
	EffectiveTier string     `json:"effective_tier"`
	PriceCents    int        `json:"price_cents"`
	AutoRenew     bool       `json:"auto_renew"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	TrialEnd      *time.Time `json:"trial_end,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}
