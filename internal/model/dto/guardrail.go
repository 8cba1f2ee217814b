package dto

// PutPolicyRequest 全量替换护栏策略
type PutPolicyRequest struct {
	BlockedTopics      []string `json:"blocked_topics"`
	AvoidanceStyle     string   `json:"avoidance_style"` // gentle_redirect / strict_refusal
	PrivacyMode        string   `json:"privacy_mode"`    // full_excerpt / summary_only
	EscalationTriggers []string `json:"escalation_triggers"`
	AutoNotify         *bool    `json:"auto_notify,omitempty"`
}

type PolicyResponse struct {
	SeniorID           string   `json:"senior_id"`
	BlockedTopics      []string `json:"blocked_topics"`
	AvoidanceStyle     string   `json:"avoidance_style"`
	PrivacyMode        string   `json:"privacy_mode"`
	EscalationTriggers []string `json:"escalation_triggers"`
	AutoNotify         bool     `json:"auto_notify"`
}

// EvaluateTurnRequest AI 陪伴对话一轮的护栏评估输入
// 风险类别由上游内容检测器标注后传入
type EvaluateTurnRequest struct {
	Text           string   `json:"text" vd:"len($)>0"`
	RiskCategories []string `json:"risk_categories,omitempty"`
}

type EvaluateTurnResponse struct {
	Decision         string   `json:"decision"` // allow / avoid
	AvoidInstruction string   `json:"avoid_instruction,omitempty"`
	MatchedTopic     string   `json:"matched_topic,omitempty"`
	Escalated        bool     `json:"escalated"`
	EscalatedRisks   []string `json:"escalated_risks,omitempty"`
	CognitiveLevel   int      `json:"cognitive_level"`
	Tone             string   `json:"tone"`
}
