package model

// RiskCategory AI 对话风险类别枚举
type RiskCategory string

const (
	RiskSelfHarm      RiskCategory = "self_harm"
	RiskDepression    RiskCategory = "depression"
	RiskMissedMeds    RiskCategory = "missed_meds"
	RiskPain          RiskCategory = "pain"
	RiskConfusion     RiskCategory = "confusion"
	RiskDementiaSigns RiskCategory = "dementia_signs"
)

// KnownRiskCategories 策略保存时校验用
var KnownRiskCategories = map[RiskCategory]bool{
	RiskSelfHarm:      true,
	RiskDepression:    true,
	RiskMissedMeds:    true,
	RiskPain:          true,
	RiskConfusion:     true,
	RiskDementiaSigns: true,
}

// AvoidanceStyle 屏蔽话题的处理方式
type AvoidanceStyle string

const (
	AvoidanceGentleRedirect AvoidanceStyle = "gentle_redirect" // 温和转移话题
	AvoidanceStrictRefusal  AvoidanceStyle = "strict_refusal"  // 直接拒绝
)

// PrivacyMode 升级告警的隐私模式
type PrivacyMode string

const (
	PrivacyFullExcerpt PrivacyMode = "full_excerpt" // 告警带原文片段
	PrivacySummaryOnly PrivacyMode = "summary_only" // 只带风险类别，不泄露原文
)

// GuardrailPolicy AI 对话护栏策略，每个老人档案一条
// 只有照护者可编辑，每轮对话都会读取

type GuardrailPolicy struct {
	BaseModel
	SeniorID       int64          `gorm:"uniqueIndex;not null" json:"senior_id"`
	BlockedTopics  StringArray    `gorm:"type:jsonb;not null;default:'[]'" json:"blocked_topics"`
	AvoidanceStyle AvoidanceStyle `gorm:"type:varchar(24);not null;default:'gentle_redirect'" json:"avoidance_style"`
	PrivacyMode    PrivacyMode    `gorm:"type:varchar(16);not null;default:'summary_only'" json:"privacy_mode"`

	// EscalationTriggers 命中即升级为照护者告警的风险类别
	EscalationTriggers StringArray `gorm:"type:jsonb;not null;default:'[]'" json:"escalation_triggers"`

	// AutoNotify=false 只关掉主动推送，告警记录仍然落库
	AutoNotify bool `gorm:"not null;default:true" json:"auto_notify"`
}

// TableName 指定表名
func (GuardrailPolicy) TableName() string {
	return "guardrail_policies"
}

// TriggerSet 把 JSONB 数组转成类别集合
func (p *GuardrailPolicy) TriggerSet() map[RiskCategory]bool {
	set := make(map[RiskCategory]bool, len(p.EscalationTriggers))
	for _, t := range p.EscalationTriggers {
		set[RiskCategory(t)] = true
	}
	return set
}
