package engine

import (
	"fmt"
	"strings"

	"CareCircle/internal/model"
)

// TopicMatcher 话题匹配谓词，可替换为语义匹配实现
type TopicMatcher func(text, topic string) bool

// ContainsFold 默认实现：大小写无关的子串匹配
func ContainsFold(text, topic string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(topic))
}

// AvoidInstruction 命中屏蔽话题时给回复生成器的指令
type AvoidInstruction string

const (
	AvoidInstructionRedirect AvoidInstruction = "redirect" // 温和把话题引开
	AvoidInstructionRefuse   AvoidInstruction = "refuse"   // 明确表示不讨论该话题
)

// Turn 一轮候选对话的输入，风险类别由上游检测器给出
type Turn struct {
	Text           string
	RiskCategories []model.RiskCategory
}

// Evaluation 护栏评估结果
//
// Avoid 和 Escalate 可以同时成立：对用户转移话题，同时向照护者升级。
// CognitiveLevel 与 Tone 只透传给回复生成器，引擎不生成文本。
type Evaluation struct {
	Avoid            bool
	AvoidInstruction AvoidInstruction
	MatchedTopic     string

	Escalate       bool
	EscalatedRisks []model.RiskCategory
	Alert          *Fact // Escalate 时非空，隐私模式已应用
	Notify         bool  // 是否主动推送（AutoNotify 只关推送，不影响落库）

	CognitiveLevel int
	Tone           model.Tone
}

// Allowed 既未回避也未升级
func (e Evaluation) Allowed() bool {
	return !e.Avoid && !e.Escalate
}

// ValidatePolicy 策略保存前校验，升级触发器必须是已知风险类别
func ValidatePolicy(policy *model.GuardrailPolicy) error {
	for _, t := range policy.EscalationTriggers {
		if !model.KnownRiskCategories[model.RiskCategory(t)] {
			return fmt.Errorf("%w: %s", ErrUnknownRiskCategory, t)
		}
	}

	switch policy.AvoidanceStyle {
	case model.AvoidanceGentleRedirect, model.AvoidanceStrictRefusal:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAvoidanceStyle, policy.AvoidanceStyle)
	}

	switch policy.PrivacyMode {
	case model.PrivacyFullExcerpt, model.PrivacySummaryOnly:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPrivacyMode, policy.PrivacyMode)
	}

	return nil
}

// EvaluateTurn 对一轮对话执行护栏策略
//
// 1. 命中屏蔽话题 -> avoid（按回避方式给指令），仅此不产生告警
// 2. 风险类别与升级触发器有交集 -> escalate，构造告警事实
// 3. 两者都未命中 -> allow
func EvaluateTurn(turn Turn, policy *model.GuardrailPolicy, senior *model.SeniorProfile, match TopicMatcher) Evaluation {
	if match == nil {
		match = ContainsFold
	}

	eval := Evaluation{
		CognitiveLevel: senior.CognitiveLevel,
		Tone:           senior.Tone,
	}

	for _, topic := range policy.BlockedTopics {
		if match(turn.Text, topic) {
			eval.Avoid = true
			eval.MatchedTopic = topic
			if policy.AvoidanceStyle == model.AvoidanceStrictRefusal {
				eval.AvoidInstruction = AvoidInstructionRefuse
			} else {
				eval.AvoidInstruction = AvoidInstructionRedirect
			}
			break
		}
	}

	triggers := policy.TriggerSet()
	for _, risk := range turn.RiskCategories {
		if triggers[risk] {
			eval.EscalatedRisks = append(eval.EscalatedRisks, risk)
		}
	}

	if len(eval.EscalatedRisks) > 0 {
		eval.Escalate = true
		eval.Alert = buildEscalationFact(turn, policy, senior, eval.EscalatedRisks)
		eval.Notify = policy.AutoNotify
	}

	return eval
}

// buildEscalationFact 按隐私模式构造升级告警
// summary_only 模式保证告警消息与 payload 不携带任何对话原文
func buildEscalationFact(turn Turn, policy *model.GuardrailPolicy, senior *model.SeniorProfile, risks []model.RiskCategory) *Fact {
	severity := model.SeverityUrgent
	primary := risks[0]
	for _, r := range risks {
		if r == model.RiskSelfHarm {
			severity = model.SeverityCritical
			primary = r
			break
		}
	}

	payload := model.JSONB{
		"risk_category": string(primary),
		"privacy_mode":  string(policy.PrivacyMode),
	}

	var message string
	if policy.PrivacyMode == model.PrivacyFullExcerpt {
		message = fmt.Sprintf("AI companion flagged %s during conversation: %q", primary, excerpt(turn.Text))
		payload["excerpt"] = excerpt(turn.Text)
	} else {
		message = fmt.Sprintf("AI companion flagged a possible %s concern during conversation", primary)
	}

	return &Fact{
		Type:     model.AlertTypeAIRiskEscalation,
		SeniorID: senior.ID,
		Severity: severity,
		Message:  message,
		Payload:  payload,
	}
}

const maxExcerptLen = 160

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxExcerptLen {
		return text
	}
	return text[:maxExcerptLen] + "…"
}
