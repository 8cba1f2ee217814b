package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

func testSenior() *model.SeniorProfile {
	p := &model.SeniorProfile{
		CaregiverID:    3,
		Timezone:       "America/New_York",
		CognitiveLevel: 2,
		Tone:           model.ToneFriendly,
		Active:         true,
	}
	p.ID = 7
	return p
}

func testPolicy() *model.GuardrailPolicy {
	pol := &model.GuardrailPolicy{
		SeniorID:           7,
		BlockedTopics:      model.StringArray{"politics", "inheritance"},
		AvoidanceStyle:     model.AvoidanceGentleRedirect,
		PrivacyMode:        model.PrivacySummaryOnly,
		EscalationTriggers: model.StringArray{"self_harm", "depression"},
		AutoNotify:         true,
	}
	pol.ID = 100
	return pol
}

func TestEvaluateTurnAllowed(t *testing.T) {
	turn := Turn{Text: "Tell me about the weather today"}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	assert.True(t, eval.Allowed())
	assert.Nil(t, eval.Alert)
	assert.Equal(t, 2, eval.CognitiveLevel)
	assert.Equal(t, model.ToneFriendly, eval.Tone)
}

func TestEvaluateTurnBlockedTopic(t *testing.T) {
	// 大小写无关匹配，温和转移不产生任何告警
	turn := Turn{Text: "What do you think about Politics these days?"}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	assert.True(t, eval.Avoid)
	assert.Equal(t, "politics", eval.MatchedTopic)
	assert.Equal(t, AvoidInstructionRedirect, eval.AvoidInstruction)
	assert.False(t, eval.Escalate)
	assert.Nil(t, eval.Alert)
}

func TestEvaluateTurnStrictRefusal(t *testing.T) {
	policy := testPolicy()
	policy.AvoidanceStyle = model.AvoidanceStrictRefusal

	eval := EvaluateTurn(Turn{Text: "who gets the inheritance"}, policy, testSenior(), nil)
	assert.True(t, eval.Avoid)
	assert.Equal(t, AvoidInstructionRefuse, eval.AvoidInstruction)
	assert.Nil(t, eval.Alert)
}

func TestEvaluateTurnEscalation(t *testing.T) {
	turn := Turn{
		Text:           "I have been feeling very low lately",
		RiskCategories: []model.RiskCategory{model.RiskDepression},
	}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	assert.True(t, eval.Escalate)
	assert.True(t, eval.Notify)
	require.NotNil(t, eval.Alert)
	assert.Equal(t, model.AlertTypeAIRiskEscalation, eval.Alert.Type)
	assert.Equal(t, model.SeverityUrgent, eval.Alert.Severity)
	assert.Equal(t, "depression", eval.Alert.Payload["risk_category"])
}

func TestEvaluateTurnUntriggeredRiskIgnored(t *testing.T) {
	// pain 不在升级触发器里，不产生告警
	turn := Turn{
		Text:           "my knee hurts again",
		RiskCategories: []model.RiskCategory{model.RiskPain},
	}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	assert.False(t, eval.Escalate)
	assert.Nil(t, eval.Alert)
}

func TestSelfHarmEscalatesCritical(t *testing.T) {
	turn := Turn{
		Text:           "sometimes I think about ending it all",
		RiskCategories: []model.RiskCategory{model.RiskDepression, model.RiskSelfHarm},
	}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	require.NotNil(t, eval.Alert)
	assert.Equal(t, model.SeverityCritical, eval.Alert.Severity)
	assert.Equal(t, "self_harm", eval.Alert.Payload["risk_category"])
}

func TestSummaryOnlyNeverLeaksConversation(t *testing.T) {
	secret := "I hid the money under the mattress and I want to hurt myself"
	turn := Turn{
		Text:           secret,
		RiskCategories: []model.RiskCategory{model.RiskSelfHarm},
	}

	eval := EvaluateTurn(turn, testPolicy(), testSenior(), nil)
	require.NotNil(t, eval.Alert)

	assert.NotContains(t, eval.Alert.Message, "mattress")
	assert.NotContains(t, eval.Alert.Message, secret)
	_, hasExcerpt := eval.Alert.Payload["excerpt"]
	assert.False(t, hasExcerpt)
	assert.Contains(t, eval.Alert.Message, "self_harm")
}

func TestFullExcerptCarriesText(t *testing.T) {
	policy := testPolicy()
	policy.PrivacyMode = model.PrivacyFullExcerpt

	turn := Turn{
		Text:           "I feel hopeless about everything",
		RiskCategories: []model.RiskCategory{model.RiskDepression},
	}

	eval := EvaluateTurn(turn, policy, testSenior(), nil)
	require.NotNil(t, eval.Alert)
	assert.Contains(t, eval.Alert.Message, "hopeless")
	assert.Equal(t, turn.Text, eval.Alert.Payload["excerpt"])
}

func TestFullExcerptTruncatesLongText(t *testing.T) {
	policy := testPolicy()
	policy.PrivacyMode = model.PrivacyFullExcerpt

	turn := Turn{
		Text:           strings.Repeat("a", 500),
		RiskCategories: []model.RiskCategory{model.RiskDepression},
	}

	eval := EvaluateTurn(turn, policy, testSenior(), nil)
	require.NotNil(t, eval.Alert)
	got, _ := eval.Alert.Payload["excerpt"].(string)
	assert.LessOrEqual(t, len(got), maxExcerptLen+len("…"))
}

func TestAutoNotifyOffStillBuildsAlert(t *testing.T) {
	policy := testPolicy()
	policy.AutoNotify = false

	turn := Turn{
		Text:           "nothing matters anymore",
		RiskCategories: []model.RiskCategory{model.RiskDepression},
	}

	eval := EvaluateTurn(turn, policy, testSenior(), nil)
	assert.True(t, eval.Escalate)
	assert.False(t, eval.Notify)
	assert.NotNil(t, eval.Alert)
}

func TestValidatePolicy(t *testing.T) {
	policy := testPolicy()
	require.NoError(t, ValidatePolicy(policy))

	policy.EscalationTriggers = model.StringArray{"gossip"}
	assert.ErrorIs(t, ValidatePolicy(policy), ErrUnknownRiskCategory)

	policy = testPolicy()
	policy.AvoidanceStyle = "silent_treatment"
	assert.ErrorIs(t, ValidatePolicy(policy), ErrUnknownAvoidanceStyle)

	policy = testPolicy()
	policy.PrivacyMode = "verbose"
	assert.ErrorIs(t, ValidatePolicy(policy), ErrUnknownPrivacyMode)
}
