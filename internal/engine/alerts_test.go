package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

func TestClassifyDefaultSeverity(t *testing.T) {
	now := time.Now()

	cases := map[model.AlertType]model.Severity{
		model.AlertTypeSOS:           model.SeverityCritical,
		model.AlertTypeMedMissed:     model.SeverityWarning,
		model.AlertTypeGeofenceExit:  model.SeverityUrgent,
		model.AlertTypeGeofenceEnter: model.SeverityInfo,
		model.AlertTypeLowBattery:    model.SeverityInfo,
	}
	for typ, want := range cases {
		alert := Classify(Fact{Type: typ, SeniorID: 7}, now)
		assert.Equal(t, want, alert.Severity, "type %s", typ)
		assert.Equal(t, now, alert.TriggeredAt)
	}
}

func TestClassifySeverityOverride(t *testing.T) {
	alert := Classify(Fact{
		Type:     model.AlertTypeMedMissed,
		Severity: model.SeverityUrgent,
	}, time.Now())
	assert.Equal(t, model.SeverityUrgent, alert.Severity)
}

func TestQuietHoursContains(t *testing.T) {
	quiet := QuietHours{Start: "21:00:00", End: "07:00:00"} // 跨午夜

	at := func(hour int) time.Time {
		return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
	}

	assert.True(t, quiet.Contains(at(23)))
	assert.True(t, quiet.Contains(at(2)))
	assert.False(t, quiet.Contains(at(12)))
	assert.False(t, quiet.Contains(at(7))) // 结束时刻不含

	day := QuietHours{Start: "13:00:00", End: "15:00:00"}
	assert.True(t, day.Contains(at(14)))
	assert.False(t, day.Contains(at(16)))

	// 未配置或格式非法时视为没有免打扰
	assert.False(t, QuietHours{}.Contains(at(23)))
	assert.False(t, QuietHours{Start: "9pm", End: "7am"}.Contains(at(23)))
}

func TestShouldSuppressByPreference(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alert := Classify(Fact{Type: model.AlertTypeLowBattery, SeniorID: 7}, now)

	assert.True(t, ShouldSuppress(alert, false, QuietHours{}, time.UTC, now))
	assert.False(t, ShouldSuppress(alert, true, QuietHours{}, time.UTC, now))
}

func TestShouldSuppressQuietHours(t *testing.T) {
	quiet := QuietHours{Start: "21:00:00", End: "07:00:00"}
	night := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	warning := Classify(Fact{Type: model.AlertTypeMedMissed, SeniorID: 7}, night)
	assert.True(t, ShouldSuppress(warning, true, quiet, time.UTC, night))

	// critical 不受免打扰影响
	critical := Classify(Fact{
		Type:     model.AlertTypeMedMissed,
		Severity: model.SeverityCritical,
	}, night)
	assert.False(t, ShouldSuppress(critical, true, quiet, time.UTC, night))
}

func TestQuietHoursUseProfileTimezone(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	quiet := QuietHours{Start: "21:00:00", End: "07:00:00"}
	// 03:00 UTC = 23:00 美东（夏令时），本地处于免打扰
	now := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)

	alert := Classify(Fact{Type: model.AlertTypeInactivity, SeniorID: 7}, now)
	assert.True(t, ShouldSuppress(alert, true, quiet, tz, now))
	assert.False(t, ShouldSuppress(alert, true, quiet, time.UTC, now))
}

func TestSOSNeverSuppressed(t *testing.T) {
	quiet := QuietHours{Start: "21:00:00", End: "07:00:00"}
	night := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	sos := Classify(Fact{Type: model.AlertTypeSOS, SeniorID: 7}, night)

	// 推送偏好关闭 + 免打扰时段都不能压住 SOS
	assert.False(t, ShouldSuppress(sos, false, quiet, time.UTC, night))
}

func TestSelfHarmEscalationNeverSuppressed(t *testing.T) {
	quiet := QuietHours{Start: "21:00:00", End: "07:00:00"}
	night := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	selfHarm := Classify(Fact{
		Type:    model.AlertTypeAIRiskEscalation,
		Payload: model.JSONB{"risk_category": "self_harm"},
	}, night)
	assert.False(t, ShouldSuppress(selfHarm, false, quiet, time.UTC, night))

	// 其他风险类别的升级告警照常受偏好约束
	depression := Classify(Fact{
		Type:    model.AlertTypeAIRiskEscalation,
		Payload: model.JSONB{"risk_category": "depression"},
	}, night)
	assert.True(t, ShouldSuppress(depression, false, quiet, time.UTC, night))
}

func TestAcknowledgeIdempotent(t *testing.T) {
	now := time.Now()
	alert := Classify(Fact{Type: model.AlertTypeMedMissed, SeniorID: 7}, now)

	require.True(t, Acknowledge(&alert, 3, now))
	assert.True(t, alert.Acknowledged)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, int64(3), *alert.AcknowledgedBy)
	firstAck := *alert.AcknowledgedAt

	// 第二次确认不生效，也不覆盖首次确认信息
	assert.False(t, Acknowledge(&alert, 99, now.Add(time.Hour)))
	assert.Equal(t, int64(3), *alert.AcknowledgedBy)
	assert.Equal(t, firstAck, *alert.AcknowledgedAt)
}
