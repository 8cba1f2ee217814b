package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

func pendingEvent(scheduledAt time.Time) *model.ScheduledEvent {
	ev := &model.ScheduledEvent{
		DefinitionID: 42,
		SeniorID:     7,
		EventDate:    scheduledAt.Format(dateLayout),
		Slot:         scheduledAt.Format(slotLayout),
		ScheduledAt:  scheduledAt,
		Status:       model.EventStatusPending,
	}
	ev.ID = 1001
	return ev
}

func TestMarkTaken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 12, 0, 0, time.UTC)
	ev := pendingEvent(now.Add(-12 * time.Minute))

	require.NoError(t, MarkTaken(ev, now))
	assert.Equal(t, model.EventStatusTaken, ev.Status)
	require.NotNil(t, ev.TakenAt)
	assert.Equal(t, now, *ev.TakenAt)
}

func TestMarkSkippedLeavesNoCompletionTime(t *testing.T) {
	now := time.Now()
	ev := pendingEvent(now)

	require.NoError(t, MarkSkipped(ev, now))
	assert.Equal(t, model.EventStatusSkipped, ev.Status)
	assert.Nil(t, ev.TakenAt)
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	now := time.Now()

	for _, terminal := range []model.EventStatus{
		model.EventStatusTaken,
		model.EventStatusMissed,
		model.EventStatusSkipped,
	} {
		ev := pendingEvent(now)
		ev.Status = terminal

		assert.ErrorIs(t, MarkTaken(ev, now), ErrInvalidTransition)
		assert.ErrorIs(t, MarkSkipped(ev, now), ErrInvalidTransition)

		_, err := SweepMissed(ev, 0, DefaultLifecycleConfig(), now.Add(24*time.Hour))
		assert.ErrorIs(t, err, ErrInvalidTransition)

		// 状态未被篡改
		assert.Equal(t, terminal, ev.Status)
	}
}

func TestSweepMissedRespectsGracePeriod(t *testing.T) {
	cfg := DefaultLifecycleConfig() // 60 分钟宽限期
	scheduled := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	ev := pendingEvent(scheduled)
	_, err := SweepMissed(ev, 0, cfg, scheduled.Add(59*time.Minute))
	assert.ErrorIs(t, err, ErrGraceNotElapsed)
	assert.Equal(t, model.EventStatusPending, ev.Status)
}

func TestSweepMissedScenario(t *testing.T) {
	// 09:00 的每日槽，宽限期 60 分钟，10:01 仍未确认 -> missed + warning
	cfg := DefaultLifecycleConfig()
	scheduled := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC)

	ev := pendingEvent(scheduled)
	fact, err := SweepMissed(ev, 0, cfg, now)
	require.NoError(t, err)

	assert.Equal(t, model.EventStatusMissed, ev.Status)
	require.NotNil(t, fact)
	assert.Equal(t, model.AlertTypeMedMissed, fact.Type)
	assert.Equal(t, model.SeverityWarning, fact.Severity)
	assert.Equal(t, 1, fact.Payload["consecutive_misses"])
}

func TestConsecutiveMissEscalatesToUrgent(t *testing.T) {
	// 第二天连续漏服，告警升级为 urgent
	cfg := DefaultLifecycleConfig()
	scheduled := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	now := scheduled.Add(2 * time.Hour)

	ev := pendingEvent(scheduled)
	fact, err := SweepMissed(ev, 1, cfg, now)
	require.NoError(t, err)

	assert.Equal(t, model.SeverityUrgent, fact.Severity)
	assert.Equal(t, 2, fact.Payload["consecutive_misses"])
}
