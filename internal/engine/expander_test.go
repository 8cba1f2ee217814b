package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

func dailyDefinition(slots ...string) *model.ScheduleDefinition {
	def := &model.ScheduleDefinition{
		Recurrence: model.RecurrenceDaily,
		TimeSlots:  model.StringArray(slots),
		Active:     true,
	}
	def.ID = 42
	def.SeniorID = 7
	return def
}

func TestExpandDaily(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	def := dailyDefinition("09:00:00", "21:00:00")

	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, tz)
	windowEnd := windowStart.AddDate(0, 0, 2)

	events, err := Expand(def, tz, nil, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, events, 4)

	first := events[0]
	assert.Equal(t, int64(42), first.DefinitionID)
	assert.Equal(t, "2025-06-01", first.EventDate)
	assert.Equal(t, "09:00:00", first.Slot)
	assert.Equal(t, model.EventStatusPending, first.Status)
	assert.Equal(t, 9, first.ScheduledAt.In(tz).Hour())
}

func TestExpandIdempotent(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	def := dailyDefinition("09:00:00")

	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, tz)
	windowEnd := windowStart.AddDate(0, 0, 3)

	first, err := Expand(def, tz, nil, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// 第一次展开的结果作为已存在键，重叠窗口再展开不得产生重复
	existing := make(map[EventKey]struct{}, len(first))
	for _, ev := range first {
		existing[KeyOf(ev)] = struct{}{}
	}

	overlapStart := windowStart.AddDate(0, 0, 1)
	overlapEnd := windowStart.AddDate(0, 0, 5)

	second, err := Expand(def, tz, existing, overlapStart, overlapEnd)
	require.NoError(t, err)

	for _, ev := range second {
		_, dup := existing[KeyOf(ev)]
		assert.False(t, dup, "duplicate event for %s %s", ev.EventDate, ev.Slot)
	}
	assert.Len(t, second, 2) // 仅 06-04 和 06-05 两天是新的
}

func TestExpandAcrossDST(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	def := dailyDefinition("09:00:00")

	// 2025-03-09 美东进入夏令时
	windowStart := time.Date(2025, 3, 8, 0, 0, 0, 0, tz)
	windowEnd := time.Date(2025, 3, 11, 0, 0, 0, 0, tz)

	events, err := Expand(def, tz, nil, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, events, 3)

	for _, ev := range events {
		local := ev.ScheduledAt.In(tz)
		assert.Equal(t, 9, local.Hour(), "slot drifted across DST on %s", ev.EventDate)
		assert.Equal(t, 0, local.Minute())
	}

	// 夏令时切换前后 UTC 偏移确实不同，挂钟时间仍然是 09:00
	assert.NotEqual(t,
		events[0].ScheduledAt.UTC().Hour(),
		events[2].ScheduledAt.UTC().Hour(),
	)
}

func TestExpandWeekly(t *testing.T) {
	tz := time.UTC

	def := dailyDefinition("08:00:00")
	def.Recurrence = model.RecurrenceWeekly
	def.Weekdays = model.StringArray{"1", "3"} // 周一、周三

	// 2025-06-02 是周一
	windowStart := time.Date(2025, 6, 2, 0, 0, 0, 0, tz)
	windowEnd := windowStart.AddDate(0, 0, 7)

	events, err := Expand(def, tz, nil, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2025-06-02", events[0].EventDate)
	assert.Equal(t, "2025-06-04", events[1].EventDate)
}

func TestExpandAsNeededProducesNothing(t *testing.T) {
	def := dailyDefinition()
	def.Recurrence = model.RecurrenceAsNeeded

	events, err := Expand(def, time.UTC, nil, time.Now(), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestValidateDefinition(t *testing.T) {
	def := dailyDefinition()
	assert.ErrorIs(t, ValidateDefinition(def), ErrNoTimeSlots)

	def = dailyDefinition("9am")
	assert.ErrorIs(t, ValidateDefinition(def), ErrInvalidTimeSlot)

	def = dailyDefinition("09:00:00")
	def.Recurrence = "yearly"
	assert.ErrorIs(t, ValidateDefinition(def), ErrUnknownRecurrence)

	def = dailyDefinition("09:00:00")
	assert.NoError(t, ValidateDefinition(def))
}
