package engine

import (
	"fmt"
	"time"

	"CareCircle/internal/model"
)

const (
	slotLayout = "15:04:05"
	dateLayout = "2006-01-02"
)

// EventKey 幂等展开的去重键
type EventKey struct {
	DefinitionID int64
	Date         string // YYYY-MM-DD
	Slot         string // HH:MM:SS
}

// KeyOf 返回事件的去重键
func KeyOf(ev model.ScheduledEvent) EventKey {
	return EventKey{DefinitionID: ev.DefinitionID, Date: ev.EventDate, Slot: ev.Slot}
}

// ValidateDefinition 保存日程定义前的校验，不合法的定义不会进入展开流程
func ValidateDefinition(def *model.ScheduleDefinition) error {
	switch def.Recurrence {
	case model.RecurrenceDaily, model.RecurrenceWeekly:
		if len(def.TimeSlots) == 0 {
			return ErrNoTimeSlots
		}
	case model.RecurrenceAsNeeded:
		// 按需定义不展开，时间槽可为空
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRecurrence, def.Recurrence)
	}

	for _, slot := range def.TimeSlots {
		if _, err := time.Parse(slotLayout, slot); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimeSlot, slot)
		}
	}

	if def.Recurrence == model.RecurrenceWeekly {
		for _, wd := range def.Weekdays {
			if len(wd) != 1 || wd[0] < '0' || wd[0] > '6' {
				return fmt.Errorf("%w: invalid weekday %q", ErrUnknownRecurrence, wd)
			}
		}
	}

	return nil
}

// Expand 把日程定义展开为窗口内的 pending 事件
//
// 幂等性由 existing 键集合保证：重复或重叠窗口调用不会产生重复的
// (definition, date, slot) 事件。时间按 tz 的挂钟时间合成，跨 DST 时
// 09:00 的槽仍然是当地 09:00。
func Expand(
	def *model.ScheduleDefinition,
	tz *time.Location,
	existing map[EventKey]struct{},
	windowStart, windowEnd time.Time,
) ([]model.ScheduledEvent, error) {
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}

	// 按需定义的事件由用户动作直接创建
	if def.Recurrence == model.RecurrenceAsNeeded || !def.Active {
		return nil, nil
	}

	weekdays := weekdaySet(def)

	var events []model.ScheduledEvent

	localStart := windowStart.In(tz)
	day := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, tz)

	for !day.After(windowEnd.In(tz)) {
		if def.Recurrence == model.RecurrenceWeekly && !weekdays[day.Weekday()] {
			day = day.AddDate(0, 0, 1)
			continue
		}

		for _, slot := range def.TimeSlots {
			parsed, err := time.Parse(slotLayout, slot)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidTimeSlot, slot)
			}

			// 在存储时区内合成挂钟时间，而不是做 UTC 偏移运算
			at := time.Date(day.Year(), day.Month(), day.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0, tz)

			if at.Before(windowStart) || !at.Before(windowEnd) {
				continue
			}

			key := EventKey{DefinitionID: def.ID, Date: day.Format(dateLayout), Slot: slot}
			if _, ok := existing[key]; ok {
				continue
			}

			events = append(events, model.ScheduledEvent{
				DefinitionID: def.ID,
				SeniorID:     def.SeniorID,
				EventDate:    key.Date,
				Slot:         slot,
				ScheduledAt:  at,
				Status:       model.EventStatusPending,
			})
		}

		day = day.AddDate(0, 0, 1)
	}

	return events, nil
}

func weekdaySet(def *model.ScheduleDefinition) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(def.Weekdays))
	for _, wd := range def.Weekdays {
		set[time.Weekday(wd[0]-'0')] = true
	}
	return set
}
