package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareCircle/internal/model"
)

// fixedClock 固定时间源
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) TimezoneFor(ctx context.Context, seniorID int64) (*time.Location, error) {
	return time.UTC, nil
}

// recordingNotifier 记录所有推送调用
type recordingNotifier struct {
	pushed []model.Alert
}

func (n *recordingNotifier) Push(ctx context.Context, alert model.Alert) {
	n.pushed = append(n.pushed, alert)
}

// fakeStore 内存实现，按 ID 建表
type fakeStore struct {
	definitions   []model.ScheduleDefinition
	profiles      map[int64]*model.SeniorProfile
	caregivers    map[int64]*model.Caregiver
	events        map[EventKey]*model.ScheduledEvent
	alerts        []model.Alert
	policies      map[int64]*model.GuardrailPolicy
	subscriptions map[int64]*model.Subscription

	priorMisses int
	// concurrentComplete 模拟扫描间隙用户完成事件的竞态
	concurrentComplete map[int64]bool

	nextEventID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:           make(map[int64]*model.SeniorProfile),
		caregivers:         make(map[int64]*model.Caregiver),
		events:             make(map[EventKey]*model.ScheduledEvent),
		policies:           make(map[int64]*model.GuardrailPolicy),
		subscriptions:      make(map[int64]*model.Subscription),
		concurrentComplete: make(map[int64]bool),
		nextEventID:        1,
	}
}

func (s *fakeStore) GetDueScheduleDefinitions(ctx context.Context, asOf time.Time) ([]model.ScheduleDefinition, error) {
	return s.definitions, nil
}

func (s *fakeStore) GetSeniorProfile(ctx context.Context, seniorID int64) (*model.SeniorProfile, error) {
	p, ok := s.profiles[seniorID]
	if !ok {
		return nil, fmt.Errorf("senior %d not found", seniorID)
	}
	return p, nil
}

func (s *fakeStore) GetCaregiver(ctx context.Context, caregiverID int64) (*model.Caregiver, error) {
	c, ok := s.caregivers[caregiverID]
	if !ok {
		return nil, fmt.Errorf("caregiver %d not found", caregiverID)
	}
	return c, nil
}

func (s *fakeStore) GetExistingEventKeys(ctx context.Context, definitionID int64, windowStart, windowEnd time.Time) (map[EventKey]struct{}, error) {
	keys := make(map[EventKey]struct{})
	for k, ev := range s.events {
		if ev.DefinitionID == definitionID {
			keys[k] = struct{}{}
		}
	}
	return keys, nil
}

func (s *fakeStore) UpsertEvent(ctx context.Context, event *model.ScheduledEvent) error {
	key := KeyOf(*event)
	if _, exists := s.events[key]; exists {
		return nil
	}
	stored := *event
	stored.ID = s.nextEventID
	s.nextEventID++
	s.events[key] = &stored
	return nil
}

func (s *fakeStore) GetPendingEventsOlderThan(ctx context.Context, cutoff time.Time) ([]model.ScheduledEvent, error) {
	var out []model.ScheduledEvent
	for _, ev := range s.events {
		if ev.Status == model.EventStatusPending && ev.ScheduledAt.Before(cutoff) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateEventStatus(ctx context.Context, event *model.ScheduledEvent, expected model.EventStatus) (bool, error) {
	stored, ok := s.events[KeyOf(*event)]
	if !ok {
		return false, fmt.Errorf("event %d not found", event.ID)
	}
	if s.concurrentComplete[stored.ID] {
		stored.Status = model.EventStatusTaken
		delete(s.concurrentComplete, stored.ID)
	}
	if stored.Status != expected {
		return false, nil
	}
	stored.Status = event.Status
	stored.TakenAt = event.TakenAt
	return true, nil
}

func (s *fakeStore) CountRecentConsecutiveMisses(ctx context.Context, definitionID int64, beforeDate string) (int, error) {
	return s.priorMisses, nil
}

func (s *fakeStore) AppendAlert(ctx context.Context, alert *model.Alert) error {
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) GetGuardrailPolicy(ctx context.Context, seniorID int64) (*model.GuardrailPolicy, error) {
	p, ok := s.policies[seniorID]
	if !ok {
		return nil, fmt.Errorf("policy for senior %d not found", seniorID)
	}
	return p, nil
}

func (s *fakeStore) GetSubscription(ctx context.Context, caregiverID int64) (*model.Subscription, error) {
	return s.subscriptions[caregiverID], nil
}

func seedStore() *fakeStore {
	store := newFakeStore()

	profile := testSenior()
	profile.Timezone = "UTC"
	profile.QuietHoursStart = ""
	profile.QuietHoursEnd = ""
	store.profiles[profile.ID] = profile

	caregiver := &model.Caregiver{Status: model.CaregiverStatusActive}
	caregiver.ID = profile.CaregiverID
	store.caregivers[caregiver.ID] = caregiver

	def := dailyDefinition("09:00:00")
	def.SeniorID = profile.ID
	store.definitions = []model.ScheduleDefinition{*def}

	return store
}

func TestCoordinatorExpandWindowIdempotent(t *testing.T) {
	store := seedStore()
	clock := fixedClock{now: time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)}
	coord := NewCoordinator(store, clock, NopNotifier{}, DefaultLifecycleConfig(), nil)

	windowStart := clock.now.Truncate(24 * time.Hour)
	windowEnd := windowStart.AddDate(0, 0, 3)

	result, errs := coord.ExpandWindow(context.Background(), windowStart, windowEnd)
	require.Empty(t, errs)
	assert.Equal(t, 3, result.Created)

	// 重复执行不产生新事件
	result, errs = coord.ExpandWindow(context.Background(), windowStart, windowEnd)
	require.Empty(t, errs)
	assert.Zero(t, result.Created)
	assert.Len(t, store.events, 3)
}

func TestCoordinatorSkipsInactiveProfile(t *testing.T) {
	store := seedStore()
	store.profiles[7].Active = false
	clock := fixedClock{now: time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)}
	coord := NewCoordinator(store, clock, NopNotifier{}, DefaultLifecycleConfig(), nil)

	result, errs := coord.ExpandWindow(context.Background(), clock.now, clock.now.AddDate(0, 0, 2))
	require.Empty(t, errs)
	assert.Zero(t, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestCoordinatorSweepRecordsAlertAndPushes(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}

	expandClock := fixedClock{now: time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)}
	coord := NewCoordinator(store, expandClock, notifier, DefaultLifecycleConfig(), nil)
	_, errs := coord.ExpandWindow(context.Background(), expandClock.now.Truncate(24*time.Hour), expandClock.now.AddDate(0, 0, 1))
	require.Empty(t, errs)
	require.Len(t, store.events, 1)

	// 10:01，09:00 槽已超出 60 分钟宽限期
	sweepClock := fixedClock{now: time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC)}
	coord = NewCoordinator(store, sweepClock, notifier, DefaultLifecycleConfig(), nil)

	result, errs := coord.SweepMissedEvents(context.Background())
	require.Empty(t, errs)
	assert.Equal(t, 1, result.Swept)
	assert.Zero(t, result.Races)

	require.Len(t, store.alerts, 1)
	alert := store.alerts[0]
	assert.Equal(t, model.AlertTypeMedMissed, alert.Type)
	assert.Equal(t, model.SeverityWarning, alert.Severity)
	assert.False(t, alert.Suppressed)
	assert.Len(t, notifier.pushed, 1)

	for _, ev := range store.events {
		assert.Equal(t, model.EventStatusMissed, ev.Status)
	}
}

func TestCoordinatorSweepToleratesCompletionRace(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}

	expandClock := fixedClock{now: time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)}
	coord := NewCoordinator(store, expandClock, notifier, DefaultLifecycleConfig(), nil)
	_, errs := coord.ExpandWindow(context.Background(), expandClock.now.Truncate(24*time.Hour), expandClock.now.AddDate(0, 0, 1))
	require.Empty(t, errs)

	// 扫描读到 pending 之后、写回之前，用户在手机上点了"已服药"
	for _, ev := range store.events {
		store.concurrentComplete[ev.ID] = true
	}

	sweepClock := fixedClock{now: time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC)}
	coord = NewCoordinator(store, sweepClock, notifier, DefaultLifecycleConfig(), nil)

	result, errs := coord.SweepMissedEvents(context.Background())
	require.Empty(t, errs)
	assert.Zero(t, result.Swept)
	assert.Equal(t, 1, result.Races)
	assert.Empty(t, store.alerts)
	assert.Empty(t, notifier.pushed)
}

func TestCoordinatorSuppressedAlertStillPersisted(t *testing.T) {
	store := seedStore()
	store.caregivers[3].NotificationPrefs = model.JSONB{"med_missed": false}
	notifier := &recordingNotifier{}

	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	coord := NewCoordinator(store, clock, notifier, DefaultLifecycleConfig(), nil)

	err := coord.RecordFact(context.Background(), Fact{
		Type:     model.AlertTypeMedMissed,
		SeniorID: 7,
		Message:  "Morning medication was missed",
	})
	require.NoError(t, err)

	require.Len(t, store.alerts, 1)
	assert.True(t, store.alerts[0].Suppressed)
	assert.Empty(t, notifier.pushed)
}

func TestCoordinatorConversationRequiresPremium(t *testing.T) {
	store := seedStore()
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	coord := NewCoordinator(store, clock, NopNotifier{}, DefaultLifecycleConfig(), nil)

	// 没有订阅记录 -> free
	_, err := coord.EvaluateConversationTurn(context.Background(), 7, Turn{Text: "hello"})
	assert.ErrorIs(t, err, ErrNotEntitled)

	// basic 也不够
	endDate := clock.now.AddDate(0, 1, 0)
	basic := model.Subscription{
		CaregiverID: 3,
		Tier:        model.TierBasic,
		Status:      model.SubscriptionStatusActive,
		EndDate:     &endDate,
	}
	store.subscriptions[3] = &basic
	_, err = coord.EvaluateConversationTurn(context.Background(), 7, Turn{Text: "hello"})
	assert.ErrorIs(t, err, ErrNotEntitled)
}

func TestCoordinatorConversationEscalation(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	trial := NewTrial(3, 14, clock.now.AddDate(0, 0, -1))
	store.subscriptions[3] = &trial
	store.policies[7] = testPolicy()

	coord := NewCoordinator(store, clock, notifier, DefaultLifecycleConfig(), nil)

	eval, err := coord.EvaluateConversationTurn(context.Background(), 7, Turn{
		Text:           "I do not want to go on",
		RiskCategories: []model.RiskCategory{model.RiskSelfHarm},
	})
	require.NoError(t, err)
	assert.True(t, eval.Escalate)

	require.Len(t, store.alerts, 1)
	assert.Equal(t, model.SeverityCritical, store.alerts[0].Severity)
	assert.False(t, store.alerts[0].Suppressed)
	assert.Len(t, notifier.pushed, 1)
}

func TestCoordinatorAutoNotifyOffPersistsWithoutPush(t *testing.T) {
	store := seedStore()
	notifier := &recordingNotifier{}
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	trial := NewTrial(3, 14, clock.now.AddDate(0, 0, -1))
	store.subscriptions[3] = &trial
	policy := testPolicy()
	policy.AutoNotify = false
	store.policies[7] = policy

	coord := NewCoordinator(store, clock, notifier, DefaultLifecycleConfig(), nil)

	eval, err := coord.EvaluateConversationTurn(context.Background(), 7, Turn{
		Text:           "everything feels pointless",
		RiskCategories: []model.RiskCategory{model.RiskDepression},
	})
	require.NoError(t, err)
	assert.True(t, eval.Escalate)
	assert.False(t, eval.Notify)

	require.Len(t, store.alerts, 1)
	assert.True(t, store.alerts[0].Suppressed)
	assert.Empty(t, notifier.pushed)
}
