package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/eventbus"
	"github.com/trigion/trigion/pkg/events"
	"github.com/trigion/trigion/pkg/mocks"
	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/protocol"
	"github.com/trigion/trigion/pkg/registry"
)

func activeFlow(id, userID string) *models.Flow {
	return &models.Flow{
		ID:     id,
		Name:   "flow " + id,
		Status: models.FlowStatusActive,
		UserID: userID,
		Nodes: []*models.FlowNode{
			{
				ID:      "n1",
				Type:    models.NodeTypeTriggerMessage,
				Enabled: true,
				Config:  map[string]any{"platform": "any", "contains": "order"},
			},
		},
	}
}

type testHarness struct {
	registry  *registry.Registry
	store     *mocks.MockStore
	runner    *mocks.MockRunner
	scheduler *mocks.MockScheduler
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	store := &mocks.MockStore{}
	runner := &mocks.MockRunner{}
	scheduler := &mocks.MockScheduler{}

	return &testHarness{
		registry: registry.New(registry.Config{
			Store:     store,
			Runner:    runner,
			Scheduler: scheduler,
		}),
		store:     store,
		runner:    runner,
		scheduler: scheduler,
	}
}

func (h *testHarness) registerMessage(t *testing.T, flowID, userID string, config map[string]any) string {
	t.Helper()

	id, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      flowID,
		UserID:      userID,
		NodeID:      "n1",
		TriggerType: models.TriggerTypeMessage,
		Config:      config,
	})
	require.NoError(t, err)

	return id
}

func TestRegistry_Register(t *testing.T) {
	h := newHarness(t)

	id := h.registerMessage(t, "f1", "u1", map[string]any{"contains": "order"})

	assert.Equal(t, "f1:n1", id)
	assert.Equal(t, 1, h.registry.Count())

	sub, ok := h.registry.Subscription(id)
	require.True(t, ok)
	assert.Equal(t, "u1", sub.UserID)
	assert.True(t, sub.Active)
	assert.WithinDuration(t, time.Now(), sub.CreatedAt, time.Minute)
}

func TestRegistry_Register_InvalidInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeMessage,
	})
	assert.Error(t, err, "missing user id must be rejected")

	_, err = h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerType("bogus"),
	})
	assert.Error(t, err)

	assert.Equal(t, 0, h.registry.Count(), "failed registration must leave no state")
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", map[string]any{"contains": "a"})
	h.registerMessage(t, "f1", "u1", map[string]any{"contains": "b"})

	assert.Equal(t, 1, h.registry.Count())

	sub, ok := h.registry.Subscription("f1:n1")
	require.True(t, ok)
	assert.Equal(t, "b", sub.Config["contains"], "re-registration replaces the config")
}

func TestRegistry_Unregister_Idempotent(t *testing.T) {
	h := newHarness(t)

	id := h.registerMessage(t, "f1", "u1", nil)

	require.NoError(t, h.registry.Unregister(context.Background(), id))
	assert.Equal(t, 0, h.registry.Count())

	_, ok := h.registry.Subscription(id)
	assert.False(t, ok)

	require.NoError(t, h.registry.Unregister(context.Background(), id), "second unregister is a no-op")
}

func TestRegistry_UnregisterFlow(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", nil)
	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n2",
		TriggerType: models.TriggerTypeManual,
	})
	require.NoError(t, err)
	h.registerMessage(t, "f2", "u1", nil)

	require.NoError(t, h.registry.UnregisterFlow(context.Background(), "f1"))

	assert.Equal(t, 1, h.registry.Count())
	_, ok := h.registry.Subscription("f2:n1")
	assert.True(t, ok)
}

func TestRegistry_ScheduleJobLifecycle(t *testing.T) {
	h := newHarness(t)

	job := &mocks.MockJob{}
	job.On("Cancel").Return()
	h.scheduler.On("Schedule", "*/5 * * * *", mock.AnythingOfType("func()"), protocol.ScheduleOptions{}).
		Return(job, nil)

	id, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeSchedule,
		Config:      map[string]any{"cron": "*/5 * * * *"},
	})
	require.NoError(t, err)

	require.NoError(t, h.registry.Unregister(context.Background(), id))
	job.AssertCalled(t, "Cancel")
}

func TestRegistry_ScheduleJobFailureLeavesNoState(t *testing.T) {
	h := newHarness(t)

	h.scheduler.On("Schedule", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("scheduler down"))

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeSchedule,
		Config:      map[string]any{"cron": "*/5 * * * *"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, h.registry.Count())
}

func TestRegistry_ScheduleCallback_Dispatches(t *testing.T) {
	h := newHarness(t)

	var callback func()

	job := &mocks.MockJob{}
	h.scheduler.On("Schedule", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { callback = args.Get(1).(func()) }).
		Return(job, nil)

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)
	h.runner.On("Execute", mock.Anything, flow, mock.Anything).Return("exec-1", nil)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeSchedule,
		Config:      map[string]any{"cron": "*/5 * * * *"},
	})
	require.NoError(t, err)
	require.NotNil(t, callback)

	callback()

	h.runner.AssertNumberOfCalls(t, "Execute", 1)
}

func TestRegistry_Restore(t *testing.T) {
	h := newHarness(t)

	broken := activeFlow("f2", "u1")
	broken.Nodes[0].Type = "trigger:bogus"

	h.store.On("ActiveFlows", mock.Anything).
		Return([]*models.Flow{activeFlow("f1", "u1"), broken}, nil)

	require.NoError(t, h.registry.Restore(context.Background()))

	assert.Equal(t, 1, h.registry.Count(), "unknown trigger types are skipped, not fatal")
	_, ok := h.registry.Subscription("f1:n1")
	assert.True(t, ok)
}

func TestRegistry_ExecuteTrigger_RefusesInactiveFlow(t *testing.T) {
	h := newHarness(t)

	id := h.registerMessage(t, "f1", "u1", nil)
	sub, _ := h.registry.Subscription(id)

	inactive := activeFlow("f1", "u1")
	inactive.Status = models.FlowStatusInactive
	h.store.On("FlowByID", mock.Anything, "f1").Return(inactive, nil)

	_, err := h.registry.ExecuteTrigger(context.Background(), sub, nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrFlowNotActive)
	h.runner.AssertNotCalled(t, "Execute")
}

func TestRegistry_HandleMessage_EndToEnd(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", map[string]any{"platform": "any", "contains": "order"})

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)

	var captured protocol.RunInput

	h.runner.On("Execute", mock.Anything, flow, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(protocol.RunInput) }).
		Return("exec-1", nil)

	dispatched := h.registry.HandleMessage(context.Background(), &models.MessageOccurrence{
		Message: models.Message{
			Content:     "new order #42",
			Platform:    "whatsapp",
			ContentType: models.ContentTypeText,
		},
		Conversation: models.Conversation{ID: "c1", UserID: "u1"},
	})

	assert.Equal(t, 1, dispatched)
	h.runner.AssertNumberOfCalls(t, "Execute", 1)

	assert.Equal(t, "n1", captured.StartNodeID)
	assert.Equal(t, "u1", captured.UserID)

	trigger, ok := captured.Input["trigger"].(map[string]any)
	require.True(t, ok, "input must carry a trigger object")
	assert.Equal(t, "message", trigger["type"])
	assert.Contains(t, trigger["matchedFilters"], "contains")
}

func TestRegistry_HandleMessage_FiltersByOwner(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", map[string]any{"contains": "order"})

	dispatched := h.registry.HandleMessage(context.Background(), &models.MessageOccurrence{
		Message:      models.Message{Content: "new order", Platform: "whatsapp", ContentType: models.ContentTypeText},
		Conversation: models.Conversation{UserID: "someone-else"},
	})

	assert.Equal(t, 0, dispatched)
	h.runner.AssertNotCalled(t, "Execute")
}

func TestRegistry_HandleMessage_IsolatesCandidateFailures(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", map[string]any{"contains": "order"})
	h.registerMessage(t, "f2", "u1", map[string]any{"contains": "order"})

	failing := activeFlow("f1", "u1")
	healthy := activeFlow("f2", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(failing, nil)
	h.store.On("FlowByID", mock.Anything, "f2").Return(healthy, nil)
	h.runner.On("Execute", mock.Anything, failing, mock.Anything).Return("", errors.New("runner exploded"))
	h.runner.On("Execute", mock.Anything, healthy, mock.Anything).Return("exec-2", nil)

	dispatched := h.registry.HandleMessage(context.Background(), &models.MessageOccurrence{
		Message:      models.Message{Content: "order up", Platform: "whatsapp", ContentType: models.ContentTypeText},
		Conversation: models.Conversation{UserID: "u1"},
	})

	assert.Equal(t, 1, dispatched, "one candidate failing must not stop its siblings")
	h.runner.AssertNumberOfCalls(t, "Execute", 2)
}

func TestRegistry_HandleWebhook(t *testing.T) {
	h := newHarness(t)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeWebhook,
		Config:      map[string]any{"webhookId": "wh-1"},
	})
	require.NoError(t, err)

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)
	h.runner.On("Execute", mock.Anything, flow, mock.Anything).Return("exec-1", nil)

	executionID, err := h.registry.HandleWebhook(context.Background(), "wh-1",
		map[string]any{"answer": 42},
		map[string]string{"Content-Type": "application/json"})

	require.NoError(t, err)
	assert.Equal(t, "exec-1", executionID)

	_, err = h.registry.HandleWebhook(context.Background(), "wh-unknown", nil, nil)
	assert.ErrorIs(t, err, registry.ErrSubscriptionNotFound)
}

func TestRegistry_HandleWebhook_RethrowsDispatchError(t *testing.T) {
	h := newHarness(t)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeWebhook,
		Config:      map[string]any{"webhookId": "wh-1"},
	})
	require.NoError(t, err)

	h.store.On("FlowByID", mock.Anything, "f1").Return(nil, errors.New("store down"))

	_, err = h.registry.HandleWebhook(context.Background(), "wh-1", nil, nil)
	assert.Error(t, err, "webhooks are request/response, errors must reach the caller")
}

func TestRegistry_HandleManual(t *testing.T) {
	h := newHarness(t)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeManual,
	})
	require.NoError(t, err)

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)
	h.runner.On("Execute", mock.Anything, flow, mock.Anything).Return("exec-1", nil)

	executionID, err := h.registry.HandleManual(context.Background(), "f1", map[string]any{"from": "test"}, "u1")

	require.NoError(t, err)
	assert.Equal(t, "exec-1", executionID)

	_, err = h.registry.HandleManual(context.Background(), "f1", nil, "someone-else")
	assert.ErrorIs(t, err, registry.ErrSubscriptionNotFound, "owner gate applies to manual runs")

	_, err = h.registry.HandleManual(context.Background(), "f-unknown", nil, "")
	assert.ErrorIs(t, err, registry.ErrSubscriptionNotFound)
}

func TestRegistry_HandleFlowRoute(t *testing.T) {
	h := newHarness(t)

	h.registerMessage(t, "f1", "u1", map[string]any{"contains": "never matches this"})

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)

	var captured protocol.RunInput

	h.runner.On("Execute", mock.Anything, flow, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(protocol.RunInput) }).
		Return("exec-1", nil)

	_, err := h.registry.HandleFlowRoute(context.Background(), &models.FlowRouteOccurrence{
		FlowID:  "f1",
		Input:   map[string]any{"payload": "x"},
		Context: map[string]any{"origin": "campaign"},
	})

	require.NoError(t, err, "flow routes bypass filter evaluation")
	assert.Equal(t, "x", captured.Input["payload"])
	assert.Equal(t, "campaign", captured.Trigger["origin"])
}

func TestRegistry_HandleEvent(t *testing.T) {
	h := newHarness(t)

	_, err := h.registry.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeEvent,
		Config:      map[string]any{"event": "user.created"},
	})
	require.NoError(t, err)

	flow := activeFlow("f1", "u1")
	h.store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)
	h.runner.On("Execute", mock.Anything, flow, mock.Anything).Return("exec-1", nil)

	assert.Equal(t, 1, h.registry.HandleEvent(context.Background(), "user.created", map[string]any{"id": "u9"}, "u1"))
	assert.Equal(t, 0, h.registry.HandleEvent(context.Background(), "user.deleted", nil, "u1"))
	assert.Equal(t, 0, h.registry.HandleEvent(context.Background(), "user.created", nil, "someone-else"))
}

func TestRegistry_PublishesLifecycleEvents(t *testing.T) {
	store := &mocks.MockStore{}
	runner := &mocks.MockRunner{}
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "f1", mock.Anything).Return(nil)

	reg := registry.New(registry.Config{Store: store, Runner: runner, Bus: bus})

	id, err := reg.Register(context.Background(), registry.RegisterInput{
		FlowID:      "f1",
		UserID:      "u1",
		NodeID:      "n1",
		TriggerType: models.TriggerTypeManual,
	})
	require.NoError(t, err)

	flow := activeFlow("f1", "u1")
	store.On("FlowByID", mock.Anything, "f1").Return(flow, nil)
	runner.On("Execute", mock.Anything, flow, mock.Anything).Return("exec-1", nil)

	sub, _ := reg.Subscription(id)
	_, err = reg.ExecuteTrigger(context.Background(), sub, nil, nil)
	require.NoError(t, err)

	require.NoError(t, reg.Unregister(context.Background(), id))

	types := make([]events.EventType, 0)
	for _, call := range bus.Calls {
		types = append(types, call.Arguments.Get(2).(eventbus.Event).GetType())
	}

	assert.Equal(t, []events.EventType{
		events.SubscriptionRegisteredEvent,
		events.TriggerExecutedEvent,
		events.SubscriptionUnregisteredEvent,
	}, types)
}
