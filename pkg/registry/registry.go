// Package registry maintains the set of live trigger subscriptions, matches
// incoming occurrences against their declarative filters, and starts flow
// runs through the injected runner collaborator.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trigion/trigion/pkg/eventbus"
	"github.com/trigion/trigion/pkg/events"
	"github.com/trigion/trigion/pkg/metrics"
	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/otelhelper"
	"github.com/trigion/trigion/pkg/protocol"
	"github.com/trigion/trigion/pkg/store"
)

var (
	// ErrSubscriptionNotFound indicates no live subscription matched the
	// requested identifier or flow.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrFlowNotActive indicates the flow exists but is not in an active
	// state, so dispatch is refused.
	ErrFlowNotActive = errors.New("flow is not active")
)

// Config wires the registry's injected collaborators. Store and Runner are
// mandatory; the rest degrade gracefully when absent.
type Config struct {
	Store     store.Store
	Runner    protocol.Runner
	Scheduler protocol.Scheduler
	Bus       eventbus.EventPublisher
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// Registry holds the primary subscription map and its three secondary
// indices. One mutex guards all four: the multi-location updates in Register
// and Unregister must be atomic.
type Registry struct {
	mu            sync.Mutex
	subscriptions map[string]*models.Subscription
	byType        map[models.TriggerType]map[string]struct{}
	byFlow        map[string]map[string]struct{}
	byUser        map[string]map[string]struct{}

	store     store.Store
	runner    protocol.Runner
	scheduler protocol.Scheduler
	bus       eventbus.EventPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	validate  *validator.Validate
	logger    *slog.Logger
}

func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		subscriptions: make(map[string]*models.Subscription),
		byType:        make(map[models.TriggerType]map[string]struct{}),
		byFlow:        make(map[string]map[string]struct{}),
		byUser:        make(map[string]map[string]struct{}),
		store:         cfg.Store,
		runner:        cfg.Runner,
		scheduler:     cfg.Scheduler,
		bus:           cfg.Bus,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger.With("module", "registry"),
	}
}

// RegisterInput describes one trigger node subscription to register.
type RegisterInput struct {
	FlowID      string             `validate:"required"`
	UserID      string             `validate:"required"`
	NodeID      string             `validate:"required"`
	TriggerType models.TriggerType `validate:"required"`
	Config      map[string]any
}

// Register creates (or replaces) the subscription identified by
// flowID:nodeID. The config is validated before any state mutation, so a
// failed registration leaves no partial state. Schedule triggers get a
// recurring job from the scheduler collaborator; its handle is owned by the
// stored subscription.
func (r *Registry) Register(ctx context.Context, input RegisterInput) (string, error) {
	if err := r.validate.Struct(input); err != nil {
		return "", fmt.Errorf("invalid subscription: %w", err)
	}

	if _, err := models.ParseTriggerType(string(input.TriggerType)); err != nil {
		return "", err
	}

	if err := ValidateTriggerConfig(input.TriggerType, input.Config); err != nil {
		return "", err
	}

	id := models.SubscriptionID(input.FlowID, input.NodeID)

	sub := &models.Subscription{
		ID:          id,
		FlowID:      input.FlowID,
		NodeID:      input.NodeID,
		UserID:      input.UserID,
		TriggerType: input.TriggerType,
		Config:      input.Config,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	// The job is created before any registry mutation so a scheduler failure
	// cannot leave a half-registered subscription. A tick firing before the
	// insert below finds no subscription and is dropped.
	if input.TriggerType == models.TriggerTypeSchedule {
		job, err := r.scheduleJob(id, input.Config)
		if err != nil {
			return "", err
		}

		sub.Job = job
	}

	r.mu.Lock()

	if existing, ok := r.subscriptions[id]; ok {
		r.removeLocked(existing)
		r.releaseJob(existing)
		r.metrics.SubscriptionUnregistered(existing.TriggerType.String())
	}

	r.insertLocked(sub)
	r.mu.Unlock()

	r.metrics.SubscriptionRegistered(sub.TriggerType.String())
	r.publish(ctx, sub.FlowID, events.SubscriptionRegistered{
		BaseEvent:      events.NewBaseEvent(events.SubscriptionRegisteredEvent, sub.FlowID),
		SubscriptionID: id,
		UserID:         sub.UserID,
		TriggerType:    sub.TriggerType,
	})

	r.logger.Info("Registered trigger subscription",
		"subscription_id", id,
		"trigger_type", sub.TriggerType,
		"user_id", sub.UserID)

	return id, nil
}

// Unregister removes a subscription from the primary map and every index,
// cancelling its scheduled job first. Absent ids are a no-op: calling it
// twice in a row is safe.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()

	sub, ok := r.subscriptions[id]
	if !ok {
		r.mu.Unlock()

		return nil
	}

	r.releaseJob(sub)
	r.removeLocked(sub)
	r.mu.Unlock()

	r.metrics.SubscriptionUnregistered(sub.TriggerType.String())
	r.publish(ctx, sub.FlowID, events.SubscriptionUnregistered{
		BaseEvent:      events.NewBaseEvent(events.SubscriptionUnregisteredEvent, sub.FlowID),
		SubscriptionID: id,
	})

	r.logger.Info("Unregistered trigger subscription", "subscription_id", id)

	return nil
}

// UnregisterFlow removes every subscription of a flow. Used when a flow is
// deleted or deactivated.
func (r *Registry) UnregisterFlow(ctx context.Context, flowID string) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byFlow[flowID]))

	for id := range r.byFlow[flowID] {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Unregister(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// Restore rehydrates subscriptions from the flow store: every enabled
// trigger node of every active flow is registered. Individual node failures
// are logged and skipped so one bad flow cannot block startup.
func (r *Registry) Restore(ctx context.Context) error {
	flows, err := r.store.ActiveFlows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active flows: %w", err)
	}

	restored := 0

	for _, flow := range flows {
		for _, triggerNode := range flow.TriggerNodes() {
			triggerType, err := triggerNode.TriggerTypeOf()
			if err != nil {
				r.logger.Warn("Skipping trigger node with unknown type",
					"flow_id", flow.ID, "node_id", triggerNode.ID, "error", err)

				continue
			}

			_, err = r.Register(ctx, RegisterInput{
				FlowID:      flow.ID,
				UserID:      flow.UserID,
				NodeID:      triggerNode.ID,
				TriggerType: triggerType,
				Config:      triggerNode.Config,
			})
			if err != nil {
				r.logger.Warn("Failed to restore subscription",
					"flow_id", flow.ID, "node_id", triggerNode.ID, "error", err)

				continue
			}

			restored++
		}
	}

	r.logger.Info("Restored trigger subscriptions", "count", restored, "flows", len(flows))

	return nil
}

// Subscription returns the live subscription with the given id.
func (r *Registry) Subscription(id string) (*models.Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[id]

	return sub, ok
}

// Count returns the number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subscriptions)
}

// ExecuteTrigger loads the subscription's flow, refuses inactive flows, and
// hands the assembled input to the flow runner with the subscription's node
// as start point. The input always carries a trigger object.
func (r *Registry) ExecuteTrigger(ctx context.Context, sub *models.Subscription, input, trigger map[string]any) (string, error) {
	var span trace.Span

	if r.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, r.tracer, "registry.execute_trigger",
			attribute.String(otelhelper.FlowIDKey, sub.FlowID),
			attribute.String(otelhelper.SubscriptionIDKey, sub.ID),
			attribute.String(otelhelper.TriggerTypeKey, sub.TriggerType.String()),
		)
		defer span.End()
	}

	executionID, err := r.executeTrigger(ctx, sub, input, trigger)
	if err != nil {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		r.metrics.ExecutionFinished(false)
		r.publish(ctx, sub.FlowID, events.TriggerFailed{
			BaseEvent:      events.NewBaseEvent(events.TriggerFailedEvent, sub.FlowID),
			SubscriptionID: sub.ID,
			Error:          err.Error(),
		})

		return "", err
	}

	if span != nil {
		span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, executionID))
	}

	r.metrics.ExecutionFinished(true)
	r.publish(ctx, sub.FlowID, events.TriggerExecuted{
		BaseEvent:      events.NewBaseEvent(events.TriggerExecutedEvent, sub.FlowID),
		SubscriptionID: sub.ID,
		ExecutionID:    executionID,
		Input:          input,
	})

	return executionID, nil
}

func (r *Registry) executeTrigger(ctx context.Context, sub *models.Subscription, input, trigger map[string]any) (string, error) {
	flow, err := r.store.FlowByID(ctx, sub.FlowID)
	if err != nil {
		return "", fmt.Errorf("failed to load flow %s: %w", sub.FlowID, err)
	}

	if !flow.IsActive() {
		return "", fmt.Errorf("%w: %s", ErrFlowNotActive, flow.ID)
	}

	if input == nil {
		input = make(map[string]any)
	}

	if trigger == nil {
		trigger = make(map[string]any)
	}

	trigger["type"] = sub.TriggerType.String()
	trigger["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	trigger["subscriptionId"] = sub.ID
	trigger["nodeId"] = sub.NodeID
	input["trigger"] = trigger

	executionID, err := r.runner.Execute(ctx, flow, protocol.RunInput{
		Input:       input,
		Trigger:     trigger,
		UserID:      sub.UserID,
		StartNodeID: sub.NodeID,
	})
	if err != nil {
		return "", fmt.Errorf("flow runner failed for %s: %w", sub.ID, err)
	}

	r.logger.Info("Trigger executed",
		"subscription_id", sub.ID,
		"flow_id", sub.FlowID,
		"execution_id", executionID)

	return executionID, nil
}

// insertLocked adds the subscription to the primary map and all three
// indices. Caller holds the mutex.
func (r *Registry) insertLocked(sub *models.Subscription) {
	r.subscriptions[sub.ID] = sub

	if r.byType[sub.TriggerType] == nil {
		r.byType[sub.TriggerType] = make(map[string]struct{})
	}

	if r.byFlow[sub.FlowID] == nil {
		r.byFlow[sub.FlowID] = make(map[string]struct{})
	}

	if r.byUser[sub.UserID] == nil {
		r.byUser[sub.UserID] = make(map[string]struct{})
	}

	r.byType[sub.TriggerType][sub.ID] = struct{}{}
	r.byFlow[sub.FlowID][sub.ID] = struct{}{}
	r.byUser[sub.UserID][sub.ID] = struct{}{}
}

// removeLocked clears the subscription from all three indices and the
// primary map. A missing entry in any index counts as already removed.
// Caller holds the mutex.
func (r *Registry) removeLocked(sub *models.Subscription) {
	delete(r.byType[sub.TriggerType], sub.ID)
	delete(r.byFlow[sub.FlowID], sub.ID)
	delete(r.byUser[sub.UserID], sub.ID)
	delete(r.subscriptions, sub.ID)
}

// releaseJob cancels the subscription's scheduled job, if it owns one.
func (r *Registry) releaseJob(sub *models.Subscription) {
	if sub.Job != nil {
		sub.Job.Cancel()
		sub.Job = nil
	}
}

// scheduleJob asks the scheduler collaborator for a recurring job whose
// callback dispatches the subscription. Schedule occurrences skip filter
// evaluation: the cron expression is the filter.
func (r *Registry) scheduleJob(id string, config map[string]any) (protocol.Job, error) {
	if r.scheduler == nil {
		return nil, errors.New("no scheduler configured for schedule trigger")
	}

	cronExpr, _ := config["cron"].(string)
	timezone, _ := config["timezone"].(string)

	job, err := r.scheduler.Schedule(cronExpr, func() {
		r.runScheduled(id)
	}, protocol.ScheduleOptions{Timezone: timezone})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job for %s: %w", id, err)
	}

	return job, nil
}

// runScheduled is the cron job callback. Fire-and-forget: failures are
// logged, never re-thrown into the scheduler.
func (r *Registry) runScheduled(id string) {
	r.mu.Lock()
	sub, ok := r.subscriptions[id]
	r.mu.Unlock()

	if !ok || !sub.Active {
		return
	}

	r.metrics.OccurrenceHandled("schedule")

	cronExpr, _ := sub.Config["cron"].(string)
	input := map[string]any{
		"schedule": map[string]any{"cron": cronExpr},
	}

	if _, err := r.ExecuteTrigger(context.Background(), sub, input, nil); err != nil {
		r.metrics.DispatchError("schedule")
		r.logger.Error("Scheduled trigger failed", "subscription_id", id, "error", err)
	}
}

// publish sends an observability event, tolerating a missing bus.
func (r *Registry) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.bus == nil {
		return
	}

	if err := r.bus.Publish(ctx, key, event); err != nil {
		r.logger.Warn("Failed to publish registry event",
			"event_type", event.GetType(), "error", err)
	}
}
