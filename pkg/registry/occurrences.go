package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/trigion/trigion/pkg/models"
)

// HandleMessage dispatches a message occurrence to every matching message
// subscription of the occurrence's owner. Fire-and-forget: each candidate is
// evaluated in isolation, and a panic or dispatch error in one never reaches
// its siblings or the transport. Returns the number of flow runs started.
func (r *Registry) HandleMessage(ctx context.Context, occurrence *models.MessageOccurrence) int {
	r.metrics.OccurrenceHandled("message")

	candidates := r.candidatesByType(models.TriggerTypeMessage)
	dispatched := 0

	for _, sub := range candidates {
		if !sub.Active || sub.UserID != occurrence.Conversation.UserID {
			continue
		}

		if r.dispatchMessage(ctx, sub, occurrence) {
			dispatched++
		}
	}

	return dispatched
}

func (r *Registry) dispatchMessage(ctx context.Context, sub *models.Subscription, occurrence *models.MessageOccurrence) (ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false

			r.metrics.DispatchError("message")
			r.logger.Error("Panic while evaluating message subscription",
				"subscription_id", sub.ID, "panic", recovered)
		}
	}()

	result := EvaluateMessageFilters(&occurrence.Message, sub.Config)
	if !result.Matched {
		r.logger.Debug("Message filters did not match",
			"subscription_id", sub.ID, "reason", result.Reason)

		return false
	}

	r.metrics.Matched("message")

	trigger := map[string]any{
		"matchedFilters": result.MatchedFilters,
		"platform":       occurrence.Message.Platform,
		"messageId":      occurrence.Message.ID,
	}

	if _, err := r.ExecuteTrigger(ctx, sub, occurrence.AsInput(), trigger); err != nil {
		r.metrics.DispatchError("message")
		r.logger.Error("Message trigger dispatch failed",
			"subscription_id", sub.ID, "error", err)

		return false
	}

	return true
}

// HandleWebhook dispatches the webhook subscription registered under the
// given webhook id. Request/response path: errors are returned to the caller
// so the HTTP layer can answer with a failure status.
func (r *Registry) HandleWebhook(ctx context.Context, webhookID string, payload map[string]any, headers map[string]string) (string, error) {
	r.metrics.OccurrenceHandled("webhook")

	sub := r.findWebhook(webhookID)
	if sub == nil {
		return "", fmt.Errorf("%w: webhook %s", ErrSubscriptionNotFound, webhookID)
	}

	input := map[string]any{
		"body": payload,
	}

	trigger := map[string]any{
		"webhookId":   webhookID,
		"contentType": headers["Content-Type"],
		"userAgent":   headers["User-Agent"],
	}

	executionID, err := r.ExecuteTrigger(ctx, sub, input, trigger)
	if err != nil {
		r.metrics.DispatchError("webhook")

		return "", err
	}

	return executionID, nil
}

// HandleManual starts a manually requested run of a flow. Prefers a manual
// subscription; any other active subscription of the flow serves as fallback
// start point. A non-empty userID must match the subscription owner. Errors
// are returned to the caller.
func (r *Registry) HandleManual(ctx context.Context, flowID string, input map[string]any, userID string) (string, error) {
	r.metrics.OccurrenceHandled("manual")

	sub := r.findByFlow(flowID, models.TriggerTypeManual)
	if sub == nil {
		sub = r.findByFlow(flowID, "")
	}

	if sub == nil || (userID != "" && sub.UserID != userID) {
		return "", fmt.Errorf("%w: flow %s", ErrSubscriptionNotFound, flowID)
	}

	trigger := map[string]any{"source": "manual"}

	executionID, err := r.ExecuteTrigger(ctx, sub, input, trigger)
	if err != nil {
		r.metrics.DispatchError("manual")

		return "", err
	}

	return executionID, nil
}

// HandleFlowRoute routes execution into a flow on behalf of another
// component, bypassing filter evaluation. The first active subscription of
// the flow is the entry point.
func (r *Registry) HandleFlowRoute(ctx context.Context, occurrence *models.FlowRouteOccurrence) (string, error) {
	r.metrics.OccurrenceHandled("route")

	sub := r.findByFlow(occurrence.FlowID, "")
	if sub == nil {
		return "", fmt.Errorf("%w: flow %s", ErrSubscriptionNotFound, occurrence.FlowID)
	}

	trigger := map[string]any{"source": "route"}
	for key, value := range occurrence.Context {
		trigger[key] = value
	}

	executionID, err := r.ExecuteTrigger(ctx, sub, occurrence.Input, trigger)
	if err != nil {
		r.metrics.DispatchError("route")

		return "", err
	}

	return executionID, nil
}

// HandleEvent dispatches every event subscription listening on the named
// event, owner-gated like messages when userID is set. Fire-and-forget.
func (r *Registry) HandleEvent(ctx context.Context, name string, payload map[string]any, userID string) int {
	r.metrics.OccurrenceHandled("event")

	dispatched := 0

	for _, sub := range r.candidatesByType(models.TriggerTypeEvent) {
		if !sub.Active || (userID != "" && sub.UserID != userID) {
			continue
		}

		if event, _ := sub.Config["event"].(string); event != name {
			continue
		}

		r.metrics.Matched("event")

		input := map[string]any{"event": payload}
		trigger := map[string]any{"event": name}

		if _, err := r.ExecuteTrigger(ctx, sub, input, trigger); err != nil {
			r.metrics.DispatchError("event")
			r.logger.Error("Event trigger dispatch failed",
				"subscription_id", sub.ID, "event", name, "error", err)

			continue
		}

		dispatched++
	}

	return dispatched
}

// candidatesByType snapshots the subscriptions indexed under a trigger type.
// Sorted by id so dispatch order is deterministic.
func (r *Registry) candidatesByType(triggerType models.TriggerType) []*models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]*models.Subscription, 0, len(r.byType[triggerType]))

	for id := range r.byType[triggerType] {
		if sub, ok := r.subscriptions[id]; ok {
			candidates = append(candidates, sub)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	return candidates
}

func (r *Registry) findWebhook(webhookID string) *models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.byType[models.TriggerTypeWebhook] {
		sub, ok := r.subscriptions[id]
		if !ok || !sub.Active {
			continue
		}

		if configured, _ := sub.Config["webhookId"].(string); configured == webhookID {
			return sub
		}
	}

	return nil
}

// findByFlow returns the first active subscription of a flow, optionally
// restricted to one trigger type. Ids are sorted for determinism.
func (r *Registry) findByFlow(flowID string, triggerType models.TriggerType) *models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.byFlow[flowID]))
	for id := range r.byFlow[flowID] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		sub, ok := r.subscriptions[id]
		if !ok || !sub.Active {
			continue
		}

		if triggerType != "" && sub.TriggerType != triggerType {
			continue
		}

		return sub
	}

	return nil
}
