// Package web provides the HTTP entry points: flow management, webhook and
// manual trigger dispatch, health and metrics.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/registry"
	"github.com/trigion/trigion/pkg/store"
)

type Handlers struct {
	store     store.Store
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandlers(flowStore store.Store, reg *registry.Registry, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:     flowStore,
		registry:  reg,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("module", "web"),
	}
}

func (h *Handlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.store.Flows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"flows": flows, "count": len(flows)})
}

func (h *Handlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.store.FlowByID(c.Context(), c.Params("id"))
	if err != nil {
		if store.IsFlowNotFound(err) {
			return notFound(c, "flow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(flow)
}

// SaveFlow upserts a flow definition. Active flows get their trigger nodes
// (re-)registered; inactive ones get their subscriptions removed.
func (h *Handlers) SaveFlow(c fiber.Ctx) error {
	var flow models.Flow
	if err := c.Bind().JSON(&flow); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(flow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.SaveFlow(c.Context(), &flow); err != nil {
		return internalError(c, err)
	}

	if err := h.registry.UnregisterFlow(c.Context(), flow.ID); err != nil {
		return internalError(c, err)
	}

	if flow.IsActive() {
		for _, node := range flow.TriggerNodes() {
			triggerType, err := node.TriggerTypeOf()
			if err != nil {
				return badRequest(c, err.Error())
			}

			_, err = h.registry.Register(c.Context(), registry.RegisterInput{
				FlowID:      flow.ID,
				UserID:      flow.UserID,
				NodeID:      node.ID,
				TriggerType: triggerType,
				Config:      node.Config,
			})
			if err != nil {
				return badRequest(c, err.Error())
			}
		}
	}

	return c.Status(fiber.StatusCreated).JSON(&flow)
}

func (h *Handlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.registry.UnregisterFlow(c.Context(), id); err != nil {
		return internalError(c, err)
	}

	if err := h.store.DeleteFlow(c.Context(), id); err != nil {
		if store.IsFlowNotFound(err) {
			return notFound(c, "flow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Webhook dispatches a webhook occurrence. Request/response path: dispatch
// errors map to HTTP statuses instead of being swallowed.
func (h *Handlers) Webhook(c fiber.Ctx) error {
	var payload map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&payload); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	headers := map[string]string{
		"Content-Type": c.Get("Content-Type"),
		"User-Agent":   c.Get("User-Agent"),
	}

	executionID, err := h.registry.HandleWebhook(c.Context(), c.Params("webhookId"), payload, headers)
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"execution_id": executionID})
}

// RunFlow starts a manual run of a flow.
func (h *Handlers) RunFlow(c fiber.Ctx) error {
	var input map[string]any
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&input); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	executionID, err := h.registry.HandleManual(c.Context(), c.Params("id"), input, c.Query("user_id"))
	if err != nil {
		return handleDispatchError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"execution_id": executionID})
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	storeErr := h.store.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if storeErr != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":        status,
		"subscriptions": h.registry.Count(),
		"timestamp":     time.Now().UTC(),
	})
}
