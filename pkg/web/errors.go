package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/trigion/trigion/pkg/registry"
	"github.com/trigion/trigion/pkg/store"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleDispatchError maps registry and store errors onto problem responses.
func handleDispatchError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, registry.ErrSubscriptionNotFound):
		return notFound(c, "no subscription for this target")
	case errors.Is(err, registry.ErrFlowNotActive):
		return conflict(c, "flow is not active")
	case store.IsFlowNotFound(err):
		return notFound(c, "flow not found")
	default:
		return internalError(c, err)
	}
}
