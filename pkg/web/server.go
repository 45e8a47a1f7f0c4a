package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp assembles the fiber application with all routes mounted.
func NewApp(handlers *Handlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Trigion")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.SaveFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Post("/:id/run", handlers.RunFlow)

	app.Post("/webhooks/:webhookId", handlers.Webhook)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// Start blocks serving the application on the given port.
func Start(handlers *Handlers, port int) error {
	return NewApp(handlers).Listen(":" + strconv.Itoa(port))
}
