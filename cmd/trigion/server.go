package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"

	"github.com/trigion/trigion/pkg/cmd"
	"github.com/trigion/trigion/pkg/log"
	"github.com/trigion/trigion/pkg/metrics"
	"github.com/trigion/trigion/pkg/otelhelper"
	"github.com/trigion/trigion/pkg/registry"
	"github.com/trigion/trigion/pkg/runner"
	"github.com/trigion/trigion/pkg/scheduler"
	"github.com/trigion/trigion/pkg/web"
)

const defaultPort = 9091

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"run"},
		Usage:   "Run the trigger dispatch server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to serve the HTTP API on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Flow store URL (file path, redis:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: runServer,
	}
}

func runServer(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("server")

	logger.InfoContext(ctx, "Initializing Trigion server")

	flowStore, err := cmd.NewStore(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := flowStore.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close flow store", "error", err)
		}
	}()

	bus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	cfg := registry.Config{
		Store:     flowStore,
		Runner:    runner.NewBusRunner(bus, logger),
		Scheduler: scheduler.NewCron(logger),
		Bus:       bus,
		Metrics:   metrics.New(prometheus.DefaultRegisterer),
		Logger:    logger,
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "trigion")
		if err != nil {
			return err
		}

		cfg.Tracer = tracer
	}

	reg := registry.New(cfg)

	if err := reg.Restore(ctx); err != nil {
		return err
	}

	handlers := web.NewHandlers(flowStore, reg, logger)

	return web.Start(handlers, command.Int("port"))
}
