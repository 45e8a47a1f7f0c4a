// Package main provides the trigion command-line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/trigion/trigion/pkg/log"
)

func main() {
	root := &cli.Command{
		Name:                  "trigion",
		Usage:                 "Trigger dispatch for node-based flow automations",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serverCommand(),
			validateCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Setup("error")
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
