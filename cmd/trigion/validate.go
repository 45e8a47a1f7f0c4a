package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/trigion/trigion/pkg/log"
	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/registry"
	"github.com/trigion/trigion/pkg/resolver"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate flow definition files",
		ArgsUsage: "<flow.json> [flow.json...]",
		Action:    runValidate,
	}
}

func runValidate(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("validate")

	files := command.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("no flow files given")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	failed := 0

	for _, path := range files {
		problems := validateFlowFile(validate, path)
		if len(problems) == 0 {
			logger.InfoContext(ctx, "Flow is valid", "file", path)

			continue
		}

		failed++

		for _, problem := range problems {
			logger.ErrorContext(ctx, "Flow validation failed", "file", path, "problem", problem)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d flow files failed validation", failed, len(files))
	}

	return nil
}

func validateFlowFile(validate *validator.Validate, path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{err.Error()}
	}

	var flow models.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return []string{"invalid JSON: " + err.Error()}
	}

	if err := validate.Struct(flow); err != nil {
		return []string{err.Error()}
	}

	problems := make([]string, 0)

	for _, node := range flow.Nodes {
		if node.IsTriggerNode() {
			triggerType, err := node.TriggerTypeOf()
			if err != nil {
				problems = append(problems, fmt.Sprintf("node %s: %v", node.ID, err))

				continue
			}

			if err := registry.ValidateTriggerConfig(triggerType, node.Config); err != nil {
				problems = append(problems, fmt.Sprintf("node %s: %v", node.ID, err))
			}
		}

		for key, issue := range templateProblems(node.Config) {
			problems = append(problems, fmt.Sprintf("node %s, config %s: %s", node.ID, key, issue))
		}
	}

	for source, target := range danglingEdges(&flow) {
		problems = append(problems, fmt.Sprintf("edge %s -> %s references an unknown node", source, target))
	}

	return problems
}

// templateProblems lints every templated string in a config tree. Keys of the
// result are dotted config paths.
func templateProblems(config map[string]any) map[string]string {
	problems := make(map[string]string)
	lintValue("", config, problems)

	return problems
}

func lintValue(path string, value any, problems map[string]string) {
	switch v := value.(type) {
	case string:
		if !resolver.HasTemplates(v) {
			return
		}

		for _, issue := range resolver.ValidateTemplate(v) {
			problems[path] = issue
		}
	case map[string]any:
		for key, item := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}

			lintValue(childPath, item, problems)
		}
	case []any:
		for i, item := range v {
			lintValue(fmt.Sprintf("%s[%d]", path, i), item, problems)
		}
	}
}

func danglingEdges(flow *models.Flow) map[string]string {
	dangling := make(map[string]string)

	for _, edge := range flow.Edges {
		if flow.NodeByID(edge.Source) == nil || flow.NodeByID(edge.Target) == nil {
			dangling[edge.Source] = edge.Target
		}
	}

	return dangling
}
