// Package httprequest provides the outbound HTTP request node executor.
package httprequest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/node"
)

// Config is the typed shape of the node's declarative configuration.
type Config struct {
	URL            string            `mapstructure:"url"`
	Method         string            `mapstructure:"method"  default:"GET"`
	Headers        map[string]string `mapstructure:"headers"`
	Body           any               `mapstructure:"body"`
	TimeoutSeconds int               `mapstructure:"timeout" default:"30"`
}

type Node struct {
	node.Base

	logger *slog.Logger
	client *resty.Client
}

func NewNode(logger *slog.Logger) *Node {
	return &Node{
		logger: logger.With("module", "node:httprequest"),
		client: resty.New(),
	}
}

func (n *Node) Type() string {
	return "httprequest"
}

// Execute resolves templates inside the configuration, performs the request,
// and exposes status code, headers, and the (JSON-decoded when possible)
// response body to later nodes.
func (n *Node) Execute(ctx context.Context, flowNode *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult {
	cfg, err := n.parseConfig(flowNode.Config, ec)
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	// The timeout lives on the request context, not on the shared client:
	// concurrent executions carry different timeouts.
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	request := n.client.R().
		SetContext(ctx).
		SetHeaders(cfg.Headers)

	if cfg.Body != nil {
		request.SetBody(cfg.Body)
	}

	n.logger.Debug("Performing HTTP request",
		"node_id", flowNode.ID,
		"method", cfg.Method,
		"url", cfg.URL)

	response, err := request.Execute(cfg.Method, cfg.URL)
	if err != nil {
		// Transport-level failures are usually transient.
		return n.FailureWith(node.ErrorCodeExecution, "http request failed: "+err.Error(), true)
	}

	headers := make(map[string]string, len(response.Header()))
	for name := range response.Header() {
		headers[name] = response.Header().Get(name)
	}

	return n.Success(map[string]any{
		"status_code": response.StatusCode(),
		"headers":     headers,
		"response":    decodeBody(response.Body()),
	})
}

// Validate lints the node configuration before the first execution.
func (n *Node) Validate(flowNode *models.FlowNode) []string {
	var errs []string

	if _, err := n.RequiredString(flowNode.Config, "url"); err != nil {
		errs = append(errs, err.Error())
	}

	switch method := n.OptionalString(flowNode.Config, "method", "GET"); method {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
	default:
		errs = append(errs, "method must be a valid HTTP method, got "+method)
	}

	return errs
}

func (n *Node) parseConfig(raw map[string]any, ec *models.ExecutionContext) (*Config, error) {
	resolved, ok := n.ResolveConfig(raw, ec).(map[string]any)
	if !ok {
		resolved = raw
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	if err := mapstructure.Decode(resolved, cfg); err != nil {
		return nil, err
	}

	if _, err := n.RequiredString(resolved, "url"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeBody re-parses a JSON response body into structured data so templates
// can traverse it; non-JSON bodies stay plain strings.
func decodeBody(body []byte) any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		return decoded
	}

	return string(body)
}
