package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/mocks"
	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/registry"
	"github.com/trigion/trigion/pkg/store/file"
	"github.com/trigion/trigion/pkg/web"
)

type webHarness struct {
	app      *fiber.App
	registry *registry.Registry
	runner   *mocks.MockRunner
}

func newWebHarness(t *testing.T) *webHarness {
	t.Helper()

	flowStore := file.NewStore(t.TempDir())
	runner := &mocks.MockRunner{}
	reg := registry.New(registry.Config{
		Store:  flowStore,
		Runner: runner,
	})

	handlers := web.NewHandlers(flowStore, reg, slog.Default())

	return &webHarness{
		app:      web.NewApp(handlers),
		registry: reg,
		runner:   runner,
	}
}

func (h *webHarness) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	return resp
}

func webhookFlow() map[string]any {
	return map[string]any{
		"id":      "f1",
		"name":    "webhook flow",
		"status":  "active",
		"user_id": "u1",
		"nodes": []map[string]any{
			{
				"id":      "n1",
				"type":    "trigger:webhook",
				"enabled": true,
				"config":  map[string]any{"webhookId": "wh-1"},
			},
		},
		"edges": []map[string]any{},
	}
}

func TestSaveFlow_RegistersTriggers(t *testing.T) {
	h := newWebHarness(t)

	resp := h.request(t, http.MethodPost, "/flows", webhookFlow())

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, h.registry.Count())

	sub, ok := h.registry.Subscription("f1:n1")
	require.True(t, ok)
	assert.Equal(t, models.TriggerTypeWebhook, sub.TriggerType)
}

func TestSaveFlow_RejectsInvalidTriggerConfig(t *testing.T) {
	h := newWebHarness(t)

	flow := webhookFlow()
	flow["nodes"].([]map[string]any)[0]["config"] = map[string]any{}

	resp := h.request(t, http.MethodPost, "/flows", flow)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, h.registry.Count())
}

func TestGetFlow_NotFound(t *testing.T) {
	h := newWebHarness(t)

	resp := h.request(t, http.MethodGet, "/flows/missing", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteFlow_RemovesSubscriptions(t *testing.T) {
	h := newWebHarness(t)

	h.request(t, http.MethodPost, "/flows", webhookFlow())

	resp := h.request(t, http.MethodDelete, "/flows/f1", nil)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, h.registry.Count())
}

func TestWebhook_Dispatches(t *testing.T) {
	h := newWebHarness(t)

	h.request(t, http.MethodPost, "/flows", webhookFlow())
	h.runner.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return("exec-1", nil)

	resp := h.request(t, http.MethodPost, "/webhooks/wh-1", map[string]any{"answer": 42})

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "exec-1", body["execution_id"])
}

func TestWebhook_UnknownID(t *testing.T) {
	h := newWebHarness(t)

	resp := h.request(t, http.MethodPost, "/webhooks/wh-unknown", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunFlow_Manual(t *testing.T) {
	h := newWebHarness(t)

	h.request(t, http.MethodPost, "/flows", webhookFlow())
	h.runner.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return("exec-2", nil)

	resp := h.request(t, http.MethodPost, "/flows/f1/run", map[string]any{"source": "ui"})

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	h := newWebHarness(t)

	resp := h.request(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
