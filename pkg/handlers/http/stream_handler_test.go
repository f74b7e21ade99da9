package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamClient struct {
	mu      sync.Mutex
	deltas  []string
	err     error
	model   string
	prompts []string
}

func (f *fakeStreamClient) CompletionsStream(
	_ context.Context,
	config *providers.Config,
	prompt string,
	onDelta providers.DeltaFunc,
) error {
	f.mu.Lock()
	f.model = config.Model
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.err
}

func newStreamApp(client providers.StreamClient) *fiber.App {
	app := fiber.New()
	handler := NewStreamHandler(logrus.New(), client, &providers.Config{APIKey: "k", Model: "gpt-4o-mini"})
	app.Post("/stream", handler.Handle)
	return app
}

func postStream(t *testing.T, app *fiber.App, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/stream", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(raw)
}

func TestStreamHandler_RelaysDeltas(t *testing.T) {
	client := &fakeStreamClient{deltas: []string{"Hel", "lo"}}
	app := newStreamApp(client)

	status, contentType, body := postStream(t, app, `{"prompt":"say hello"}`)

	assert.Equal(t, 200, status)
	assert.Contains(t, contentType, "text/event-stream")
	assert.Equal(t,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"+
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"+
			"data: [DONE]\n\n",
		body)
	assert.Equal(t, []string{"say hello"}, client.prompts)
	assert.Equal(t, "gpt-4o-mini", client.model)
}

func TestStreamHandler_UpstreamErrorInBand(t *testing.T) {
	client := &fakeStreamClient{deltas: []string{"partial"}, err: errors.New("upstream reset")}
	app := newStreamApp(client)

	status, _, body := postStream(t, app, `{"prompt":"hi"}`)

	assert.Equal(t, 200, status)
	assert.Contains(t, body, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	assert.Contains(t, body, "data: {\"error\":\"upstream reset\"}\n\n")
	assert.NotContains(t, body, "[DONE]")
}

func TestStreamHandler_PromptRequired(t *testing.T) {
	client := &fakeStreamClient{}
	app := newStreamApp(client)

	for _, payload := range []string{`{}`, `{"prompt":""}`, `{"prompt":"   "}`} {
		status, _, body := postStream(t, app, payload)
		assert.Equal(t, 400, status)

		var out map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "Prompt is required", out["error"])
	}
	assert.Empty(t, client.prompts)
}

func TestStreamHandler_InvalidJSON(t *testing.T) {
	app := newStreamApp(&fakeStreamClient{})

	status, _, body := postStream(t, app, `{"prompt":`)

	assert.Equal(t, 400, status)
	assert.Contains(t, body, ErrInvalidJsonPayload)
}

func TestStreamHandler_OptionsOverrideModel(t *testing.T) {
	client := &fakeStreamClient{deltas: []string{"ok"}}
	app := newStreamApp(client)

	status, _, _ := postStream(t, app, `{"prompt":"hi","options":{"model":"gpt-4.1"}}`)

	assert.Equal(t, 200, status)
	assert.Equal(t, "gpt-4.1", client.model)
}

func TestStreamHandler_InvalidOptions(t *testing.T) {
	app := newStreamApp(&fakeStreamClient{})

	status, _, _ := postStream(t, app, `{"prompt":"hi","options":{"max_tokens":{"n":1}}}`)

	assert.Equal(t, 400, status)
}
