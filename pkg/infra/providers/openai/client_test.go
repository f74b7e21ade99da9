package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func fakeUpstream(t *testing.T, gotBody *map[string]interface{}, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if gotBody != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, gotBody)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", chunk(d))
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestCompletionsStream_RelaysDeltas(t *testing.T) {
	var body map[string]interface{}
	srv := fakeUpstream(t, &body, "Hel", "", "lo")
	defer srv.Close()

	client := openai.NewOpenaiClient()
	var got []string
	err := client.CompletionsStream(context.Background(), &providers.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, "say hello", func(content string) error {
		got = append(got, content)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
	assert.Equal(t, openai.DefaultModel, body["model"])
	assert.Equal(t, true, body["stream"])
}

func TestCompletionsStream_StopsWhenCallbackFails(t *testing.T) {
	srv := fakeUpstream(t, nil, "a", "b", "c")
	defer srv.Close()

	stop := errors.New("client gone")
	calls := 0
	err := openai.NewOpenaiClient().CompletionsStream(context.Background(), &providers.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, "hi", func(string) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestCompletionsStream_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	err := openai.NewOpenaiClient().CompletionsStream(context.Background(), &providers.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, "hi", func(string) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openAI stream failed")
}

func TestCompletionsStream_Validation(t *testing.T) {
	client := openai.NewOpenaiClient()
	noop := func(string) error { return nil }

	err := client.CompletionsStream(context.Background(), &providers.Config{APIKey: "k"}, "", noop)
	assert.ErrorIs(t, err, providers.ErrPromptRequired)

	err = client.CompletionsStream(context.Background(), &providers.Config{}, "hi", noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}
