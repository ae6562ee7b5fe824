package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(baseURL string) *Provider {
	return NewProvider(config.AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-sonnet-4-5-20250929",
		BaseURL: baseURL,
	})
}

func TestComplete_SendsSystemFramesAndText(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"product_name":"Desk Lamp"}`},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer ts.Close()

	resp, err := newTestProvider(ts.URL).Complete(context.Background(), models.VisionRequest{
		System: "You are a sourcing analyst.",
		User:   "Analyze this product.",
		Frames: []models.Frame{
			{Data: []byte{0xff, 0xd8, 0xff}, MediaType: "image/jpeg"},
			{MediaType: "image/jpeg", Source: "placeholder"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"product_name":"Desk Lamp"}`, resp.Text)
	assert.Equal(t, "anthropic", resp.Provider)

	system := body["system"].([]any)
	assert.Equal(t, "You are a sourcing analyst.", system[0].(map[string]any)["text"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	// One image (the placeholder frame has no bytes) plus the text block.
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestComplete_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestProvider(ts.URL).Complete(context.Background(), models.VisionRequest{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrVisionUnavailable)
}

func TestComplete_NoTextContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_empty",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 0},
		})
	}))
	defer ts.Close()

	_, err := newTestProvider(ts.URL).Complete(context.Background(), models.VisionRequest{User: "x"})
	assert.ErrorIs(t, err, models.ErrVisionInvalidResponse)
}

func TestComplete_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider("http://127.0.0.1:1").Complete(ctx, models.VisionRequest{User: "x"})
	assert.ErrorIs(t, err, models.ErrVisionTimeout)
}
