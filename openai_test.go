package notequiz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func toolCallResponse(arguments string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []any{
			map[string]any{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": "",
					"tool_calls": []any{
						map[string]any{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      submitQuizzesTool,
								"arguments": arguments,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}
}

func TestOpenAICapabilityWithoutKey(t *testing.T) {
	capability := NewOpenAICapability(AIConfig{})
	assert.False(t, capability.Available())

	_, err := capability.Complete(context.Background(), "Water is H2O")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestOpenAICapabilityToolCall(t *testing.T) {
	server := chatCompletionServer(t, http.StatusOK, toolCallResponse(`{"quizzes":`+waterPayload+`}`))
	capability := NewOpenAICapability(AIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.True(t, capability.Available())

	generation, err := NewQuizMaker(capability).Generate(context.Background(), "Water is H2O")
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, generation.Outcome)
	require.Len(t, generation.Quizzes, 1)
	assert.Equal(t, "What is water?", generation.Quizzes[0].Question)
}

func TestOpenAICapabilityPlainContent(t *testing.T) {
	body := map[string]any{
		"id":     "chatcmpl-2",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "no quizzes here"},
				"finish_reason": "stop",
			},
		},
	}
	server := chatCompletionServer(t, http.StatusOK, body)
	capability := NewOpenAICapability(AIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})

	payload, err := capability.Complete(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "no quizzes here", payload)
}

func TestOpenAICapabilityAPIError(t *testing.T) {
	body := map[string]any{
		"error": map[string]any{
			"message": "invalid api key",
			"type":    "invalid_request_error",
			"code":    "invalid_api_key",
		},
	}
	server := chatCompletionServer(t, http.StatusUnauthorized, body)
	capability := NewOpenAICapability(AIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})

	_, err := capability.Complete(context.Background(), "text")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestQuizzesArgument(t *testing.T) {
	assert.Equal(t, `[1,2]`, quizzesArgument(`{"quizzes":[1,2]}`))
	assert.Equal(t, `not json`, quizzesArgument(`not json`))
	assert.Equal(t, `{"other":1}`, quizzesArgument(`{"other":1}`))
}
