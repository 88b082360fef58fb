package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/internal/config"
	appErrors "recall-backend/pkg/errors"
)

func ollamaConfig(baseURL string, timeout time.Duration, retries int) *config.Config {
	return &config.Config{
		OllamaBaseURL:       baseURL,
		OllamaModel:         "llama3",
		OllamaTimeout:       timeout,
		OllamaMaxRetries:    retries,
		ContextWindowTokens: 8192,
	}
}

func ollamaReply(t *testing.T, w http.ResponseWriter, response string) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(ollamaResponse{Response: response, Done: true}))
}

func TestOllamaProviderParsesFencedResponse(t *testing.T) {
	var gotRequest ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		ollamaReply(t, w, "```json\n{\"entities\": [{\"name\": \"Brian\", \"system_labels\": [\"PERSON\"]}], \"relations\": []}\n```")
	}))
	defer server.Close()

	entry := testEntry(t, "Brian went home.")
	provider := NewOllamaProvider(ollamaConfig(server.URL, 5*time.Second, 1), zap.NewNop())
	result, err := provider.Extract(context.Background(), entry, nil)

	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Brian", result.Entities[0].Name)

	assert.Equal(t, "llama3", gotRequest.Model)
	assert.False(t, gotRequest.Stream)
	assert.EqualValues(t, 8192, gotRequest.Options["num_ctx"])

	// The rendered prompt must carry the entry's id so the model can anchor
	// relations to it.
	assert.Contains(t, gotRequest.Prompt, "ENTRY_ID: "+entry.ID)
	assert.Contains(t, gotRequest.Prompt, `set "source" to "`+entry.ID+`"`)
	assert.Contains(t, gotRequest.Prompt, "Brian went home.")
}

func TestOllamaProviderCapsContextWindow(t *testing.T) {
	var gotRequest ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		ollamaReply(t, w, `{"entities": [{"name": "Brian"}], "relations": []}`)
	}))
	defer server.Close()

	cfg := ollamaConfig(server.URL, 5*time.Second, 1)
	cfg.ContextWindowTokens = 1_000_000
	provider := NewOllamaProvider(cfg, zap.NewNop())

	_, err := provider.Extract(context.Background(), testEntry(t, "Brian went home."), nil)
	require.NoError(t, err)
	assert.EqualValues(t, maxOllamaContext, gotRequest.Options["num_ctx"])
}

func TestOllamaProviderRetriesTimeouts(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		ollamaReply(t, w, `{"entities": [{"name": "Brian"}], "relations": []}`)
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL, 50*time.Millisecond, 3), zap.NewNop())
	result, err := provider.Extract(context.Background(), testEntry(t, "Brian went home."), nil)

	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestOllamaProviderDoesNotRetryServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOllamaProvider(ollamaConfig(server.URL, 5*time.Second, 3), zap.NewNop())
	_, err := provider.Extract(context.Background(), testEntry(t, "Brian went home."), nil)

	require.Error(t, err)
	assert.True(t, appErrors.IsExtraction(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestOllamaProviderStopsAtAttemptBudget(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	// OLLAMA_MAX_RETRIES is the total attempt budget: two means the first
	// request plus one retry, never a third request.
	provider := NewOllamaProvider(ollamaConfig(server.URL, 50*time.Millisecond, 2), zap.NewNop())
	_, err := provider.Extract(context.Background(), testEntry(t, "Brian went home."), nil)

	require.Error(t, err)
	assert.True(t, appErrors.IsExtraction(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestOpenAIProviderFallsBackWithoutKey(t *testing.T) {
	cfg := registryConfig(ProviderOpenAI)
	provider := NewOpenAIProvider(cfg, localFallback(), zap.NewNop())

	result, err := provider.Extract(context.Background(), testEntry(t, "Brian visited Poughkeepsie."), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Entities)
}

func TestAnthropicProviderFallsBackOnTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := registryConfig(ProviderAnthropic)
	cfg.AnthropicAPIKey = "test-key"
	cfg.AnthropicBaseURL = server.URL
	cfg.AnthropicModel = "claude-sonnet"
	cfg.ProviderTimeout = time.Second
	cfg.PersonHints = []string{"Brian"}
	provider := NewAnthropicProvider(cfg, localFallback(), zap.NewNop())

	result, err := provider.Extract(context.Background(), testEntry(t, "Brian visited Poughkeepsie."), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Entities)
}

func TestOpenAIProviderUsesRemoteResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := openAIResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message openAIMessage `json:"message"`
		}{Message: openAIMessage{Role: "assistant", Content: `{"entities": [{"name": "Remote", "system_labels": ["CONCEPT"]}], "relations": []}`}})
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := registryConfig(ProviderOpenAI)
	cfg.OpenAIAPIKey = "test-key"
	cfg.OpenAIBaseURL = server.URL
	cfg.OpenAIModel = "gpt-4o-mini"
	cfg.ProviderTimeout = time.Second
	provider := NewOpenAIProvider(cfg, localFallback(), zap.NewNop())

	result, err := provider.Extract(context.Background(), testEntry(t, "Brian went home."), nil)
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Remote", result.Entities[0].Name)
}
