package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"recall-backend/internal/config"
	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider extracts entities through the OpenAI chat completions API.
// Calls go through a circuit breaker; when the key is missing, the breaker
// is open, or the call or its response is unusable, the provider degrades to
// its local fallback rather than failing the extraction outright.
type OpenAIProvider struct {
	apiKey        string
	baseURL       string
	model         string
	contextTokens int
	client        *http.Client
	breaker       *gobreaker.CircuitBreaker
	fallback      *LocalProvider
	logger        *zap.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI-backed provider from configuration.
func NewOpenAIProvider(cfg *config.Config, fallback *LocalProvider, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:        cfg.OpenAIAPIKey,
		baseURL:       cfg.OpenAIBaseURL,
		model:         cfg.OpenAIModel,
		contextTokens: cfg.ContextWindowTokens,
		client:        &http.Client{Timeout: cfg.ProviderTimeout},
		breaker:       newProviderBreaker("openai", logger),
		fallback:      fallback,
		logger:        logger,
	}
}

// Extract prompts the configured chat model, degrading to the local
// provider when the remote call cannot succeed.
func (p *OpenAIProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error) {
	if p.apiKey == "" {
		p.logger.Warn("OpenAI API key not configured; using local extraction")
		return p.fallback.Extract(ctx, entry, metadata)
	}

	text := sourceText(entry, metadata)
	if text == "" {
		return nil, appErrors.NewExtractionError("openai", fmt.Errorf("entry has no extractable text"))
	}

	clipped, truncated := clipText(text, p.contextTokens)
	prompt := buildPrompt(entry, clipped, truncated, p.contextTokens)
	raw, err := p.breaker.Execute(func() (interface{}, error) {
		return p.complete(ctx, prompt)
	})
	if err != nil {
		p.logger.Warn("OpenAI call failed; using local extraction", zap.Error(err))
		return p.fallback.Extract(ctx, entry, metadata)
	}

	result, err := parseResult(raw.(string), entry, "openai", p.logger)
	if err != nil {
		p.logger.Warn("OpenAI response unusable; using local extraction", zap.Error(err))
		return p.fallback.Extract(ctx, entry, metadata)
	}
	return result, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	payload := openAIRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(data))
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// newProviderBreaker builds the circuit breaker shared by the cloud
// providers: trip after five consecutive failures, probe again after thirty
// seconds.
func newProviderBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Extraction provider circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
