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

const anthropicVersion = "2023-06-01"

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicProvider extracts entities through the Anthropic messages API.
// It shares the cloud-provider degradation contract with OpenAIProvider: a
// missing key, a tripped breaker, a failed call, or an unusable response
// falls back to local extraction instead of failing.
type AnthropicProvider struct {
	apiKey        string
	baseURL       string
	model         string
	contextTokens int
	client        *http.Client
	breaker       *gobreaker.CircuitBreaker
	fallback      *LocalProvider
	logger        *zap.Logger
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates an Anthropic-backed provider from configuration.
func NewAnthropicProvider(cfg *config.Config, fallback *LocalProvider, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:        cfg.AnthropicAPIKey,
		baseURL:       cfg.AnthropicBaseURL,
		model:         cfg.AnthropicModel,
		contextTokens: cfg.ContextWindowTokens,
		client:        &http.Client{Timeout: cfg.ProviderTimeout},
		breaker:       newProviderBreaker("anthropic", logger),
		fallback:      fallback,
		logger:        logger,
	}
}

// Extract prompts the configured model, degrading to the local provider
// when the remote call cannot succeed.
func (p *AnthropicProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error) {
	if p.apiKey == "" {
		p.logger.Warn("Anthropic API key not configured; using local extraction")
		return p.fallback.Extract(ctx, entry, metadata)
	}

	text := sourceText(entry, metadata)
	if text == "" {
		return nil, appErrors.NewExtractionError("anthropic", fmt.Errorf("entry has no extractable text"))
	}

	clipped, truncated := clipText(text, p.contextTokens)
	prompt := buildPrompt(entry, clipped, truncated, p.contextTokens)
	raw, err := p.breaker.Execute(func() (interface{}, error) {
		return p.complete(ctx, prompt)
	})
	if err != nil {
		p.logger.Warn("Anthropic call failed; using local extraction", zap.Error(err))
		return p.fallback.Extract(ctx, entry, metadata)
	}

	result, err := parseResult(raw.(string), entry, "anthropic", p.logger)
	if err != nil {
		p.logger.Warn("Anthropic response unusable; using local extraction", zap.Error(err))
		return p.fallback.Extract(ctx, entry, metadata)
	}
	return result, nil
}

func (p *AnthropicProvider) complete(ctx context.Context, prompt string) (string, error) {
	payload := anthropicRequest{
		Model:     p.model,
		MaxTokens: 4096,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(data))
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	for _, block := range decoded.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic response contained no text block")
}
