package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"recall-backend/internal/config"
	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

// maxOllamaContext caps num_ctx regardless of configuration.
const maxOllamaContext = 128000

type ollamaRequest struct {
	Model     string                 `json:"model"`
	Prompt    string                 `json:"prompt"`
	Stream    bool                   `json:"stream"`
	KeepAlive string                 `json:"keep_alive,omitempty"`
	Format    string                 `json:"format,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaProvider extracts entities through a locally hosted Ollama server.
// Timeouts are retried a bounded number of times because a cold model load
// routinely exceeds the first request deadline; all other failures are
// returned immediately as extraction errors.
type OllamaProvider struct {
	baseURL       string
	model         string
	keepAlive     string
	contextTokens int
	maxRetries    int
	client        *http.Client
	logger        *zap.Logger
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider creates an Ollama-backed provider from configuration.
func NewOllamaProvider(cfg *config.Config, logger *zap.Logger) *OllamaProvider {
	return &OllamaProvider{
		baseURL:       cfg.OllamaBaseURL,
		model:         cfg.OllamaModel,
		keepAlive:     cfg.OllamaKeepAlive,
		contextTokens: cfg.ContextWindowTokens,
		maxRetries:    cfg.OllamaMaxRetries,
		client:        &http.Client{Timeout: cfg.OllamaTimeout},
		logger:        logger,
	}
}

// Extract prompts the configured model and parses its JSON response.
func (p *OllamaProvider) Extract(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error) {
	text := sourceText(entry, metadata)
	if text == "" {
		return nil, appErrors.NewExtractionError("ollama", fmt.Errorf("entry has no extractable text"))
	}

	clipped, truncated := clipText(text, p.contextTokens)
	prompt := buildPrompt(entry, clipped, truncated, p.contextTokens)
	numCtx := p.contextTokens
	if numCtx > maxOllamaContext {
		numCtx = maxOllamaContext
	}
	payload := ollamaRequest{
		Model:     p.model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: p.keepAlive,
		Format:    "json",
		Options:   map[string]interface{}{"num_ctx": numCtx},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.NewExtractionError("ollama", err)
	}

	// maxRetries is the total attempt budget, the first request included.
	var raw string
	for attempt := 1; ; attempt++ {
		raw, err = p.generate(ctx, body)
		if err == nil {
			break
		}
		if !isTimeout(err) || attempt >= p.maxRetries {
			return nil, appErrors.NewExtractionError("ollama", err)
		}
		p.logger.Warn("Ollama request timed out; retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.maxRetries),
			zap.String("model", p.model))
	}

	return parseResult(raw, entry, "ollama", p.logger)
}

func (p *OllamaProvider) generate(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return decoded.Response, nil
}

// isTimeout reports whether an HTTP client error was a deadline expiry, as
// opposed to a refused connection or a bad response.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlTimeout interface{ Timeout() bool }
	if errors.As(err, &urlTimeout) {
		return urlTimeout.Timeout()
	}
	return false
}
