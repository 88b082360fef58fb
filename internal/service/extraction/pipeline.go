package extraction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

// Pipeline runs the configured provider and applies the fallback policy:
// when the primary provider returns an extraction error and fallback is
// allowed, the local provider gets one attempt before the error propagates.
// Non-extraction errors (cancellation, programming errors) never trigger a
// fallback.
type Pipeline struct {
	primary       Provider
	primaryName   string
	fallback      *LocalProvider
	allowFallback bool
	observers     []Observer
	logger        *zap.Logger
}

// NewPipeline assembles the extraction pipeline.
func NewPipeline(primary Provider, primaryName string, fallback *LocalProvider, allowFallback bool, logger *zap.Logger, observers ...Observer) *Pipeline {
	return &Pipeline{
		primary:       primary,
		primaryName:   primaryName,
		fallback:      fallback,
		allowFallback: allowFallback,
		observers:     observers,
		logger:        logger,
	}
}

// AllowFallback reports whether the pipeline degrades to local extraction
// on provider failure. Callers use it to decide whether ingestion must run
// synchronously.
func (p *Pipeline) AllowFallback() bool {
	return p.allowFallback
}

// Run extracts entities and relations for an entry, notifying observers of
// the outcome.
func (p *Pipeline) Run(ctx context.Context, entry domain.Entity, metadata map[string]interface{}) (*Result, error) {
	start := time.Now()

	result, err := p.primary.Extract(ctx, entry, metadata)
	if err == nil {
		p.notifySuccess(p.primaryName, result, time.Since(start), false)
		return result, nil
	}

	if !p.allowFallback || !appErrors.IsExtraction(err) {
		p.notifyFailure(p.primaryName, time.Since(start), err)
		return nil, err
	}

	p.logger.Warn("Primary extraction failed; falling back to local provider",
		zap.String("provider", p.primaryName),
		zap.Error(err))

	result, fallbackErr := p.fallback.Extract(ctx, entry, metadata)
	if fallbackErr != nil {
		p.notifyFailure(ProviderLocal, time.Since(start), fallbackErr)
		return nil, fallbackErr
	}
	p.notifySuccess(ProviderLocal, result, time.Since(start), true)
	return result, nil
}

func (p *Pipeline) notifySuccess(provider string, result *Result, duration time.Duration, fellBack bool) {
	for _, observer := range p.observers {
		observer.ExtractionSucceeded(provider, len(result.Entities), len(result.Relations), duration, fellBack)
	}
}

func (p *Pipeline) notifyFailure(provider string, duration time.Duration, err error) {
	for _, observer := range p.observers {
		observer.ExtractionFailed(provider, duration, err)
	}
}
