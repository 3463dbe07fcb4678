package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultTimeout = 12 * time.Second
)

// Guarded bounds an extractor with a timeout and never lets a failure escape:
// errors, timeouts and panics all come back as an empty result wrapped in
// ErrExtractionFailure so callers can log and re-prompt.
type Guarded struct {
	next    model.Extractor
	timeout time.Duration
}

func NewGuarded(next model.Extractor, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Guarded{next: next, timeout: timeout}
}

// ExtractItems implements model.Extractor.
func (g *Guarded) ExtractItems(ctx context.Context, text string) (items []model.LineItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "extractor").Msgf("panic recovered: %v", r)
			items, err = []model.LineItem{}, fmt.Errorf("%w: panic", errx.ErrExtractionFailure)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return []model.LineItem{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	items, err = g.next.ExtractItems(ctx, text)
	if err != nil {
		logx.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("item extraction failed")
		if !errors.Is(err, errx.ErrExtractionFailure) {
			err = fmt.Errorf("%w: %w", errx.ErrExtractionFailure, err)
		}
		return []model.LineItem{}, err
	}
	if items == nil {
		items = []model.LineItem{}
	}
	logx.Debug().Int("items", len(items)).Dur("elapsed", time.Since(start)).Msg("item extraction done")
	return items, nil
}

// New builds the configured extractor wrapped in Guarded.
func New(ctx context.Context, cfg model.ExtractorConfig) (model.Extractor, error) {
	timeout := defaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid extractor timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}

	var (
		inner model.Extractor
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini extractor")
		}
		inner, err = NewGeminiExtractor(ctx, GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Temperature: cfg.Gemini.Temperature,
		})
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai extractor")
		}
		inner, err = NewOpenAIExtractor(OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logx.Info().Str("provider", cfg.Provider).Dur("timeout", timeout).Msg("item extractor ready")
	return NewGuarded(inner, timeout), nil
}
