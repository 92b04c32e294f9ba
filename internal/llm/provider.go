// Package llm wraps the text generation APIs used for the report narrative
// behind one small interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
)

// Provider names for configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-haiku-4-5"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// Common errors returned by providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrDisabled      = errors.New("llm: narrative generation disabled")
)

// Provider turns a prompt into text.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// Complete sends a single user prompt and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds settings shared by all providers.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns the settings used by the report.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderAnthropic,
		Model:       DefaultAnthropicModel,
		MaxTokens:   800,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}

// New creates the configured provider. It returns ErrDisabled for "none".
func New(ctx context.Context, cfg Config, logger arbor.ILogger) (Provider, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicProvider(cfg, WithAnthropicLogger(logger))
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg, WithGeminiLogger(logger))
	case ProviderNone:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
