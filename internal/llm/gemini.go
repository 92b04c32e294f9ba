package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/seenimoa/daybreak/internal/common"
)

// GeminiProvider implements Provider with the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      arbor.ILogger
	baseURL     string
}

// GeminiOption configures the Gemini provider.
type GeminiOption func(*GeminiProvider)

// WithGeminiBaseURL sets a custom base URL.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = url }
}

// WithGeminiLogger sets the provider logger.
func WithGeminiLogger(logger arbor.ILogger) GeminiOption {
	return func(p *GeminiProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg Config, opts ...GeminiOption) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &GeminiProvider{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      common.NewSilentLogger(),
	}
	if p.model == "" || strings.HasPrefix(p.model, "claude") {
		p.model = DefaultGeminiModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = DefaultConfig().MaxTokens
	}
	for _, opt := range opts {
		opt(p)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Model returns the model used for requests.
func (p *GeminiProvider) Model() string { return p.model }

// Complete sends prompt as a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.temperature)),
		MaxOutputTokens: int32(p.maxTokens),
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	p.logger.Debug().
		Str("model", p.model).
		Dur("latency", time.Since(start)).
		Msg("Gemini completion")
	return text, nil
}
