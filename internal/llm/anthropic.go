package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
)

// AnthropicProvider implements Provider with the Anthropic Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      arbor.ILogger

	baseURL    string
	httpClient *http.Client
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicBaseURL sets a custom base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) { p.httpClient = client }
}

// WithAnthropicLogger sets the provider logger.
func WithAnthropicLogger(logger arbor.ILogger) AnthropicOption {
	return func(p *AnthropicProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg Config, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	def := DefaultConfig()
	p := &AnthropicProvider{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      common.NewSilentLogger(),
	}
	if p.model == "" {
		p.model = DefaultAnthropicModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = def.MaxTokens
	}
	for _, opt := range opts {
		opt(p)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.httpClient))
	}
	p.client = anthropic.NewClient(reqOpts...)
	return p, nil
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Model returns the model used for requests.
func (p *AnthropicProvider) Model() string { return p.model }

// Complete sends prompt as a single user message.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	p.logger.Debug().
		Str("model", p.model).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Dur("latency", time.Since(start)).
		Msg("Anthropic completion")
	return text.String(), nil
}
