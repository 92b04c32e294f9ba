package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
	"github.com/seenimoa/daybreak/internal/config"
	"github.com/seenimoa/daybreak/internal/llm"
	"github.com/seenimoa/daybreak/internal/mailer"
	"github.com/seenimoa/daybreak/internal/marketdata"
	"github.com/seenimoa/daybreak/internal/report"
)

// FromConfig wires a Generator from configuration. The returned store must
// be closed by the caller.
func FromConfig(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*Generator, marketdata.Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	cal, err := cfg.NewCalendar()
	if err != nil {
		return nil, nil, err
	}

	store, err := marketdata.OpenStore(cfg.StoreConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	if cfg.MarketData.APIKey == "" {
		logger.Warn().Msg("No market data API key configured, only cached prices will be available")
	}
	source := marketdata.NewAlphaVantage(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithHTTPClient(&http.Client{Timeout: cfg.MarketData.Timeout}),
		marketdata.WithClientLogger(logger),
	)
	fetcher := marketdata.NewFetcher(source, store,
		marketdata.WithPacer(marketdata.NewPacer(cfg.MarketData.PacingInterval)),
		marketdata.WithLogger(logger),
	)

	g := &Generator{
		Calendar:  cal,
		Fetcher:   fetcher,
		Indices:   cfg.Indices,
		OutputDir: cfg.Report.OutputDir,
		Title:     cfg.Report.Title,
		Logger:    logger,
		PDF:       report.NewPDFRenderer(report.PDFEngine(cfg.Report.PDFEngine), logger),
	}

	provider, err := llm.New(ctx, LLMConfig(cfg), logger)
	switch {
	case errors.Is(err, llm.ErrDisabled):
	case err != nil:
		logger.Warn().Err(err).Msg("Narrative provider unavailable, report will use placeholder text")
	default:
		g.Completer = provider
	}

	if cfg.Email.Enabled {
		g.Mailer = mailer.New(MailerConfig(cfg), logger)
	}
	return g, store, nil
}

// LLMConfig selects the key for the configured provider.
func LLMConfig(cfg *config.Config) llm.Config {
	c := llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.AnthropicKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}
	if c.Provider == llm.ProviderGemini {
		c.APIKey = cfg.LLM.GeminiKey
	}
	return c
}

// MailerConfig maps the email section.
func MailerConfig(cfg *config.Config) mailer.Config {
	return mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		To:       cfg.Email.To,
	}
}
