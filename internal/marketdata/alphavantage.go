package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

const (
	// DefaultBaseURL is the Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	// DefaultTimeout is the HTTP timeout for one provider call.
	DefaultTimeout = 15 * time.Second

	// maxResponseBytes caps a compact daily series payload.
	maxResponseBytes = 4 << 20
)

// SeriesSource is the provider capability the Fetcher depends on.
type SeriesSource interface {
	// Name returns the human-readable name of the provider.
	Name() string

	// QueryDailySeries returns the raw daily time series payload for symbol.
	QueryDailySeries(ctx context.Context, symbol string) ([]byte, error)
}

// readyChecker is implemented by sources that can tell up front whether a
// query could succeed at all.
type readyChecker interface {
	Ready() error
}

// AlphaVantage implements SeriesSource using TIME_SERIES_DAILY.
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
}

// AlphaVantageOption configures the client.
type AlphaVantageOption func(*AlphaVantage)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) AlphaVantageOption {
	return func(a *AlphaVantage) {
		if baseURL != "" {
			a.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) AlphaVantageOption {
	return func(a *AlphaVantage) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger arbor.ILogger) AlphaVantageOption {
	return func(a *AlphaVantage) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAlphaVantage creates an Alpha Vantage client.
func NewAlphaVantage(apiKey string, opts ...AlphaVantageOption) *AlphaVantage {
	a := &AlphaVantage{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the data source name.
func (a *AlphaVantage) Name() string { return "Alpha Vantage" }

// Ready reports ErrNoAPIKey when no key is configured.
func (a *AlphaVantage) Ready() error {
	if a.apiKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// QueryDailySeries issues one TIME_SERIES_DAILY request.
func (a *AlphaVantage) QueryDailySeries(ctx context.Context, symbol string) ([]byte, error) {
	if err := a.Ready(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", a.apiKey)

	a.logger.Debug().
		Str("symbol", symbol).
		Str("url", a.baseURL).
		Msg("Alpha Vantage request")

	body, err := a.doGet(ctx, a.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("alphavantage daily %s: %w", symbol, err)
	}
	return body, nil
}

// doGet performs a GET request and returns the bounded response body.
func (a *AlphaVantage) doGet(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; keep it out of the error.
		if uerr, ok := err.(*url.Error); ok {
			return nil, fmt.Errorf("HTTP GET: %w", uerr.Err)
		}
		return nil, fmt.Errorf("HTTP GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// --- Alpha Vantage payload ---

type avDailyResponse struct {
	Information  string           `json:"Information"`
	Note         string           `json:"Note"`
	ErrorMessage string           `json:"Error Message"`
	TimeSeries   map[string]avBar `json:"Time Series (Daily)"`
}

type avBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Bar is one daily close.
type Bar struct {
	Day   calendar.TradingDay
	Close decimal.Decimal
}

// DailySeries holds closes ordered newest first.
type DailySeries []Bar

// ParseDailySeries decodes a TIME_SERIES_DAILY payload. Provider notices about
// quota map to ErrRateLimited; explicit error messages map to ErrProvider.
func ParseDailySeries(raw []byte) (DailySeries, error) {
	var resp avDailyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case resp.Information != "":
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, resp.Information)
	case resp.Note != "":
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, resp.Note)
	case resp.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s", ErrProvider, resp.ErrorMessage)
	}

	series := make(DailySeries, 0, len(resp.TimeSeries))
	for date, bar := range resp.TimeSeries {
		day, err := calendar.ParseTradingDay(date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		closePrice, err := decimal.NewFromString(strings.TrimSpace(bar.Close))
		if err != nil {
			return nil, fmt.Errorf("%w: close on %s: %v", ErrMalformedResponse, date, err)
		}
		series = append(series, Bar{Day: day, Close: closePrice})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Day.After(series[j].Day)
	})
	return series, nil
}

// latestOnOrBefore returns the index of the newest bar not after day, or -1.
func (s DailySeries) latestOnOrBefore(day calendar.TradingDay) int {
	for i, bar := range s {
		if !bar.Day.After(day) {
			return i
		}
	}
	return -1
}
