package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/marketdata"
)

// clearEnv blanks every variable that could leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		EnvAlphaVantageKey, EnvAnthropicKey, EnvGeminiKey, EnvSMTPPassword,
		"DAYBREAK_MARKET_DATA_API_KEY", "DAYBREAK_LLM_ANTHROPIC_KEY", "DAYBREAK_LLM_GEMINI_KEY",
		"DAYBREAK_EMAIL_PASSWORD", "DAYBREAK_CACHE_BACKEND", "DAYBREAK_LLM_PROVIDER",
	} {
		t.Setenv(e, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, marketdata.DefaultBaseURL, cfg.MarketData.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.MarketData.Timeout)
	assert.Equal(t, 15*time.Second, cfg.MarketData.PacingInterval)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.Equal(t, "America/New_York", cfg.Calendar.Timezone)
	assert.Equal(t, "16:00", cfg.Calendar.MarketClose)
	assert.Equal(t, calendar.DefaultMaxLookback, cfg.Calendar.MaxLookback)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 800, cfg.LLM.MaxTokens)
	assert.Equal(t, "output", cfg.Report.OutputDir)
	assert.Equal(t, "auto", cfg.Report.PDFEngine)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "0 0 7 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultIndices(), cfg.Indices)

	assert.NoError(t, cfg.Validate())
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
market_data:
  api_key: file-key-123456
  pacing_interval: 12s
cache:
  backend: sqlite
  sqlite_path: /tmp/daybreak-test.db
calendar:
  market_close: "13:00"
  holidays: ["2025-07-03"]
indices:
  - symbol: spy
    name: S&P 500
    group: US
  - symbol: EWJ
    name: Japan
    group: Asia
llm:
  provider: gemini
  model: gemini-2.5-flash
email:
  enabled: true
  smtp_host: smtp.example.com
  from: reports@example.com
  to: [desk@example.com]
logging:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key-123456", cfg.MarketData.APIKey)
	assert.Equal(t, 12*time.Second, cfg.MarketData.PacingInterval)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, marketdata.StoreConfig{
		Backend:    "sqlite",
		Dir:        "cache",
		BadgerDir:  filepath.Join("cache", "badger"),
		SQLitePath: "/tmp/daybreak-test.db",
	}, cfg.StoreConfig())
	require.Len(t, cfg.Indices, 2)
	assert.Equal(t, marketdata.GroupAsia, cfg.Indices[1].Group)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, []string{"desk@example.com"}, cfg.Email.To)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// ── Environment ──

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAlphaVantageKey, "legacy-av-key-0001")
	t.Setenv(EnvAnthropicKey, "sk-ant-legacy-0001")
	t.Setenv("DAYBREAK_CACHE_BACKEND", "badger")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-av-key-0001", cfg.MarketData.APIKey)
	assert.Equal(t, "sk-ant-legacy-0001", cfg.LLM.AnthropicKey)
	assert.Equal(t, "badger", cfg.Cache.Backend)
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAlphaVantageKey, "legacy-av-key-0001")
	t.Setenv("DAYBREAK_MARKET_DATA_API_KEY", "prefixed-av-key-02")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-av-key-02", cfg.MarketData.APIKey)
}

// ── Validate ──

func TestValidateRejects(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"unknown pdf engine", func(c *Config) { c.Report.PDFEngine = "latex" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"no indices", func(c *Config) { c.Indices = nil }},
		{"bad group", func(c *Config) { c.Indices[0].Group = "Mars" }},
		{"bad symbol", func(c *Config) { c.Indices[0].Symbol = "S P Y" }},
		{"duplicate symbol", func(c *Config) { c.Indices[1].Symbol = "spy" }},
		{"bad timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }},
		{"bad close", func(c *Config) { c.Calendar.MarketClose = "4pm" }},
		{"bad holiday", func(c *Config) { c.Calendar.Holidays = []string{"July 4"} }},
		{"lookback zero", func(c *Config) { c.Calendar.MaxLookback = 0 }},
		{"email without host", func(c *Config) {
			c.Email.Enabled = true
			c.Email.From = "a@example.com"
			c.Email.To = []string{"b@example.com"}
		}},
		{"bad recipient", func(c *Config) { c.Email.To = []string{"not-an-email"} }},
		{"bad schedule timezone", func(c *Config) { c.Schedule.Timezone = "Nowhere" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// ── Calendar ──

func TestNewCalendar(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Calendar.MarketClose = "13:00"
	cfg.Calendar.Holidays = []string{"2025-07-03"}

	cal, err := cfg.NewCalendar()
	require.NoError(t, err)

	// 2025-07-03 is now a holiday and July 4 is no longer in the table.
	assert.False(t, cal.IsTradingDay(calendar.MustParse("2025-07-03")))
	assert.True(t, cal.IsTradingDay(calendar.MustParse("2025-07-04")))

	ref := time.Date(2025, 7, 2, 13, 30, 0, 0, cal.Location())
	day, err := cal.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, calendar.MustParse("2025-07-02"), day)
}

// ── Display ──

func TestYAMLMasksSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	cfg.MarketData.APIKey = "AVKEY1234567890"
	cfg.LLM.AnthropicKey = "sk-ant-abcdefghijkl"

	out, err := cfg.YAML()
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "AVKEY1234567890")
	assert.NotContains(t, s, "sk-ant-abcdefghijkl")
	assert.Contains(t, s, "AVK...890")
	assert.Contains(t, s, "symbol: SPY")

	// the original is untouched
	assert.Equal(t, "AVKEY1234567890", cfg.MarketData.APIKey)
}

func TestCheckAPIKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAlphaVantageKey, "legacy-av-key-0001")

	cfg, err := Load()
	require.NoError(t, err)
	cfg.LLM.AnthropicKey = "sk-ant-from-config"

	keys := CheckAPIKeys(cfg)
	require.Len(t, keys, 3)

	assert.Equal(t, "Alpha Vantage API Key", keys[0].Name)
	assert.True(t, keys[0].IsSet)
	assert.Equal(t, KeySourceEnv, keys[0].Source)
	assert.Equal(t, "leg...001", keys[0].Masked)

	assert.Equal(t, KeySourceConfig, keys[1].Source)
	assert.True(t, keys[1].Required)

	assert.False(t, keys[2].IsSet)
	assert.Equal(t, KeySourceNone, keys[2].Source)
	assert.False(t, keys[2].Required)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("short"))
	assert.Equal(t, "abc...xyz", maskKey("abcdefghixyz"))
}
