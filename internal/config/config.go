// Package config handles configuration loading for Daybreak.
// It supports YAML config files, .env files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/marketdata"
)

// EnvPrefix is the prefix of all DAYBREAK_<SECTION>_<KEY> variables.
const EnvPrefix = "DAYBREAK"

// Config represents the complete application configuration.
type Config struct {
	MarketData MarketDataConfig         `mapstructure:"market_data" yaml:"market_data"`
	Cache      CacheConfig              `mapstructure:"cache"       yaml:"cache"`
	Calendar   CalendarConfig           `mapstructure:"calendar"    yaml:"calendar"`
	Indices    []marketdata.IndexSymbol `mapstructure:"indices"     yaml:"indices"     validate:"required,min=1,dive"`
	LLM        LLMConfig                `mapstructure:"llm"         yaml:"llm"`
	Report     ReportConfig             `mapstructure:"report"      yaml:"report"`
	Email      EmailConfig              `mapstructure:"email"       yaml:"email"`
	Schedule   ScheduleConfig           `mapstructure:"schedule"    yaml:"schedule"`
	Logging    LoggingConfig            `mapstructure:"logging"     yaml:"logging"`
}

// MarketDataConfig holds the price provider settings.
type MarketDataConfig struct {
	APIKey         string        `mapstructure:"api_key"         yaml:"api_key"`
	BaseURL        string        `mapstructure:"base_url"        yaml:"base_url"        validate:"required,url"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"         validate:"gt=0"`
	PacingInterval time.Duration `mapstructure:"pacing_interval" yaml:"pacing_interval" validate:"gte=0"`
}

// CacheConfig selects the price cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"     yaml:"backend"     validate:"oneof=file badger sqlite memory"`
	Dir        string `mapstructure:"dir"         yaml:"dir"`
	BadgerDir  string `mapstructure:"badger_dir"  yaml:"badger_dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// CalendarConfig describes the exchange calendar.
type CalendarConfig struct {
	Timezone    string   `mapstructure:"timezone"     yaml:"timezone"     validate:"required"`
	MarketClose string   `mapstructure:"market_close" yaml:"market_close" validate:"required"` // "HH:MM"
	MaxLookback int      `mapstructure:"max_lookback" yaml:"max_lookback" validate:"gte=1,lte=60"`
	Holidays    []string `mapstructure:"holidays"     yaml:"holidays"` // replaces the built-in table when set
}

// LLMConfig holds narrative provider configuration.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"      yaml:"provider"      validate:"oneof=anthropic gemini none"`
	AnthropicKey string        `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	GeminiKey    string        `mapstructure:"gemini_key"    yaml:"gemini_key"`
	Model        string        `mapstructure:"model"         yaml:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"    yaml:"max_tokens"    validate:"gt=0"`
	Temperature  float64       `mapstructure:"temperature"   yaml:"temperature"   validate:"gte=0,lte=2"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gt=0"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	Title     string `mapstructure:"title"      yaml:"title"      validate:"required"`
	PDFEngine string `mapstructure:"pdf_engine" yaml:"pdf_engine" validate:"oneof=auto native chromium none"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"   yaml:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port" yaml:"smtp_port" validate:"gte=0,lte=65535"`
	Username string   `mapstructure:"username"  yaml:"username"`
	Password string   `mapstructure:"password"  yaml:"password"`
	From     string   `mapstructure:"from"      yaml:"from"      validate:"omitempty,email"`
	To       []string `mapstructure:"to"        yaml:"to"        validate:"dive,email"`
}

// ScheduleConfig holds the cron trigger for the schedule command.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"     yaml:"cron"     validate:"required"`
	Timezone string `mapstructure:"timezone" yaml:"timezone" validate:"required"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string   `mapstructure:"level"   yaml:"level"   validate:"oneof=trace debug info warn error"`
	Outputs []string `mapstructure:"outputs" yaml:"outputs"` // "console", "file"
	File    string   `mapstructure:"file"    yaml:"file"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.daybreak/config.yaml (home directory)
//  3. /etc/daybreak/config.yaml (system)
//
// A .env file in the working directory is loaded first. Environment variables
// override config file values, e.g. DAYBREAK_MARKET_DATA_API_KEY.
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".daybreak"))
	v.AddConfigPath("/etc/daybreak")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func loadDotEnv() {
	// Missing .env is normal outside development.
	_ = godotenv.Load()
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if len(cfg.Indices) == 0 {
		cfg.Indices = DefaultIndices()
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Market data defaults
	v.SetDefault("market_data.api_key", "")
	v.SetDefault("market_data.base_url", marketdata.DefaultBaseURL)
	v.SetDefault("market_data.timeout", marketdata.DefaultTimeout)
	v.SetDefault("market_data.pacing_interval", marketdata.DefaultPacingInterval)

	// Cache defaults
	v.SetDefault("cache.backend", marketdata.BackendFile)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.badger_dir", filepath.Join("cache", "badger"))
	v.SetDefault("cache.sqlite_path", filepath.Join("cache", "daybreak.db"))

	// Calendar defaults
	v.SetDefault("calendar.timezone", "America/New_York")
	v.SetDefault("calendar.market_close", "16:00")
	v.SetDefault("calendar.max_lookback", calendar.DefaultMaxLookback)

	// LLM defaults
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 60*time.Second)

	// Report defaults
	v.SetDefault("report.output_dir", "output")
	v.SetDefault("report.title", "Daybreak Edition")
	v.SetDefault("report.pdf_engine", "auto")

	// Email defaults
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")

	// Schedule defaults: 07:00 ET on weekdays
	v.SetDefault("schedule.cron", "0 0 7 * * 1-5")
	v.SetDefault("schedule.timezone", "America/New_York")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.outputs", []string{"console"})
	v.SetDefault("logging.file", filepath.Join("logs", "daybreak.log"))
}

// Legacy variable names read by earlier deployments.
const (
	EnvAlphaVantageKey = "ALPHAVANTAGE_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvGeminiKey       = "GEMINI_API_KEY"
	EnvSMTPPassword    = "SMTP_PASSWORD"
)

// overrideFromEnv fills secrets from the conventional provider variables
// when the prefixed ones are not set.
func overrideFromEnv(cfg *Config) {
	if cfg.MarketData.APIKey == "" {
		cfg.MarketData.APIKey = os.Getenv(EnvAlphaVantageKey)
	}
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv(EnvAnthropicKey)
	}
	if cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = os.Getenv(EnvGeminiKey)
	}
	if cfg.Email.Password == "" {
		cfg.Email.Password = os.Getenv(EnvSMTPPassword)
	}
}

// DefaultIndices returns the ETF proxies covered by the report.
func DefaultIndices() []marketdata.IndexSymbol {
	return []marketdata.IndexSymbol{
		{Symbol: "SPY", Name: "S&P 500", Group: marketdata.GroupUS},
		{Symbol: "QQQ", Name: "Nasdaq 100", Group: marketdata.GroupUS},
		{Symbol: "DIA", Name: "Dow Jones", Group: marketdata.GroupUS},
		{Symbol: "IWM", Name: "Russell 2000", Group: marketdata.GroupUS},
		{Symbol: "EWG", Name: "Germany (DAX)", Group: marketdata.GroupEurope},
		{Symbol: "EWU", Name: "UK (FTSE)", Group: marketdata.GroupEurope},
		{Symbol: "EWJ", Name: "Japan (Nikkei)", Group: marketdata.GroupAsia},
		{Symbol: "FXI", Name: "China (Large Cap)", Group: marketdata.GroupAsia},
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool, len(c.Indices))
	for _, idx := range c.Indices {
		sym, err := marketdata.NormalizeSymbol(idx.Symbol)
		if err != nil {
			return fmt.Errorf("invalid config: indices: %w", err)
		}
		if seen[sym] {
			return fmt.Errorf("invalid config: indices: duplicate symbol %s", sym)
		}
		seen[sym] = true
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.From == "" || len(c.Email.To) == 0) {
		return errors.New("invalid config: email enabled without smtp_host, from and to")
	}
	if _, err := c.NewCalendar(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid config: schedule timezone: %w", err)
	}
	return nil
}

// NewCalendar builds the exchange calendar from the calendar section.
func (c *Config) NewCalendar() (*calendar.Calendar, error) {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar timezone: %w", err)
	}
	closeAt, err := time.Parse("15:04", c.Calendar.MarketClose)
	if err != nil {
		return nil, fmt.Errorf("calendar market_close %q: want HH:MM", c.Calendar.MarketClose)
	}

	opts := []calendar.Option{
		calendar.WithLocation(loc),
		calendar.WithMarketClose(closeAt.Hour(), closeAt.Minute()),
		calendar.WithMaxLookback(c.Calendar.MaxLookback),
	}
	if len(c.Calendar.Holidays) > 0 {
		holidays, err := calendar.ParseHolidays(c.Calendar.Holidays)
		if err != nil {
			return nil, err
		}
		opts = append(opts, calendar.WithHolidays(holidays))
	}
	return calendar.New(opts...), nil
}

// StoreConfig maps the cache section onto the store factory input.
func (c *Config) StoreConfig() marketdata.StoreConfig {
	return marketdata.StoreConfig{
		Backend:    c.Cache.Backend,
		Dir:        c.Cache.Dir,
		BadgerDir:  c.Cache.BadgerDir,
		SQLitePath: c.Cache.SQLitePath,
	}
}

// Masked returns a copy with secrets replaced for display.
func (c *Config) Masked() Config {
	m := *c
	m.Indices = append([]marketdata.IndexSymbol(nil), c.Indices...)
	m.MarketData.APIKey = maskKey(c.MarketData.APIKey)
	m.LLM.AnthropicKey = maskKey(c.LLM.AnthropicKey)
	m.LLM.GeminiKey = maskKey(c.LLM.GeminiKey)
	m.Email.Password = maskKey(c.Email.Password)
	return m
}

// YAML renders the masked configuration.
func (c *Config) YAML() ([]byte, error) {
	m := c.Masked()
	return yaml.Marshal(&m)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
