package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name     string       `json:"name"`
	Source   APIKeySource `json:"source"`
	IsSet    bool         `json:"is_set"`
	Masked   string       `json:"masked,omitempty"` // e.g., "sk-...abc"
	Required bool         `json:"required"`
}

// CheckAPIKeys returns the status of the credentials the configured run needs.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	keys := []KeyStatus{
		checkKey("Alpha Vantage API Key", cfg.MarketData.APIKey, true,
			EnvPrefix+"_MARKET_DATA_API_KEY", EnvAlphaVantageKey),
		checkKey("Anthropic API Key", cfg.LLM.AnthropicKey, cfg.LLM.Provider == "anthropic",
			EnvPrefix+"_LLM_ANTHROPIC_KEY", EnvAnthropicKey),
		checkKey("Gemini API Key", cfg.LLM.GeminiKey, cfg.LLM.Provider == "gemini",
			EnvPrefix+"_LLM_GEMINI_KEY", EnvGeminiKey),
	}
	if cfg.Email.Enabled {
		keys = append(keys, checkKey("SMTP Password", cfg.Email.Password, cfg.Email.Username != "",
			EnvPrefix+"_EMAIL_PASSWORD", EnvSMTPPassword))
	}
	return keys
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, required bool, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:     name,
		IsSet:    value != "",
		Required: required,
		Source:   KeySourceNone,
	}
	if value == "" {
		return status
	}

	status.Source = KeySourceConfig
	for _, env := range envVars {
		if os.Getenv(env) == value {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
