package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envConfigPath        = "ASSISTBOT_CONFIG"
	envWhatsAppToken     = "WHATSAPP_TOKEN"
	envWhatsAppPhoneID   = "WHATSAPP_PHONE_ID"
	envWhatsAppVerify    = "VERIFY_TOKEN"
	envWhatsAppSecret    = "WHATSAPP_APP_SECRET"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envRedisAddr         = "REDIS_ADDR"
	envPort              = "PORT"

	defaultProviderTimeoutSeconds = 10
	defaultHistoryExchanges       = 10
	defaultGraphAPIVersion        = "v22.0"
	defaultAssistantModel         = "deepseek-chat"
	defaultAssistantAPIKeyEnv     = "DEEPSEEK_API_KEY"
	defaultWeatherAPIKeyEnv       = "OPENWEATHER_API_KEY"
	defaultAssistantBaseURL       = "https://api.deepseek.com/v1"
	defaultAssistantMaxTokens     = 500
	defaultAssistantTemperature   = 0.7
	defaultWeatherBaseURL         = "https://api.openweathermap.org/data/2.5"
	defaultWeatherLang            = "fr"
	defaultFoodBaseURL            = "https://world.openfoodfacts.org/api/v2"
	defaultFoodSearchURL          = "https://world.openfoodfacts.org/cgi/search.pl"
	defaultFoodUserAgent          = "assistbot/1.0"
	defaultResultLimit            = 5
	defaultGatewayHost            = "0.0.0.0"
	defaultGatewayPort            = 3000
	defaultGraphAPIBase           = "https://graph.facebook.com"
	defaultWebhookPath            = "/webhook"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Channels  ChannelsConfig  `json:"channels"`
	Assistant AssistantConfig `json:"assistant"`
	Providers ProvidersConfig `json:"providers"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	State     StateConfig     `json:"state"`
	Gateway   GatewayConfig   `json:"gateway"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// AssistantConfig describes the freeform responder used for unclassified text.
type AssistantConfig struct {
	Backend          string  `json:"backend"`
	Model            string  `json:"model"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	HistoryExchanges int     `json:"history_exchanges"`
	Profile          string  `json:"profile,omitempty"`
	SystemPrompt     string  `json:"system_prompt,omitempty"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenAI  OpenAIProviderConfig  `json:"openai"`
	Weather WeatherProviderConfig `json:"weather"`
	Food    FoodProviderConfig    `json:"food"`
}

// OpenAIProviderConfig configures the OpenAI-compatible chat completion client.
type OpenAIProviderConfig struct {
	BaseURL               string `json:"base_url"`
	APIKeyEnv             string `json:"api_key_env"`
	Organization          string `json:"organization"`
	Project               string `json:"project"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// WeatherProviderConfig configures the OpenWeather lookup.
type WeatherProviderConfig struct {
	BaseURL   string `json:"base_url"`
	APIKeyEnv string `json:"api_key_env"`
	Lang      string `json:"lang"`
}

// FoodProviderConfig configures the OpenFoodFacts lookup.
type FoodProviderConfig struct {
	BaseURL   string `json:"base_url"`
	SearchURL string `json:"search_url"`
	UserAgent string `json:"user_agent"`
}

// DispatchConfig tunes the conversation dispatch engine.
type DispatchConfig struct {
	ProviderTimeoutSeconds int `json:"provider_timeout_seconds"`
	SearchLimit            int `json:"search_limit"`
	CategoryLimit          int `json:"category_limit"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend           string      `json:"backend"`
	PendingTTLSeconds int         `json:"pending_ttl_seconds"`
	Redis             RedisConfig `json:"redis"`
}

// RedisConfig configures the redis-backed conversation state store.
type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Telegram TelegramConfig `json:"telegram"`
}

// WhatsAppConfig configures the WhatsApp Cloud API channel.
type WhatsAppConfig struct {
	Enabled       bool   `json:"enabled"`
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
	VerifyToken   string `json:"verify_token"`
	AppSecret     string `json:"app_secret"`
	APIVersion    string `json:"api_version"`
	GraphAPIBase  string `json:"graph_api_base"`
	WebhookPath   string `json:"webhook_path"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// GatewayConfig configures HTTP gateway bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ProviderTimeout is the bounded wait applied to every content provider call.
func (c DispatchConfig) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutSeconds <= 0 {
		return defaultProviderTimeoutSeconds * time.Second
	}

	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// PendingTTL returns zero when pending contexts never expire.
func (c StateConfig) PendingTTL() time.Duration {
	if c.PendingTTLSeconds <= 0 {
		return 0
	}

	return time.Duration(c.PendingTTLSeconds) * time.Second
}

// LoadEnvFiles loads .env files into the process environment.
//
// Missing files are ignored; variables already set are never overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	return nil
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// When no config file exists the defaults plus environment are used, which is
// enough to run the WhatsApp webhook with env-only secrets.
func LoadConfig() (*Config, error) {
	var cfg Config

	configPath, err := findConfigPath()
	switch {
	case err == nil:
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case errors.Is(err, errConfigNotFound):
	default:
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envWhatsAppToken)); token != "" {
		cfg.Channels.WhatsApp.AccessToken = token
	}
	if phoneID := strings.TrimSpace(os.Getenv(envWhatsAppPhoneID)); phoneID != "" {
		cfg.Channels.WhatsApp.PhoneNumberID = phoneID
	}
	if verify := strings.TrimSpace(os.Getenv(envWhatsAppVerify)); verify != "" {
		cfg.Channels.WhatsApp.VerifyToken = verify
	}
	if secret := strings.TrimSpace(os.Getenv(envWhatsAppSecret)); secret != "" {
		cfg.Channels.WhatsApp.AppSecret = secret
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if addr := strings.TrimSpace(os.Getenv(envRedisAddr)); addr != "" {
		cfg.State.Redis.Addr = addr
	}

	if rawPort := strings.TrimSpace(os.Getenv(envPort)); rawPort != "" {
		if port, err := strconv.Atoi(rawPort); err == nil && port > 0 {
			cfg.Gateway.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Channels.WhatsApp.APIVersion) == "" {
		cfg.Channels.WhatsApp.APIVersion = defaultGraphAPIVersion
	}
	if strings.TrimSpace(cfg.Channels.WhatsApp.GraphAPIBase) == "" {
		cfg.Channels.WhatsApp.GraphAPIBase = defaultGraphAPIBase
	}
	if strings.TrimSpace(cfg.Channels.WhatsApp.WebhookPath) == "" {
		cfg.Channels.WhatsApp.WebhookPath = defaultWebhookPath
	}
	if strings.TrimSpace(cfg.Assistant.Model) == "" {
		cfg.Assistant.Model = defaultAssistantModel
	}
	if cfg.Assistant.HistoryExchanges <= 0 {
		cfg.Assistant.HistoryExchanges = defaultHistoryExchanges
	}
	if strings.TrimSpace(cfg.Providers.OpenAI.APIKeyEnv) == "" {
		cfg.Providers.OpenAI.APIKeyEnv = defaultAssistantAPIKeyEnv
	}
	if strings.TrimSpace(cfg.Providers.Weather.APIKeyEnv) == "" {
		cfg.Providers.Weather.APIKeyEnv = defaultWeatherAPIKeyEnv
	}
	if strings.TrimSpace(cfg.State.Backend) == "" {
		cfg.State.Backend = "memory"
	}

	if strings.TrimSpace(cfg.Providers.OpenAI.BaseURL) == "" {
		cfg.Providers.OpenAI.BaseURL = defaultAssistantBaseURL
	}
	if cfg.Assistant.MaxTokens <= 0 {
		cfg.Assistant.MaxTokens = defaultAssistantMaxTokens
	}
	if cfg.Assistant.Temperature <= 0 {
		cfg.Assistant.Temperature = defaultAssistantTemperature
	}
	if strings.TrimSpace(cfg.Providers.Weather.BaseURL) == "" {
		cfg.Providers.Weather.BaseURL = defaultWeatherBaseURL
	}
	if strings.TrimSpace(cfg.Providers.Weather.Lang) == "" {
		cfg.Providers.Weather.Lang = defaultWeatherLang
	}
	if strings.TrimSpace(cfg.Providers.Food.BaseURL) == "" {
		cfg.Providers.Food.BaseURL = defaultFoodBaseURL
	}
	if strings.TrimSpace(cfg.Providers.Food.SearchURL) == "" {
		cfg.Providers.Food.SearchURL = defaultFoodSearchURL
	}
	if strings.TrimSpace(cfg.Providers.Food.UserAgent) == "" {
		cfg.Providers.Food.UserAgent = defaultFoodUserAgent
	}
	if cfg.Dispatch.SearchLimit <= 0 {
		cfg.Dispatch.SearchLimit = defaultResultLimit
	}
	if cfg.Dispatch.CategoryLimit <= 0 {
		cfg.Dispatch.CategoryLimit = defaultResultLimit
	}
	if strings.TrimSpace(cfg.Gateway.Host) == "" {
		cfg.Gateway.Host = defaultGatewayHost
	}
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = defaultGatewayPort
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

var errConfigNotFound = errors.New("config.json not found")

// findConfigPath resolves the active config file location.
//
// Precedence is ASSISTBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s and %s)", errConfigNotFound, candidates[0], candidates[1])
}
