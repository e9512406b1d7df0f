package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned on first use of the completion client when no key is configured.
// It is not checked at startup so the rest of the application can run without analysis.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// Fetch modes.
const (
	FetchModeProxy   = "proxy"
	FetchModeBrowser = "browser"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	ProxyURL  string `mapstructure:"PROXY_URL"`
	OEmbedURL string `mapstructure:"OEMBED_URL"`
	FetchMode string `mapstructure:"FETCH_MODE"`

	BadgerDBPath     string        `mapstructure:"BADGERDB_PATH"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	TelegramBotToken string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	SessionTTL       time.Duration `mapstructure:"SESSION_TTL"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`

	// AdminEmails register as active admins. Everyone else waits for approval.
	AdminEmails []string `mapstructure:"ADMIN_EMAILS"`
}

var defaults = map[string]any{
	"OPENAI_BASE_URL":    "https://api.openai.com/v1",
	"OPENAI_MODEL":       "gpt-4o-mini",
	"PROXY_URL":          "https://api.allorigins.win/get",
	"OEMBED_URL":         "https://www.youtube.com/oembed",
	"FETCH_MODE":         FetchModeProxy,
	"BADGERDB_PATH":      "./badger_data",
	"HTTP_ADDR":          ":8080",
	"TELEGRAM_BOT_TOKEN": "",
	"SESSION_TTL":        "168h",
	"LOG_LEVEL":          "info",
	"ADMIN_EMAILS":       "",
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees keys viper knows about, so register every key.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if err := v.BindEnv("OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind OPENAI_API_KEY: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; everything can come from the environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.FetchMode {
	case FetchModeProxy, FetchModeBrowser:
	default:
		return fmt.Errorf("FETCH_MODE must be %q or %q, got %q", FetchModeProxy, FetchModeBrowser, c.FetchMode)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// RequireAPIKey returns the completion API key or ErrMissingAPIKey.
func (c Config) RequireAPIKey() (string, error) {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return "", ErrMissingAPIKey
	}
	return c.OpenAIAPIKey, nil
}
