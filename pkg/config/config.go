package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/bedrockhome/agent/pkg/configutil"
	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/prompt"
)

// Config is the full configuration surface of the agent.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Server  ServerConfig  `mapstructure:"server"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Model   ModelConfig   `mapstructure:"model"`
	Prompt  PromptConfig  `mapstructure:"prompt"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Host    HostConfig    `mapstructure:"home_assistant"`
	Privacy PrivacyConfig `mapstructure:"privacy"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	RetryAttempts  int `mapstructure:"retry_attempts"`
	RetryBackoffMS int `mapstructure:"retry_backoff_ms"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

type ModelConfig struct {
	ID               string  `mapstructure:"id"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
	TopP             float64 `mapstructure:"top_p"`
	TopK             int     `mapstructure:"top_k"`
	RequestTimeoutMS int     `mapstructure:"request_timeout_ms"`
}

func (m ModelConfig) RequestTimeout() time.Duration {
	return time.Duration(m.RequestTimeoutMS) * time.Millisecond
}

type PromptConfig struct {
	Language string `mapstructure:"language"`
	Template string `mapstructure:"template"`
	// RefreshPerTurn re-renders the system prompt with a fresh device
	// snapshot on every turn instead of once per conversation.
	RefreshPerTurn  bool     `mapstructure:"refresh_per_turn"`
	ExtraAttributes []string `mapstructure:"extra_attributes_to_expose"`
}

type MemoryConfig struct {
	RememberConversation bool `mapstructure:"remember_conversation"`
	RememberInteractions int  `mapstructure:"remember_interactions"`
	SessionTTLMinutes    int  `mapstructure:"session_ttl_minutes"`
}

func (m MemoryConfig) SessionTTL() time.Duration {
	return time.Duration(m.SessionTTLMinutes) * time.Minute
}

type ToolsConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

type HostConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	WebsocketURL   string   `mapstructure:"websocket_url"`
	Token          string   `mapstructure:"token"`
	ExposedDomains []string `mapstructure:"exposed_domains"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// sectionSchemas lists the known keys of each config section. A key
// outside its section's set fails the load instead of being silently
// ignored.
var sectionSchemas = map[string]configutil.Schema{
	"server":         {Optional: []string{"port", "retry_attempts", "retry_backoff_ms"}},
	"aws":            {Optional: []string{"region", "access_key_id", "secret_access_key", "session_token"}},
	"model":          {Optional: []string{"id", "max_tokens", "temperature", "top_p", "top_k", "request_timeout_ms"}},
	"prompt":         {Optional: []string{"language", "template", "refresh_per_turn", "extra_attributes_to_expose"}},
	"memory":         {Optional: []string{"remember_conversation", "remember_interactions", "session_ttl_minutes"}},
	"tools":          {Optional: []string{"max_iterations"}},
	"home_assistant": {Optional: []string{"base_url", "websocket_url", "token", "exposed_domains"}},
	"privacy":        {Optional: []string{"redact_pii"}},
	"metrics":        {Optional: []string{"enabled", "path"}},
}

// Load reads the config file, applies defaults and env overrides, and
// validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("server.port", 8099)
	v.SetDefault("server.retry_attempts", 2)
	v.SetDefault("server.retry_backoff_ms", 200)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("model.id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("model.max_tokens", 4096)
	v.SetDefault("model.temperature", 1.0)
	v.SetDefault("model.top_p", 0.999)
	v.SetDefault("model.top_k", 250)
	v.SetDefault("model.request_timeout_ms", 30000)
	v.SetDefault("prompt.language", "en")
	v.SetDefault("prompt.template", "")
	v.SetDefault("prompt.refresh_per_turn", false)
	v.SetDefault("memory.remember_conversation", true)
	v.SetDefault("memory.remember_interactions", 10)
	v.SetDefault("memory.session_ttl_minutes", 30)
	v.SetDefault("tools.max_iterations", 5)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	for section, schema := range sectionSchemas {
		if err := configutil.ValidateSettings(v.GetStringMap(section), schema); err != nil {
			return Config{}, errorsx.NewConfigError(section, "%v", err)
		}
	}

	var cfg Config
	if err := configutil.DecodeSettings(v.AllSettings(), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets credentials come from the environment so they
// stay out of config files.
func applyEnvOverrides(cfg *Config) {
	cfg.AWS.Region = envOr("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.AccessKeyID = envOr("AWS_ACCESS_KEY_ID", cfg.AWS.AccessKeyID)
	cfg.AWS.SecretAccessKey = envOr("AWS_SECRET_ACCESS_KEY", cfg.AWS.SecretAccessKey)
	cfg.AWS.SessionToken = envOr("AWS_SESSION_TOKEN", cfg.AWS.SessionToken)
	cfg.Host.Token = envOr("HASS_TOKEN", cfg.Host.Token)
	cfg.Host.BaseURL = envOr("HASS_BASE_URL", cfg.Host.BaseURL)
	cfg.Host.WebsocketURL = envOr("HASS_WEBSOCKET_URL", cfg.Host.WebsocketURL)
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Model.ID, "model.id"); err != nil {
		return errorsx.NewConfigError("model.id", "%v", err)
	}
	if err := configutil.IntInRange(c.Model.MaxTokens, 100, 100000, "model.max_tokens"); err != nil {
		return errorsx.NewConfigError("model.max_tokens", "%v", err)
	}
	if err := configutil.FloatInRange(c.Model.Temperature, 0, 1, "model.temperature"); err != nil {
		return errorsx.NewConfigError("model.temperature", "%v", err)
	}
	if err := configutil.FloatInRange(c.Model.TopP, 0, 1, "model.top_p"); err != nil {
		return errorsx.NewConfigError("model.top_p", "%v", err)
	}
	if err := configutil.IntInRange(c.Model.TopK, 1, 500, "model.top_k"); err != nil {
		return errorsx.NewConfigError("model.top_k", "%v", err)
	}
	if err := configutil.OneOf(c.Prompt.Language, prompt.SupportedLanguages, "prompt.language"); err != nil {
		return errorsx.NewConfigError("prompt.language", "%v", err)
	}
	if err := configutil.IntInRange(c.Memory.RememberInteractions, 1, 20, "memory.remember_interactions"); err != nil {
		return errorsx.NewConfigError("memory.remember_interactions", "%v", err)
	}
	if err := configutil.IntInRange(c.Tools.MaxIterations, 0, 10, "tools.max_iterations"); err != nil {
		return errorsx.NewConfigError("tools.max_iterations", "%v", err)
	}
	if err := configutil.IntInRange(c.Server.Port, 1, 65535, "server.port"); err != nil {
		return errorsx.NewConfigError("server.port", "%v", err)
	}
	return nil
}
