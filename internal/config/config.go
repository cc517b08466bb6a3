package config

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	BackendWebhook = "webhook"
	BackendLLM     = "llm"
)

type Config struct {
	Server  ServerConfig
	Agent   AgentConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type AgentConfig struct {
	Backend      string
	WebhookURL   string
	BaseURL      string
	Model        string
	MaxQuestions int
	GeminiAPIKey string
}

type StorageConfig struct {
	DataDir string
	// DSN selects a Postgres database instead of the sqlite file in DataDir.
	DSN string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           3000,
			AllowedOrigins: []string{"*"},
		},
		Agent: AgentConfig{
			Backend:      BackendWebhook,
			BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:        "gemini-1.5-pro",
			MaxQuestions: 8,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the TOML config file, environment variables
// and the secrets file, then validates it.
//
// The config file lives at $XDG_CONFIG_HOME/intake/config.toml. Environment
// variables (INTAKE_*) override file values. The Gemini API key is read from
// INTAKE_AGENT_GEMINI_API_KEY, then GEMINI_API_KEY, then the secrets file.
func Load() (Config, error) {
	cfg, err := LoadUnchecked()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnchecked is Load without validation, for commands that only talk to
// a running server.
func LoadUnchecked() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), fileSecrets{path: secretsFilePath()})
}

// secretStore abstracts secret lookup for testing.
type secretStore interface {
	Get(account string) (string, error)
}

func loadFromPath(path string, secrets secretStore) (Config, error) {
	cfg, err := loadWith(newFileBackend(path), secrets)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Agent.GeminiAPIKey == "" {
		cfg.Agent.GeminiAPIKey = envGeminiKey()
	}
	if cfg.Agent.GeminiAPIKey == "" && secrets != nil {
		if key, err := secrets.Get(geminiAccount); err == nil && key != "" {
			cfg.Agent.GeminiAPIKey = key
		}
	}

	cfg.Agent.Backend = strings.ToLower(strings.TrimSpace(cfg.Agent.Backend))
	return cfg, nil
}

// Validate fails fast on configuration the server cannot run with.
func (c Config) Validate() error {
	switch c.Agent.Backend {
	case BackendLLM:
		if c.Agent.GeminiAPIKey == "" {
			return fmt.Errorf("missing required config: Gemini API key. " +
				"Set it via environment variable INTAKE_AGENT_GEMINI_API_KEY or GEMINI_API_KEY, " +
				"or run `intake config set-secret agent.gemini_api_key <key>`")
		}
	case BackendWebhook:
		if c.Agent.WebhookURL == "" {
			return fmt.Errorf("missing required config: agent webhook URL. " +
				"Set agent.webhook_url or INTAKE_AGENT_WEBHOOK_URL, or use agent.backend = \"llm\"")
		}
		u, err := url.Parse(c.Agent.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid agent webhook URL %q", c.Agent.WebhookURL)
		}
	default:
		return fmt.Errorf("unknown agent backend %q (want %q or %q)", c.Agent.Backend, BackendWebhook, BackendLLM)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
