package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for HireFlow.
type Config struct {
	LLM          LLMConfig
	Fetch        FetchConfig
	Portfolio    PortfolioConfig
	Persona      PersonaConfig
	Server       ServerConfig
	Notification NotificationConfig
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL           string // defaults to Groq's OpenAI-compatible endpoint
	APIKey            string // expanded from env var by Load; may be empty when stored in the keyring
	Model             string
	Temperature       float64
	Timeout           time.Duration // per-request timeout
	RequestsPerMinute int           // 0 disables pacing
}

// FetchConfig controls how careers pages are downloaded.
type FetchConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// PortfolioConfig locates the portfolio dataset and its vector store.
type PortfolioConfig struct {
	CSVPath          string `yaml:"csv_path"`
	StoreDir         string `yaml:"store_dir"`
	Collection       string `yaml:"collection"`
	ResultsPerSkill  int    `yaml:"results_per_skill"`
	Embedder         string `yaml:"embedder"` // "hashing" or "openai"
	EmbeddingModel   string `yaml:"embedding_model"`
	EmbeddingBaseURL string `yaml:"embedding_base_url"`
	// EmbeddingAPIKey is only needed when embedding_base_url points at a
	// different provider than llm.base_url.
	EmbeddingAPIKey string `yaml:"embedding_api_key"`
}

// PersonaConfig is who the drafted emails are written as. Empty fields keep
// the built-in persona.
type PersonaConfig struct {
	Name    string `yaml:"name"`
	Title   string `yaml:"title"`
	Company string `yaml:"company"`
	Pitch   string `yaml:"pitch"`
}

// ServerConfig controls the web surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig controls where composed drafts are delivered.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "none"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	defaultLLMBaseURL     = "https://api.groq.com/openai/v1"
	defaultLLMModel       = "llama-3.3-70b-versatile"
	defaultLLMTimeout     = 60 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (compatible; hireflow/1.0)"
	defaultFetchTimeout   = 30 * time.Second
	defaultEmbeddingModel = "text-embedding-3-small"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	LLM          rawLLMConfig       `yaml:"llm"`
	Fetch        rawFetchConfig     `yaml:"fetch"`
	Portfolio    PortfolioConfig    `yaml:"portfolio"`
	Persona      PersonaConfig      `yaml:"persona"`
	Server       ServerConfig       `yaml:"server"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawLLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
}

type rawFetchConfig struct {
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		panic(err) // defaults are always valid
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	llmTimeout, err := durationOr(raw.LLM.Timeout, defaultLLMTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse llm.timeout %q: %w", raw.LLM.Timeout, err)
	}
	fetchTimeout, err := durationOr(raw.Fetch.Timeout, defaultFetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse fetch.timeout %q: %w", raw.Fetch.Timeout, err)
	}

	cfg := &Config{
		LLM: LLMConfig{
			BaseURL:           or(raw.LLM.BaseURL, defaultLLMBaseURL),
			APIKey:            raw.LLM.APIKey,
			Model:             or(raw.LLM.Model, defaultLLMModel),
			Temperature:       raw.LLM.Temperature,
			Timeout:           llmTimeout,
			RequestsPerMinute: raw.LLM.RequestsPerMinute,
		},
		Fetch: FetchConfig{
			UserAgent: or(raw.Fetch.UserAgent, defaultUserAgent),
			Timeout:   fetchTimeout,
		},
		Portfolio:    raw.Portfolio,
		Persona:      raw.Persona,
		Server:       raw.Server,
		Notification: raw.Notification,
	}

	p := &cfg.Portfolio
	p.CSVPath = or(p.CSVPath, "my_portfolio.csv")
	p.StoreDir = or(p.StoreDir, "vectorstore")
	p.Collection = or(p.Collection, "portfolio")
	if p.ResultsPerSkill == 0 {
		p.ResultsPerSkill = 2
	}
	p.Embedder = strings.ToLower(or(p.Embedder, "hashing"))
	p.EmbeddingModel = or(p.EmbeddingModel, defaultEmbeddingModel)
	p.EmbeddingBaseURL = or(p.EmbeddingBaseURL, cfg.LLM.BaseURL)

	cfg.Server.Addr = or(cfg.Server.Addr, ":8080")
	cfg.Notification.Type = strings.ToLower(or(cfg.Notification.Type, "log"))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative, got %d", cfg.LLM.RequestsPerMinute)
	}
	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", cfg.Fetch.Timeout)
	}

	if cfg.Portfolio.ResultsPerSkill < 1 {
		return fmt.Errorf("portfolio.results_per_skill must be at least 1, got %d", cfg.Portfolio.ResultsPerSkill)
	}
	switch cfg.Portfolio.Embedder {
	case "hashing", "openai":
	default:
		return fmt.Errorf("portfolio.embedder must be \"hashing\" or \"openai\", got %q", cfg.Portfolio.Embedder)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\", \"slack\" or \"none\", got %q", cfg.Notification.Type)
	}

	return nil
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
