package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("HIREFLOW_TEST_KEY", "gsk_secret")
	path := writeConfig(t, `
llm:
  api_key: ${HIREFLOW_TEST_KEY}
  model: llama-3.1-8b-instant
  temperature: 0.2
  timeout: 45s
  requests_per_minute: 30
fetch:
  timeout: 10s
portfolio:
  csv_path: data/portfolio.csv
  results_per_skill: 3
persona:
  name: Jane Doe
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T000/B000/XXX
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "gsk_secret" {
		t.Errorf("APIKey = %q, want expanded env var", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" || cfg.LLM.Temperature != 0.2 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 45*time.Second || cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.LLM.Timeout, cfg.Fetch.Timeout)
	}
	if cfg.LLM.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.LLM.RequestsPerMinute)
	}
	if cfg.Portfolio.CSVPath != "data/portfolio.csv" || cfg.Portfolio.ResultsPerSkill != 3 {
		t.Errorf("Portfolio = %+v", cfg.Portfolio)
	}
	if cfg.Persona.Name != "Jane Doe" {
		t.Errorf("Persona.Name = %q", cfg.Persona.Name)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.BaseURL != defaultLLMBaseURL || cfg.LLM.Model != defaultLLMModel {
		t.Errorf("LLM defaults = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 60*time.Second || cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.LLM.Timeout, cfg.Fetch.Timeout)
	}
	if cfg.Portfolio.ResultsPerSkill != 2 || cfg.Portfolio.Embedder != "hashing" {
		t.Errorf("Portfolio = %+v", cfg.Portfolio)
	}
	if cfg.Portfolio.EmbeddingBaseURL != cfg.LLM.BaseURL {
		t.Errorf("EmbeddingBaseURL = %q, want llm base url", cfg.Portfolio.EmbeddingBaseURL)
	}
	if cfg.Notification.Type != "log" || cfg.Server.Addr != ":8080" {
		t.Errorf("Notification = %+v, Server = %+v", cfg.Notification, cfg.Server)
	}

	if def := Default(); *def != *cfg {
		t.Errorf("Default() = %+v, want %+v", def, cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "llm: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad timeout", "llm:\n  timeout: soon\n", "llm.timeout"},
		{"negative timeout", "fetch:\n  timeout: -1s\n", "fetch.timeout"},
		{"temperature", "llm:\n  temperature: 3\n", "llm.temperature"},
		{"negative rpm", "llm:\n  requests_per_minute: -5\n", "requests_per_minute"},
		{"results", "portfolio:\n  results_per_skill: -1\n", "results_per_skill"},
		{"embedder", "portfolio:\n  embedder: chroma\n", "portfolio.embedder"},
		{"notifier type", "notification:\n  type: email\n", "notification.type"},
		{"slack without webhook", "notification:\n  type: slack\n", "webhook_url is required"},
		{"slack wrong host", "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n", "hooks.slack.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load: expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
