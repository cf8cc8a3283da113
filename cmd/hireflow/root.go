package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/amishk599/hireflow/internal/ai"
	"github.com/amishk599/hireflow/internal/config"
	"github.com/amishk599/hireflow/internal/fetch"
	"github.com/amishk599/hireflow/internal/metrics"
	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/notifier"
	"github.com/amishk599/hireflow/internal/pipeline"
	"github.com/amishk599/hireflow/internal/portfolio"
	"github.com/amishk599/hireflow/internal/ratelimit"
	"github.com/amishk599/hireflow/internal/secrets"
	"github.com/amishk599/hireflow/internal/vectorstore"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "hireflow",
	Short: "AI-powered outreach from a careers page",
	Long:  "HireFlow reads a careers page, extracts the open roles and drafts a cold email per role, citing matching portfolio work.",
	// Default to `serve` so that `hireflow` with no args starts the web UI.
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: HIREFLOW_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > HIREFLOW_CONFIG env var > "./config.yaml".
// A missing default file means built-in defaults; a missing explicit file is an error.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("HIREFLOW_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// resolveAPIKey returns llm.api_key, falling back to the OS keyring.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if cfg.LLM.APIKey != "" {
		return cfg.LLM.APIKey, nil
	}
	return secrets.GetAPIKey(secrets.LLMAccount(cfg.LLM.BaseURL))
}

// resolveEmbeddingKey returns the key for portfolio.embedding_base_url:
// portfolio.embedding_api_key, then the embedding keyring entry, then the LLM
// key when both endpoints share a host.
func resolveEmbeddingKey(cfg *config.Config) (string, error) {
	p := cfg.Portfolio
	if p.EmbeddingAPIKey != "" {
		return p.EmbeddingAPIKey, nil
	}
	key, err := secrets.GetAPIKey(secrets.EmbeddingAccount(p.EmbeddingBaseURL))
	if err == nil {
		return key, nil
	}
	if secrets.Host(p.EmbeddingBaseURL) == secrets.Host(cfg.LLM.BaseURL) {
		return resolveAPIKey(cfg)
	}
	return "", fmt.Errorf("no API key for embeddings at %s (set portfolio.embedding_api_key or run `hireflow secret set --embedding`): %w",
		p.EmbeddingBaseURL, err)
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	case "none":
		return notifier.NewNopNotifier()
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupPersona(cfg *config.Config) ai.Persona {
	p := ai.DefaultPersona
	if cfg.Persona.Name != "" {
		p.Name = cfg.Persona.Name
	}
	if cfg.Persona.Title != "" {
		p.Title = cfg.Persona.Title
	}
	if cfg.Persona.Company != "" {
		p.Company = cfg.Persona.Company
	}
	if cfg.Persona.Pitch != "" {
		p.Pitch = cfg.Persona.Pitch
	}
	return p
}

// openStore opens the portfolio collection with the configured embedder.
// An API key is only resolved for the openai embedder.
func openStore(cfg *config.Config, limiter *rate.Limiter, logger *slog.Logger) (*vectorstore.Collection, error) {
	var embedder vectorstore.Embedder
	switch cfg.Portfolio.Embedder {
	case "openai":
		apiKey, err := resolveEmbeddingKey(cfg)
		if err != nil {
			return nil, err
		}
		httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
		embedder = ratelimit.NewLimitedEmbedder(
			ai.NewOpenAIEmbedder(cfg.Portfolio.EmbeddingBaseURL, apiKey, cfg.Portfolio.EmbeddingModel, httpClient),
			limiter,
		)
	default:
		embedder = vectorstore.NewHashingEmbedder(0)
	}
	logger.Debug("opening portfolio store",
		"dir", cfg.Portfolio.StoreDir,
		"collection", cfg.Portfolio.Collection,
		"embedder", cfg.Portfolio.Embedder,
	)
	return vectorstore.Open(cfg.Portfolio.StoreDir, cfg.Portfolio.Collection, embedder)
}

// app is everything a run needs; close releases the store.
type app struct {
	pipeline *pipeline.Pipeline
	store    *vectorstore.Collection
}

func (a *app) close() error { return a.store.Close() }

// buildApp wires the pipeline from config. rec may be nil.
func buildApp(cfg *config.Config, rec *metrics.Recorder, logger *slog.Logger) (*app, error) {
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewLimiter(cfg.LLM.RequestsPerMinute)
	store, err := openStore(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}

	pf, err := portfolio.New(cfg.Portfolio.CSVPath, store, cfg.Portfolio.ResultsPerSkill, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	llmClient := &http.Client{Timeout: cfg.LLM.Timeout}
	provider := ratelimit.NewLimitedCompleter(
		ai.NewOpenAIProvider(cfg.LLM.BaseURL, apiKey, cfg.LLM.Model, cfg.LLM.Temperature, llmClient),
		limiter,
	)

	fetchClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	p := pipeline.New(
		fetch.NewHTTPFetcher(fetchClient, cfg.Fetch.UserAgent),
		pf,
		ai.NewJobExtractor(provider, ai.ExtractJobsTemplate, logger),
		ai.NewEmailComposer(provider, ai.ColdEmailTemplate, setupPersona(cfg), logger),
		setupNotifier(cfg, fetchClient, logger),
		rec,
		logger,
	)
	return &app{pipeline: p, store: store}, nil
}

// newRegistry returns a registry with the Go and process collectors plus the
// pipeline recorder.
func newRegistry() (*prometheus.Registry, *metrics.Recorder) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.New(reg)
}
