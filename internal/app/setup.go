package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/koopa0/chinchilla/db"
	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/category"
	"github.com/koopa0/chinchilla/internal/config"
	"github.com/koopa0/chinchilla/internal/knowledge"
	"github.com/koopa0/chinchilla/internal/llm"
	"github.com/koopa0/chinchilla/internal/log"
	"github.com/koopa0/chinchilla/internal/observability"
	"github.com/koopa0/chinchilla/internal/scam"
	"github.com/koopa0/chinchilla/internal/websearch"
)

// Setup creates and initializes the application. On failure everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before Genkit initialization so spans
	// from generation calls reach the exporter.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Store = knowledge.New(pool, embedder, logger)

	var limiter *rate.Limiter
	if cfg.Agent.LLMRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Agent.LLMRatePerSec), cfg.Agent.LLMRateBurst)
	}
	a.LLM = llm.New(g, llm.Options{
		ModelName:   cfg.FullModelName(),
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.Agent.LLMTimeoutSec) * time.Second,
		Limiter:     limiter,
		Retry:       llm.DefaultRetryConfig(),
		Logger:      logger,
	})

	searchTimeout := time.Duration(cfg.Agent.SearchTimeoutSec) * time.Second
	a.Web = websearch.New(cfg.SearXNG.BaseURL, searchTimeout, logger)

	registry, err := provideRegistry(a.Store, a.LLM, a.Web, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"categories", registry.Categories(),
		"websearch_enabled", a.Web.Enabled(),
	)

	return a, nil
}

// provideDBPool runs migrations and opens a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration; there is no
		// auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)

	default: // gemini / googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address.
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideRegistry builds one resolution engine per category and registers
// them for dispatch.
func provideRegistry(store *knowledge.Store, client *llm.Client, web *websearch.Client, logger log.Logger) (*agent.Registry, error) {
	matcher, err := scam.NewMatcher()
	if err != nil {
		return nil, fmt.Errorf("loading scam patterns: %w", err)
	}

	hooks := []agent.Hook{
		category.NewJobs(store),
		category.NewWelfare(store),
		category.NewNews(store),
		category.NewLegal(store),
		category.NewScamDefense(store, matcher),
	}

	searcher := &webSearcher{client: web}
	registry := agent.NewRegistry()
	for _, h := range hooks {
		if err := registry.Register(agent.NewEngine(h, client, searcher, logger)); err != nil {
			return nil, fmt.Errorf("registering category %q: %w", h.Name(), err)
		}
	}
	return registry, nil
}

// webSearcher adapts the SearXNG client to the engine's fallback interface.
type webSearcher struct {
	client *websearch.Client
}

func (w *webSearcher) Search(ctx context.Context, query string, limit int) ([]agent.Document, error) {
	results, err := w.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]agent.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, agent.Document{
			Content: r.Snippet,
			Metadata: map[string]string{
				"title": r.Title,
				"url":   r.URL,
			},
			Provenance: agent.ProvenanceWeb,
		})
	}
	return docs, nil
}
