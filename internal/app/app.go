// Package app assembles the service from its parts: configuration,
// tracing, the database pool, the Genkit provider, the knowledge store,
// and one resolution engine per category.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/config"
	"github.com/koopa0/chinchilla/internal/knowledge"
	"github.com/koopa0/chinchilla/internal/llm"
	"github.com/koopa0/chinchilla/internal/log"
	"github.com/koopa0/chinchilla/internal/websearch"
)

// App is the application container. Build one with Setup and release its
// resources with Close.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool
	Store    *knowledge.Store
	LLM      *llm.Client
	Web      *websearch.Client
	Registry *agent.Registry

	logger       log.Logger
	otelShutdown func(context.Context) error
}

// Close releases resources in reverse initialization order. Safe to call
// on a partially initialized App.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
