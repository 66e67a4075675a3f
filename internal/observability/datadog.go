// Package observability wires OpenTelemetry tracing to a local Datadog
// Agent over OTLP HTTP. The agent handles authentication and forwarding,
// so the application never needs DD_API_KEY at export time.
//
// Environment variables understood by the agent setup:
//   - DD_AGENT_HOST: OTLP endpoint override (default localhost:4318)
//   - DD_ENV: deployment environment tag
//   - DD_SERVICE: service name shown in Datadog APM
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/koopa0/chinchilla/internal/log"
)

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Config for the Datadog OTEL exporter.
type Config struct {
	// AgentHost is the Datadog Agent OTLP endpoint (default localhost:4318).
	AgentHost string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// ServiceName is the service name shown in Datadog APM.
	ServiceName string
}

// Setup registers a Datadog Agent exporter with Genkit's TracerProvider,
// installs that provider as the OpenTelemetry global so application spans
// share the export pipeline, and returns a shutdown function that flushes
// pending spans.
//
// Tracing degrades gracefully: if the exporter cannot be created the
// returned shutdown is a no-op and err is nil.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit's TracerProvider reads the service identity from the
	// standard OTEL environment variables.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create datadog exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	// The resolution engine creates spans through the global provider;
	// point it at Genkit's so both land in the same export pipeline.
	otel.SetTracerProvider(tracing.TracerProvider())

	logger.Debug("datadog tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
