// Package cmd provides the chinchilla CLI commands.
//
// Commands:
//   - serve: HTTP API server
//   - ask: one-shot query resolution from the terminal
//   - ingest: load documents from a JSONL file into a collection
//
// All long-running commands handle SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"fmt"
	"os"

	"github.com/koopa0/chinchilla/internal/config"
	"github.com/koopa0/chinchilla/internal/log"
)

// Execute is the entry point for the chinchilla CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ask":
		return runAsk()
	case "ingest":
		return runIngest()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads and validates configuration, and builds the logger the
// command will run with.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	return cfg, logger, nil
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Chinchilla - retrieval-backed Q&A service for elderly welfare")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chinchilla serve [addr]                 Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  chinchilla ask <category> <question>    Resolve one query from the terminal")
	fmt.Println("  chinchilla ingest <collection> <file>   Load a JSONL document file into a collection")
	fmt.Println("  chinchilla --version                    Show version information")
	fmt.Println("  chinchilla --help                       Show this help")
	fmt.Println()
	fmt.Println("Categories:")
	fmt.Println("  jobs, welfare, news, legal, scamdefense")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY        API key for the default gemini provider")
	fmt.Println("  DATABASE_URL          PostgreSQL connection URL (overrides config)")
	fmt.Println("  CHINCHILLA_LOG_LEVEL  debug, info, warn or error")
}
