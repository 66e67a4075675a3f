package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/koopa0/chinchilla/internal/agent"
	"github.com/koopa0/chinchilla/internal/app"
)

// runAsk resolves a single query from the terminal:
//
//	chinchilla ask jobs --age 68 --location "서울시 용산구" "일자리 어떻게 구하나요?"
func runAsk() error {
	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)
	age := askFlags.Int("age", 0, "User age for eligibility filtering")
	gender := askFlags.String("gender", "", "User gender")
	location := askFlags.String("location", "", "User location, e.g. \"서울시 용산구\"")
	sender := askFlags.String("sender", "", "Sender of a suspicious message (scamdefense only)")
	verbose := askFlags.Bool("verbose", false, "Print resolution metadata")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: chinchilla ask <category> [flags] <question>")
	}
	category := args[0]

	if err := askFlags.Parse(args[1:]); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}
	question := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	engine, err := a.Registry.Lookup(category)
	if err != nil {
		return fmt.Errorf("category %q: %w (available: %s)",
			category, err, strings.Join(a.Registry.Categories(), ", "))
	}

	req := agent.Request{
		Category: category,
		Query:    question,
		Sender:   *sender,
	}
	if *age > 0 || *gender != "" || *location != "" {
		req.Profile = &agent.Profile{Age: *age, Gender: *gender, Location: *location}
	}

	runCtx := ctx
	if cfg.Agent.RequestTimeoutSec > 0 {
		var runCancel context.CancelFunc
		runCtx, runCancel = context.WithTimeout(ctx, time.Duration(cfg.Agent.RequestTimeoutSec)*time.Second)
		defer runCancel()
	}

	resp, err := engine.Run(runCtx, req)
	if err != nil {
		return fmt.Errorf("resolving query: %w", err)
	}

	fmt.Println(resp.Answer)

	if *verbose {
		fmt.Println()
		fmt.Printf("rewritten query: %s\n", resp.Metadata.RewrittenQuery)
		fmt.Printf("filter level:    %d\n", resp.Metadata.FilterLevelReached)
		fmt.Printf("retries:         %d\n", resp.Metadata.RetryCount)
		if resp.Metadata.RiskTier != "" {
			fmt.Printf("risk tier:       %s\n", resp.Metadata.RiskTier)
		}
		fmt.Printf("trace:           %s\n", strings.Join(resp.Metadata.Trace, " > "))
		fmt.Printf("sources:         %d\n", len(resp.Sources))
	}

	return nil
}
