// Parley is a daemon that simulates user-research interviews with AI-driven
// interviewer and interviewee personas and distills them into insights.
//
// Usage:
//
//	parley [flags]
//	parley --config /path/to/parley.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/averdin/parley/internal/analysis"
	"github.com/averdin/parley/internal/backend"
	"github.com/averdin/parley/internal/batch"
	"github.com/averdin/parley/internal/config"
	"github.com/averdin/parley/internal/health"
	"github.com/averdin/parley/internal/insights"
	"github.com/averdin/parley/internal/interview"
	"github.com/averdin/parley/internal/prompt"
	"github.com/averdin/parley/internal/server"
	"github.com/averdin/parley/internal/session"

	// Model backends register themselves on import.
	_ "github.com/averdin/parley/internal/backend/groq"
	_ "github.com/averdin/parley/internal/backend/ollama"
	_ "github.com/averdin/parley/internal/backend/openai"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/parley.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("parley %s\n", version)
		os.Exit(0)
	}

	// A .env file is optional; real deployments set env vars directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("parley starting", "version", version)

	// Root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Model backend.
	model, err := backend.New(cfg.Model)
	if err != nil {
		slog.Error("failed to initialize model backend", "error", err)
		os.Exit(1)
	}
	slog.Info("using model backend", "backend", model.Name())

	// Simulation components share one template store so runtime template
	// edits apply everywhere at once.
	templates := prompt.NewStore()
	engine := interview.NewEngine(model, templates)
	runner := interview.NewRunner(engine)
	summarizer := insights.NewSummarizer(model, templates)
	sessions := session.NewManager(engine, runner, summarizer, cfg.Simulation)
	analysisSvc := analysis.NewService(model, templates, analysis.Config{
		MaxRetries: cfg.Analysis.MaxRetries,
		RetryDelay: cfg.Analysis.RetryDelay,
	})
	generator := batch.NewGenerator(model, templates)

	// Health server on its own port.
	healthServer := health.New(cfg.Server.HealthPort, model.Name())
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	apiServer := server.New(cfg.Server.Port, sessions, analysisSvc, generator, templates)

	healthServer.SetReady(true)
	slog.Info("parley ready",
		"port", cfg.Server.Port,
		"health_port", cfg.Server.HealthPort,
		"backend", model.Name())

	if err := apiServer.ListenAndServe(ctx); err != nil {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("parley stopped")
}
