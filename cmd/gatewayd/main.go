// Package main provides the CLI entry point for the ollamageek gateway.
//
// ollamageek sits in front of a local Ollama-compatible backend,
// classifying every chat/generate request, selecting the best-fit model,
// assembling workspace context, and proxying the result while rewriting
// the model name in-flight. It also exposes a workflow orchestrator for
// AI-planned, multi-phase tool execution.
//
// # Basic Usage
//
// Start the gateway:
//
//	gatewayd serve --config gateway.yaml
//
// Validate a configuration file without starting the server:
//
//	gatewayd config validate --config gateway.yaml
//
// # Environment Variables
//
// Configuration can be provided via environment variables (spec §6):
//
//   - PORT: HTTP listen port (default 3003)
//   - OLLAMA_BASE_URL: backend base URL (default http://localhost:11434)
//   - REQUEST_TIMEOUT: upstream request timeout, in milliseconds
//   - SESSION_MAX_HISTORY: messages retained per session
//   - SESSION_TIMEOUT_MS: session eviction TTL, in milliseconds
//   - DEFAULT_MODEL / EMBEDDING_MODEL: model names
//   - LOG_REQUESTS / LOG_RESPONSES: verbose request/response logging
//   - ENABLE_AGENTIC_ORCHESTRATION: toggles the workflow orchestrator
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ollamageek/gateway/internal/backend"
	"github.com/ollamageek/gateway/internal/classify"
	"github.com/ollamageek/gateway/internal/config"
	"github.com/ollamageek/gateway/internal/httpapi"
	"github.com/ollamageek/gateway/internal/modelselect"
	"github.com/ollamageek/gateway/internal/sessionstore"
	"github.com/ollamageek/gateway/internal/smartcontext"
	"github.com/ollamageek/gateway/internal/streamproxy"
	"github.com/ollamageek/gateway/internal/toolexec"
	"github.com/ollamageek/gateway/internal/toolgen"
	"github.com/ollamageek/gateway/internal/unifiedchat"
	"github.com/ollamageek/gateway/internal/workflow"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gatewayd",
		Short:        "ollamageek - intelligent local-LLM gateway",
		Long:         "ollamageek sits in front of an Ollama-compatible backend, classifying, routing, and streaming chat/generate requests, and orchestrating multi-phase tool-execution workflows.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd(), buildConfigCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long: `Start the ollamageek gateway server.

The server will:
1. Load configuration from the specified file (or defaults + environment)
2. Wire the classifier, smart context manager, model selector, and streaming proxy
3. Start the session and workflow eviction sweepers
4. Serve the HTTP surface until a shutdown signal arrives

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting ollamageek gateway",
		"version", version,
		"commit", commit,
		"port", cfg.Port,
		"ollama_base_url", cfg.OllamaBaseURL,
		"default_model", cfg.DefaultModel,
		"agentic_orchestration", cfg.EnableAgenticOrchestration,
	)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	if configPath != "" {
		if watcher, err := config.NewWatcher(configPath, slog.Default(), func(reloaded config.Config) {
			slog.Warn("config file changed; restart the gateway to apply it", "port", reloaded.Port)
		}); err != nil {
			slog.Warn("config hot-reload disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	be := backend.New(backend.Config{
		BaseURL:           cfg.OllamaBaseURL,
		UserAgent:         "ollamageek-gateway/" + version,
		Timeout:           cfg.RequestTimeout,
		ClassificationRPS: 5,
	})

	sessions := sessionstore.New(cfg.SessionMaxHistory, cfg.SessionTimeout)
	sessionSweeper := sessionstore.StartSweeper(sessions, slog.Default())
	defer sessionSweeper.Stop()

	classifier := classify.New(be, cfg.EmbeddingModel, cfg.DefaultModel, slog.Default())
	ctxMgr := smartcontext.New(cwd, nil, slog.Default())
	selector := modelselect.New()
	proxy := streamproxy.New(be, sessions, classifier, ctxMgr, selector, slog.Default())

	engine := toolexec.New(cwd, ctxMgr, slog.Default())
	generator := toolgen.New(be, cfg.DefaultModel, slog.Default())

	workflowStore := workflow.NewStore(24 * time.Hour)
	workflowSweeper := workflow.StartSweeper(workflowStore, slog.Default())
	defer workflowSweeper.Stop()
	orchestrator := workflow.New(workflowStore, generator, engine, slog.Default())

	dispatcher := unifiedchat.New(generator, be, cfg.DefaultModel, slog.Default())

	server := httpapi.New(httpapi.Deps{
		Config:       cfg,
		Backend:      be,
		Sessions:     sessions,
		Context:      ctxMgr,
		Proxy:        proxy,
		Engine:       engine,
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Generator:    generator,
		Logger:       slog.Default(),
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Handler(),
	}

	serveErrs := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErrs:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	slog.Info("ollamageek gateway stopped gracefully")
	return nil
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gateway configuration",
	}
	cmd.AddCommand(buildConfigValidateCmd())
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load configuration and print the resolved values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "port:                   %d\n", cfg.Port)
			fmt.Fprintf(out, "ollama_base_url:        %s\n", cfg.OllamaBaseURL)
			fmt.Fprintf(out, "default_model:          %s\n", cfg.DefaultModel)
			fmt.Fprintf(out, "embedding_model:        %s\n", cfg.EmbeddingModel)
			fmt.Fprintf(out, "request_timeout:        %s\n", cfg.RequestTimeout)
			fmt.Fprintf(out, "classification_timeout: %s\n", cfg.ClassificationTimeout)
			fmt.Fprintf(out, "chat_timeout:           %s\n", cfg.ChatTimeout)
			fmt.Fprintf(out, "session_max_history:    %d\n", cfg.SessionMaxHistory)
			fmt.Fprintf(out, "session_timeout:        %s\n", cfg.SessionTimeout)
			fmt.Fprintf(out, "agentic_orchestration:  %t\n", cfg.EnableAgenticOrchestration)
			fmt.Fprintf(out, "production:             %t\n", cfg.Production)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}
