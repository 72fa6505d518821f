// Docqad is a document question-answering daemon.
//
// It ingests text documents, splits them into token-bounded fragments,
// embeds them into a vector index, and answers natural-language questions
// against them with retrieval-augmented generation.
//
// Usage:
//
//	# Start the HTTP API with defaults (data under ~/.docqad)
//	docqad
//
//	# Explicit config file
//	docqad --config /etc/docqad/config.yaml
//
//	# Serve tools over MCP stdio instead of HTTP
//	docqad --mcp
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/http"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/mcp"
	"github.com/fyrsmithlabs/docqad/internal/qa"
	"github.com/fyrsmithlabs/docqad/internal/telemetry"
	"github.com/fyrsmithlabs/docqad/internal/watcher"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/docqad/config.yaml)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	mcpMode := flag.Bool("mcp", false, "serve tools over MCP stdio instead of HTTP")
	flag.Parse()

	if *showVersion {
		fmt.Printf("docqad\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *mcpMode); err != nil {
		log.Fatalf("docqad: %v", err)
	}
}

// run wires configuration, logging, telemetry, and the service graph, then
// serves until ctx is cancelled. Shutdown tears the graph down in reverse
// order of construction.
func run(ctx context.Context, configPath string, mcpMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("preparing data directory: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		// Shutdown applies its own configured timeout.
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting docqad",
		zap.String("version", version),
		zap.String("data_dir", cfg.Data.Dir),
		zap.String("index_provider", cfg.Index.Provider),
	)

	deps, err := initDeps(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close(logger)

	docSvc, err := document.NewService(cfg.Documents, document.ServiceParams{
		Store:     deps.store.DocumentStore(),
		Blobs:     deps.blobs,
		Extractor: deps.extractor,
		Chunker:   deps.chunker,
		Embedder:  deps.embedder,
		Index:     deps.index,
		Events:    deps.events,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating document service: %w", err)
	}

	queue, err := document.NewQueue(ctx, cfg.Processing, docSvc, logger)
	if err != nil {
		return fmt.Errorf("creating processing queue: %w", err)
	}
	queue.Start()
	defer queue.Stop()

	qaSvc, err := qa.NewService(cfg.QA, qa.ServiceParams{
		Store:    deps.store.QAStore(),
		Embedder: deps.embedder,
		Index:    deps.index,
		LLM:      deps.llm,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating qa service: %w", err)
	}

	if cfg.Watcher.Enabled {
		w, err := watcher.New(ctx, cfg.Watcher, cfg.Documents.AllowedExtensions, docSvc, queue, logger)
		if err != nil {
			return fmt.Errorf("creating inbox watcher: %w", err)
		}
		w.Start()
		defer w.Stop()
	}

	if mcpMode {
		srv, err := mcp.NewServer(mcp.ServerParams{
			Documents: docSvc,
			QA:        qaSvc,
			Logger:    logger,
			Version:   version,
		})
		if err != nil {
			return fmt.Errorf("creating mcp server: %w", err)
		}
		return srv.Run(ctx)
	}

	srv, err := http.NewServer(cfg.Server, http.ServerParams{
		Documents: docSvc,
		Queue:     queue,
		QA:        qaSvc,
		Events:    deps.events,
		Logger:    logger,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown", zap.Error(err))
	}

	logger.Info(ctx, "docqad stopped")
	return nil
}
