package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/blobstore"
	"github.com/fyrsmithlabs/docqad/internal/chunking"
	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/embedding"
	"github.com/fyrsmithlabs/docqad/internal/events"
	"github.com/fyrsmithlabs/docqad/internal/extraction"
	"github.com/fyrsmithlabs/docqad/internal/gate"
	"github.com/fyrsmithlabs/docqad/internal/index"
	"github.com/fyrsmithlabs/docqad/internal/llm"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/storage"
)

// deps holds the infrastructure the services are built on, in construction
// order. Close releases them in reverse.
type deps struct {
	store     *storage.Store
	blobs     blobstore.Store
	extractor extraction.Extractor
	chunker   *chunking.Chunker
	gate      *gate.Gate
	embedder  *embedding.Service
	llm       llm.Client
	index     index.Gateway
	events    events.Publisher
}

func initDeps(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*deps, error) {
	d := &deps{}

	store, err := storage.NewStore(cfg.Data.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	d.store = store

	blobs, err := blobstore.NewFSStore(cfg.Data.BlobDir())
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("opening blob store: %w", err)
	}
	d.blobs = blobs

	d.extractor = extraction.NewTextExtractor()

	codec, err := chunking.NewTiktokenCodec(cfg.Chunking.Encoding)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("loading token codec: %w", err)
	}
	chunker, err := chunking.NewChunker(cfg.Chunking, codec)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	d.chunker = chunker

	g, err := gate.New(cfg.Gate.Capacity)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating model gate: %w", err)
	}
	d.gate = g

	embClient, err := embedding.NewOpenAIClient(cfg.Embedding)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	embedder, err := embedding.NewService(cfg.Embedding, embClient, g, logger)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	d.embedder = embedder

	llmClient, err := llm.NewOpenAIClient(cfg.LLM, g, logger)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	d.llm = llmClient

	gw, err := index.New(cfg, logger)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating index gateway: %w", err)
	}
	d.index = gw

	pub, err := events.New(cfg.Events, logger)
	if err != nil {
		d.Close(logger)
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	d.events = pub

	return d, nil
}

// Close tears the dependency graph down in reverse construction order.
// Errors are logged rather than returned; shutdown keeps going.
func (d *deps) Close(logger *logging.Logger) {
	ctx := context.Background()
	if d.events != nil {
		d.events.Close()
	}
	if d.index != nil {
		if err := d.index.Close(); err != nil {
			logger.Warn(ctx, "closing index gateway", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logger.Warn(ctx, "closing storage", zap.Error(err))
		}
	}
}
