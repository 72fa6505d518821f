// Package embedding generates vector embeddings for document fragments and
// queries through an OpenAI-compatible API.
//
// Requests are sliced into fixed-size batches and issued sequentially; every
// outbound call holds a slot on the shared gate so embedding traffic and LLM
// traffic are bounded together. Any batch failure fails the whole call, so a
// document is either fully embedded or not at all.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/gate"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates the provider rejected or failed a batch.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrCountMismatch indicates the provider returned a different number of
	// vectors than texts requested, which would break fragment-vector pairing.
	ErrCountMismatch = errors.New("embedding count mismatch")
)

var tracer = otel.Tracer("docqad.embedding")

// Client produces embedding vectors for a slice of texts. langchaingo's
// *openai.LLM satisfies it; tests substitute deterministic fakes.
type Client interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewOpenAIClient creates an embedding client for OpenAI or any compatible
// endpoint (TEI, LocalAI, ...).
func NewOpenAIClient(cfg config.EmbeddingConfig) (*openai.LLM, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base_url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token even for endpoints that ignore it
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return llm, nil
}

// Service batches embedding requests against a Client.
type Service struct {
	client    Client
	gate      *gate.Gate
	logger    *logging.Logger
	batchSize int
	dimension int
}

// NewService creates an embedding service.
func NewService(cfg config.EmbeddingConfig, client Client, g *gate.Gate, logger *logging.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("embedding client is required")
	}
	if g == nil {
		return nil, errors.New("gate is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}

	return &Service{
		client:    client,
		gate:      g,
		logger:    logger,
		batchSize: cfg.BatchSize,
		dimension: cfg.Dimension,
	}, nil
}

// EmbedFragments embeds fragments in sequential batches, preserving order.
//
// The returned slice pairs index-for-index with the input. Any batch failure
// fails the whole call; partial results are never returned.
func (s *Service) EmbedFragments(ctx context.Context, fragments []string) ([][]float32, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: no fragments", ErrEmptyInput)
	}

	ctx, span := tracer.Start(ctx, "embedding.embed_fragments")
	defer span.End()
	span.SetAttributes(attribute.Int("fragments.count", len(fragments)))

	vectors := make([][]float32, 0, len(fragments))
	for start := 0; start < len(fragments); start += s.batchSize {
		end := start + s.batchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[start:end]

		batchVectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("batch [%d:%d): %w", start, end, err)
		}

		s.logger.Debug(ctx, "embedded fragment batch",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)),
		)
		vectors = append(vectors, batchVectors...)
	}

	s.logger.Info(ctx, "embedded fragments",
		zap.Int("fragments", len(fragments)),
		zap.Int("batch_size", s.batchSize),
	)
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrEmptyInput)
	}

	ctx, span := tracer.Start(ctx, "embedding.embed_query")
	defer span.End()

	vectors, err := s.embedBatch(ctx, []string{text})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch issues one gated provider call and verifies the response count.
func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.gate.Release()

	vectors, err := s.client.CreateEmbedding(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrCountMismatch, len(batch), len(vectors))
	}
	return vectors, nil
}

// Dimension returns the configured embedding dimensionality.
func (s *Service) Dimension() int {
	return s.dimension
}
