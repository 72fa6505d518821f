package index

import (
	"fmt"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qdrant"
)

// Index providers.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// New creates the configured index gateway.
//
// Providers:
//   - "chromem" (default): embedded store, no external services needed
//   - "qdrant": external Qdrant server over gRPC
//
// The collection name and upsert batch size come from cfg.Index; the vector
// dimension comes from cfg.Embedding so the index always matches the
// embedding provider.
func New(cfg *config.Config, logger *logging.Logger) (Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Index.Provider {
	case ProviderChromem, "":
		return NewChromemGateway(cfg.Index.Chromem, cfg.Index.Collection, cfg.Embedding.Dimension, logger)

	case ProviderQdrant:
		client, err := qdrant.NewGRPCClient(&qdrant.ClientConfig{
			Host:   cfg.Index.Qdrant.Host,
			Port:   cfg.Index.Qdrant.Port,
			UseTLS: cfg.Index.Qdrant.UseTLS,
			APIKey: cfg.Index.Qdrant.APIKey.Value(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return NewQdrantGateway(client, cfg.Index.Collection, cfg.Embedding.Dimension, cfg.Index.UpsertBatchSize, logger)

	default:
		return nil, fmt.Errorf("unsupported index provider: %s (supported: chromem, qdrant)", cfg.Index.Provider)
	}
}
