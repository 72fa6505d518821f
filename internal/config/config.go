// Package config provides configuration loading for docqad.
//
// Configuration is assembled from three layers, lowest precedence first:
// hardcoded defaults, a YAML config file, and DOCQAD_* environment
// variables. Every section carries koanf tags and is validated as a whole
// after loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/telemetry"
)

// Config holds the complete docqad configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Data       DataConfig       `koanf:"data"`
	Documents  DocumentsConfig  `koanf:"documents"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	LLM        LLMConfig        `koanf:"llm"`
	Gate       GateConfig       `koanf:"gate"`
	Index      IndexConfig      `koanf:"index"`
	QA         QAConfig         `koanf:"qa"`
	Processing ProcessingConfig `koanf:"processing"`
	Events     EventsConfig     `koanf:"events"`
	Watcher    WatcherConfig    `koanf:"watcher"`
	Logging    logging.Config   `koanf:"logging"`
	Telemetry  telemetry.Config `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	CORSOrigins     []string `koanf:"cors_origins"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DataConfig holds the root directory for all local state
// (SQLite database, blob store, embedded vector store, watch inbox).
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// DatabasePath returns the SQLite database file path.
func (c DataConfig) DatabasePath() string {
	return filepath.Join(c.Dir, "docqad.db")
}

// BlobDir returns the blob store root directory.
func (c DataConfig) BlobDir() string {
	return filepath.Join(c.Dir, "blobs")
}

// DocumentsConfig holds upload validation settings.
type DocumentsConfig struct {
	AllowedExtensions []string `koanf:"allowed_extensions"`
}

// ChunkingConfig holds text splitting settings.
type ChunkingConfig struct {
	Strategy     string `koanf:"strategy"`
	Encoding     string `koanf:"encoding"`
	MaxTokens    int    `koanf:"max_tokens"`
	Overlap      int    `koanf:"overlap"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	APIKey    Secret `koanf:"api_key"`
	Dimension int    `koanf:"dimension"`
	BatchSize int    `koanf:"batch_size"`
}

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	BaseURL           string   `koanf:"base_url"`
	Model             string   `koanf:"model"`
	APIKey            Secret   `koanf:"api_key"`
	MaxRetries        int      `koanf:"max_retries"`
	Timeout           Duration `koanf:"timeout"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Burst             int      `koanf:"burst"`
}

// GateConfig bounds concurrent outbound model calls (embedding + LLM).
type GateConfig struct {
	Capacity int64 `koanf:"capacity"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Provider        string        `koanf:"provider"`
	Collection      string        `koanf:"collection"`
	UpsertBatchSize int           `koanf:"upsert_batch_size"`
	Qdrant          QdrantConfig  `koanf:"qdrant"`
	Chromem         ChromemConfig `koanf:"chromem"`
}

// QdrantConfig holds connection settings for an external Qdrant server.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
	APIKey Secret `koanf:"api_key"`
}

// ChromemConfig holds settings for the embedded chromem store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QAConfig holds question answering settings.
type QAConfig struct {
	TopK              int `koanf:"top_k"`
	MaxQuestionLength int `koanf:"max_question_length"`
	HistoryLimit      int `koanf:"history_limit"`
}

// ProcessingConfig holds the document processing queue settings.
type ProcessingConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// Event publisher modes.
const (
	EventsEmbedded = "embedded" // in-process NATS server
	EventsExternal = "external" // connect to events.url
	EventsDisabled = "disabled" // no-op publisher
)

// EventsConfig holds processing progress event settings.
type EventsConfig struct {
	Publisher string `koanf:"publisher"`
	URL       string `koanf:"url"`
}

// WatcherConfig holds inbox auto-ingest settings.
type WatcherConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Dir      string   `koanf:"dir"`
	Debounce Duration `koanf:"debounce"`
}

// DefaultConfig returns the full default configuration tree.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Data: DataConfig{
			Dir: "~/.docqad",
		},
		Documents: DocumentsConfig{
			AllowedExtensions: []string{".txt", ".md", ".markdown"},
		},
		Chunking: ChunkingConfig{
			Strategy:     "recursive",
			Encoding:     "cl100k_base",
			MaxTokens:    2000,
			Overlap:      50,
			ChunkSize:    2000,
			ChunkOverlap: 200,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-ada-002",
			Dimension: 1536,
			BatchSize: 16,
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.x.ai/v1",
			Model:             "grok-3-mini",
			MaxRetries:        3,
			Timeout:           Duration(60 * time.Second),
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Gate: GateConfig{
			Capacity: 2,
		},
		Index: IndexConfig{
			Provider:        "chromem",
			Collection:      "documents",
			UpsertBatchSize: 200,
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
			Chromem: ChromemConfig{
				Compress: true,
			},
		},
		QA: QAConfig{
			TopK:              5,
			MaxQuestionLength: 1000,
			HistoryLimit:      10,
		},
		Processing: ProcessingConfig{
			Workers:   2,
			QueueSize: 256,
		},
		Events: EventsConfig{
			Publisher: EventsEmbedded,
		},
		Watcher: WatcherConfig{
			Enabled:  false,
			Debounce: Duration(2 * time.Second),
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig and expands
// the data directory. Paths derived from data.dir (chromem store, watch
// inbox) are only computed when not set explicitly.
func (c *Config) ApplyDefaults() error {
	def := DefaultConfig()

	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = def.Server.CORSOrigins
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	if c.Data.Dir == "" {
		c.Data.Dir = def.Data.Dir
	}
	expanded, err := ExpandPath(c.Data.Dir)
	if err != nil {
		return fmt.Errorf("failed to expand data dir %s: %w", c.Data.Dir, err)
	}
	c.Data.Dir = expanded

	if len(c.Documents.AllowedExtensions) == 0 {
		c.Documents.AllowedExtensions = def.Documents.AllowedExtensions
	}

	if c.Chunking.Strategy == "" {
		c.Chunking.Strategy = def.Chunking.Strategy
	}
	if c.Chunking.Encoding == "" {
		c.Chunking.Encoding = def.Chunking.Encoding
	}
	if c.Chunking.MaxTokens == 0 {
		c.Chunking.MaxTokens = def.Chunking.MaxTokens
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = def.Chunking.Overlap
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = def.Chunking.ChunkSize
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = def.Chunking.ChunkOverlap
	}

	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = def.Embedding.BaseURL
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Embedding.Model
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = def.Embedding.Dimension
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = def.Embedding.BatchSize
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = def.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = def.LLM.MaxRetries
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}
	if c.LLM.RequestsPerSecond == 0 {
		c.LLM.RequestsPerSecond = def.LLM.RequestsPerSecond
	}
	if c.LLM.Burst == 0 {
		c.LLM.Burst = def.LLM.Burst
	}

	if c.Gate.Capacity == 0 {
		c.Gate.Capacity = def.Gate.Capacity
	}

	if c.Index.Provider == "" {
		c.Index.Provider = def.Index.Provider
	}
	if c.Index.Collection == "" {
		c.Index.Collection = def.Index.Collection
	}
	if c.Index.UpsertBatchSize == 0 {
		c.Index.UpsertBatchSize = def.Index.UpsertBatchSize
	}
	if c.Index.Qdrant.Host == "" {
		c.Index.Qdrant.Host = def.Index.Qdrant.Host
	}
	if c.Index.Qdrant.Port == 0 {
		c.Index.Qdrant.Port = def.Index.Qdrant.Port
	}
	if c.Index.Chromem.Path == "" {
		c.Index.Chromem.Path = filepath.Join(c.Data.Dir, "vectorstore")
	}

	if c.QA.TopK == 0 {
		c.QA.TopK = def.QA.TopK
	}
	if c.QA.MaxQuestionLength == 0 {
		c.QA.MaxQuestionLength = def.QA.MaxQuestionLength
	}
	if c.QA.HistoryLimit == 0 {
		c.QA.HistoryLimit = def.QA.HistoryLimit
	}

	if c.Processing.Workers == 0 {
		c.Processing.Workers = def.Processing.Workers
	}
	if c.Processing.QueueSize == 0 {
		c.Processing.QueueSize = def.Processing.QueueSize
	}

	if c.Events.Publisher == "" {
		c.Events.Publisher = def.Events.Publisher
	}

	if c.Watcher.Dir == "" {
		c.Watcher.Dir = filepath.Join(c.Data.Dir, "inbox")
	}
	if c.Watcher.Debounce == 0 {
		c.Watcher.Debounce = def.Watcher.Debounce
	}

	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if !c.Logging.Output.Stdout && !c.Logging.Output.OTEL {
		c.Logging.Output.Stdout = true
	}
	if c.Logging.Stacktrace.Level == 0 {
		c.Logging.Stacktrace.Level = def.Logging.Stacktrace.Level
	}
	if len(c.Logging.Fields) == 0 {
		c.Logging.Fields = def.Logging.Fields
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = def.Telemetry.ServiceVersion
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
	if c.Telemetry.Sampling.Rate == 0 {
		c.Telemetry.Sampling.Rate = def.Telemetry.Sampling.Rate
	}
	if c.Telemetry.Metrics.ExportInterval == 0 {
		c.Telemetry.Metrics.ExportInterval = def.Telemetry.Metrics.ExportInterval
	}
	if c.Telemetry.Shutdown.Timeout == 0 {
		c.Telemetry.Shutdown.Timeout = def.Telemetry.Shutdown.Timeout
	}

	return nil
}

// Validate checks the configuration tree for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown_timeout must be positive")
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data dir is required")
	}

	for _, ext := range c.Documents.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension must start with '.': %q", ext)
		}
	}

	switch c.Chunking.Strategy {
	case "recursive", "structural":
	default:
		return fmt.Errorf("chunking strategy must be 'recursive' or 'structural', got %q", c.Chunking.Strategy)
	}
	if c.Chunking.Encoding == "" {
		return fmt.Errorf("chunking encoding is required")
	}
	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("chunking max_tokens must be positive, got %d", c.Chunking.MaxTokens)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking overlap must be >= 0, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking overlap (%d) must be smaller than max_tokens (%d)", c.Chunking.Overlap, c.Chunking.MaxTokens)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}

	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding base_url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive, got %d", c.Embedding.BatchSize)
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerSecond <= 0 {
		return fmt.Errorf("llm requests_per_second must be positive, got %f", c.LLM.RequestsPerSecond)
	}

	if c.Gate.Capacity < 1 {
		return fmt.Errorf("gate capacity must be >= 1, got %d", c.Gate.Capacity)
	}

	switch c.Index.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("index provider must be 'chromem' or 'qdrant', got %q", c.Index.Provider)
	}
	if c.Index.Collection == "" {
		return fmt.Errorf("index collection is required")
	}
	if c.Index.UpsertBatchSize < 1 {
		return fmt.Errorf("index upsert_batch_size must be >= 1, got %d", c.Index.UpsertBatchSize)
	}
	if c.Index.Provider == "qdrant" {
		if c.Index.Qdrant.Host == "" {
			return fmt.Errorf("index qdrant host is required")
		}
		if c.Index.Qdrant.Port < 1 || c.Index.Qdrant.Port > 65535 {
			return fmt.Errorf("invalid qdrant port: %d", c.Index.Qdrant.Port)
		}
	}
	if c.Index.Provider == "chromem" && c.Index.Chromem.Path == "" {
		return fmt.Errorf("index chromem path is required")
	}

	if c.QA.TopK < 1 {
		return fmt.Errorf("qa top_k must be >= 1, got %d", c.QA.TopK)
	}
	if c.QA.MaxQuestionLength < 1 {
		return fmt.Errorf("qa max_question_length must be >= 1, got %d", c.QA.MaxQuestionLength)
	}
	if c.QA.HistoryLimit < 1 {
		return fmt.Errorf("qa history_limit must be >= 1, got %d", c.QA.HistoryLimit)
	}

	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing workers must be >= 1, got %d", c.Processing.Workers)
	}
	if c.Processing.QueueSize < 1 {
		return fmt.Errorf("processing queue_size must be >= 1, got %d", c.Processing.QueueSize)
	}

	switch c.Events.Publisher {
	case EventsEmbedded, EventsDisabled:
	case EventsExternal:
		if c.Events.URL == "" {
			return fmt.Errorf("events url is required when publisher is %q", EventsExternal)
		}
	default:
		return fmt.Errorf("events publisher must be one of embedded, external, disabled; got %q", c.Events.Publisher)
	}

	if c.Watcher.Enabled {
		if c.Watcher.Dir == "" {
			return fmt.Errorf("watcher dir is required when watcher is enabled")
		}
		if c.Watcher.Debounce.Duration() <= 0 {
			return fmt.Errorf("watcher debounce must be positive")
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
