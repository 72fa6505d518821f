package chunking

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fyrsmithlabs/docqad/internal/config"
)

// Splitting strategies.
const (
	StrategyRecursive  = "recursive"
	StrategyStructural = "structural"
)

// Chunker turns extracted text into token-bounded fragments.
type Chunker struct {
	codec     Codec
	strategy  string
	maxTokens int
	overlap   int
	splitter  textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker from config. The codec is required.
func NewChunker(cfg config.ChunkingConfig, codec Codec) (*Chunker, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max_tokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxTokens {
		// Overlap at or above the window size would never advance the window.
		return nil, fmt.Errorf("overlap must be in [0, max_tokens), got %d", cfg.Overlap)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", cfg.ChunkOverlap)
	}

	switch cfg.Strategy {
	case StrategyRecursive, StrategyStructural, "":
	default:
		return nil, fmt.Errorf("unsupported strategy: %s (supported: recursive, structural)", cfg.Strategy)
	}

	return &Chunker{
		codec:     codec,
		strategy:  cfg.Strategy,
		maxTokens: cfg.MaxTokens,
		overlap:   cfg.Overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
	}, nil
}

// Chunk splits text with the configured strategy, then re-slices any fragment
// over the token limit. Empty or whitespace-only input yields no fragments.
func (c *Chunker) Chunk(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var fragments []string
	switch c.strategy {
	case StrategyStructural:
		fragments = SplitHeadings(text)
	default: // recursive
		var err error
		fragments, err = c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("recursive split: %w", err)
		}
	}

	return EnforceTokenLimit(c.codec, fragments, c.maxTokens, c.overlap), nil
}

// EnforceTokenLimit re-slices fragments exceeding maxTokens into consecutive
// token windows of at most maxTokens, each starting overlap tokens before the
// previous window's end. Fragments at or under the limit pass through
// untouched. Requires overlap < maxTokens.
func EnforceTokenLimit(codec Codec, fragments []string, maxTokens, overlap int) []string {
	var out []string

	for _, fragment := range fragments {
		tokens := codec.Encode(fragment)
		if len(tokens) <= maxTokens {
			out = append(out, fragment)
			continue
		}

		start := 0
		for start < len(tokens) {
			end := start + maxTokens
			if end > len(tokens) {
				end = len(tokens)
			}
			out = append(out, codec.Decode(tokens[start:end]))
			if end == len(tokens) {
				break
			}
			start = end - overlap
			if start < 0 {
				start = 0
			}
		}
	}

	return out
}
