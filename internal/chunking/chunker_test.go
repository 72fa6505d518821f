package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/config"
)

// runeCodec treats every rune as one token. Deterministic and exactly
// reversible, so tests can place window boundaries by hand.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeCodec) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func (c runeCodec) Count(text string) int {
	return len(c.Encode(text))
}

func testChunkingConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		Strategy:     StrategyRecursive,
		Encoding:     "cl100k_base",
		MaxTokens:    2000,
		Overlap:      50,
		ChunkSize:    2000,
		ChunkOverlap: 200,
	}
}

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		codec   Codec
		mutate  func(*config.ChunkingConfig)
		wantErr string
	}{
		{
			name:    "nil codec",
			codec:   nil,
			mutate:  func(*config.ChunkingConfig) {},
			wantErr: "codec is required",
		},
		{
			name:    "zero max tokens",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.MaxTokens = 0 },
			wantErr: "max_tokens must be positive",
		},
		{
			name:    "overlap equal to max tokens",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.MaxTokens = 50; c.Overlap = 50 },
			wantErr: "overlap must be in [0, max_tokens)",
		},
		{
			name:    "negative overlap",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.Overlap = -1 },
			wantErr: "overlap must be in [0, max_tokens)",
		},
		{
			name:    "zero chunk size",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.ChunkSize = 0 },
			wantErr: "chunk_size must be positive",
		},
		{
			name:    "chunk overlap at chunk size",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.ChunkSize = 100; c.ChunkOverlap = 100 },
			wantErr: "chunk_overlap must be in [0, chunk_size)",
		},
		{
			name:    "unknown strategy",
			codec:   runeCodec{},
			mutate:  func(c *config.ChunkingConfig) { c.Strategy = "semantic" },
			wantErr: "unsupported strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testChunkingConfig()
			tt.mutate(&cfg)

			chunker, err := NewChunker(cfg, tt.codec)
			require.Error(t, err)
			assert.Nil(t, chunker)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnforceTokenLimit(t *testing.T) {
	codec := runeCodec{}

	t.Run("under limit passes through untouched", func(t *testing.T) {
		got := EnforceTokenLimit(codec, []string{"short"}, 10, 2)
		assert.Equal(t, []string{"short"}, got)
	})

	t.Run("exactly at limit is not split", func(t *testing.T) {
		got := EnforceTokenLimit(codec, []string{"abcd"}, 4, 1)
		assert.Equal(t, []string{"abcd"}, got)
	})

	t.Run("oversized fragment becomes overlapping windows", func(t *testing.T) {
		// 10 tokens, window 4, overlap 1: [0:4) [3:7) [6:10)
		got := EnforceTokenLimit(codec, []string{"abcdefghij"}, 4, 1)
		assert.Equal(t, []string{"abcd", "defg", "ghij"}, got)
	})

	t.Run("zero overlap tiles the fragment", func(t *testing.T) {
		got := EnforceTokenLimit(codec, []string{"abcdefgh"}, 3, 0)
		assert.Equal(t, []string{"abc", "def", "gh"}, got)
	})

	t.Run("no window exceeds the limit", func(t *testing.T) {
		long := strings.Repeat("x", 997)
		got := EnforceTokenLimit(codec, []string{long}, 100, 20)
		require.NotEmpty(t, got)
		for i, window := range got {
			assert.LessOrEqual(t, codec.Count(window), 100, "window %d", i)
		}
		// Final window ends exactly at the fragment end.
		last := got[len(got)-1]
		assert.True(t, strings.HasSuffix(long, last))
	})

	t.Run("mixed fragments only slice the oversized one", func(t *testing.T) {
		got := EnforceTokenLimit(codec, []string{"ok", "abcdefghij", "fine"}, 5, 0)
		assert.Equal(t, []string{"ok", "abcde", "fghij", "fine"}, got)
	})
}

func TestChunker_Chunk_EmptyInput(t *testing.T) {
	chunker, err := NewChunker(testChunkingConfig(), runeCodec{})
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		got, err := chunker.Chunk(text)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestChunker_Chunk_Structural(t *testing.T) {
	cfg := testChunkingConfig()
	cfg.Strategy = StrategyStructural
	chunker, err := NewChunker(cfg, runeCodec{})
	require.NoError(t, err)

	got, err := chunker.Chunk("1. First\nalpha\n2. Second\nbeta")
	require.NoError(t, err)
	assert.Equal(t, []string{"1. First\nalpha", "2. Second\nbeta"}, got)
}

func TestChunker_Chunk_StructuralEnforcesTokenLimit(t *testing.T) {
	cfg := testChunkingConfig()
	cfg.Strategy = StrategyStructural
	cfg.MaxTokens = 10
	cfg.Overlap = 2
	chunker, err := NewChunker(cfg, runeCodec{})
	require.NoError(t, err)

	section := "1. " + strings.Repeat("a", 40)
	got, err := chunker.Chunk(section)
	require.NoError(t, err)
	require.Greater(t, len(got), 1, "oversized section must be windowed")
	for i, fragment := range got {
		assert.LessOrEqual(t, runeCodec{}.Count(fragment), 10, "fragment %d", i)
	}
}

func TestChunker_Chunk_Recursive(t *testing.T) {
	cfg := testChunkingConfig()
	cfg.ChunkSize = 50
	cfg.ChunkOverlap = 10
	chunker, err := NewChunker(cfg, runeCodec{})
	require.NoError(t, err)

	paragraphs := make([]string, 8)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 10)
	}
	text := strings.Join(paragraphs, "\n\n")

	got, err := chunker.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(got), 1, "long text must produce multiple fragments")
	for i, fragment := range got {
		assert.NotEmpty(t, strings.TrimSpace(fragment), "fragment %d", i)
	}
}

func TestNewTiktokenCodec_UnknownEncoding(t *testing.T) {
	codec, err := NewTiktokenCodec("no-such-encoding")
	require.Error(t, err)
	assert.Nil(t, codec)
}
