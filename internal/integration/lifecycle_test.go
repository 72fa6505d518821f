// Package integration exercises the full document lifecycle against real
// storage components: SQLite metadata, filesystem blobs, and an embedded
// chromem vector index. Only the model calls (embedding, completion) are
// faked, with deterministic vectors so retrieval order is predictable.
package integration

import (
	"context"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/blobstore"
	"github.com/fyrsmithlabs/docqad/internal/chunking"
	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/events"
	"github.com/fyrsmithlabs/docqad/internal/extraction"
	"github.com/fyrsmithlabs/docqad/internal/index"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qa"
	"github.com/fyrsmithlabs/docqad/internal/storage"
)

const embeddingDimension = 16

// wordEmbedder maps each lowercase word to a dimension bucket via FNV and
// normalizes the counts, so cosine similarity tracks word overlap.
type wordEmbedder struct{}

func embedText(text string) []float32 {
	vec := make([]float32, embeddingDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,!?")))
		vec[h.Sum32()%embeddingDimension]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (wordEmbedder) EmbedFragments(_ context.Context, fragments []string) ([][]float32, error) {
	vectors := make([][]float32, len(fragments))
	for i, f := range fragments {
		vectors[i] = embedText(f)
	}
	return vectors, nil
}

func (wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

// scriptedLLM returns a canned answer and records the prompts it saw.
type scriptedLLM struct {
	answer     string
	lastSystem string
	lastUser   string
}

func (l *scriptedLLM) Complete(_ context.Context, system, user string) (string, error) {
	l.lastSystem = system
	l.lastUser = user
	return l.answer, nil
}

// runeCodec counts every rune as one token.
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

func (c runeCodec) Count(text string) int { return len([]rune(text)) }

type pipeline struct {
	docs  *document.Service
	qa    *qa.Service
	llm   *scriptedLLM
	index index.Gateway
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewTestLogger().Logger

	store, err := storage.NewStore(filepath.Join(dir, "docqad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	chunker, err := chunking.NewChunker(config.ChunkingConfig{
		Strategy:     chunking.StrategyRecursive,
		Encoding:     "cl100k_base",
		MaxTokens:    200,
		Overlap:      20,
		ChunkSize:    200,
		ChunkOverlap: 20,
	}, runeCodec{})
	require.NoError(t, err)

	gateway, err := index.NewChromemGateway(config.ChromemConfig{
		Path: filepath.Join(dir, "chromem"),
	}, "documents", embeddingDimension, logger)
	require.NoError(t, err)
	t.Cleanup(func() { gateway.Close() })

	llmClient := &scriptedLLM{answer: "Gophers dig burrows in sandy soil."}

	docs, err := document.NewService(config.DocumentsConfig{
		AllowedExtensions: []string{".txt", ".md"},
	}, document.ServiceParams{
		Store:     store.DocumentStore(),
		Blobs:     blobs,
		Extractor: extraction.NewTextExtractor(),
		Chunker:   chunker,
		Embedder:  wordEmbedder{},
		Index:     gateway,
		Events:    events.NewNoopPublisher(),
		Logger:    logger,
	})
	require.NoError(t, err)

	answerer, err := qa.NewService(config.QAConfig{
		TopK:              5,
		MaxQuestionLength: 1000,
		HistoryLimit:      50,
	}, qa.ServiceParams{
		Store:    store.QAStore(),
		Embedder: wordEmbedder{},
		Index:    gateway,
		LLM:      llmClient,
		Logger:   logger,
	})
	require.NoError(t, err)

	return &pipeline{docs: docs, qa: answerer, llm: llmClient, index: gateway}
}

func TestDocumentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	p := newPipeline(t)
	ctx := context.Background()

	gopherText := "Gophers dig extensive burrows in sandy soil. " +
		"A gopher burrow can stretch for many meters underground."
	turtleText := "Sea turtles nest on warm beaches at night. " +
		"Turtle hatchlings navigate toward the brightest horizon."

	gopherDoc, err := p.docs.Upload(ctx, "gophers.txt", []byte(gopherText))
	require.NoError(t, err)
	assert.Equal(t, document.StatusUploaded, gopherDoc.Status)

	turtleDoc, err := p.docs.Upload(ctx, "turtles.txt", []byte(turtleText))
	require.NoError(t, err)

	require.NoError(t, p.docs.Process(ctx, gopherDoc.ID))
	require.NoError(t, p.docs.Process(ctx, turtleDoc.ID))

	gopherDoc, err = p.docs.Get(ctx, gopherDoc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusProcessed, gopherDoc.Status)
	assert.NotNil(t, gopherDoc.ProcessedTime)

	answer, err := p.qa.Answer(ctx, "Where do gophers dig their burrows?", 3)
	require.NoError(t, err)
	assert.Equal(t, "Gophers dig burrows in sandy soil.", answer.Answer)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, gopherDoc.ID, answer.Sources[0].DocumentID,
		"the gopher document should be the closest match")
	assert.Contains(t, p.llm.lastUser, "Where do gophers dig their burrows?")
	assert.Greater(t, answer.Confidence, 0.0)
	assert.NotEmpty(t, answer.SessionID)

	history, err := p.qa.History(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, answer.SessionID, history[0].ID)

	require.NoError(t, p.qa.SubmitFeedback(ctx, &qa.Feedback{
		SessionID: answer.SessionID,
		Question:  answer.Question,
		Answer:    answer.Answer,
		Rating:    5,
		IsHelpful: true,
	}))
	history, err = p.qa.History(ctx, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, history[0].FeedbackRating)
	assert.Equal(t, 5, *history[0].FeedbackRating)
}

func TestDeleteRemovesIndexedFragments(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	p := newPipeline(t)
	ctx := context.Background()

	doc, err := p.docs.Upload(ctx, "notes.txt", []byte("Rockets burn liquid oxygen during ascent."))
	require.NoError(t, err)
	require.NoError(t, p.docs.Process(ctx, doc.ID))

	answer, err := p.qa.Answer(ctx, "What do rockets burn during ascent?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, answer.Sources)

	deleted, err := p.docs.Delete(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = p.qa.Answer(ctx, "What do rockets burn during ascent?", 3)
	require.ErrorIs(t, err, qa.ErrNoContext)
}

func TestDuplicateFilenameRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.docs.Upload(ctx, "same.txt", []byte("first"))
	require.NoError(t, err)

	_, err = p.docs.Upload(ctx, "same.txt", []byte("second"))
	require.ErrorIs(t, err, document.ErrDuplicateFilename)
}
