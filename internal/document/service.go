package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/blobstore"
	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/events"
	"github.com/fyrsmithlabs/docqad/internal/extraction"
	"github.com/fyrsmithlabs/docqad/internal/index"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

var tracer = otel.Tracer("docqad.document")

const (
	previewLimit  = 1000
	previewMarker = " ... (more content available)"
)

// Chunker splits extracted text into fragments. *chunking.Chunker satisfies
// it.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Embedder produces one vector per fragment. *embedding.Service satisfies it.
type Embedder interface {
	EmbedFragments(ctx context.Context, fragments []string) ([][]float32, error)
}

// ServiceParams collects the collaborators a Service needs.
type ServiceParams struct {
	Store     Store
	Blobs     blobstore.Store
	Extractor extraction.Extractor
	Chunker   Chunker
	Embedder  Embedder
	Index     index.Gateway
	Events    events.Publisher
	Logger    *logging.Logger
}

// Service runs the document lifecycle: upload validation, the
// extract/chunk/embed/index pipeline, and deletion across the blob store,
// the vector index, and the metadata store.
type Service struct {
	store      Store
	blobs      blobstore.Store
	extractor  extraction.Extractor
	chunker    Chunker
	embedder   Embedder
	index      index.Gateway
	events     events.Publisher
	logger     *logging.Logger
	extensions map[string]struct{}
}

// NewService creates a document service. Every collaborator is required.
func NewService(cfg config.DocumentsConfig, p ServiceParams) (*Service, error) {
	switch {
	case p.Store == nil:
		return nil, errors.New("document store is required")
	case p.Blobs == nil:
		return nil, errors.New("blob store is required")
	case p.Extractor == nil:
		return nil, errors.New("extractor is required")
	case p.Chunker == nil:
		return nil, errors.New("chunker is required")
	case p.Embedder == nil:
		return nil, errors.New("embedder is required")
	case p.Index == nil:
		return nil, errors.New("index gateway is required")
	case p.Events == nil:
		return nil, errors.New("events publisher is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	if len(cfg.AllowedExtensions) == 0 {
		return nil, errors.New("at least one allowed extension is required")
	}

	extensions := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	return &Service{
		store:      p.Store,
		blobs:      p.Blobs,
		extractor:  p.Extractor,
		chunker:    p.Chunker,
		embedder:   p.Embedder,
		index:      p.Index,
		events:     p.Events,
		logger:     p.Logger,
		extensions: extensions,
	}, nil
}

// Upload validates and stores a new document. The bytes land in the blob
// store and the row is persisted as uploaded; processing happens separately.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*Document, error) {
	ctx, span := tracer.Start(ctx, "document.upload")
	defer span.End()
	span.SetAttributes(attribute.String("document.filename", filename))

	if err := s.validateUpload(filename, data); err != nil {
		return nil, err
	}

	duplicate, err := s.CheckDuplicateFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFilename, filename)
	}

	doc := &Document{
		ID:         uuid.New().String(),
		Filename:   filename,
		Status:     StatusUploaded,
		UploadTime: time.Now().UTC(),
		Size:       int64(len(data)),
	}

	locator, err := s.blobs.Put(ctx, blobKey(doc), data)
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	doc.Locator = locator

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	uploadsTotal.Inc()
	s.logger.Info(ctx, "document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int64("size_bytes", doc.Size),
	)
	return doc, nil
}

// CheckDuplicateFilename reports whether any document already carries the
// filename. Always a fresh store query.
func (s *Service) CheckDuplicateFilename(ctx context.Context, filename string) (bool, error) {
	count, err := s.store.CountByFilename(ctx, filename)
	if err != nil {
		return false, fmt.Errorf("counting documents by filename: %w", err)
	}
	return count > 0, nil
}

// Process runs the pipeline for an uploaded document: extract, chunk, embed,
// index. Any failure after the processing transition, including context
// cancellation, drives the document to the error state. Progress events are
// best-effort and never fail processing.
func (s *Service) Process(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "document.process")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	doc.Status = StatusProcessing
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("marking document processing: %w", err)
	}

	s.publish(ctx, func() error { return s.events.Started(id) })

	if err := s.runPipeline(ctx, doc); err != nil {
		span.RecordError(err)
		s.fail(ctx, doc, err)
		return err
	}
	return nil
}

func (s *Service) runPipeline(ctx context.Context, doc *Document) error {
	s.progress(ctx, doc.ID, events.StageExtracting, 10)
	data, err := s.blobs.Get(ctx, blobKey(doc))
	if err != nil {
		return fmt.Errorf("loading blob: %w", err)
	}
	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	s.progress(ctx, doc.ID, events.StageChunking, 30)
	fragments, err := s.chunker.Chunk(text)
	if err != nil {
		return fmt.Errorf("chunking text: %w", err)
	}
	if len(fragments) == 0 {
		return errors.New("chunking produced no fragments")
	}

	s.progress(ctx, doc.ID, events.StageEmbedding, 60)
	vectors, err := s.embedder.EmbedFragments(ctx, fragments)
	if err != nil {
		return fmt.Errorf("embedding fragments: %w", err)
	}

	s.progress(ctx, doc.ID, events.StageIndexing, 85)
	if err := s.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	if _, err := s.index.Upsert(ctx, doc.ID, doc.Filename, fragments, vectors); err != nil {
		return fmt.Errorf("indexing fragments: %w", err)
	}

	now := time.Now().UTC()
	doc.Status = StatusProcessed
	doc.ProcessedTime = &now
	doc.Preview = buildPreview(fragments)
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("marking document processed: %w", err)
	}

	processedTotal.Inc()
	s.publish(ctx, func() error { return s.events.Completed(doc.ID) })
	s.logger.Info(ctx, "document processed",
		zap.String("document_id", doc.ID),
		zap.Int("fragments", len(fragments)),
	)
	return nil
}

// fail drives the document to the error state. The status write runs on a
// context detached from the caller's cancellation so a cancelled pipeline
// still lands in error instead of sticking in processing.
func (s *Service) fail(ctx context.Context, doc *Document, cause error) {
	failuresTotal.Inc()
	s.logger.Error(ctx, "document processing failed",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Error(cause),
	)
	s.publish(ctx, func() error { return s.events.Failed(doc.ID, cause) })

	doc.Status = StatusError
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Save(saveCtx, doc); err != nil {
		s.logger.Error(ctx, "recording error status",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}

// Delete removes a document everywhere it lives. Blob and index failures are
// logged and swallowed; the metadata row is the source of truth and always
// goes. Returns false when the document is unknown.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "document.delete")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		s.logger.Warn(ctx, "removing document from index",
			zap.String("document_id", id),
			zap.Error(err),
		)
	}
	if err := s.blobs.Delete(ctx, blobKey(doc)); err != nil {
		s.logger.Warn(ctx, "removing document blob",
			zap.String("document_id", id),
			zap.Error(err),
		)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}

	s.logger.Info(ctx, "document deleted",
		zap.String("document_id", id),
		zap.String("filename", doc.Filename),
	)
	return true, nil
}

// Get returns one document by id.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.store.Get(ctx, id)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]*Document, error) {
	return s.store.List(ctx)
}

func (s *Service) validateUpload(filename string, data []byte) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidUpload)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := s.extensions[ext]; !ok {
		return fmt.Errorf("%w: unsupported file type %q", ErrInvalidUpload, ext)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	return nil
}

// publish sends one event, logging failures. Event delivery never fails
// processing.
func (s *Service) publish(ctx context.Context, send func() error) {
	if err := send(); err != nil {
		s.logger.Warn(ctx, "publishing processing event", zap.Error(err))
	}
}

func (s *Service) progress(ctx context.Context, id, stage string, percent int) {
	s.publish(ctx, func() error { return s.events.Progress(id, stage, percent) })
}

// blobKey derives the blob store key for a document: its id plus the
// original filename's extension.
func blobKey(doc *Document) string {
	return doc.ID + strings.ToLower(filepath.Ext(doc.Filename))
}

// buildPreview returns the first fragment capped at previewLimit characters,
// marked when further fragments exist.
func buildPreview(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	preview := fragments[0]
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}
	if len(fragments) > 1 {
		preview += previewMarker
	}
	return preview
}
