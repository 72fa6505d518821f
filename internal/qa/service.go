package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/index"
	"github.com/fyrsmithlabs/docqad/internal/llm"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

var tracer = otel.Tracer("docqad.qa")

const systemPrompt = "You are a helpful assistant that answers questions based on provided documents."

const userPromptFormat = "Question: %s\n\nContext:\n%s\n\nPlease provide a concise answer based on the context.\nIf the context is insufficient, state that you cannot answer."

// Feedback ratings are a 1-5 scale.
const (
	minRating = 1
	maxRating = 5
)

// QueryEmbedder embeds a single query string. *embedding.Service satisfies
// it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ServiceParams collects the collaborators a Service needs.
type ServiceParams struct {
	Store    Store
	Embedder QueryEmbedder
	Index    index.Gateway
	LLM      llm.Client
	Logger   *logging.Logger
}

// Service answers questions over the indexed corpus and manages session
// history and feedback.
type Service struct {
	store       Store
	embedder    QueryEmbedder
	index       index.Gateway
	llm         llm.Client
	logger      *logging.Logger
	topK        int
	maxQuestion int
	historyLim  int
}

// NewService creates a QA service. Every collaborator is required.
func NewService(cfg config.QAConfig, p ServiceParams) (*Service, error) {
	switch {
	case p.Store == nil:
		return nil, errors.New("qa store is required")
	case p.Embedder == nil:
		return nil, errors.New("query embedder is required")
	case p.Index == nil:
		return nil, errors.New("index gateway is required")
	case p.LLM == nil:
		return nil, errors.New("llm client is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", cfg.TopK)
	}
	if cfg.MaxQuestionLength <= 0 {
		return nil, fmt.Errorf("max_question_length must be positive, got %d", cfg.MaxQuestionLength)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("history_limit must be positive, got %d", cfg.HistoryLimit)
	}

	return &Service{
		store:       p.Store,
		embedder:    p.Embedder,
		index:       p.Index,
		llm:         p.LLM,
		logger:      p.Logger,
		topK:        cfg.TopK,
		maxQuestion: cfg.MaxQuestionLength,
		historyLim:  cfg.HistoryLimit,
	}, nil
}

// Answer answers one question against the indexed corpus: embed the
// question, retrieve the topK closest fragments, generate exactly one
// completion over them, and record the session. topK <= 0 uses the
// configured default. Zero retrieved fragments is ErrNoContext.
func (s *Service) Answer(ctx context.Context, question string, topK int) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "qa.answer")
	defer span.End()

	if err := s.validateQuestion(question); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.topK
	}
	span.SetAttributes(attribute.Int("qa.top_k", topK))

	start := time.Now()
	sessionID := uuid.New().String()

	sources, err := s.Search(ctx, question, topK)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w for question", ErrNoContext)
	}

	answer, err := s.llm.Complete(ctx, systemPrompt, buildUserPrompt(question, sources))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	confidence := meanScore(sources)
	session := &Session{
		ID:          sessionID,
		Question:    question,
		Answer:      answer,
		CreatedAt:   time.Now().UTC(),
		DocumentIDs: dedupeDocumentIDs(sources),
		Confidence:  &confidence,
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	questionsTotal.Inc()
	s.logger.Info(ctx, "question answered",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(sources)),
		zap.Float64("confidence", confidence),
	)

	return &Answer{
		SessionID:      sessionID,
		Question:       question,
		Answer:         answer,
		Sources:        sources,
		Confidence:     confidence,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

// Search retrieves the topK fragments closest to the query without invoking
// the language model. Used by Answer and exposed for the MCP search tool.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Source, error) {
	ctx, span := tracer.Start(ctx, "qa.search")
	defer span.End()

	if err := s.validateQuestion(query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.topK
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, topK)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("searching index: %w", err)
	}

	sources := make([]Source, len(hits))
	for i, hit := range hits {
		sources[i] = Source{
			PointID:      hit.PointID,
			DocumentID:   hit.DocumentID,
			DocumentName: hit.DocumentFilename,
			Content:      hit.Content,
			Score:        hit.Score,
		}
	}
	return sources, nil
}

// SubmitFeedback records a rating for an answered question. Feedback does
// not require the session to exist; when it does, the rating is attached to
// the session row as well.
func (s *Service) SubmitFeedback(ctx context.Context, f *Feedback) error {
	ctx, span := tracer.Start(ctx, "qa.submit_feedback")
	defer span.End()

	if f == nil {
		return fmt.Errorf("%w: feedback is required", ErrInvalidFeedback)
	}
	if strings.TrimSpace(f.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidFeedback)
	}
	if f.Rating < minRating || f.Rating > maxRating {
		return fmt.Errorf("%w: rating must be between %d and %d, got %d",
			ErrInvalidFeedback, minRating, maxRating, f.Rating)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	if err := s.store.AddFeedback(ctx, f); err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	if err := s.store.AttachRating(ctx, f.SessionID, f.Rating); err != nil {
		return fmt.Errorf("attaching rating: %w", err)
	}

	feedbackTotal.Inc()
	s.logger.Info(ctx, "feedback submitted",
		zap.String("session_id", f.SessionID),
		zap.Int("rating", f.Rating),
	)
	return nil
}

// History lists answered sessions, newest first. limit <= 0 uses the
// configured default; a negative offset reads from the start.
func (s *Service) History(ctx context.Context, limit, offset int) ([]*Session, error) {
	limit, offset = s.normalizePage(limit, offset)
	sessions, err := s.store.ListSessions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// FeedbackHistory lists feedback rows, newest first.
func (s *Service) FeedbackHistory(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	limit, offset = s.normalizePage(limit, offset)
	feedback, err := s.store.ListFeedback(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return feedback, nil
}

// DeleteFeedback removes a session's feedback and detaches its rating. The
// session itself survives.
func (s *Service) DeleteFeedback(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "qa.delete_feedback")
	defer span.End()

	if err := s.store.DeleteFeedback(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info(ctx, "feedback deleted", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidQuestion)
	}
	if n := len([]rune(question)); n > s.maxQuestion {
		return fmt.Errorf("%w: question length %d exceeds maximum %d",
			ErrInvalidQuestion, n, s.maxQuestion)
	}
	return nil
}

func (s *Service) normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.historyLim
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// buildUserPrompt assembles the retrieval context: one line per fragment,
// labeled with its document and point ids, under the question.
func buildUserPrompt(question string, sources []Source) string {
	lines := make([]string, len(sources))
	for i, src := range sources {
		lines[i] = fmt.Sprintf("Document ID: %s, Chunk ID: %s, Text: %s",
			src.DocumentID, src.PointID, src.Content)
	}
	return fmt.Sprintf(userPromptFormat, question, strings.Join(lines, "\n"))
}

// meanScore is the arithmetic mean of the source similarity scores.
func meanScore(sources []Source) float64 {
	var sum float64
	for _, src := range sources {
		sum += float64(src.Score)
	}
	return sum / float64(len(sources))
}

// dedupeDocumentIDs returns the contributing document ids in first-seen
// order.
func dedupeDocumentIDs(sources []Source) []string {
	seen := make(map[string]struct{}, len(sources))
	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, ok := seen[src.DocumentID]; ok {
			continue
		}
		seen[src.DocumentID] = struct{}{}
		ids = append(ids, src.DocumentID)
	}
	return ids
}
