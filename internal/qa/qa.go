// Package qa answers natural-language questions against the indexed
// document corpus and records session history and feedback.
package qa

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidFeedback  = errors.New("invalid feedback")
	ErrNoContext        = errors.New("no relevant context found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
)

// Session is the history record for one answered question.
type Session struct {
	// ID is the unique session identifier (UUID), minted per question.
	ID string `json:"id"`

	// Question is the question as asked.
	Question string `json:"question"`

	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// CreatedAt is when the question was answered.
	CreatedAt time.Time `json:"created_at"`

	// DocumentIDs are the contributing document ids, deduplicated in
	// first-seen retrieval order.
	DocumentIDs []string `json:"document_ids"`

	// Confidence is the retrieval confidence score, nil when unknown.
	Confidence *float64 `json:"confidence,omitempty"`

	// FeedbackRating is the attached feedback rating, nil until feedback
	// is submitted and again after feedback deletion.
	FeedbackRating *int `json:"feedback_rating,omitempty"`
}

// Feedback is one user rating of an answer. Rows are append-only; deletion
// happens only per session id.
type Feedback struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	IsHelpful bool      `json:"is_helpful"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is one retrieved fragment backing an answer.
type Source struct {
	PointID      string  `json:"point_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

// Answer is the structured result of one question.
type Answer struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`

	// Sources are the retrieved fragments in search order.
	Sources []Source `json:"sources"`

	// Confidence is the arithmetic mean of the source similarity scores.
	Confidence float64 `json:"confidence"`

	// ProcessingTime is the end-to-end answer latency in seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// Store persists QA sessions and feedback.
type Store interface {
	// SaveSession inserts the session or updates it when the id exists.
	SaveSession(ctx context.Context, s *Session) error

	// GetSession retrieves a session by id. Misses return
	// ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns sessions newest first, offset rows in.
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)

	// AttachRating sets the feedback rating on a session. A missing
	// session is not an error; feedback outlives sessions.
	AttachRating(ctx context.Context, sessionID string, rating int) error

	// AddFeedback appends a feedback row.
	AddFeedback(ctx context.Context, f *Feedback) error

	// ListFeedback returns feedback rows newest first, offset rows in.
	ListFeedback(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// DeleteFeedback removes all feedback rows for the session and
	// detaches the session's rating. No feedback rows returns
	// ErrFeedbackNotFound.
	DeleteFeedback(ctx context.Context, sessionID string) error
}
