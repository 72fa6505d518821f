// Package events publishes document processing progress over NATS.
//
// Events are published to subjects:
//
//	documents.{document_id}.started
//	documents.{document_id}.progress
//	documents.{document_id}.completed
//	documents.{document_id}.failed
//
// The document pipeline publishes best-effort: a failed publish never fails
// processing. Subscribers (the SSE endpoint) receive decoded Event values.
package events

import (
	"errors"
	"time"
)

// ErrDisabled indicates event streaming is turned off by configuration.
var ErrDisabled = errors.New("events are disabled")

// Event types.
const (
	EventStarted   = "started"
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Processing stages reported by progress events.
const (
	StageExtracting = "extracting"
	StageChunking   = "chunking"
	StageEmbedding  = "embedding"
	StageIndexing   = "indexing"
)

// Event is the JSON payload published for every processing event.
type Event struct {
	DocumentID string    `json:"document_id"`
	Type       string    `json:"event"`
	Stage      string    `json:"stage,omitempty"`
	Percent    int       `json:"percent,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits processing events for one document at a time and lets
// consumers stream them back.
type Publisher interface {
	// Started signals that processing began.
	Started(documentID string) error

	// Progress reports a pipeline stage and its completion percent.
	Progress(documentID, stage string, percent int) error

	// Completed signals that processing finished successfully.
	Completed(documentID string) error

	// Failed signals that processing failed with the given cause.
	Failed(documentID string, cause error) error

	// Subscribe streams the document's events until the returned cancel
	// func runs. Returns ErrDisabled when streaming is off.
	Subscribe(documentID string) (<-chan Event, func(), error)

	// Close releases the transport.
	Close()
}

// NoopPublisher drops every event. Used when events are disabled.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

// NewNoopPublisher creates a publisher that drops everything.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Started implements Publisher.
func (*NoopPublisher) Started(string) error { return nil }

// Progress implements Publisher.
func (*NoopPublisher) Progress(string, string, int) error { return nil }

// Completed implements Publisher.
func (*NoopPublisher) Completed(string) error { return nil }

// Failed implements Publisher.
func (*NoopPublisher) Failed(string, error) error { return nil }

// Subscribe implements Publisher.
func (*NoopPublisher) Subscribe(string) (<-chan Event, func(), error) {
	return nil, nil, ErrDisabled
}

// Close implements Publisher.
func (*NoopPublisher) Close() {}
