package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// subscribeBuffer bounds per-subscriber queues. A slow SSE client drops
// events rather than stalling the pipeline.
const subscribeBuffer = 16

// NATSPublisher publishes events over a NATS connection. When the connection
// targets an in-process server, Close shuts the server down too.
type NATSPublisher struct {
	conn     *nats.Conn
	logger   *logging.Logger
	embedded *EmbeddedServer
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect dials NATS at url and returns a publisher bound to it.
func Connect(url string, logger *logging.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	logger.Info(context.Background(), "connected to nats", zap.String("url", url))

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Started implements Publisher.
func (p *NATSPublisher) Started(documentID string) error {
	return p.publish(documentID, Event{
		DocumentID: documentID,
		Type:       EventStarted,
		Message:    "processing started",
		Timestamp:  time.Now(),
	})
}

// Progress implements Publisher.
func (p *NATSPublisher) Progress(documentID, stage string, percent int) error {
	return p.publish(documentID, Event{
		DocumentID: documentID,
		Type:       EventProgress,
		Stage:      stage,
		Percent:    percent,
		Timestamp:  time.Now(),
	})
}

// Completed implements Publisher.
func (p *NATSPublisher) Completed(documentID string) error {
	return p.publish(documentID, Event{
		DocumentID: documentID,
		Type:       EventCompleted,
		Message:    "processing completed",
		Timestamp:  time.Now(),
	})
}

// Failed implements Publisher.
func (p *NATSPublisher) Failed(documentID string, cause error) error {
	return p.publish(documentID, Event{
		DocumentID: documentID,
		Type:       EventFailed,
		Message:    cause.Error(),
		Timestamp:  time.Now(),
	})
}

func (p *NATSPublisher) publish(documentID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", ev.Type, err)
	}

	subject := fmt.Sprintf("documents.%s.%s", documentID, ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s event: %w", ev.Type, err)
	}
	return nil
}

// Subscribe implements Publisher. Events arrive in publish order; payloads
// that fail to decode are logged and skipped.
func (p *NATSPublisher) Subscribe(documentID string) (<-chan Event, func(), error) {
	subject := fmt.Sprintf("documents.%s.*", documentID)

	msgs := make(chan *nats.Msg, subscribeBuffer)
	sub, err := p.conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	out := make(chan Event, subscribeBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case msg := <-msgs:
				var ev Event
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					p.logger.Warn(context.Background(), "dropping undecodable event",
						zap.String("subject", msg.Subject),
						zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return out, cancel, nil
}

// Close implements Publisher.
func (p *NATSPublisher) Close() {
	p.conn.Close()
	if p.embedded != nil {
		p.embedded.Shutdown()
	}
}
