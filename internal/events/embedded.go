package events

import (
	"context"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// EmbeddedServer runs an in-process NATS server on a random loopback port.
// It keeps single-binary deployments free of an external broker.
type EmbeddedServer struct {
	srv *natsserver.Server
}

// StartEmbeddedServer boots the server and waits until it accepts
// connections.
func StartEmbeddedServer() (*EmbeddedServer, error) {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // random available port
		NoLog:  true,
		NoSigs: true,
	}

	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating embedded nats server: %w", err)
	}

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded nats server did not become ready")
	}

	return &EmbeddedServer{srv: srv}, nil
}

// ClientURL returns the URL clients should dial.
func (s *EmbeddedServer) ClientURL() string {
	return s.srv.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.srv.Shutdown()
	s.srv.WaitForShutdown()
}

// New builds the publisher selected by cfg. The embedded mode starts an
// in-process server whose lifetime is tied to the returned publisher's Close.
func New(cfg config.EventsConfig, logger *logging.Logger) (Publisher, error) {
	switch cfg.Publisher {
	case config.EventsDisabled:
		return NewNoopPublisher(), nil

	case config.EventsEmbedded:
		srv, err := StartEmbeddedServer()
		if err != nil {
			return nil, err
		}
		logger.Info(context.Background(), "embedded nats server started",
			zap.String("url", srv.ClientURL()))

		pub, err := Connect(srv.ClientURL(), logger)
		if err != nil {
			srv.Shutdown()
			return nil, err
		}
		pub.embedded = srv
		return pub, nil

	case config.EventsExternal:
		return Connect(cfg.URL, logger)

	default:
		return nil, fmt.Errorf("unsupported events publisher: %q", cfg.Publisher)
	}
}
