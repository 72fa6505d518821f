// Package http serves the docqad REST API: document upload and lifecycle,
// question answering, feedback, processing event streams, and Prometheus
// metrics.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/events"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qa"
)

// DocumentService is the document surface the API exposes.
// *document.Service satisfies it.
type DocumentService interface {
	Upload(ctx context.Context, filename string, data []byte) (*document.Document, error)
	Process(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context) ([]*document.Document, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// QAService is the question-answering surface the API exposes.
// *qa.Service satisfies it.
type QAService interface {
	Answer(ctx context.Context, question string, topK int) (*qa.Answer, error)
	SubmitFeedback(ctx context.Context, f *qa.Feedback) error
	History(ctx context.Context, limit, offset int) ([]*qa.Session, error)
	FeedbackHistory(ctx context.Context, limit, offset int) ([]*qa.Feedback, error)
	DeleteFeedback(ctx context.Context, sessionID string) error
}

// Enqueuer hands uploaded documents to the processing pool.
// *document.Queue satisfies it.
type Enqueuer interface {
	Submit(id string)
}

// ServerParams collects the collaborators a Server needs.
type ServerParams struct {
	Documents DocumentService
	Queue     Enqueuer
	QA        QAService
	Events    events.Publisher
	Logger    *logging.Logger
	Version   string
}

// Server is the docqad HTTP API.
type Server struct {
	echo    *echo.Echo
	docs    DocumentService
	queue   Enqueuer
	qa      QAService
	events  events.Publisher
	logger  *logging.Logger
	cfg     config.ServerConfig
	version string
}

// NewServer creates the API server. Every collaborator is required.
func NewServer(cfg config.ServerConfig, p ServerParams) (*Server, error) {
	switch {
	case p.Documents == nil:
		return nil, errors.New("document service is required")
	case p.Queue == nil:
		return nil, errors.New("processing queue is required")
	case p.QA == nil:
		return nil, errors.New("qa service is required")
	case p.Events == nil:
		return nil, errors.New("events publisher is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(requestLogger(p.Logger))
	e.Use(newHTTPMetrics(p.Logger).middleware())

	s := &Server{
		echo:    e,
		docs:    p.Documents,
		queue:   p.Queue,
		qa:      p.QA,
		events:  p.Events,
		logger:  p.Logger,
		cfg:     cfg,
		version: p.Version,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	v1.POST("/documents/upload", s.handleUpload)
	v1.POST("/documents/upload-sync", s.handleUploadSync)
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:id/status", s.handleDocumentStatus)
	v1.DELETE("/documents/:id", s.handleDeleteDocument)
	v1.GET("/documents/:id/events", s.handleDocumentEvents)

	v1.POST("/qa/ask", s.handleAsk)
	v1.GET("/qa/history", s.handleHistory)

	v1.POST("/feedback", s.handleSubmitFeedback)
	v1.GET("/feedback", s.handleFeedbackHistory)
	v1.DELETE("/feedback/:session_id", s.handleDeleteFeedback)
}

func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// carry the request id into the logging context for handlers
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			start := time.Now()
			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "Document QA API is running",
		APIName: "docqad",
		Version: s.version,
	})
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting http server",
		zap.String("addr", s.cfg.Addr()),
	)
	return s.echo.Start(s.cfg.Addr())
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
