package document

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// Queue feeds uploaded documents to a fixed pool of processing workers.
//
// Submit blocks while the buffer is full, so backpressure reaches the
// uploader instead of silently dropping work. Workers process with the
// daemon's base context: a finished HTTP request never cancels processing,
// and daemon shutdown cancels everything in flight (which lands those
// documents in the error state, retryable via a fresh Process).
type Queue struct {
	service *Service
	logger  *logging.Logger
	baseCtx context.Context
	ids     chan string
	workers int
	wg      sync.WaitGroup
}

// NewQueue creates a stopped queue. ctx is the daemon's base context.
func NewQueue(ctx context.Context, cfg config.ProcessingConfig, service *Service, logger *logging.Logger) (*Queue, error) {
	if service == nil {
		return nil, errors.New("document service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("at least one worker is required")
	}
	if cfg.QueueSize <= 0 {
		return nil, errors.New("queue size must be positive")
	}

	return &Queue{
		service: service,
		logger:  logger,
		baseCtx: ctx,
		ids:     make(chan string, cfg.QueueSize),
		workers: cfg.Workers,
	}, nil
}

// Start launches the worker pool.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(n int) {
			defer q.wg.Done()
			q.run(n)
		}(i)
	}
	q.logger.Info(q.baseCtx, "processing queue started",
		zap.Int("workers", q.workers),
		zap.Int("queue_size", cap(q.ids)),
	)
}

// Submit hands a document to the worker pool, blocking while the buffer is
// full. Callers must stop submitting before Stop runs; the daemon shuts the
// HTTP server down first.
func (q *Queue) Submit(id string) {
	q.ids <- id
}

// Stop closes intake, drains the buffer, and waits for the workers. Work
// still queued is processed before Stop returns; with the base context
// cancelled those runs fail fast and the documents stay retryable.
func (q *Queue) Stop() {
	close(q.ids)
	q.wg.Wait()
	q.logger.Info(q.baseCtx, "processing queue stopped")
}

func (q *Queue) run(n int) {
	for id := range q.ids {
		q.logger.Debug(q.baseCtx, "worker picked up document",
			zap.Int("worker", n),
			zap.String("document_id", id),
		)
		if err := q.service.Process(q.baseCtx, id); err != nil {
			q.logger.Warn(q.baseCtx, "processing job failed",
				zap.Int("worker", n),
				zap.String("document_id", id),
				zap.Error(err),
			)
			continue
		}
		q.logger.Debug(q.baseCtx, "processing job done",
			zap.Int("worker", n),
			zap.String("document_id", id),
		)
	}
}
