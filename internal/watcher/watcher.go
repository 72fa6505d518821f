// Package watcher ingests documents dropped into an inbox directory. New
// files with an allowed extension are uploaded, queued for processing, and
// moved into an ingested/ subdirectory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher could not be set up.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// ingestedDir is where successfully ingested files are moved, relative to
// the inbox.
const ingestedDir = "ingested"

// Ingester accepts dropped files as document uploads. *document.Service
// satisfies it.
type Ingester interface {
	Upload(ctx context.Context, filename string, data []byte) (*document.Document, error)
}

// Enqueuer hands uploaded documents to the processing pool.
// *document.Queue satisfies it.
type Enqueuer interface {
	Submit(id string)
}

// Watcher watches the inbox directory and ingests stable new files.
//
// Editors and copy tools emit bursts of write events while a file lands, so
// every event resets a per-file debounce timer; the file is only ingested
// once it has been quiet for the configured debounce window.
type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions map[string]struct{}
	ingester   Ingester
	queue      Enqueuer
	logger     *logging.Logger
	baseCtx    context.Context

	fsw  *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a stopped watcher for the configured inbox directory,
// creating the directory and its ingested/ subdirectory as needed. ctx is
// the daemon's base context; ingestion runs on it.
func New(ctx context.Context, cfg config.WatcherConfig, allowedExtensions []string, ingester Ingester, queue Enqueuer, logger *logging.Logger) (*Watcher, error) {
	if ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if queue == nil {
		return nil, errors.New("queue is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if cfg.Debounce.Duration() <= 0 {
		return nil, errors.New("debounce must be positive")
	}

	if err := os.MkdirAll(filepath.Join(cfg.Dir, ingestedDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating inbox directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", cfg.Dir, err)
	}

	extensions := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	return &Watcher{
		dir:        cfg.Dir,
		debounce:   cfg.Debounce.Duration(),
		extensions: extensions,
		ingester:   ingester,
		queue:      queue,
		logger:     logger,
		baseCtx:    ctx,
		fsw:        fsw,
		stop:       make(chan struct{}),
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
	w.logger.Info(w.baseCtx, "inbox watcher started",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce),
	)
}

// Stop shuts the watcher down, cancelling pending debounce timers. Files
// whose timers had not fired stay in the inbox and are picked up on the
// next start.
func (w *Watcher) Stop() {
	close(w.stop)
	_ = w.fsw.Close()

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info(w.baseCtx, "inbox watcher stopped")
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(w.baseCtx, "inbox watch error", zap.Error(err))
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a file.
func (w *Watcher) schedule(path string) {
	if _, ok := w.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

// ingest uploads one stable file and moves it out of the inbox. Validation
// failures and duplicates are logged and skipped; the file stays in place
// for the operator to inspect.
func (w *Watcher) ingest(path string) {
	select {
	case <-w.stop:
		return
	default:
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn(w.baseCtx, "reading inbox file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	filename := filepath.Base(path)
	doc, err := w.ingester.Upload(w.baseCtx, filename, data)
	if err != nil {
		w.logger.Warn(w.baseCtx, "skipping inbox file",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return
	}

	w.queue.Submit(doc.ID)

	// id prefix keeps re-drops of the same filename from colliding
	dest := filepath.Join(w.dir, ingestedDir, doc.ID+"_"+filename)
	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn(w.baseCtx, "moving ingested file",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	w.logger.Info(w.baseCtx, "ingested inbox file",
		zap.String("filename", filename),
		zap.String("document_id", doc.ID),
	)
}
