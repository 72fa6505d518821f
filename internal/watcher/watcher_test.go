package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

type fakeIngester struct {
	mu        sync.Mutex
	uploads   []string
	uploadErr error
}

func (f *fakeIngester) Upload(_ context.Context, filename string, _ []byte) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return &document.Document{ID: fmt.Sprintf("doc-%d", len(f.uploads)), Filename: filename}, nil
}

func (f *fakeIngester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeQueue struct {
	mu        sync.Mutex
	submitted []string
}

func (f *fakeQueue) Submit(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, id)
}

func (f *fakeQueue) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func newTestWatcher(t *testing.T) (*Watcher, string, *fakeIngester, *fakeQueue) {
	t.Helper()

	dir := t.TempDir()
	ingester := &fakeIngester{}
	queue := &fakeQueue{}

	w, err := New(
		context.Background(),
		config.WatcherConfig{Enabled: true, Dir: dir, Debounce: config.Duration(30 * time.Millisecond)},
		[]string{".txt", ".md"},
		ingester,
		queue,
		logging.NewTestLogger().Logger,
	)
	require.NoError(t, err)
	return w, dir, ingester, queue
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(context.Background(), config.WatcherConfig{Dir: t.TempDir(), Debounce: config.Duration(time.Second)}, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestNew_CreatesIngestedDir(t *testing.T) {
	_, dir, _, _ := newTestWatcher(t)

	info, err := os.Stat(filepath.Join(dir, ingestedDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	w, dir, ingester, queue := newTestWatcher(t)
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("dropped content"), 0o644))

	require.Eventually(t, func() bool {
		return ingester.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"doc-1"}, queue.ids())

	// original moved out of the inbox
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	moved, err := filepath.Glob(filepath.Join(dir, ingestedDir, "*_notes.txt"))
	require.NoError(t, err)
	assert.Len(t, moved, 1)
}

func TestWatcher_IgnoresDisallowedExtensions(t *testing.T) {
	w, dir, ingester, _ := newTestWatcher(t)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, ingester.count())
}

func TestWatcher_SkipsFailedUploads(t *testing.T) {
	w, dir, ingester, queue := newTestWatcher(t)
	ingester.uploadErr = document.ErrDuplicateFilename
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "dupe.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, queue.ids())

	// the file stays in the inbox for inspection
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	w, dir, ingester, _ := newTestWatcher(t)
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "slow.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chunk\n")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return ingester.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	// the burst of writes produced exactly one ingest
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ingester.count())
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	w, dir, ingester, _ := newTestWatcher(t)
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("content"), 0o644))
	w.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, ingester.count())
}
