// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/pkg/types"
)

type countingIngester struct {
	mu    sync.Mutex
	calls int
	dirs  []string
}

func (c *countingIngester) Ingest(_ context.Context, dir string) acquire.IngestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.dirs = append(c.dirs, dir)
	return acquire.IngestResult{Dir: dir}
}

func (c *countingIngester) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func start(t *testing.T, dir string, debounce time.Duration) (*countingIngester, chan struct{}, context.CancelFunc, <-chan error) {
	t.Helper()
	ing := &countingIngester{}
	w := New(ing, types.AcquisitionConfig{PDFDir: dir}, debounce, zerolog.Nop())

	passes := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(acquire.IngestResult) { passes <- struct{}{} })
	}()
	t.Cleanup(cancel)
	return ing, passes, cancel, done
}

func waitPass(t *testing.T, passes <-chan struct{}) {
	t.Helper()
	select {
	case <-passes:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingestion pass")
	}
}

func TestRunInitialPassAndDebounce(t *testing.T) {
	dir := t.TempDir()
	ing, passes, cancel, done := start(t, dir, 100*time.Millisecond)

	waitPass(t, passes)
	assert.Equal(t, 1, ing.count())

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}
	waitPass(t, passes)

	// A burst of events collapses into one pass.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, ing.count())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{dir, dir}, ing.dirs)
}

func TestRunIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	ing, passes, cancel, done := start(t, dir, 50*time.Millisecond)
	waitPass(t, passes)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, ing.count())

	cancel()
	require.NoError(t, <-done)
}

func TestRunCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdfs")
	_, passes, cancel, done := start(t, dir, 50*time.Millisecond)
	waitPass(t, passes)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	cancel()
	require.NoError(t, <-done)
}

func TestRelevant(t *testing.T) {
	w := New(&countingIngester{}, types.AcquisitionConfig{Extensions: []string{".pdf", ".epub"}}, 0, zerolog.Nop())
	assert.Equal(t, defaultDebounce, w.debounce)

	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/d/a.epub", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/d/a.pdf", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/d/a.PDF", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.ev), "%s %s", tt.ev.Op, tt.ev.Name)
	}
}
