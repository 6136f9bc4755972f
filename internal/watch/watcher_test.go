package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) handle(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *batchRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.batches))
	copy(out, r.batches)
	return out
}

func startWatcher(t *testing.T, dir string, rec *batchRecorder) *PhotoWatcher {
	t.Helper()
	w, err := NewPhotoWatcher(dir, rec.handle)
	require.NoError(t, err)
	w.debounceDur = 300 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func waitForBatches(t *testing.T, rec *batchRecorder, n int) [][]string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := rec.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d batch(es), got %d", n, len(rec.snapshot()))
	return nil
}

func TestBatchesMultiplePhotosTogether(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, dir, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0644))

	batches := waitForBatches(t, rec, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, filepath.Join(dir, "a.png"), batches[0][0])
	assert.Equal(t, filepath.Join(dir, "b.jpg"), batches[0][1])
}

func TestIgnoresNonImageFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{}
	startWatcher(t, dir, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foto.png"), []byte("x"), 0644))

	batches := waitForBatches(t, rec, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, filepath.Join(dir, "foto.png"), batches[0][0])
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	rec := &batchRecorder{}
	w := startWatcher(t, dir, rec)

	w.Stop()
	w.Stop()
}
