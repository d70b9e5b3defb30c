package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, w *Watcher, timeout time.Duration) []string {
	t.Helper()
	select {
	case batch := <-w.Batches():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestWatcherCoalescesRapidWrites(t *testing.T) {
	// Given a watched directory
	dir := t.TempDir()
	w, err := New(dir, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// When several files change in quick succession
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("y = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 3\n"), 0o644))

	// Then a single batch arrives with each path at most once
	batch := collectBatch(t, w, 3*time.Second)
	seen := make(map[string]int)
	for _, p := range batch {
		seen[filepath.Base(p)]++
	}
	assert.Equal(t, 1, seen["a.py"])
	assert.Equal(t, 1, seen["b.py"])
}

func TestWatcherIgnoresExcludedDirectories(t *testing.T) {
	// Given a tree with a dependency directory
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	w, err := New(dir, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// When a file changes inside node_modules and another at the root
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "dep.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\n"), 0o644))

	// Then only the root file appears in the batch
	batch := collectBatch(t, w, 3*time.Second)
	for _, p := range batch {
		assert.NotContains(t, p, "node_modules")
	}
}

func TestWatcherPicksUpNewSubdirectories(t *testing.T) {
	// Given a running watcher
	dir := t.TempDir()
	w, err := New(dir, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// When a new subdirectory is created and then written to
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	batch := collectBatch(t, w, 3*time.Second)
	assert.NotEmpty(t, batch)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "new.py"), []byte("z = 1\n"), 0o644))

	// Then the file inside the new directory is reported
	batch = collectBatch(t, w, 3*time.Second)
	found := false
	for _, p := range batch {
		if filepath.Base(p) == "new.py" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWatcherStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Batches is closed once Run returns
	_, open := <-w.Batches()
	assert.False(t, open)
}
