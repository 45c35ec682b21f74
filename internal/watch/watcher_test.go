package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"keeptree/internal/collection"
	"keeptree/internal/manifest"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sample = ". 930625b054ce894ac40596c3f5a0d947+33 0:33:output.txt\n"

// recorder parses what it receives, like the catalog does.
type recorder struct {
	mu    sync.Mutex
	texts map[string]string
	names map[string]string
}

func newRecorder() *recorder {
	return &recorder{texts: map[string]string{}, names: map[string]string{}}
}

func (r *recorder) Sync(source, name, text string) (*collection.Collection, bool, error) {
	if _, err := manifest.Parse(text); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.texts[source] != text
	r.texts[source] = text
	r.names[source] = name
	return &collection.Collection{ID: source, Name: name, Version: 1}, changed, nil
}

func (r *recorder) text(source string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.texts[source]
	return t, ok
}

func writeFile(t *testing.T, path, text string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestName(t *testing.T) {
	assert.Equal(t, "sample", Name("/data/sample.manifest"))
	assert.True(t, IsManifest("a/b.manifest"))
	assert.False(t, IsManifest("a/b.txt"))
}

func TestNew_RequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.manifest")
	writeFile(t, file, sample)

	_, err := New(file, newRecorder(), nil)
	assert.ErrorContains(t, err, "not a directory")

	_, err = New(filepath.Join(dir, "missing"), newRecorder(), nil)
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.manifest"), sample)
	writeFile(t, filepath.Join(dir, "nested", "two.manifest"), sample)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".keeptree", "three.manifest"), sample)
	writeFile(t, filepath.Join(dir, "bad.manifest"), "broken\n")

	core, logs := observer.New(zap.WarnLevel)
	rec := newRecorder()
	w, err := New(dir, rec, zap.New(core))
	require.NoError(t, err)
	defer w.Close()

	synced, err := w.Scan()
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	_, ok := rec.text(filepath.Join(w.Root, "one.manifest"))
	assert.True(t, ok)
	_, ok = rec.text(filepath.Join(w.Root, "nested", "two.manifest"))
	assert.True(t, ok)
	_, ok = rec.text(filepath.Join(w.Root, ".keeptree", "three.manifest"))
	assert.False(t, ok)

	entries := logs.FilterMessage("syncing manifest").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["line"])
}

func TestRun_SyncsNewAndChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.manifest"), sample)
	rec := newRecorder()
	w, err := New(dir, rec, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The seed is synced by the initial scan, after the root is watched.
	assert.Eventually(t, func() bool {
		_, ok := rec.text(filepath.Join(w.Root, "seed.manifest"))
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	path := filepath.Join(w.Root, "live.manifest")
	writeFile(t, path, sample)

	assert.Eventually(t, func() bool {
		got, ok := rec.text(path)
		return ok && got == sample
	}, 5*time.Second, 20*time.Millisecond)

	// A broken write does not stop the loop.
	writeFile(t, path, "broken\n")
	updated := sample + "./sub d41d8cd98f00b204e9800998ecf8427e+0 0:0:empty\n"
	writeFile(t, path, updated)

	assert.Eventually(t, func() bool {
		got, _ := rec.text(path)
		return got == updated
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestHandleEvent_NewDirectoryIsScanned(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(dir, rec, nil)
	require.NoError(t, err)
	defer w.Close()

	// Written before the directory's create event is handled.
	sub := filepath.Join(w.Root, "batch")
	first := filepath.Join(sub, "one.manifest")
	nested := filepath.Join(sub, "deeper", "two.manifest")
	writeFile(t, first, sample)
	writeFile(t, nested, sample)

	w.handleEvent(fsnotify.Event{Name: sub, Op: fsnotify.Create})

	got, ok := rec.text(first)
	assert.True(t, ok)
	assert.Equal(t, sample, got)
	_, ok = rec.text(nested)
	assert.True(t, ok)
	assert.Contains(t, w.watcher.WatchList(), filepath.Join(sub, "deeper"))
}
