// internal/watch/watcher.go
package watch

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"keeptree/internal/collection"
	"keeptree/internal/manifest"
	"keeptree/internal/metrics"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Ext marks the files a Watcher picks up.
const Ext = ".manifest"

// Syncer receives manifest text read from a watched file.
type Syncer interface {
	Sync(source, name, text string) (*collection.Collection, bool, error)
}

// Watcher keeps a catalog in step with the *.manifest files under a
// directory tree.
type Watcher struct {
	Root       string
	syncer     Syncer
	watcher    *fsnotify.Watcher
	ignoreDirs map[string]bool
	logger     *zap.Logger
	mu         sync.Mutex
}

// New creates a Watcher over root. Nothing is read until Scan or Run.
func New(root string, syncer Syncer, logger *zap.Logger) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("accessing watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		Root:    absRoot,
		syncer:  syncer,
		watcher: fw,
		ignoreDirs: map[string]bool{
			".git":      true,
			".keeptree": true,
		},
		logger: logger,
	}, nil
}

// Scan registers every directory under Root with the watcher and syncs
// the manifest files found. Failures on individual files are logged and
// counted; the scan continues.
func (w *Watcher) Scan() (synced int, err error) {
	return w.scanDir(w.Root)
}

func (w *Watcher) scanDir(dir string) (synced int, err error) {
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.Root && w.ShouldIgnore(path) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("adding directory to watcher: %w", err)
			}
			return nil
		}
		if !IsManifest(path) {
			return nil
		}
		if w.syncFile(path) {
			synced++
		}
		return nil
	})
	if err != nil {
		return synced, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return synced, nil
}

// Run scans Root and then processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	synced, err := w.Scan()
	if err != nil {
		return err
	}
	w.logger.Info("watching manifests",
		zap.String("dir", w.Root),
		zap.Int("synced", synced),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.ShouldIgnore(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Files may land before the watch is registered.
			if _, err := w.scanDir(event.Name); err != nil {
				w.logger.Error("scanning new directory",
					zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !IsManifest(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.syncFile(event.Name)
	}
}

// syncFile reads path and hands its text to the syncer.
func (w *Watcher) syncFile(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	text, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordWatchEvent(false)
		w.logger.Warn("reading manifest", zap.String("path", path), zap.Error(err))
		return false
	}

	coll, changed, err := w.syncer.Sync(path, Name(path), string(text))
	metrics.RecordWatchEvent(err == nil)
	if err != nil {
		fields := []zap.Field{zap.String("path", path), zap.Error(err)}
		var perr *manifest.ParseError
		if stderrors.As(err, &perr) {
			fields = append(fields, zap.Int("line", perr.Line), zap.String("reason", perr.Reason))
		}
		w.logger.Warn("syncing manifest", fields...)
		return false
	}
	if changed {
		w.logger.Info("synced manifest",
			zap.String("path", path),
			zap.String("id", coll.ID),
			zap.Int("version", coll.Version),
		)
	}
	return true
}

// ShouldIgnore reports whether path lies in an ignored directory.
func (w *Watcher) ShouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignoreDirs[part] {
			return true
		}
	}
	return false
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// IsManifest reports whether path names a manifest file.
func IsManifest(path string) bool {
	return filepath.Ext(path) == Ext
}

// Name is the collection name for a manifest file: its base name
// without the extension.
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}
