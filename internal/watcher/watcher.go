// Package watcher watches a workspace directory tree for file changes
// and invalidates the tool-result cache for whatever URI changed.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// defaultIgnoreDirs are never descended into or watched.
var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
}

// Invalidator is the narrow interface the watcher needs from the tool
// registry: drop cached results keyed to a file:// URI.
type Invalidator interface {
	InvalidateFile(uri string)
}

// ChangeNotifier receives debounced file-change events so they can be
// forwarded to language servers (didChangeWatchedFiles / didChange).
// The connection pool implements this.
type ChangeNotifier interface {
	NotifyFileChanged(path string, change protocol.FileChangeType)
}

// Watcher recursively watches a workspace root and calls Invalidator
// for every file:// URI that changes, debounced per-path so a burst of
// writes (editors often save in several steps) produces one call.
type Watcher struct {
	root        string
	invalidator Invalidator
	notifier    ChangeNotifier
	logger      *zap.Logger
	fsw         *fsnotify.Watcher

	debounce time.Duration

	mu          sync.Mutex
	pending     map[string]*time.Timer
	pendingKind map[string]protocol.FileChangeType

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New builds a Watcher rooted at root. Call Start to begin watching
// and Close to stop.
func New(root string, invalidator Invalidator, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:        root,
		invalidator: invalidator,
		logger:      logger,
		fsw:         fsw,
		debounce:    150 * time.Millisecond,
		pending:     make(map[string]*time.Timer),
		pendingKind: make(map[string]protocol.FileChangeType),
		closeCh:     make(chan struct{}),
	}
	return w, nil
}

// SetNotifier wires a ChangeNotifier so debounced events reach the
// language servers, not just the result cache. Call before Start.
func (w *Watcher) SetNotifier(n ChangeNotifier) {
	w.notifier = n
}

// Start walks root adding every non-ignored directory to the fsnotify
// watch list, then begins the event loop in a background goroutine.
func (w *Watcher) Start() error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Close stops the event loop and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()

	return w.fsw.Close()
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() != filepath.Base(w.root) && defaultIgnoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watcher: failed to add directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watcher: failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	w.scheduleInvalidate(event.Name, changeTypeOf(event))
}

// changeTypeOf maps an fsnotify op onto the LSP file-change enum.
// Rename is reported as a delete of the old path; the new path arrives
// as its own Create event.
func changeTypeOf(event fsnotify.Event) protocol.FileChangeType {
	switch {
	case event.Has(fsnotify.Create):
		return protocol.FileCreated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return protocol.FileDeleted
	default:
		return protocol.FileChanged
	}
}

// scheduleInvalidate debounces repeated events for the same path
// within w.debounce, firing InvalidateFile (and the ChangeNotifier,
// when wired) once the quiet period ends. The last event's change type
// wins for the debounced window.
func (w *Watcher) scheduleInvalidate(path string, change protocol.FileChangeType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pendingKind[path] = change
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		kind := w.pendingKind[path]
		delete(w.pending, path)
		delete(w.pendingKind, path)
		w.mu.Unlock()

		w.invalidator.InvalidateFile("file://" + path)
		if w.notifier != nil {
			w.notifier.NotifyFileChanged(path, kind)
		}
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if defaultIgnoreDirs[part] {
			return true
		}
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
