package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

type fakeInvalidator struct {
	mu   sync.Mutex
	uris []string
}

func (f *fakeInvalidator) InvalidateFile(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uris = append(f.uris, uri)
}

func (f *fakeInvalidator) seen(uri string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uris {
		if u == uri {
			return true
		}
	}
	return false
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0o644))

	inv := &fakeInvalidator{}
	w, err := New(dir, inv, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(target, []byte("package main\n\nfunc main() {}\n"), 0o644))

	require.Eventually(t, func() bool {
		return inv.seen("file://" + target)
	}, 2*time.Second, 20*time.Millisecond)
}

type fakeNotifier struct {
	mu      sync.Mutex
	changes map[string]protocol.FileChangeType
}

func (f *fakeNotifier) NotifyFileChanged(path string, change protocol.FileChangeType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.changes == nil {
		f.changes = make(map[string]protocol.FileChangeType)
	}
	f.changes[path] = change
}

func (f *fakeNotifier) changeFor(path string) (protocol.FileChangeType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.changes[path]
	return c, ok
}

func TestWatcher_ForwardsChangeToNotifier(t *testing.T) {
	dir := t.TempDir()

	inv := &fakeInvalidator{}
	fn := &fakeNotifier{}
	w, err := New(dir, inv, zap.NewNop())
	require.NoError(t, err)
	w.SetNotifier(fn)
	require.NoError(t, w.Start())
	defer w.Close()

	target := filepath.Join(dir, "new.go")
	require.NoError(t, os.WriteFile(target, []byte("package new\n"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := fn.changeFor(target)
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	change, _ := fn.changeFor(target)
	assert.Contains(t, []protocol.FileChangeType{protocol.FileCreated, protocol.FileChanged}, change)
}

func TestWatcher_IgnoresDotGit(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	inv := &fakeInvalidator{}
	w, err := New(dir, inv, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	target := filepath.Join(gitDir, "HEAD")
	require.NoError(t, os.WriteFile(target, []byte("ref: refs/heads/main\n"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.False(t, inv.seen("file://"+target))
}
