// Package edit implements the Edit Transaction Manager: applying a
// batch of LSP WorkspaceEdit values with all-or-nothing semantics,
// backup/rollback, dry-run, and a non-transactional applier used by
// code actions.
package edit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-broker/lsp-broker/internal/brokererr"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// FileBackup captures a URI's content before a transaction touches it.
type FileBackup struct {
	URI             protocol.DocumentUri
	OriginalContent []byte
	OriginalExists  bool
}

// TransactionBackup lives only for the duration of one Apply call.
type TransactionBackup struct {
	ID        string
	Timestamp time.Time
	Files     map[protocol.DocumentUri]*FileBackup
}

// Options configure one Apply call.
type Options struct {
	Atomic bool
	DryRun bool
}

// DefaultOptions returns Atomic=true, DryRun=false.
func DefaultOptions() Options {
	return Options{Atomic: true}
}

// FileChangeCount is the per-file edit tally in a Result.
type FileChangeCount struct {
	URI     protocol.DocumentUri
	Changes int
}

// Result is returned by a successful (or dry-run) Apply.
type Result struct {
	TransactionID string
	FilesModified int
	TotalChanges  int
	PerFile       []FileChangeCount
}

// Manager applies WorkspaceEdit values against files under one
// workspace root.
type Manager struct {
	workspaceRoot string
}

// NewManager builds a Manager rooted at workspaceRoot. Every URI in an
// edit must resolve to a path inside this root.
func NewManager(workspaceRoot string) *Manager {
	return &Manager{workspaceRoot: workspaceRoot}
}

// Apply runs the full transactional algorithm (spec §4.6) against edit.
func (m *Manager) Apply(edit protocol.WorkspaceEdit, opts Options) (*Result, error) {
	txID := uuid.NewString()

	perFile, err := collectPerFileEdits(edit)
	if err != nil {
		return nil, brokererr.Wrap(brokererr.InvalidParams, "collecting edits", err)
	}
	resourceOps := collectResourceOps(edit)

	if opts.DryRun {
		return dryRunResult(txID, perFile), nil
	}

	for uri := range perFile {
		if err := m.validateInWorkspace(uri); err != nil {
			return nil, brokererr.Wrap(brokererr.InvalidParams, "validating URI", err)
		}
	}
	for _, op := range resourceOps {
		if err := m.validateInWorkspace(op.primaryURI()); err != nil {
			return nil, brokererr.Wrap(brokererr.InvalidParams, "validating URI", err)
		}
		if op.rename != nil {
			if err := m.validateInWorkspace(op.rename.NewURI); err != nil {
				return nil, brokererr.Wrap(brokererr.InvalidParams, "validating URI", err)
			}
		}
	}

	backup := &TransactionBackup{ID: txID, Timestamp: time.Now(), Files: make(map[protocol.DocumentUri]*FileBackup)}
	allURIs := affectedURIs(perFile, resourceOps)
	for _, uri := range allURIs {
		fb, err := m.backupFile(uri)
		if err != nil {
			return nil, brokererr.Wrap(brokererr.InternalError, "backing up "+string(uri), err)
		}
		backup.Files[uri] = fb
	}

	for _, op := range resourceOps {
		if op.create != nil {
			parent := filepath.Dir(uriToPath(op.create.URI))
			if _, err := os.Stat(parent); err != nil {
				return nil, brokererr.New(brokererr.InvalidParams, "parent directory does not exist for create: "+parent)
			}
		}
	}

	if err := m.applyAll(edit); err != nil {
		if opts.Atomic {
			if rbErr := m.rollback(backup); rbErr != nil {
				return nil, brokererr.Wrap(brokererr.RollbackFailed, "rollback after failed transaction", rbErr)
			}
		}
		return nil, brokererr.Wrap(brokererr.TransactionFailed, "applying edits", err)
	}

	return dryRunResult(txID, perFile), nil
}

// dryRunResult tallies the text edits of a transaction: FilesModified
// is the number of distinct URIs carrying text edits (the union over
// the Changes map and TextDocumentEdit entries), TotalChanges the edit
// count across them. Resource operations are reported through the diff
// and summary renderings, not these counters.
func dryRunResult(txID string, perFile map[protocol.DocumentUri][]protocol.TextEdit) *Result {
	r := &Result{TransactionID: txID}
	for uri, edits := range perFile {
		r.FilesModified++
		r.TotalChanges += len(edits)
		r.PerFile = append(r.PerFile, FileChangeCount{URI: uri, Changes: len(edits)})
	}
	sort.Slice(r.PerFile, func(i, j int) bool { return r.PerFile[i].URI < r.PerFile[j].URI })
	return r
}

func (m *Manager) validateInWorkspace(uri protocol.DocumentUri) error {
	if !strings.HasPrefix(string(uri), "file://") {
		return fmt.Errorf("non-file URI rejected: %s", uri)
	}
	path := uriToPath(uri)

	absRoot, err := filepath.Abs(m.workspaceRoot)
	if err != nil {
		return err
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolving workspace root %s: %w", absRoot, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	resolvedPath, err := resolveExistingSymlinks(absPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", absPath, err)
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes workspace root %s", path, m.workspaceRoot)
	}
	return nil
}

// resolveExistingSymlinks resolves symlinks on the longest existing
// prefix of path and rejoins any remaining, not-yet-created components
// unresolved. This lets containment checks reject a symlink that
// points outside the workspace even when the edit's target (e.g. a
// file a CreateFile operation is about to create) doesn't exist yet.
func resolveExistingSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := resolveExistingSymlinks(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

func uriToPath(uri protocol.DocumentUri) string {
	return strings.TrimPrefix(string(uri), "file://")
}

func (m *Manager) backupFile(uri protocol.DocumentUri) (*FileBackup, error) {
	path := uriToPath(uri)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileBackup{URI: uri, OriginalExists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &FileBackup{URI: uri, OriginalContent: content, OriginalExists: true}, nil
}

func (m *Manager) rollback(backup *TransactionBackup) error {
	var errs []string
	for uri, fb := range backup.Files {
		path := uriToPath(uri)
		if fb.OriginalExists {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("%s: mkdir: %v", uri, err))
				continue
			}
			if err := os.WriteFile(path, fb.OriginalContent, 0o644); err != nil {
				errs = append(errs, fmt.Sprintf("%s: restore: %v", uri, err))
			}
		} else {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("%s: remove: %v", uri, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("rollback errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
