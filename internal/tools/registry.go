// Package tools implements the broker's external tool surface: one
// validated function per tool, each operating over a pool.Pool of live
// language-server connections.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mcp-broker/lsp-broker/internal/brokererr"
	"github.com/mcp-broker/lsp-broker/internal/cache"
	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/lspclient"
	"github.com/mcp-broker/lsp-broker/internal/pool"
)

// Registry holds the shared state every tool function needs: the
// connection pool, the edit transaction manager, and the shared
// result cache.
type Registry struct {
	Pool      *pool.Pool
	Editor    *edit.Manager
	Workspace string

	navCache   *cache.Cache
	symCache   *cache.Cache
	hoverCache *cache.Cache
}

// New builds a Registry rooted at workspace.
func New(p *pool.Pool, editor *edit.Manager, workspace string) *Registry {
	return &Registry{
		Pool:       p,
		Editor:     editor,
		Workspace:  workspace,
		navCache:   cache.New(2*time.Minute, 500),
		symCache:   cache.New(2*time.Minute, 500),
		hoverCache: cache.New(30*time.Second, 500),
	}
}

// InvalidateFile drops every cached tool result that depends on uri's
// content. Wired into the watcher, and called by the edit-applying
// tools after a successful apply, so a file change never serves a
// stale cache entry.
func (r *Registry) InvalidateFile(uri string) {
	r.navCache.InvalidateFile(uri)
	r.symCache.InvalidateFile(uri)
	r.hoverCache.InvalidateFile(uri)
}

// clientForFile resolves the live client for path's detected
// language. It does not open the file; callers do that themselves.
func (r *Registry) clientForFile(ctx context.Context, path string) (*lspclient.Client, error) {
	client := r.Pool.GetForFile(ctx, path, r.Workspace)
	if client == nil {
		return nil, brokererr.New(brokererr.NoLanguageServer, "no language server available for "+path)
	}
	return client, nil
}

// clientForLanguage resolves the live client for an explicit language
// id, used by tools that take a language parameter directly (e.g.
// executeCommand) instead of inferring one from a file path.
func (r *Registry) clientForLanguage(ctx context.Context, languageID string) (*lspclient.Client, error) {
	return r.Pool.Get(ctx, languageID, r.Workspace)
}

// allClients returns every currently live client in the pool,
// keyed by language id, for broadcast-style operations.
func (r *Registry) allClients() map[string]*lspclient.Client {
	out := make(map[string]*lspclient.Client)
	for key, health := range r.Pool.GetHealth() {
		if health.Status == pool.StatusHealthy {
			if c, err := r.Pool.Get(context.Background(), key.LanguageID, key.Workspace); err == nil {
				out[key.LanguageID] = c
			}
		}
	}
	return out
}

func cacheKey(parts ...any) string {
	return fmt.Sprint(parts...)
}
