package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/brokererr"
	"github.com/mcp-broker/lsp-broker/internal/langdetect"
	"github.com/mcp-broker/lsp-broker/internal/lspclient"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
	"github.com/mcp-broker/lsp-broker/internal/transport"
)

// entry is one PoolEntry: a live Client plus its health bookkeeping.
type entry struct {
	client    *lspclient.Client
	config    ServerConfig
	status    Status
	crashes   int
	lastUsed  time.Time
	lastCheck time.Time
	startedAt time.Time

	stopHealth chan struct{}
}

// Pool owns at most one lspclient.Client per Key, handling lazy
// creation, health checks, and crash recovery.
type Pool struct {
	cfg      Config
	detector *langdetect.Detector
	registry *langdetect.Registry
	logger   *zap.Logger

	// registeredConfigs lets callers supply a ServerConfig directly
	// (bypassing detection) for a given languageId.
	registeredConfigs map[string]ServerConfig

	// applier is wired into every Client's server-request handlers so
	// that a server-initiated workspace/applyEdit goes through the same
	// transactional path as the broker's own applyEdit tool.
	applier lspclient.WorkspaceEditApplier

	mu      sync.Mutex
	entries map[Key]*entry

	// initLocks guards concurrent Get calls for the same Key from
	// racing to create two live Clients.
	initLocks sync.Map // Key -> *sync.Mutex

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New builds a Pool. applier may be nil until wired by the caller (it
// is needed only to answer server-initiated workspace/applyEdit calls).
func New(cfg Config, detector *langdetect.Detector, registry *langdetect.Registry, logger *zap.Logger) *Pool {
	p := &Pool{
		cfg:               cfg,
		detector:          detector,
		registry:          registry,
		logger:            logger,
		registeredConfigs: make(map[string]ServerConfig),
		entries:           make(map[Key]*entry),
		sweepStop:         make(chan struct{}),
	}
	go p.idleSweepLoop()
	return p
}

// SetApplier wires the workspace-edit applier used to answer
// server-initiated "workspace/applyEdit" requests.
func (p *Pool) SetApplier(applier lspclient.WorkspaceEditApplier) {
	p.applier = applier
}

// RegisterConfig registers an explicit ServerConfig for a languageId,
// used instead of Detector-derived recipes when the caller already
// knows which server to launch.
func (p *Pool) RegisterConfig(languageID string, cfg ServerConfig) {
	p.registeredConfigs[languageID] = cfg
}

func (p *Pool) keyLock(key Key) *sync.Mutex {
	l, _ := p.initLocks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Get returns the live Client for (languageID, workspace), creating one
// if necessary. languageID may be "auto" to run detection against
// workspace; detection runs before the init lock is taken so that
// Get("auto", W) and Get with the detected id serialize on the same
// resolved key.
func (p *Pool) Get(ctx context.Context, languageID, workspace string) (*lspclient.Client, error) {
	resolvedLang := languageID

	if languageID == "auto" {
		detected, ok := p.detector.Detect(workspace)
		if !ok {
			return nil, brokererr.New(brokererr.NoLanguageServer, "no recipe matched workspace "+workspace)
		}
		resolvedLang = detected.Recipe.ID
	}

	key := Key{LanguageID: resolvedLang, Workspace: workspace}
	lock := p.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		if e.client.State() == lspclient.Ready {
			e.lastUsed = time.Now()
			p.mu.Unlock()
			return e.client, nil
		}
		// Entry exists but isn't connected; dispose and fall through to recreate.
		delete(p.entries, key)
		p.mu.Unlock()
		p.disposeEntry(e)
	} else {
		p.mu.Unlock()
	}

	cfg, installHint, err := p.resolveConfig(resolvedLang, workspace)
	if err != nil {
		return nil, err
	}

	provider := langdetect.NewProvider(mustRecipe(p.registry, resolvedLang), langdetect.DefaultInstallers())
	if !provider.IsAvailable(ctx) {
		return nil, brokererr.NoServer(fmt.Sprintf("language server for %s is not available", resolvedLang), installHint)
	}

	client, e, err := p.createWithRetry(ctx, key, cfg)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.entries[key] = e
	p.mu.Unlock()

	return client, nil
}

func mustRecipe(reg *langdetect.Registry, id string) langdetect.Recipe {
	rec, _ := reg.ByID(id)
	return rec
}

func (p *Pool) resolveConfig(languageID, workspace string) (ServerConfig, string, error) {
	if cfg, ok := p.registeredConfigs[languageID]; ok {
		return cfg, "", nil
	}
	rec, ok := p.registry.ByID(languageID)
	if !ok {
		return ServerConfig{}, "", brokererr.New(brokererr.NoLanguageServer, "no recipe registered for "+languageID)
	}
	cfg := ServerConfig{
		LanguageID:  rec.ID,
		Command:     rec.Command,
		Args:        rec.Args,
		InitOptions: rec.InitOptions,
	}
	if len(rec.ContainerArgs) > 0 {
		cfg.ContainerCommand = rec.Command
		cfg.ContainerArgs = rec.ContainerArgs
	}
	return cfg, fmt.Sprintf("install %s (%s)", rec.Command, rec.PackageManager), nil
}

// createWithRetry attempts up to cfg.MaxRetries starts, separated by a
// fixed RetryDelay, per spec §4.4.
func (p *Pool) createWithRetry(ctx context.Context, key Key, cfg ServerConfig) (*lspclient.Client, *entry, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		client, err := p.spawnClient(ctx, key, cfg)
		if err == nil {
			e := &entry{
				client:     client,
				config:     cfg,
				status:     StatusHealthy,
				lastUsed:   time.Now(),
				startedAt:  time.Now(),
				stopHealth: make(chan struct{}),
			}
			go p.watchCrash(key, e)
			p.startHealthTimer(key, e)
			return client, e, nil
		}
		lastErr = err
		if attempt < p.cfg.MaxRetries {
			select {
			case <-time.After(p.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}
	return nil, nil, brokererr.Wrap(brokererr.InitializeFailed, "exhausted retries starting "+key.LanguageID, lastErr)
}

func (p *Pool) spawnClient(ctx context.Context, key Key, cfg ServerConfig) (*lspclient.Client, error) {
	command, args := cfg.Command, cfg.Args
	if langdetect.InContainer() && cfg.ContainerCommand != "" {
		command, args = cfg.ContainerCommand, cfg.ContainerArgs
	}

	t, err := transport.Spawn(command, args, nil, func(line string) {
		p.logger.Debug("lsp stderr", zap.String("server", command), zap.String("line", line))
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", command, err)
	}

	client := lspclient.New(key.LanguageID+":"+key.Workspace, key.LanguageID, t, p.logger)
	if p.applier != nil {
		client.RegisterStandardHandlers(p.applier, nil)
	} else {
		client.RegisterStandardHandlers(noopApplier{}, nil)
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := client.Initialize(initCtx, key.Workspace, cfg.InitOptions); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", key.LanguageID, err)
	}

	return client, nil
}

type noopApplier struct{}

func (noopApplier) ApplyWorkspaceEdit(ctx context.Context, _ protocol.WorkspaceEdit) error {
	return fmt.Errorf("no workspace-edit applier configured")
}

func (p *Pool) watchCrash(key Key, e *entry) {
	<-e.client.Done()
	if st := e.client.State(); st == lspclient.Stopped || st == lspclient.Stopping {
		return // graceful shutdown, not a crash
	}
	p.onCrash(key, e)
}

func (p *Pool) onCrash(key Key, e *entry) {
	p.mu.Lock()
	current, ok := p.entries[key]
	if !ok || current != e {
		p.mu.Unlock()
		return
	}
	e.crashes++
	e.status = StatusUnhealthy
	p.mu.Unlock()

	if e.crashes > p.cfg.MaxRetries {
		p.logger.Warn("lsp client exceeded max retries, leaving unhealthy", zap.String("key", key.LanguageID+":"+key.Workspace))
		return
	}

	p.mu.Lock()
	e.status = StatusRestarting
	p.mu.Unlock()
	close(e.stopHealth)

	newClient, newEntry, err := p.createWithRetry(context.Background(), key, e.config)
	if err != nil {
		p.logger.Error("lsp client restart failed", zap.String("key", key.LanguageID), zap.Error(err))
		p.mu.Lock()
		e.status = StatusUnhealthy
		p.mu.Unlock()
		return
	}
	newEntry.crashes = e.crashes

	p.mu.Lock()
	p.entries[key] = newEntry
	p.mu.Unlock()
	_ = newClient
}

func (p *Pool) startHealthTimer(key Key, e *entry) {
	ticker := time.NewTicker(p.cfg.HealthCheckInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-e.stopHealth:
				return
			case <-ticker.C:
				p.ping(key, e)
			}
		}
	}()
}

func (p *Pool) ping(key Key, e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.client.Ping(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[key] != e {
		return
	}
	e.lastCheck = time.Now()
	if err != nil {
		e.status = StatusUnhealthy
		return
	}
	e.status = StatusHealthy
}

// GetForFile resolves a Client via extension-based detection. Never
// raises: on an unavailable server it logs a warning and returns nil.
func (p *Pool) GetForFile(ctx context.Context, filePath, workspace string) *lspclient.Client {
	rec, ok := p.detector.DetectByExtension(filePath)
	if !ok {
		p.logger.Warn("no recipe for file extension", zap.String("file", filePath))
		return nil
	}
	client, err := p.Get(ctx, rec.ID, workspace)
	if err != nil {
		p.logger.Warn("language server unavailable", zap.String("language", rec.ID), zap.Error(err))
		return nil
	}
	return client
}

// Dispose cancels the health timer for (languageID, workspace), stops
// its Client, and removes it from the table. Stop errors are swallowed.
func (p *Pool) Dispose(languageID, workspace string) {
	key := Key{LanguageID: languageID, Workspace: workspace}
	p.mu.Lock()
	e, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
	}
	p.mu.Unlock()
	if ok {
		p.disposeEntry(e)
	}
}

func (p *Pool) disposeEntry(e *entry) {
	select {
	case <-e.stopHealth:
	default:
		close(e.stopHealth)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.client.Shutdown(ctx); err != nil {
		p.logger.Debug("client stop returned error, ignoring", zap.Error(err))
	}
}

// DisposeAll disposes every entry in the pool.
func (p *Pool) DisposeAll() {
	p.mu.Lock()
	entries := make(map[Key]*entry, len(p.entries))
	for k, v := range p.entries {
		entries[k] = v
	}
	p.entries = make(map[Key]*entry)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.disposeEntry(e)
		}()
	}
	wg.Wait()

	p.sweepOnce.Do(func() { close(p.sweepStop) })
}

// NotifyFileChanged fans an on-disk file change out to every Ready
// client: a workspace/didChangeWatchedFiles event for servers that
// registered watch interest, and a full-text didChange for clients
// tracking the file open. Failures are logged, not surfaced; file-sync
// is best-effort and the next didOpen re-synchronizes regardless.
func (p *Pool) NotifyFileChanged(path string, change protocol.FileChangeType) {
	p.mu.Lock()
	clients := make([]*lspclient.Client, 0, len(p.entries))
	for _, e := range p.entries {
		clients = append(clients, e.client)
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, c := range clients {
		if !c.IsConnected() {
			continue
		}
		if err := c.SyncFileFromDisk(ctx, path, change); err != nil {
			p.logger.Debug("file-change sync failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// GetHealth returns a snapshot of every pool entry's health status.
func (p *Pool) GetHealth() map[Key]HealthStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[Key]HealthStatus, len(p.entries))
	for k, e := range p.entries {
		out[k] = HealthStatus{
			Key:       k,
			Status:    e.status,
			Crashes:   e.crashes,
			Uptime:    time.Since(e.startedAt),
			LastUsed:  e.lastUsed,
			LastCheck: e.lastCheck,
		}
	}
	return out
}

// idleSweepLoop advisorially disposes entries whose lastUsed exceeds
// IdleTimeout. Running this is best-effort: it never blocks Get.
func (p *Pool) idleSweepLoop() {
	interval := p.cfg.IdleTimeout / 4
	if interval < 30*time.Second {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.sweepIdle()
		}
	}
}

func (p *Pool) sweepIdle() {
	now := time.Now()
	p.mu.Lock()
	var stale []Key
	for k, e := range p.entries {
		if now.Sub(e.lastUsed) > p.cfg.IdleTimeout {
			stale = append(stale, k)
		}
	}
	p.mu.Unlock()

	for _, k := range stale {
		p.Dispose(k.LanguageID, k.Workspace)
	}
}
