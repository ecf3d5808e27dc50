package lspclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
	"github.com/mcp-broker/lsp-broker/internal/transport"
)

// ServerRequestHandler answers a request the server sent to the client
// (e.g. "workspace/applyEdit", "workspace/configuration").
type ServerRequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler reacts to a notification the server sent to the
// client (e.g. "textDocument/publishDiagnostics").
type NotificationHandler func(params json.RawMessage)

// pendingRequest tracks one in-flight request this client sent to the
// server, so the reader goroutine can route the eventual response (or a
// deadline/cancellation) back to the caller.
type pendingRequest struct {
	method   string
	deadline time.Time
	resolve  chan *protocol.Message
}

// openFile tracks the version number the broker believes a document is
// at, so didChange notifications carry a monotonically increasing version.
type openFile struct {
	uri     protocol.DocumentUri
	version int32
}

// Client is a live connection to one language server process, tracking
// its lifecycle state, in-flight requests, open documents, and cached
// diagnostics.
type Client struct {
	key        string // languageId + workspacePath, used only for logging
	languageID string
	transport  *transport.Transport
	logger     *zap.Logger

	mu    sync.RWMutex
	state State

	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]*pendingRequest

	serverRequestHandlers map[string]ServerRequestHandler
	notificationHandlers  map[string]NotificationHandler
	handlersMu            sync.RWMutex

	diagnosticsMu sync.RWMutex
	diagnostics   map[protocol.DocumentUri][]protocol.Diagnostic

	openFilesMu sync.RWMutex
	openFiles   map[protocol.DocumentUri]*openFile

	// watchRegistrations accumulates the FileSystemWatcher sets the
	// server registered via client/registerCapability for
	// workspace/didChangeWatchedFiles.
	watchMu            sync.RWMutex
	watchRegistrations []protocol.FileSystemWatcher

	serverCapabilities protocol.ServerCapabilities

	// readerDone closes when the reader goroutine exits, signaling crash
	// or shutdown to anyone selecting on it.
	readerDone chan struct{}
	closeOnce  sync.Once

	startedAt time.Time
}

// New wraps an already-spawned transport with LSP client state. key is
// used only for logging; languageID is the LSP languageId sent with
// every didOpen for documents this client manages.
func New(key, languageID string, t *transport.Transport, logger *zap.Logger) *Client {
	c := &Client{
		key:                   key,
		languageID:            languageID,
		transport:             t,
		logger:                logger,
		state:                 Starting,
		pending:               make(map[int64]*pendingRequest),
		serverRequestHandlers: make(map[string]ServerRequestHandler),
		notificationHandlers:  make(map[string]NotificationHandler),
		diagnostics:           make(map[protocol.DocumentUri][]protocol.Diagnostic),
		openFiles:             make(map[protocol.DocumentUri]*openFile),
		readerDone:            make(chan struct{}),
		startedAt:             time.Now(),
	}
	go c.readLoop()
	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ServerCapabilities returns the capability set reported by "initialize".
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities
}

// GetCapabilities is ServerCapabilities under the name the broker's
// Client operation table uses.
func (c *Client) GetCapabilities() protocol.ServerCapabilities {
	return c.ServerCapabilities()
}

// IsConnected reports whether the client is in the Ready state and so
// able to accept requests.
func (c *Client) IsConnected() bool {
	return c.State() == Ready
}

// GetUptime reports how long this client has been alive since New.
func (c *Client) GetUptime() time.Duration {
	return time.Since(c.startedAt)
}

// Ping probes server liveness with a lightweight request. A
// MethodNotFound response still means the process answered the
// request it just doesn't implement that method, so it counts as a
// healthy ping rather than a failure.
func (c *Client) Ping(ctx context.Context) error {
	err := c.Call(ctx, "workspace/symbol", protocol.WorkspaceSymbolParams{Query: ""}, nil)
	if err == nil {
		return nil
	}
	var rpcErr *protocol.ResponseError
	if errors.As(err, &rpcErr) && rpcErr.Code == protocol.MethodNotFound {
		return nil
	}
	return err
}

// Key identifies this client for logging (typically "<languageId>:<workspace>").
func (c *Client) Key() string { return c.key }

// LanguageID returns the LSP languageId this client was created for.
func (c *Client) LanguageID() string { return c.languageID }

// Done reports closed once the reader loop has exited, meaning the
// server process terminated, crashed, or the transport was closed.
func (c *Client) Done() <-chan struct{} { return c.readerDone }

func (c *Client) setState(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.state, to) {
		return &ErrInvalidTransition{From: c.state, To: to}
	}
	c.state = to
	return nil
}

// RegisterServerRequestHandler installs the handler invoked when the
// server sends a request for the given method.
func (c *Client) RegisterServerRequestHandler(method string, h ServerRequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.serverRequestHandlers[method] = h
}

// RegisterNotificationHandler installs the handler invoked when the
// server sends a notification for the given method.
func (c *Client) RegisterNotificationHandler(method string, h NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.notificationHandlers[method] = h
}

// readLoop is the sole reader of the transport; it demultiplexes
// responses to pending requests, server-initiated requests, and
// notifications. Exactly one goroutine per Client runs this.
func (c *Client) readLoop() {
	defer close(c.readerDone)
	for {
		msg, err := c.transport.ReadMessage()
		if err != nil {
			c.logger.Debug("lsp transport read ended", zap.String("client", c.key), zap.Error(err))
			if st := c.State(); st != Stopping && st != Stopped {
				_ = c.setState(Crashed)
			}
			c.failAllPending(fmt.Errorf("transport closed: %w", err))
			return
		}

		switch {
		case msg.IsResponse():
			c.dispatchResponse(msg)
		case msg.IsRequest():
			go c.dispatchServerRequest(msg)
		case msg.IsNotification():
			go c.dispatchNotification(msg)
		}
	}
}

func (c *Client) dispatchResponse(msg *protocol.Message) {
	if msg.ID == nil {
		return
	}
	c.pendingMu.Lock()
	pr, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Warn("response for unknown request id", zap.Int64("id", *msg.ID))
		return
	}
	pr.resolve <- msg
}

func (c *Client) dispatchServerRequest(msg *protocol.Message) {
	c.handlersMu.RLock()
	h, ok := c.serverRequestHandlers[msg.Method]
	c.handlersMu.RUnlock()

	if !ok {
		c.replyError(*msg.ID, protocol.MethodNotFound, fmt.Sprintf("no handler for %s", msg.Method))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := h(ctx, msg.Params)
	if err != nil {
		c.replyError(*msg.ID, protocol.InternalErrorCode, err.Error())
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		c.replyError(*msg.ID, protocol.InternalErrorCode, err.Error())
		return
	}
	reply := &protocol.Message{JSONRPC: "2.0", ID: msg.ID, Result: raw}
	if err := c.transport.WriteMessage(reply); err != nil {
		c.logger.Warn("failed writing server-request reply", zap.Error(err))
	}
}

func (c *Client) replyError(id int64, code int, message string) {
	reply := &protocol.Message{
		JSONRPC: "2.0",
		ID:      &id,
		Error:   &protocol.ResponseError{Code: code, Message: message},
	}
	if err := c.transport.WriteMessage(reply); err != nil {
		c.logger.Warn("failed writing error reply", zap.Error(err))
	}
}

func (c *Client) dispatchNotification(msg *protocol.Message) {
	if msg.Method == "textDocument/publishDiagnostics" {
		c.handleDiagnostics(msg.Params)
	}
	c.handlersMu.RLock()
	h, ok := c.notificationHandlers[msg.Method]
	c.handlersMu.RUnlock()
	if ok {
		h(msg.Params)
	}
}

func (c *Client) handleDiagnostics(params json.RawMessage) {
	var p protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.logger.Warn("bad publishDiagnostics params", zap.Error(err))
		return
	}
	c.diagnosticsMu.Lock()
	c.diagnostics[p.URI] = p.Diagnostics
	c.diagnosticsMu.Unlock()
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, pr := range c.pending {
		errMsg := &protocol.Message{
			JSONRPC: "2.0",
			Error:   &protocol.ResponseError{Code: protocol.InternalErrorCode, Message: err.Error()},
		}
		select {
		case pr.resolve <- errMsg:
		default:
		}
		delete(c.pending, id)
	}
}

// Call sends a request and blocks until the server replies, ctx is
// done, or the transport dies. If result is non-nil, the response's
// Result payload is unmarshaled into it. Requests in Starting are
// allowed (the initialize handshake itself is one); a client that has
// begun stopping or has crashed refuses every new request except
// "shutdown".
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	switch c.State() {
	case Stopping, Stopped, Crashed:
		if method != "shutdown" {
			return fmt.Errorf("lsp client %s: closed, refusing %s", c.key, method)
		}
	}

	id := c.nextID.Add(1)
	msg, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	resolve := make(chan *protocol.Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = &pendingRequest{method: method, deadline: deadlineFrom(ctx), resolve: resolve}
	c.pendingMu.Unlock()

	if err := c.transport.WriteMessage(msg); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("write %s request: %w", method, err)
	}

	select {
	case resp := <-resolve:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.cancelRequest(id)
		return ctx.Err()
	case <-c.readerDone:
		return fmt.Errorf("lsp client %s: connection closed while awaiting %s", c.key, method)
	}
}

func deadlineFrom(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return dl
	}
	return time.Time{}
}

// cancelRequest removes a pending request and tells the server to
// abandon it via "$/cancelRequest", per spec.md's cancellation model.
func (c *Client) cancelRequest(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()

	msg, err := protocol.NewNotification("$/cancelRequest", protocol.CancelParams{ID: id})
	if err != nil {
		return
	}
	_ = c.transport.WriteMessage(msg)
}

// Notify sends a notification; there is no response to await.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	msg, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	return c.transport.WriteMessage(msg)
}

// GetFileDiagnostics returns a snapshot of cached diagnostics for uri.
func (c *Client) GetFileDiagnostics(uri protocol.DocumentUri) []protocol.Diagnostic {
	c.diagnosticsMu.RLock()
	defer c.diagnosticsMu.RUnlock()
	diags := c.diagnostics[uri]
	out := make([]protocol.Diagnostic, len(diags))
	copy(out, diags)
	return out
}

// PendingCount reports how many requests are awaiting a response,
// exposed for health checks and tests.
func (c *Client) PendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}
