package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcp-broker/lsp-broker/internal/brokererr"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// errBroadcastWon is returned by a broadcast goroutine once it has a
// successful result, purely to cancel the errgroup's shared context so
// the remaining in-flight attempts are abandoned early.
var errBroadcastWon = errors.New("broadcast: winning result recorded")

// broadcastCommandTimeout bounds each server's attempt when
// ExecuteCommand broadcasts because no language was specified.
const broadcastCommandTimeout = 4 * time.Second

// ExecuteCommandParams sends "workspace/executeCommand" to either one
// named server or, absent Language, every active server.
type ExecuteCommandParams struct {
	Language  string        `json:"language,omitempty"`
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// ExecuteCommandResult reports the winning server's result plus every
// server that was tried and failed during a broadcast.
type ExecuteCommandResult struct {
	Language string            `json:"language"`
	Result   interface{}       `json:"result"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// ExecuteCommand issues the command against one server named by
// params.Language, or races it against every active server and
// returns the first success, cancelling the rest.
func (r *Registry) ExecuteCommand(ctx context.Context, params ExecuteCommandParams) (*ExecuteCommandResult, error) {
	if params.Language != "" {
		client, err := r.clientForLanguage(ctx, params.Language)
		if err != nil {
			return nil, err
		}
		result, err := client.ExecuteCommand(ctx, protocol.ExecuteCommandParams{
			Command:   params.Command,
			Arguments: params.Arguments,
		})
		if err != nil {
			return nil, brokererr.New(brokererr.NotSupportedByAny, fmt.Sprintf("command %q failed on %s: %v", params.Command, params.Language, err))
		}
		return &ExecuteCommandResult{Language: params.Language, Result: result}, nil
	}

	clients := r.allClients()
	if len(clients) == 0 {
		return nil, brokererr.New(brokererr.NoLanguageServer, "no active language servers")
	}

	type attempt struct {
		language string
		result   interface{}
	}

	g, broadcastCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	failed := make(map[string]string)
	var winner *attempt

	for lang, client := range clients {
		lang, client := lang, client
		g.Go(func() error {
			attemptCtx, attemptCancel := context.WithTimeout(broadcastCtx, broadcastCommandTimeout)
			defer attemptCancel()
			result, err := client.ExecuteCommand(attemptCtx, protocol.ExecuteCommandParams{
				Command:   params.Command,
				Arguments: params.Arguments,
			})
			if err != nil {
				mu.Lock()
				failed[lang] = err.Error()
				mu.Unlock()
				return nil
			}
			mu.Lock()
			if winner == nil {
				winner = &attempt{language: lang, result: result}
			}
			mu.Unlock()
			// Cancel broadcastCtx so servers still in flight stop early.
			return errBroadcastWon
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errBroadcastWon) {
		return nil, brokererr.Wrap(brokererr.NotSupportedByAny, fmt.Sprintf("command %q broadcast failed", params.Command), err)
	}

	if winner != nil {
		return &ExecuteCommandResult{Language: winner.language, Result: winner.result, Failed: failed}, nil
	}

	return nil, brokererr.New(brokererr.NotSupportedByAny, fmt.Sprintf("command %q failed on all %d active servers", params.Command, len(clients)))
}
