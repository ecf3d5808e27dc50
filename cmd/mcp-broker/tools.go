package main

import (
	"context"
	"encoding/json"
	"fmt"

	mcp_golang "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/mcp-broker/lsp-broker/internal/tools"
)

// mcpBroker wires a tools.Registry into an mcp-golang server, one
// RegisterTool call per semantic operation the broker exposes.
type mcpBroker struct {
	ctx      context.Context
	registry *tools.Registry
	server   *mcp_golang.Server
}

func newMCPServer(registry *tools.Registry) (*mcp_golang.Server, error) {
	b := &mcpBroker{
		ctx:      context.Background(),
		registry: registry,
		server:   mcp_golang.NewServer(stdio.NewStdioServerTransport()),
	}
	if err := b.registerTools(); err != nil {
		return nil, err
	}
	return b.server, nil
}

func jsonResponse(v interface{}) (*mcp_golang.ToolResponse, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp_golang.NewToolResponse(mcp_golang.NewTextContent(string(data))), nil
}

func (b *mcpBroker) registerTools() error {
	type registration struct {
		name string
		fn   func() error
	}

	regs := []registration{
		{"navigate", b.registerNavigate},
		{"navigate_batch", b.registerNavigateBatch},
		{"find_usages", b.registerFindUsages},
		{"find_usages_batch", b.registerFindUsagesBatch},
		{"find_symbols", b.registerFindSymbols},
		{"get_code_intelligence", b.registerCodeIntelligence},
		{"apply_code_action", b.registerApplyCodeAction},
		{"apply_edit", b.registerApplyEdit},
		{"get_symbol_context", b.registerSymbolContext},
		{"execute_command", b.registerExecuteCommand},
		{"get_related_apis", b.registerRelatedAPIs},
		{"rename_symbol", b.registerRenameSymbol},
		{"get_diagnostics", b.registerDiagnostics},
		{"format_document", b.registerFormatDocument},
		{"get_codelens", b.registerGetCodeLens},
		{"execute_codelens", b.registerExecuteCodeLens},
	}

	for _, reg := range regs {
		if err := reg.fn(); err != nil {
			return fmt.Errorf("registering %s: %w", reg.name, err)
		}
	}
	return nil
}

func (b *mcpBroker) registerNavigate() error {
	return b.server.RegisterTool(
		"navigate",
		"Navigate from a source position to a symbol's definition, implementation, or type definition using the Language Server Protocol.",
		func(args tools.NavigateParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.Navigate(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

type navigateBatchArgs struct {
	Batch []tools.NavigateParams `json:"batch" jsonschema:"required,description=Seed positions to navigate from; answered in order."`
}

func (b *mcpBroker) registerNavigateBatch() error {
	return b.server.RegisterTool(
		"navigate_batch",
		"Navigate from several source positions in one call; each seed succeeds or falls back independently.",
		func(args navigateBatchArgs) (*mcp_golang.ToolResponse, error) {
			return jsonResponse(b.registry.NavigateBatch(b.ctx, args.Batch))
		},
	)
}

type findUsagesBatchArgs struct {
	Batch []tools.FindUsagesParams `json:"batch" jsonschema:"required,description=Seed positions to search usages for; answered in order."`
}

func (b *mcpBroker) registerFindUsagesBatch() error {
	return b.server.RegisterTool(
		"find_usages_batch",
		"Find usages for several seed positions in one call.",
		func(args findUsagesBatchArgs) (*mcp_golang.ToolResponse, error) {
			return jsonResponse(b.registry.FindUsagesBatch(b.ctx, args.Batch, nil))
		},
	)
}

func (b *mcpBroker) registerFindUsages() error {
	return b.server.RegisterTool(
		"find_usages",
		"Find every reference to a symbol, or walk its incoming/outgoing call hierarchy, across the workspace.",
		func(args tools.FindUsagesParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.FindUsages(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerFindSymbols() error {
	return b.server.RegisterTool(
		"find_symbols",
		"Search for symbols by name in a single document or across the whole workspace, ranked by relevance to the query.",
		func(args tools.FindSymbolsParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.FindSymbols(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerCodeIntelligence() error {
	return b.server.RegisterTool(
		"get_code_intelligence",
		"Get hover documentation, signature help, or completion suggestions at a source position.",
		func(args tools.CodeIntelligenceParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.GetCodeIntelligence(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerApplyCodeAction() error {
	return b.server.RegisterTool(
		"apply_code_action",
		"List or apply a language server's code actions (quick fixes, refactorings) at a range or diagnostic.",
		func(args tools.ApplyCodeActionParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.ApplyCodeAction(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerApplyEdit() error {
	return b.server.RegisterTool(
		"apply_edit",
		"Apply a WorkspaceEdit transactionally, with backup and rollback on failure. Supports dry-run previews.",
		func(args tools.ApplyEditParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.ApplyEdit(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerSymbolContext() error {
	return b.server.RegisterTool(
		"get_symbol_context",
		"Gather hover, signature help, references, container/sibling symbols, and (optionally) call hierarchy for a symbol in one call.",
		func(args tools.SymbolContextParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.GetSymbolContext(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerExecuteCommand() error {
	return b.server.RegisterTool(
		"execute_command",
		"Execute a server-defined workspace command, either against one named language's server or broadcast to every active server.",
		func(args tools.ExecuteCommandParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.ExecuteCommand(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerRelatedAPIs() error {
	return b.server.RegisterTool(
		"get_related_apis",
		"Traverse from seed symbol names to the types they reference, producing a Markdown report of related APIs.",
		func(args tools.RelatedAPIsParams) (*mcp_golang.ToolResponse, error) {
			report, err := b.registry.GetRelatedAPIs(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return mcp_golang.NewToolResponse(mcp_golang.NewTextContent(report)), nil
		},
	)
}

func (b *mcpBroker) registerRenameSymbol() error {
	return b.server.RegisterTool(
		"rename_symbol",
		"Rename a symbol across the workspace via the language server's rename provider.",
		func(args tools.RenameParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.Rename(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerDiagnostics() error {
	return b.server.RegisterTool(
		"get_diagnostics",
		"Get the language server's diagnostics (errors, warnings) for a file.",
		func(args tools.DiagnosticsParams) (*mcp_golang.ToolResponse, error) {
			text, err := b.registry.GetDiagnostics(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return mcp_golang.NewToolResponse(mcp_golang.NewTextContent(text)), nil
		},
	)
}

func (b *mcpBroker) registerFormatDocument() error {
	return b.server.RegisterTool(
		"format_document",
		"Format a file (or a range within it) using the language server's formatter, applied transactionally.",
		func(args tools.FormatDocumentParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.FormatDocument(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerGetCodeLens() error {
	return b.server.RegisterTool(
		"get_codelens",
		"List the code lenses (e.g. run test, references count) the language server offers for a file.",
		func(args tools.CodeLensParams) (*mcp_golang.ToolResponse, error) {
			result, err := b.registry.GetCodeLens(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return jsonResponse(result)
		},
	)
}

func (b *mcpBroker) registerExecuteCodeLens() error {
	return b.server.RegisterTool(
		"execute_codelens",
		"Execute the command behind a code lens returned by get_codelens, by its 1-indexed position.",
		func(args tools.ExecuteCodeLensParams) (*mcp_golang.ToolResponse, error) {
			text, err := b.registry.ExecuteCodeLens(b.ctx, args)
			if err != nil {
				return nil, err
			}
			return mcp_golang.NewToolResponse(mcp_golang.NewTextContent(text)), nil
		},
	)
}
