package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// DiagnosticsParams selects the file and presentation options for
// getDiagnostics.
type DiagnosticsParams struct {
	FilePath        string `json:"filePath"`
	IncludeContext  bool   `json:"includeContext,omitempty"`
	ShowLineNumbers bool   `json:"showLineNumbers,omitempty"`
}

const diagnosticsWaitTimeout = 30 * time.Second

// GetDiagnostics opens filePath if needed, waits briefly for the
// server's publishDiagnostics push to land (servers diagnose
// asynchronously after didOpen/didChange), and formats the cached
// result.
func (r *Registry) GetDiagnostics(ctx context.Context, params DiagnosticsParams) (string, error) {
	path, err := absPath(params.FilePath)
	if err != nil {
		return "", err
	}
	client, err := r.clientForFile(ctx, path)
	if err != nil {
		return "", err
	}
	uri := pathToURI(path)

	if !client.IsFileOpen(path) {
		if err := client.OpenFile(ctx, path, client.LanguageID()); err != nil {
			return "", fmt.Errorf("opening %s: %w", path, err)
		}
	}

	if existing := client.GetFileDiagnostics(uri); len(existing) > 0 {
		return formatDiagnostics(path, existing, params.IncludeContext, params.ShowLineNumbers), nil
	}

	deadline := time.After(diagnosticsWaitTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return fmt.Sprintf("no diagnostics received for %s (timed out waiting for server)", path), nil
		case <-ticker.C:
			if diags := client.GetFileDiagnostics(uri); len(diags) > 0 {
				return formatDiagnostics(path, diags, params.IncludeContext, params.ShowLineNumbers), nil
			}
		}
	}
}

func formatDiagnostics(path string, diagnostics []protocol.Diagnostic, includeContext, showLineNumbers bool) string {
	if len(diagnostics) == 0 {
		return "no diagnostics for " + path
	}
	content, _ := os.ReadFile(path)
	lines := strings.Split(string(content), "\n")

	var out []string
	for _, d := range diagnostics {
		sev := severityString(d.Severity)
		loc := fmt.Sprintf("line %d, column %d", d.Range.Start.Line+1, d.Range.Start.Character+1)
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s\n%s\n%s\n", sev, path, loc, d.Message)
		if d.Source != "" {
			fmt.Fprintf(&b, "source: %s\n", d.Source)
		}
		if d.Code != nil {
			fmt.Fprintf(&b, "code: %v\n", d.Code)
		}
		if includeContext && int(d.Range.Start.Line) < len(lines) {
			line := lines[d.Range.Start.Line]
			if showLineNumbers {
				line = fmt.Sprintf("%d: %s", d.Range.Start.Line+1, line)
			}
			fmt.Fprintf(&b, "%s\n", line)
		}
		out = append(out, b.String())
	}
	return strings.Join(out, "\n"+strings.Repeat("-", 60)+"\n")
}

func severityString(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.SeverityError:
		return "ERROR"
	case protocol.SeverityWarning:
		return "WARNING"
	case protocol.SeverityInformation:
		return "INFO"
	case protocol.SeverityHint:
		return "HINT"
	default:
		return "UNKNOWN"
	}
}
