package langdetect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// allowedReleaseHosts is the host allow-list for strategies that fetch
// prebuilt binaries directly (rust-analyzer releases), rather than
// going through a package manager.
var allowedReleaseHosts = map[string]bool{
	"github.com":                           true,
	"objects.githubusercontent.com":        true,
	"release-assets.githubusercontent.com": true,
}

// DefaultInstallers wires one installer function per recipe id, used
// by Provider.Install. Each reflects how that ecosystem's tooling
// ordinarily installs its own language server.
func DefaultInstallers() map[string]func(ctx context.Context, force bool) error {
	return map[string]func(ctx context.Context, force bool) error{
		"go":         installGopls,
		"rust":       installRustAnalyzer,
		"ruby":       runCommand("gem", "install", "solargraph"),
		"php":        runCommand("npm", "install", "-g", "intelephense"),
		"typescript": runCommand("npm", "install", "-g", "typescript-language-server", "typescript"),
		"javascript": runCommand("npm", "install", "-g", "typescript-language-server", "typescript"),
		"python":     runCommand("pipx", "install", "pyright"),
		"cpp":        installClangd,
	}
}

func runCommand(name string, args ...string) func(ctx context.Context, force bool) error {
	return func(ctx context.Context, force bool) error {
		cmd := exec.CommandContext(ctx, name, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
		}
		return nil
	}
}

func installGopls(ctx context.Context, force bool) error {
	return runCommand("go", "install", "golang.org/x/tools/gopls@latest")(ctx, force)
}

// installClangd shells out to whichever system package manager is
// present, mirroring spec §4.3's "clangd uses apt/yum/brew".
func installClangd(ctx context.Context, force bool) error {
	candidates := []func(ctx context.Context, force bool) error{
		runCommand("apt-get", "install", "-y", "clangd"),
		runCommand("yum", "install", "-y", "clang-tools-extra"),
		runCommand("brew", "install", "llvm"),
	}
	var lastErr error
	for _, install := range candidates {
		if err := install(ctx, force); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no supported package manager succeeded installing clangd: %w", lastErr)
}

// installRustAnalyzer downloads a prebuilt release tarball over HTTPS
// from an allow-listed host, following at most a small number of
// redirects, per spec §4.3.
func installRustAnalyzer(ctx context.Context, force bool) error {
	plat := rustAnalyzerAssetName()
	url := fmt.Sprintf("https://github.com/rust-lang/rust-analyzer/releases/latest/download/%s", plat)

	client := &http.Client{
		Timeout: 60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 5 {
				return fmt.Errorf("too many redirects")
			}
			if !allowedReleaseHosts[req.URL.Host] {
				return fmt.Errorf("redirect to disallowed host %q", req.URL.Host)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download rust-analyzer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download rust-analyzer: unexpected status %s", resp.Status)
	}

	dest := filepath.Join(os.TempDir(), "rust-analyzer-download")
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write rust-analyzer download: %w", err)
	}
	return nil
}

func rustAnalyzerAssetName() string {
	switch runtime.GOOS {
	case "darwin":
		return "rust-analyzer-aarch64-apple-darwin.gz"
	case "windows":
		return "rust-analyzer-x86_64-pc-windows-msvc.gz"
	default:
		return "rust-analyzer-x86_64-unknown-linux-gnu.gz"
	}
}
